package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func newTestDB(t *testing.T) *SQLiteDatabase {
	t.Helper()

	ds, err := NewSQLiteDatabase(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteDatabase error: %v", err)
	}
	if err := ds.CreateDatabase(context.Background()); err != nil {
		t.Fatalf("CreateDatabase error: %v", err)
	}
	t.Cleanup(func() { _ = ds.Close() })
	return ds
}

// steppingClock returns a clock that advances one second per call
func steppingClock(start time.Time) func() time.Time {
	current := start
	return func() time.Time {
		current = current.Add(time.Second)
		return current
	}
}

func sampleRecord(name string) NewRecord {
	birth := time.Date(1950, 1, 1, 0, 0, 0, 0, time.UTC)
	death := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	age := 74
	return NewRecord{
		FullName:           name,
		DateOfBirth:        &birth,
		DateOfDeath:        &death,
		Age:                &age,
		PlaceOfDeath:       "Kuala Lumpur",
		OriginalPhotoURL:   "http://objects.local/original/1_" + name + ".jpg",
		CondolenceImageURL: "http://objects.local/condolence/1_" + name + ".png",
		CustomMessage:      "May their soul be blessed with mercy",
		IsPublic:           true,
	}
}

func TestSQLite_Ping(t *testing.T) {
	ds := newTestDB(t)
	if err := ds.Ping(context.Background()); err != nil {
		t.Fatalf("expected Ping to succeed, got %v", err)
	}
}

func TestSQLite_InsertAndGet(t *testing.T) {
	ds := newTestDB(t)
	ctx := context.Background()

	inserted, err := ds.InsertRecord(ctx, sampleRecord("Ahmad bin Ali"))
	if err != nil {
		t.Fatalf("InsertRecord error: %v", err)
	}
	if inserted.ID == "" {
		t.Fatal("expected generated id")
	}

	got, err := ds.GetRecordByID(ctx, inserted.ID)
	if err != nil {
		t.Fatalf("GetRecordByID error: %v", err)
	}
	if got.FullName != "Ahmad bin Ali" {
		t.Errorf("FullName = %q", got.FullName)
	}
	if got.Age == nil || *got.Age != 74 {
		t.Errorf("Age = %v, want 74", got.Age)
	}
	if got.DateOfDeath == nil || got.DateOfDeath.Format("2006-01-02") != "2024-03-15" {
		t.Errorf("DateOfDeath = %v", got.DateOfDeath)
	}
	if got.CondolenceImageURL != inserted.CondolenceImageURL {
		t.Errorf("CondolenceImageURL = %q, want %q", got.CondolenceImageURL, inserted.CondolenceImageURL)
	}
	if !got.CreatedAt.Equal(inserted.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, inserted.CreatedAt)
	}
	if !got.IsPublic {
		t.Error("expected record to be public")
	}
}

func TestSQLite_OptionalFieldsStayEmpty(t *testing.T) {
	ds := newTestDB(t)
	ctx := context.Background()

	inserted, err := ds.InsertRecord(ctx, NewRecord{
		FullName:           "Siti",
		OriginalPhotoURL:   "o",
		CondolenceImageURL: "c",
		IsPublic:           true,
	})
	if err != nil {
		t.Fatalf("InsertRecord error: %v", err)
	}

	got, err := ds.GetRecordByID(ctx, inserted.ID)
	if err != nil {
		t.Fatalf("GetRecordByID error: %v", err)
	}
	if got.DateOfBirth != nil || got.DateOfDeath != nil || got.Age != nil {
		t.Errorf("expected unset optional fields, got %+v", got)
	}
	if got.PlaceOfDeath != "" || got.CustomMessage != "" {
		t.Errorf("expected empty optional texts, got %q / %q", got.PlaceOfDeath, got.CustomMessage)
	}
}

func TestSQLite_GetRecordByID_NotFound(t *testing.T) {
	ds := newTestDB(t)
	_, err := ds.GetRecordByID(context.Background(), "non-existent-id")
	if !errors.Is(err, ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
}

func TestSQLite_ListPublicRecords_NewestFirst(t *testing.T) {
	ds := newTestDB(t)
	ds.now = steppingClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	ctx := context.Background()

	for _, name := range []string{"first", "second", "third"} {
		if _, err := ds.InsertRecord(ctx, sampleRecord(name)); err != nil {
			t.Fatalf("InsertRecord(%s) error: %v", name, err)
		}
	}
	hidden := sampleRecord("hidden")
	hidden.IsPublic = false
	if _, err := ds.InsertRecord(ctx, hidden); err != nil {
		t.Fatalf("InsertRecord(hidden) error: %v", err)
	}

	records, err := ds.ListPublicRecords(ctx)
	if err != nil {
		t.Fatalf("ListPublicRecords error: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 public records, got %d", len(records))
	}
	want := []string{"third", "second", "first"}
	for i, r := range records {
		if r.FullName != want[i] {
			t.Errorf("records[%d] = %q, want %q", i, r.FullName, want[i])
		}
	}
}

func TestSQLite_ListPublicRecords_Empty(t *testing.T) {
	ds := newTestDB(t)
	records, err := ds.ListPublicRecords(context.Background())
	if err != nil {
		t.Fatalf("ListPublicRecords error: %v", err)
	}
	if records == nil || len(records) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", records)
	}
}

func TestSQLite_SearchRecords(t *testing.T) {
	ds := newTestDB(t)
	ds.now = steppingClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	ctx := context.Background()

	kl := sampleRecord("Ahmad bin Ali")
	if _, err := ds.InsertRecord(ctx, kl); err != nil {
		t.Fatalf("InsertRecord error: %v", err)
	}
	other := sampleRecord("Nur Aisyah")
	other.PlaceOfDeath = "Penang"
	other.CustomMessage = "Al-Fatihah 100% sincere"
	if _, err := ds.InsertRecord(ctx, other); err != nil {
		t.Fatalf("InsertRecord error: %v", err)
	}
	private := sampleRecord("Private Kuala")
	private.IsPublic = false
	if _, err := ds.InsertRecord(ctx, private); err != nil {
		t.Fatalf("InsertRecord error: %v", err)
	}
	accented := sampleRecord("ÉMILE Öz")
	accented.PlaceOfDeath = "Éze"
	accented.CustomMessage = ""
	if _, err := ds.InsertRecord(ctx, accented); err != nil {
		t.Fatalf("InsertRecord error: %v", err)
	}

	tests := []struct {
		term string
		want []string
	}{
		{"kuala", []string{"Ahmad bin Ali"}},
		{"KUALA LUMPUR", []string{"Ahmad bin Ali"}},
		{"aisy", []string{"Nur Aisyah"}},
		{"fatihah", []string{"Nur Aisyah"}},
		{"100%", []string{"Nur Aisyah"}},
		{"%", []string{"Nur Aisyah"}},
		{"_", nil},
		{"mercy", []string{"Ahmad bin Ali"}},
		{"a", []string{"Nur Aisyah", "Ahmad bin Ali"}},
		{"nobody", nil},
		{"émile", []string{"ÉMILE Öz"}},
		{"ÖZ", []string{"ÉMILE Öz"}},
		{"éZE", []string{"ÉMILE Öz"}},
	}

	for _, tt := range tests {
		t.Run(tt.term, func(t *testing.T) {
			records, err := ds.SearchRecords(ctx, tt.term)
			if err != nil {
				t.Fatalf("SearchRecords error: %v", err)
			}
			if len(records) != len(tt.want) {
				t.Fatalf("SearchRecords(%q) returned %d records, want %d", tt.term, len(records), len(tt.want))
			}
			for i, r := range records {
				if r.FullName != tt.want[i] {
					t.Errorf("records[%d] = %q, want %q", i, r.FullName, tt.want[i])
				}
			}
		})
	}
}

func TestSQLite_FileDatabasePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.db")
	ctx := context.Background()

	first, err := NewDatabase(ctx, TypeSQLite, path)
	if err != nil {
		t.Fatalf("NewDatabase error: %v", err)
	}
	inserted, err := first.InsertRecord(ctx, sampleRecord("persisted"))
	if err != nil {
		t.Fatalf("InsertRecord error: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}

	second, err := NewDatabase(ctx, TypeSQLite, path)
	if err != nil {
		t.Fatalf("NewDatabase (reopen) error: %v", err)
	}
	t.Cleanup(func() { _ = second.Close() })

	got, err := second.GetRecordByID(ctx, inserted.ID)
	if err != nil {
		t.Fatalf("GetRecordByID after reopen error: %v", err)
	}
	if got.FullName != "persisted" {
		t.Errorf("FullName = %q, want persisted", got.FullName)
	}
}

func TestNewDatabase_UnsupportedType(t *testing.T) {
	if _, err := NewDatabase(context.Background(), "oracle", ""); err == nil {
		t.Fatal("expected error for unsupported database type")
	}
}
