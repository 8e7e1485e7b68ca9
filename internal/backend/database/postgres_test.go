package database

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

var recordColumns = []string{
	"id", "created_at", "updated_at", "full_name", "date_of_birth", "date_of_death", "age",
	"place_of_death", "original_photo_url", "condolence_image_url", "custom_message", "is_public",
}

func newPostgresWithMock(t *testing.T) (*PostgresDatabase, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresDatabaseFromDB(db), mock
}

func TestPostgres_InsertRecord(t *testing.T) {
	p, mock := newPostgresWithMock(t)
	now := time.Date(2024, 3, 16, 10, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return now }
	record := sampleRecord("Ahmad bin Ali")

	mock.ExpectExec(`(?s)^INSERT\s+INTO\s+condolence_records\b.*VALUES\s*\(\$1,.*\$12\)`).
		WithArgs(sqlmock.AnyArg(), now, now, "Ahmad bin Ali", *record.DateOfBirth, *record.DateOfDeath,
			int64(74), "Kuala Lumpur", record.OriginalPhotoURL, record.CondolenceImageURL,
			record.CustomMessage, true).
		WillReturnResult(sqlmock.NewResult(0, 1))

	got, err := p.InsertRecord(context.Background(), record)
	require.NoError(t, err)
	require.NotEmpty(t, got.ID)
	require.Equal(t, now, got.CreatedAt)
	require.Equal(t, "Ahmad bin Ali", got.FullName)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_InsertRecord_NullOptionals(t *testing.T) {
	p, mock := newPostgresWithMock(t)
	now := time.Date(2024, 3, 16, 10, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return now }

	mock.ExpectExec(`INSERT INTO condolence_records`).
		WithArgs(sqlmock.AnyArg(), now, now, "Siti", nil, nil, nil, nil, "o", "c", nil, true).
		WillReturnResult(sqlmock.NewResult(0, 1))

	_, err := p.InsertRecord(context.Background(), NewRecord{
		FullName:           "Siti",
		OriginalPhotoURL:   "o",
		CondolenceImageURL: "c",
		IsPublic:           true,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_InsertRecord_DBError(t *testing.T) {
	p, mock := newPostgresWithMock(t)

	mock.ExpectExec(`INSERT INTO condolence_records`).
		WillReturnError(errors.New("permission denied for table condolence_records"))

	_, err := p.InsertRecord(context.Background(), sampleRecord("x"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "permission denied")
}

func TestPostgres_ListPublicRecords(t *testing.T) {
	p, mock := newPostgresWithMock(t)
	created := time.Date(2024, 3, 16, 10, 0, 0, 0, time.UTC)
	death := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows(recordColumns).
		AddRow("id-2", created.Add(time.Hour), created.Add(time.Hour), "Nur", nil, death, nil, nil, "o2", "c2", nil, true).
		AddRow("id-1", created, created, "Ahmad", nil, nil, int64(74), "Kuala Lumpur", "o1", "c1", "msg", true)
	mock.ExpectQuery(`(?s)SELECT .* FROM condolence_records\s+WHERE is_public = TRUE\s+ORDER BY created_at DESC`).
		WillReturnRows(rows)

	records, err := p.ListPublicRecords(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)

	require.Equal(t, "id-2", records[0].ID)
	require.NotNil(t, records[0].DateOfDeath)
	require.True(t, records[0].DateOfDeath.Equal(death))
	require.Nil(t, records[0].Age)

	require.Equal(t, "Kuala Lumpur", records[1].PlaceOfDeath)
	require.NotNil(t, records[1].Age)
	require.Equal(t, 74, *records[1].Age)
	require.Equal(t, "msg", records[1].CustomMessage)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_SearchRecords_EscapesWildcards(t *testing.T) {
	p, mock := newPostgresWithMock(t)

	mock.ExpectQuery(`(?s)SELECT .* FROM condolence_records.*ILIKE \$1`).
		WithArgs(`%100\%\_kuala%`).
		WillReturnRows(sqlmock.NewRows(recordColumns))

	records, err := p.SearchRecords(context.Background(), "100%_KUALA")
	require.NoError(t, err)
	require.Empty(t, records)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_GetRecordByID(t *testing.T) {
	p, mock := newPostgresWithMock(t)
	created := time.Date(2024, 3, 16, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT .* FROM condolence_records WHERE id = \$1`).
		WithArgs("id-1").
		WillReturnRows(sqlmock.NewRows(recordColumns).
			AddRow("id-1", created, created, "Ahmad", nil, nil, nil, nil, "o", "c", nil, true))

	record, err := p.GetRecordByID(context.Background(), "id-1")
	require.NoError(t, err)
	require.Equal(t, "Ahmad", record.FullName)

	mock.ExpectQuery(`SELECT .* FROM condolence_records WHERE id = \$1`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err = p.GetRecordByID(context.Background(), "missing")
	require.ErrorIs(t, err, ErrRecordNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_Ping(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	require.Error(t, NewPostgresDatabaseFromDB(db).Ping(context.Background()))
}
