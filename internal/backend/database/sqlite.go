package database

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
	"time"

	"modernc.org/sqlite"
)

// sqliteLower folds case like strings.ToLower. The built-in LOWER only folds ASCII.
const sqliteLower = "unicode_lower"

func init() {
	sqlite.MustRegisterDeterministicScalarFunction(sqliteLower, 1, unicodeLower)
}

func unicodeLower(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	switch v := args[0].(type) {
	case string:
		return strings.ToLower(v), nil
	case []byte:
		return strings.ToLower(string(v)), nil
	default:
		return v, nil
	}
}

const sqliteDateLayout = "2006-01-02"

const sqliteColumns = `id, created_at, updated_at, full_name, date_of_birth, date_of_death, age,
	place_of_death, original_photo_url, condolence_image_url, custom_message, is_public`

type SQLiteDatabase struct {
	db               *sql.DB
	connectionString string
	now              func() time.Time
}

func NewSQLiteDatabase(connectionString string) (*SQLiteDatabase, error) {
	db, err := sql.Open("sqlite", connectionString)
	if err != nil {
		return nil, err
	}
	// every connection to :memory: opens its own empty database
	if strings.Contains(connectionString, ":memory:") {
		db.SetMaxOpenConns(1)
	}

	return &SQLiteDatabase{
		db:               db,
		connectionString: connectionString,
		now:              time.Now,
	}, nil
}

func (s *SQLiteDatabase) CreateDatabase(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS condolence_records (
		id TEXT PRIMARY KEY,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		full_name TEXT NOT NULL,
		date_of_birth TEXT,
		date_of_death TEXT,
		age INTEGER,
		place_of_death TEXT,
		original_photo_url TEXT NOT NULL,
		condolence_image_url TEXT NOT NULL,
		custom_message TEXT,
		is_public INTEGER NOT NULL DEFAULT 1
	)`)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_condolence_records_created_at
		ON condolence_records (created_at DESC)`)
	return err
}

func (s *SQLiteDatabase) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SQLiteDatabase) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteDatabase) InsertRecord(ctx context.Context, record NewRecord) (*Record, error) {
	id, err := generateID()
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()

	_, err = s.db.ExecContext(ctx, `INSERT INTO condolence_records (`+sqliteColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id,
		now.UnixNano(),
		now.UnixNano(),
		record.FullName,
		formatSQLiteDate(record.DateOfBirth),
		formatSQLiteDate(record.DateOfDeath),
		nullableInt(record.Age),
		nullableString(record.PlaceOfDeath),
		record.OriginalPhotoURL,
		record.CondolenceImageURL,
		nullableString(record.CustomMessage),
		record.IsPublic,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert record: %w", err)
	}

	return record.toRecord(id, now), nil
}

func (s *SQLiteDatabase) ListPublicRecords(ctx context.Context) ([]*Record, error) {
	return s.queryRecords(ctx, `SELECT `+sqliteColumns+` FROM condolence_records
		WHERE is_public = 1
		ORDER BY created_at DESC, rowid DESC`)
}

func (s *SQLiteDatabase) SearchRecords(ctx context.Context, term string) ([]*Record, error) {
	pattern := containsPattern(term)
	return s.queryRecords(ctx, `SELECT `+sqliteColumns+` FROM condolence_records
		WHERE is_public = 1 AND (
			`+sqliteLower+`(full_name) LIKE ? ESCAPE '\'
			OR `+sqliteLower+`(COALESCE(custom_message, '')) LIKE ? ESCAPE '\'
			OR `+sqliteLower+`(COALESCE(place_of_death, '')) LIKE ? ESCAPE '\'
		)
		ORDER BY created_at DESC, rowid DESC`, pattern, pattern, pattern)
}

func (s *SQLiteDatabase) GetRecordByID(ctx context.Context, id string) (*Record, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sqliteColumns+` FROM condolence_records WHERE id = ?`, id)
	record, err := scanSQLiteRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return record, nil
}

func (s *SQLiteDatabase) queryRecords(ctx context.Context, query string, args ...any) ([]*Record, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close() // Explicitly ignore error as we're already returning an error from the function
	}()

	records := make([]*Record, 0)
	for rows.Next() {
		record, err := scanSQLiteRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteRecord(row rowScanner) (*Record, error) {
	var (
		record               Record
		createdAt, updatedAt int64
		birth, death         sql.NullString
		age                  sql.NullInt64
		place, message       sql.NullString
	)
	err := row.Scan(&record.ID, &createdAt, &updatedAt, &record.FullName, &birth, &death, &age,
		&place, &record.OriginalPhotoURL, &record.CondolenceImageURL, &message, &record.IsPublic)
	if err != nil {
		return nil, err
	}

	record.CreatedAt = time.Unix(0, createdAt).UTC()
	record.UpdatedAt = time.Unix(0, updatedAt).UTC()
	if record.DateOfBirth, err = parseSQLiteDate(birth); err != nil {
		return nil, err
	}
	if record.DateOfDeath, err = parseSQLiteDate(death); err != nil {
		return nil, err
	}
	if age.Valid {
		value := int(age.Int64)
		record.Age = &value
	}
	record.PlaceOfDeath = place.String
	record.CustomMessage = message.String
	return &record, nil
}

func formatSQLiteDate(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(sqliteDateLayout)
}

func parseSQLiteDate(value sql.NullString) (*time.Time, error) {
	if !value.Valid || value.String == "" {
		return nil, nil
	}
	t, err := time.Parse(sqliteDateLayout, value.String)
	if err != nil {
		return nil, fmt.Errorf("invalid stored date %q: %w", value.String, err)
	}
	return &t, nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullableInt(i *int) any {
	if i == nil {
		return nil
	}
	return int64(*i)
}
