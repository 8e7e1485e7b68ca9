package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jo-hoe/takziah/internal/backend/database/migrations"
	"github.com/pressly/goose/v3"
)

const postgresColumns = `id, created_at, updated_at, full_name, date_of_birth, date_of_death, age,
	place_of_death, original_photo_url, condolence_image_url, custom_message, is_public`

// PostgresDatabase stores records in PostgreSQL. The schema is managed by
// the embedded goose migrations.
type PostgresDatabase struct {
	db  *sql.DB
	now func() time.Time
}

func NewPostgresDatabase(dsn string) (*PostgresDatabase, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	return NewPostgresDatabaseFromDB(db), nil
}

// NewPostgresDatabaseFromDB wraps an already opened connection pool
func NewPostgresDatabaseFromDB(db *sql.DB) *PostgresDatabase {
	return &PostgresDatabase{db: db, now: time.Now}
}

func (p *PostgresDatabase) CreateDatabase(ctx context.Context) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	if err := goose.UpContext(ctx, p.db, "."); err != nil {
		return fmt.Errorf("migration error: %w", err)
	}
	return nil
}

func (p *PostgresDatabase) Close() error {
	if p.db != nil {
		return p.db.Close()
	}
	return nil
}

func (p *PostgresDatabase) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

func (p *PostgresDatabase) InsertRecord(ctx context.Context, record NewRecord) (*Record, error) {
	id, err := generateID()
	if err != nil {
		return nil, err
	}
	now := p.now().UTC()

	query := `INSERT INTO condolence_records (` + postgresColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err = p.db.ExecContext(ctx, query,
		id,
		now,
		now,
		record.FullName,
		nullableDate(record.DateOfBirth),
		nullableDate(record.DateOfDeath),
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

func (p *PostgresDatabase) ListPublicRecords(ctx context.Context) ([]*Record, error) {
	query := `SELECT ` + postgresColumns + ` FROM condolence_records
		WHERE is_public = TRUE
		ORDER BY created_at DESC`
	return p.queryRecords(ctx, query)
}

func (p *PostgresDatabase) SearchRecords(ctx context.Context, term string) ([]*Record, error) {
	query := `SELECT ` + postgresColumns + ` FROM condolence_records
		WHERE is_public = TRUE AND (
			full_name ILIKE $1 ESCAPE '\'
			OR custom_message ILIKE $1 ESCAPE '\'
			OR place_of_death ILIKE $1 ESCAPE '\'
		)
		ORDER BY created_at DESC`
	return p.queryRecords(ctx, query, containsPattern(term))
}

func (p *PostgresDatabase) GetRecordByID(ctx context.Context, id string) (*Record, error) {
	query := `SELECT ` + postgresColumns + ` FROM condolence_records WHERE id = $1`
	record, err := scanPostgresRecord(p.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select record %s: %w", id, err)
	}
	return record, nil
}

func (p *PostgresDatabase) queryRecords(ctx context.Context, query string, args ...any) ([]*Record, error) {
	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select records: %w", err)
	}
	defer rows.Close()

	records := make([]*Record, 0)
	for rows.Next() {
		record, err := scanPostgresRecord(rows)
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

func scanPostgresRecord(row rowScanner) (*Record, error) {
	var (
		record         Record
		birth, death   sql.NullTime
		age            sql.NullInt64
		place, message sql.NullString
	)
	err := row.Scan(&record.ID, &record.CreatedAt, &record.UpdatedAt, &record.FullName, &birth, &death, &age,
		&place, &record.OriginalPhotoURL, &record.CondolenceImageURL, &message, &record.IsPublic)
	if err != nil {
		return nil, err
	}

	if birth.Valid {
		record.DateOfBirth = &birth.Time
	}
	if death.Valid {
		record.DateOfDeath = &death.Time
	}
	if age.Valid {
		value := int(age.Int64)
		record.Age = &value
	}
	record.PlaceOfDeath = place.String
	record.CustomMessage = message.String
	return &record, nil
}

func nullableDate(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}
