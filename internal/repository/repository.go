// Package repository stores the crop catalog in SQLite or PostgreSQL.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	json "github.com/goccy/go-json"

	"github.com/opensource-finance/cropadvisor/internal/domain"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrInvalidInput = errors.New("invalid input")
)

// SQLRepository implements domain.CatalogStore using database/sql.
// Works with both SQLite and PostgreSQL drivers.
type SQLRepository struct {
	db     *sql.DB
	driver string
}

// New creates a new repository based on configuration.
func New(cfg domain.RepositoryConfig) (*SQLRepository, error) {
	var dsn string
	switch cfg.Driver {
	case "sqlite":
		var err error
		if dsn, err = sqliteDSN(cfg); err != nil {
			return nil, err
		}
	case "postgres":
		dsn = postgresDSN(cfg)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}

	db, err := sql.Open(cfg.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s catalog: %w", cfg.Driver, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to reach %s catalog: %w", cfg.Driver, err)
	}

	// Configure connection pool
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	repo := &SQLRepository{
		db:     db,
		driver: cfg.Driver,
	}

	// Run migrations
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return repo, nil
}

func (r *SQLRepository) migrate() error {
	for _, schema := range AllSchemas() {
		if _, err := r.db.Exec(schema); err != nil {
			return err
		}
	}
	return nil
}

// SaveCrop inserts or replaces a crop. Replacing keeps the crop's position
// in the catalog; new crops are appended.
func (r *SQLRepository) SaveCrop(ctx context.Context, crop *domain.Crop) error {
	if crop == nil || crop.Key() == "" {
		return fmt.Errorf("%w: crop name is required", ErrInvalidInput)
	}

	seasons, err := json.Marshal(crop.Seasons)
	if err != nil {
		return fmt.Errorf("failed to encode seasons: %w", err)
	}
	soils, err := json.Marshal(crop.SoilTypes)
	if err != nil {
		return fmt.Errorf("failed to encode soil types: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now().UTC()

	var position int64
	err = tx.QueryRowContext(ctx, r.rebind(`SELECT position FROM crops WHERE crop_key = ?`), crop.Key()).Scan(&position)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(position), 0) + 1 FROM crops`).Scan(&position); err != nil {
			return err
		}

		query := `
			INSERT INTO crops (
				crop_key, name, seasons, soil_types, water_need,
				temp_min, temp_max, duration_days, yield_per_acre,
				msp, cost_per_acre, position, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`
		if _, err := tx.ExecContext(ctx, r.rebind(query),
			crop.Key(), crop.Name, string(seasons), string(soils), crop.WaterNeed,
			crop.TempRange[0], crop.TempRange[1], crop.DurationDays, crop.YieldPerAcre,
			crop.MSP, crop.CostPerAcre, position, now, now,
		); err != nil {
			return err
		}

	case err != nil:
		return err

	default:
		query := `
			UPDATE crops SET
				name = ?, seasons = ?, soil_types = ?, water_need = ?,
				temp_min = ?, temp_max = ?, duration_days = ?, yield_per_acre = ?,
				msp = ?, cost_per_acre = ?, updated_at = ?
			WHERE crop_key = ?
		`
		if _, err := tx.ExecContext(ctx, r.rebind(query),
			crop.Name, string(seasons), string(soils), crop.WaterNeed,
			crop.TempRange[0], crop.TempRange[1], crop.DurationDays, crop.YieldPerAcre,
			crop.MSP, crop.CostPerAcre, now, crop.Key(),
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

const selectCrop = `
	SELECT name, seasons, soil_types, water_need, temp_min, temp_max,
		   duration_days, yield_per_acre, msp, cost_per_acre
	FROM crops
`

// GetCrop retrieves a crop by name (case-insensitive).
func (r *SQLRepository) GetCrop(ctx context.Context, name string) (*domain.Crop, error) {
	key := (&domain.Crop{Name: name}).Key()
	if key == "" {
		return nil, fmt.Errorf("%w: crop name is required", ErrInvalidInput)
	}

	row := r.db.QueryRowContext(ctx, r.rebind(selectCrop+` WHERE crop_key = ?`), key)
	crop, err := scanCrop(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return crop, err
}

// ListCrops returns every crop in catalog order.
func (r *SQLRepository) ListCrops(ctx context.Context) ([]*domain.Crop, error) {
	rows, err := r.db.QueryContext(ctx, selectCrop+` ORDER BY position ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var crops []*domain.Crop
	for rows.Next() {
		crop, err := scanCrop(rows)
		if err != nil {
			return nil, err
		}
		crops = append(crops, crop)
	}

	return crops, rows.Err()
}

// DeleteCrop removes a crop by name.
func (r *SQLRepository) DeleteCrop(ctx context.Context, name string) error {
	key := (&domain.Crop{Name: name}).Key()

	result, err := r.db.ExecContext(ctx, r.rebind(`DELETE FROM crops WHERE crop_key = ?`), key)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// CountCrops returns the catalog size.
func (r *SQLRepository) CountCrops(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM crops`).Scan(&count)
	return count, err
}

// Ping checks database connectivity.
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection.
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCrop(row rowScanner) (*domain.Crop, error) {
	var crop domain.Crop
	var seasons, soils string

	if err := row.Scan(
		&crop.Name, &seasons, &soils, &crop.WaterNeed,
		&crop.TempRange[0], &crop.TempRange[1],
		&crop.DurationDays, &crop.YieldPerAcre, &crop.MSP, &crop.CostPerAcre,
	); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(seasons), &crop.Seasons); err != nil {
		return nil, fmt.Errorf("crop %s: invalid seasons: %w", crop.Name, err)
	}
	if err := json.Unmarshal([]byte(soils), &crop.SoilTypes); err != nil {
		return nil, fmt.Errorf("crop %s: invalid soil types: %w", crop.Name, err)
	}

	return &crop, nil
}

// rebind converts ? placeholders to $1, $2, etc. for PostgreSQL.
func (r *SQLRepository) rebind(query string) string {
	if r.driver != "postgres" {
		return query
	}

	// Convert ? to $1, $2, etc.
	var result []byte
	n := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			result = append(result, '$')
			result = append(result, fmt.Sprintf("%d", n)...)
			n++
		} else {
			result = append(result, query[i])
		}
	}
	return string(result)
}
