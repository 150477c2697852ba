package repository

// Schema definitions for the cropadvisor database.
// Compatible with both SQLite and PostgreSQL.

// schemaCrops stores the crop catalog. position keeps catalog order,
// which decides ranking ties.
const schemaCrops = `
CREATE TABLE IF NOT EXISTS crops (
    crop_key TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    seasons TEXT NOT NULL,
    soil_types TEXT NOT NULL,
    water_need TEXT NOT NULL,
    temp_min DOUBLE PRECISION NOT NULL,
    temp_max DOUBLE PRECISION NOT NULL,
    duration_days INTEGER NOT NULL,
    yield_per_acre DOUBLE PRECISION NOT NULL,
    msp DOUBLE PRECISION NOT NULL,
    cost_per_acre DOUBLE PRECISION NOT NULL,
    position INTEGER NOT NULL,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_crops_position ON crops(position);
`

// AllSchemas returns all schema statements in order.
func AllSchemas() []string {
	return []string{
		schemaCrops,
	}
}
