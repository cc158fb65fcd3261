package migrations

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(upCreateTrainingSessionsTable, downCreateTrainingSessionsTable)
}

func upCreateTrainingSessionsTable(ctx context.Context, tx *sql.Tx) error {
	return execAll(ctx, tx,
		`CREATE TABLE IF NOT EXISTS training_sessions (
			id TEXT PRIMARY KEY,
			student_id TEXT REFERENCES students(id) ON DELETE CASCADE,
			court_location TEXT NOT NULL,
			court_number INTEGER,
			start_time TIMESTAMP NOT NULL,
			end_time TIMESTAMP NOT NULL,
			day_of_week TEXT NOT NULL,
			is_messaged BOOLEAN NOT NULL DEFAULT FALSE,
			is_booked BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_training_sessions_student ON training_sessions (student_id)`,
	)
}

func downCreateTrainingSessionsTable(ctx context.Context, tx *sql.Tx) error {
	return execAll(ctx, tx, `DROP TABLE IF EXISTS training_sessions`)
}
