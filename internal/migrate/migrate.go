// Package migrate handles SQL database migration for the internal Sked database
package migrate

import (
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

var migrations []dbMigration

type dbMigration struct {
	Version uint
	Queries []string
}

// Execute runs the current DB migration on the given database
func (mig *dbMigration) Execute(db *sqlx.DB, logger *logrus.Entry) error {
	// Check if the migration has already run
	query := `SELECT success FROM Migrations WHERE version = $1`
	var success = false
	err := db.QueryRow(query, mig.Version).Scan(&success)
	if err != nil && err != sql.ErrNoRows {
		logger.WithError(err).Error("Failed to fetch version information")
		return err
	}
	if !success {
		// We need to execute this migration
		logger.Infof("Executing DB migration #%d", mig.Version)
		for i, query := range mig.Queries {
			logger.Infof("Query %d of %d...", (i + 1), len(mig.Queries))
			if _, err := db.Exec(query); err != nil {
				logger.WithError(err).Errorf("Query #%d failed", (i + 1))
				db.Exec(`REPLACE INTO Migrations(version, success) VALUES($1, 0)`, mig.Version)
				return err
			}
		}
		// Queries executed successfully - save our status
		db.Exec(`REPLACE INTO Migrations(version, success) VALUES($1, 1)`, mig.Version)
	}
	return nil
}

// ExecuteMigrationsOnDb executes the database migrations on the given database instance
func ExecuteMigrationsOnDb(db *sqlx.DB, logger *logrus.Entry) error {
	// Create the migrations table if it does not exist, yet
	query := `CREATE TABLE IF NOT EXISTS Migrations (
                version   INTEGER NOT NULL,
                success   INTEGER NOT NULL DEFAULT 0,
                PRIMARY KEY(version)
            )`
	if _, err := db.Exec(query); err != nil {
		logger.WithError(err).Error("Failed to create migrations table")
		return err
	}
	for _, mig := range migrations {
		if err := mig.Execute(db, logger); err != nil {
			logger.WithError(err).Errorf("Failed to execute migration #%d", mig.Version)
			return err
		}
	}
	return nil
}

// For now, the migrations are part of the package...
func init() {
	migrations = []dbMigration{
		{
			Version: 1,
			Queries: []string{
				`CREATE TABLE "events" (
                    id VARCHAR(36) NOT NULL PRIMARY KEY,
                    title VARCHAR(200) NOT NULL,
                    agenda TEXT NOT NULL DEFAULT '',
                    date VARCHAR(10) NOT NULL,
                    time VARCHAR(8) NOT NULL,
                    importance VARCHAR(10) NOT NULL DEFAULT 'medium',
                    location VARCHAR(300) NOT NULL DEFAULT '',
                    coordinator VARCHAR(100) NOT NULL,
                    recurrence VARCHAR(10) NOT NULL DEFAULT 'none',
                    createdAt DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
                    updatedAt DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
                );`,
				`CREATE TABLE "participants" (
                    id INTEGER NOT NULL PRIMARY KEY AUTOINCREMENT,
                    name VARCHAR(100) NOT NULL,
                    eventId VARCHAR(36) NOT NULL REFERENCES events(id) ON DELETE CASCADE,
                    createdAt DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
                );`,
				`CREATE INDEX idx_participant_event ON participants (eventId ASC);`,
				`CREATE INDEX idx_event_search ON events (coordinator ASC, date ASC);`,
				`CREATE INDEX idx_event_order ON events (createdAt ASC, id ASC);`,
			},
		},
	}
}
