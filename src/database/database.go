package database

import (
	"database/sql"
	stdlog "log"

	"github.com/financoor/backend/src/logger"
	_ "modernc.org/sqlite"
)

var DB *sql.DB

func InitDB(databasePath string) {
	db, err := sql.Open("sqlite", databasePath)
	if err != nil {
		stdlog.Fatalf("failed to open database at %s: %v", databasePath, err)
	}

	DB = db

	if logger.L != nil {
		logger.L.Info("Checking database migrations", "databasePath", databasePath)
	} else {
		stdlog.Println("Checking database migrations for:", databasePath)
	}
	migrateProofJobsTable()

	createTableStatement := `
	CREATE TABLE IF NOT EXISTS proof_jobs (
		id TEXT PRIMARY KEY,
		status TEXT NOT NULL,
		commitment TEXT NOT NULL,
		result TEXT,
		error TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_proof_jobs_commitment ON proof_jobs(commitment);
	`

	_, err = DB.Exec(createTableStatement)
	if err != nil {
		if logger.L != nil {
			logger.L.Error("failed to create tables", "error", err)
		}
		stdlog.Fatalf("failed to create tables: %v", err)
	}
	if logger.L != nil {
		logger.L.Info("Database tables ensured/created.")
	} else {
		stdlog.Println("Database tables ensured/created.")
	}
}

func migrateProofJobsTable() {
	var tableName string
	err := DB.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='proof_jobs'").Scan(&tableName)
	if err != nil {
		if err == sql.ErrNoRows {
			if logger.L != nil {
				logger.L.Info("'proof_jobs' table does not exist, no migration needed as table will be created.")
			} else {
				stdlog.Println("'proof_jobs' table does not exist, no migration needed as table will be created.")
			}
			return
		}
		if logger.L != nil {
			logger.L.Error("Error checking for 'proof_jobs' table", "error", err)
		} else {
			stdlog.Printf("Error checking for 'proof_jobs' table: %v", err)
		}
		return
	}

	rows, err := DB.Query("PRAGMA table_info(proof_jobs)")
	if err != nil {
		if logger.L != nil {
			logger.L.Error("Error querying table schema for 'proof_jobs'", "error", err)
		} else {
			stdlog.Printf("Error querying table schema for 'proof_jobs': %v", err)
		}
		return
	}
	defer rows.Close()

	columnExists := make(map[string]bool)
	for rows.Next() {
		var cid, pk int
		var name, dataType string
		var notnullVal int
		var dfltValue interface{}

		if err := rows.Scan(&cid, &name, &dataType, &notnullVal, &dfltValue, &pk); err != nil {
			if logger.L != nil {
				logger.L.Error("Error scanning column info for 'proof_jobs'", "error", err)
			} else {
				stdlog.Printf("Error scanning column info for 'proof_jobs': %v", err)
			}
			return
		}
		columnExists[name] = true
	}
	if err = rows.Err(); err != nil {
		if logger.L != nil {
			logger.L.Error("Error iterating over column info for 'proof_jobs'", "error", err)
		} else {
			stdlog.Printf("Error iterating over column info for 'proof_jobs': %v", err)
		}
		return
	}

	if _, ok := columnExists["commitment"]; !ok {
		_, err := DB.Exec("ALTER TABLE proof_jobs ADD COLUMN commitment TEXT NOT NULL DEFAULT ''")
		if err != nil {
			logger.L.Error("Error adding 'commitment' column to 'proof_jobs' table", "error", err)
		} else {
			logger.L.Info("Added 'commitment' column to 'proof_jobs' table")
		}
	}
	if _, ok := columnExists["updated_at"]; !ok {
		_, err := DB.Exec("ALTER TABLE proof_jobs ADD COLUMN updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP")
		if err != nil {
			logger.L.Error("Error adding 'updated_at' column to 'proof_jobs' table", "error", err)
		} else {
			logger.L.Info("Added 'updated_at' column to 'proof_jobs' table")
		}
	}
}
