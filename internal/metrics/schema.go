package metrics

import (
	"path/filepath"

	"codeberg.org/mutker/opratectl/internal/storage"
)

const (
	SchemaVersion = 1

	createDecisionsSQL = `
	   CREATE TABLE IF NOT EXISTS decisions (
	       id            INTEGER PRIMARY KEY AUTOINCREMENT,
	       timestamp     INTEGER NOT NULL,
	       reason        TEXT NOT NULL,
	       target_rate   INTEGER NOT NULL CHECK (typeof(target_rate) = 'integer'),
	       desired_rate  INTEGER NOT NULL CHECK (typeof(desired_rate) = 'integer'),
	       refresh_rate  INTEGER NOT NULL CHECK (typeof(refresh_rate) = 'integer'),
	       peak_rate     INTEGER NOT NULL CHECK (typeof(peak_rate) = 'integer'),
	       brightness    INTEGER NOT NULL CHECK (typeof(brightness) = 'integer'),
	       power_mode    TEXT NOT NULL,
	       low_battery   INTEGER NOT NULL CHECK (low_battery IN (0, 1)),
	       sampler_armed INTEGER NOT NULL CHECK (sampler_armed IN (0, 1)),
	       switched      INTEGER NOT NULL CHECK (switched IN (0, 1))
	   );
	   CREATE INDEX IF NOT EXISTS decisions_timestamp ON decisions (timestamp);`

	insertDecisionSQL = `
    INSERT INTO decisions (
        timestamp, reason,
        target_rate, desired_rate, refresh_rate, peak_rate,
        brightness, power_mode,
        low_battery, sampler_armed, switched
    ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	selectRecentSQL = `
    SELECT timestamp, reason,
           target_rate, desired_rate, refresh_rate, peak_rate,
           brightness, power_mode,
           low_battery, sampler_armed, switched
    FROM decisions
    ORDER BY id DESC
    LIMIT ?`
)

func decisionSchema(dbPath string) storage.Schema {
	return storage.Schema{
		Name:      "metrics",
		Version:   SchemaVersion,
		Tables:    []string{"decisions"},
		CreateSQL: createDecisionsSQL,
		BackupDir: filepath.Join(filepath.Dir(dbPath), "backups"),
	}
}
