package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/fleetsight/collector/internal/telemetry"
)

const schema = `
CREATE TABLE IF NOT EXISTS devices (
	id TEXT PRIMARY KEY,
	hostname TEXT NOT NULL,
	platform TEXT NOT NULL,
	agent_version TEXT,
	registered_at DATETIME NOT NULL,
	last_seen_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS metrics (
	id TEXT PRIMARY KEY,
	device_id TEXT NOT NULL,
	cpu_percent REAL NOT NULL,
	memory_used_mb REAL NOT NULL,
	memory_total_mb REAL NOT NULL,
	disk_used_gb REAL NOT NULL,
	recorded_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS alerts (
	id TEXT PRIMARY KEY,
	device_id TEXT NOT NULL,
	severity TEXT NOT NULL,
	category TEXT,
	message TEXT NOT NULL,
	created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS screenshots (
	id TEXT PRIMARY KEY,
	device_id TEXT NOT NULL,
	format TEXT NOT NULL,
	size_bytes INTEGER NOT NULL,
	data BLOB NOT NULL,
	captured_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_metrics_device ON metrics(device_id, recorded_at);
CREATE INDEX IF NOT EXISTS idx_alerts_device ON alerts(device_id, created_at);
CREATE INDEX IF NOT EXISTS idx_screenshots_device ON screenshots(device_id, captured_at);
`

// SQLite is the durable Store backed by a local sqlite database.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path and ensures
// the schema exists.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

// RegisterDevice stores a new device row.
func (s *SQLite) RegisterDevice(ctx context.Context, d *telemetry.Device) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO devices (id, hostname, platform, agent_version, registered_at, last_seen_at) VALUES (?, ?, ?, ?, ?, ?)`,
		d.ID, d.Hostname, d.Platform, d.AgentVersion, d.RegisteredAt, d.LastSeenAt)
	return err
}

// TouchDevice bumps the device's last seen timestamp.
func (s *SQLite) TouchDevice(ctx context.Context, id string, seen time.Time) error {
	res, err := s.db.ExecContext(ctx, `UPDATE devices SET last_seen_at = ? WHERE id = ?`, seen, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// GetDevice fetches one device by id.
func (s *SQLite) GetDevice(ctx context.Context, id string) (*telemetry.Device, error) {
	var d telemetry.Device
	err := s.db.QueryRowContext(ctx,
		`SELECT id, hostname, platform, agent_version, registered_at, last_seen_at FROM devices WHERE id = ?`, id).
		Scan(&d.ID, &d.Hostname, &d.Platform, &d.AgentVersion, &d.RegisteredAt, &d.LastSeenAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// ListDevices returns every known device, most recently seen first.
func (s *SQLite) ListDevices(ctx context.Context) ([]*telemetry.Device, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, hostname, platform, agent_version, registered_at, last_seen_at FROM devices ORDER BY last_seen_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var devices []*telemetry.Device
	for rows.Next() {
		var d telemetry.Device
		if err := rows.Scan(&d.ID, &d.Hostname, &d.Platform, &d.AgentVersion, &d.RegisteredAt, &d.LastSeenAt); err != nil {
			return nil, err
		}
		devices = append(devices, &d)
	}
	return devices, rows.Err()
}

// InsertMetric stores one resource sample.
func (s *SQLite) InsertMetric(ctx context.Context, m *telemetry.Metric) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO metrics (id, device_id, cpu_percent, memory_used_mb, memory_total_mb, disk_used_gb, recorded_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.DeviceID, m.CPUPercent, m.MemoryUsedMB, m.MemoryTotalMB, m.DiskUsedGB, m.RecordedAt)
	return err
}

// ListMetrics returns the newest samples for a device.
func (s *SQLite) ListMetrics(ctx context.Context, deviceID string, limit int) ([]*telemetry.Metric, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, device_id, cpu_percent, memory_used_mb, memory_total_mb, disk_used_gb, recorded_at
		 FROM metrics WHERE device_id = ? ORDER BY recorded_at DESC LIMIT ?`,
		deviceID, normalizeLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var metrics []*telemetry.Metric
	for rows.Next() {
		var m telemetry.Metric
		if err := rows.Scan(&m.ID, &m.DeviceID, &m.CPUPercent, &m.MemoryUsedMB, &m.MemoryTotalMB, &m.DiskUsedGB, &m.RecordedAt); err != nil {
			return nil, err
		}
		metrics = append(metrics, &m)
	}
	return metrics, rows.Err()
}

// InsertAlert stores one alert.
func (s *SQLite) InsertAlert(ctx context.Context, a *telemetry.Alert) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO alerts (id, device_id, severity, category, message, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID, a.DeviceID, a.Severity, a.Category, a.Message, a.CreatedAt)
	return err
}

// ListAlerts returns the newest alerts for a device.
func (s *SQLite) ListAlerts(ctx context.Context, deviceID string, limit int) ([]*telemetry.Alert, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, device_id, severity, category, message, created_at
		 FROM alerts WHERE device_id = ? ORDER BY created_at DESC LIMIT ?`,
		deviceID, normalizeLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var alerts []*telemetry.Alert
	for rows.Next() {
		var a telemetry.Alert
		if err := rows.Scan(&a.ID, &a.DeviceID, &a.Severity, &a.Category, &a.Message, &a.CreatedAt); err != nil {
			return nil, err
		}
		alerts = append(alerts, &a)
	}
	return alerts, rows.Err()
}

// InsertScreenshot stores one captured image.
func (s *SQLite) InsertScreenshot(ctx context.Context, sc *telemetry.Screenshot) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO screenshots (id, device_id, format, size_bytes, data, captured_at) VALUES (?, ?, ?, ?, ?, ?)`,
		sc.ID, sc.DeviceID, sc.Format, sc.SizeBytes, sc.Data, sc.CapturedAt)
	return err
}

// GetScreenshot fetches one screenshot with its image data.
func (s *SQLite) GetScreenshot(ctx context.Context, id string) (*telemetry.Screenshot, error) {
	var sc telemetry.Screenshot
	err := s.db.QueryRowContext(ctx,
		`SELECT id, device_id, format, size_bytes, data, captured_at FROM screenshots WHERE id = ?`, id).
		Scan(&sc.ID, &sc.DeviceID, &sc.Format, &sc.SizeBytes, &sc.Data, &sc.CapturedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sc, nil
}

// Stats counts stored records per table.
func (s *SQLite) Stats(ctx context.Context) (Stats, error) {
	var stats Stats
	for _, q := range []struct {
		table string
		dest  *int64
	}{
		{"devices", &stats.Devices},
		{"metrics", &stats.Metrics},
		{"alerts", &stats.Alerts},
		{"screenshots", &stats.Screenshots},
	} {
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+q.table).Scan(q.dest); err != nil {
			return Stats{}, err
		}
	}
	return stats, nil
}

// Close releases the database handle.
func (s *SQLite) Close() error {
	return s.db.Close()
}
