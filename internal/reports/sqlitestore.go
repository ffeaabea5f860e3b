package reports

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/repwatch/repwatch/internal/models"
	_ "modernc.org/sqlite"
)

// SQLiteStore keeps reports in an embedded SQLite database, for deployments
// where the report set outgrows a single JSON document.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (creating if needed) the database at path and applies
// migrations. The single connection plus WAL keeps writers from tripping over
// each other.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open report database: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping report database: %w", err)
	}
	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate report database: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func migrate(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS reports (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			report_id TEXT NOT NULL UNIQUE,
			post_id TEXT NOT NULL,
			platform TEXT NOT NULL,
			reason TEXT NOT NULL,
			reported_by TEXT NOT NULL,
			timestamp DATETIME NOT NULL,
			status TEXT NOT NULL,
			additional_info TEXT NOT NULL DEFAULT '{}'
		);`,
		`CREATE INDEX IF NOT EXISTS idx_reports_status ON reports(status);`,
		`CREATE INDEX IF NOT EXISTS idx_reports_platform ON reports(platform);`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Get returns the report stored under reportID.
func (s *SQLiteStore) Get(reportID string) (*models.Report, error) {
	row := s.db.QueryRow(
		`SELECT report_id, post_id, platform, reason, reported_by, timestamp, status, additional_info
		 FROM reports WHERE report_id = ?`, reportID)

	report, err := scanReport(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load report %s: %w", reportID, err)
	}
	return report, nil
}

// Put inserts a report or updates its mutable columns.
func (s *SQLiteStore) Put(report models.Report) error {
	info, err := json.Marshal(report.AdditionalInfo)
	if err != nil {
		return fmt.Errorf("failed to encode report info: %w", err)
	}

	_, err = s.db.Exec(
		`INSERT INTO reports (report_id, post_id, platform, reason, reported_by, timestamp, status, additional_info)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(report_id) DO UPDATE SET
			status = excluded.status,
			additional_info = excluded.additional_info`,
		report.ReportID, report.PostID, string(report.Platform), string(report.Reason),
		report.ReportedBy, report.Timestamp.UTC().Format(time.RFC3339Nano),
		string(report.Status), string(info))
	if err != nil {
		return fmt.Errorf("failed to persist report %s: %w", report.ReportID, err)
	}
	return nil
}

// List returns all reports in insertion order.
func (s *SQLiteStore) List() ([]models.Report, error) {
	rows, err := s.db.Query(
		`SELECT report_id, post_id, platform, reason, reported_by, timestamp, status, additional_info
		 FROM reports ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	defer rows.Close()

	var out []models.Report
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		out = append(out, *report)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate reports: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanReport(row rowScanner) (*models.Report, error) {
	var (
		r        models.Report
		platform string
		reason   string
		ts       string
		status   string
		info     string
	)
	if err := row.Scan(&r.ReportID, &r.PostID, &platform, &reason, &r.ReportedBy, &ts, &status, &info); err != nil {
		return nil, err
	}

	r.Platform = models.Platform(platform)
	r.Reason = models.ReportReason(reason)
	r.Status = models.ReportStatus(status)

	parsed, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return nil, fmt.Errorf("bad timestamp %q: %w", ts, err)
	}
	r.Timestamp = parsed

	if err := json.Unmarshal([]byte(info), &r.AdditionalInfo); err != nil {
		return nil, fmt.Errorf("bad additional_info: %w", err)
	}
	return &r, nil
}
