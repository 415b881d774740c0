// Package catalog keeps a SQLite ledger of reports, describe runs, and
// captured page content across invocations.
package catalog

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"katari/internal/interfaces"
	"katari/internal/model"
	"katari/internal/utils"
)

//go:embed schema.sql
var schemaFS embed.FS

// Catalog is the persistent ledger behind describe runs. Reports are keyed
// by canonical URL so manifest cosmetics (ordering of query parameters,
// default ports) do not split a report's history.
type Catalog struct {
	db     *sql.DB
	logger interfaces.Logger
}

// Open opens or creates the catalog database at path. DSN strings such as
// file::memory:?cache=shared pass through untouched.
func Open(path string, logger interfaces.Logger) (*Catalog, error) {
	if !strings.HasPrefix(path, "file:") {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("creating catalog directory: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening catalog database: %w", err)
	}
	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying catalog schema: %w", err)
	}

	return &Catalog{
		db:     db,
		logger: logger.With(interfaces.Field{Key: "component", Value: "catalog"}),
	}, nil
}

func (c *Catalog) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

func applySchema(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to set pragma %q: %w", pragma, err)
		}
	}

	schemaSQL, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		return fmt.Errorf("failed to read schema.sql: %w", err)
	}
	if _, err := db.Exec(string(schemaSQL)); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	return nil
}

// StartRun records a new run row before any report is processed.
func (c *Catalog) StartRun(ctx context.Context, runID, manifest string, startedAt time.Time) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO runs (id, manifest, started_at)
		VALUES (?, ?, ?)
	`, runID, manifest, startedAt.Unix())
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// FinishRun closes out a run row with its end time and status tallies.
func (c *Catalog) FinishRun(ctx context.Context, summary *model.RunSummary) error {
	succeeded, partial, failed, skipped := summary.Counts()
	_, err := c.db.ExecContext(ctx, `
		UPDATE runs
		SET ended_at = ?, succeeded = ?, partial = ?, failed = ?, skipped = ?
		WHERE id = ?
	`, summary.EndedAt.Unix(), succeeded, partial, failed, skipped, summary.RunID)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

// UpsertReport registers a report by canonical URL and returns its id. The
// stored name follows the manifest, so renames in the CSV win.
func (c *Catalog) UpsertReport(ctx context.Context, name, rawURL string) (string, error) {
	canonical, err := utils.CanonicalizeURL(rawURL)
	if err != nil {
		return "", fmt.Errorf("canonicalizing report url: %w", err)
	}

	id := uuid.New().String()
	_, err = c.db.ExecContext(ctx, `
		INSERT INTO reports (id, name, url, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(url) DO UPDATE SET name = excluded.name
	`, id, name, canonical, time.Now().Unix())
	if err != nil {
		return "", fmt.Errorf("upsert report: %w", err)
	}

	// The insert id loses to an existing row on conflict; read it back.
	var reportID string
	if err := c.db.QueryRowContext(ctx, `SELECT id FROM reports WHERE url = ?`, canonical).Scan(&reportID); err != nil {
		return "", fmt.Errorf("read report id: %w", err)
	}
	return reportID, nil
}

// RecordResult updates the report's last-run bookkeeping and stores the
// captured page HTML for future drift checks. Results without captures
// (skipped or failed rows) only touch the report row.
func (c *Catalog) RecordResult(ctx context.Context, runID string, res *model.ReportResult, pages []*model.ReportPage) error {
	reportID, err := c.UpsertReport(ctx, res.Name, res.URL)
	if err != nil {
		return err
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			c.logger.Warn("rollback failed", interfaces.Field{Key: "error", Value: rbErr.Error()})
		}
	}()

	_, err = tx.ExecContext(ctx, `
		UPDATE reports
		SET last_status = ?, last_run_id = ?, last_seen_at = ?, description_path = ?
		WHERE id = ?
	`, string(res.Status), runID, time.Now().Unix(), nullableString(res.DescriptionPath), reportID)
	if err != nil {
		return fmt.Errorf("update report: %w", err)
	}

	now := time.Now().Unix()
	for _, page := range pages {
		paths := pagePaths(res, page.Index)
		_, err = tx.ExecContext(ctx, `
			INSERT INTO captures (id, report_id, run_id, page_index, page_name, html, screenshot_path, html_path, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, uuid.New().String(), reportID, runID, page.Index, page.Name, string(page.HTML),
			nullableString(paths.Screenshot), nullableString(paths.HTML), now)
		if err != nil {
			return fmt.Errorf("insert capture: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func pagePaths(res *model.ReportResult, index int) model.PagePaths {
	for _, p := range res.Pages {
		if p.PageIndex == index {
			return p
		}
	}
	return model.PagePaths{}
}

// PreviousCapture returns the page HTML stored by the most recent run that
// captured this URL, concatenated in page order, along with the description
// path recorded for the report. Both come back empty when the report has no
// history.
func (c *Catalog) PreviousCapture(ctx context.Context, rawURL string) (string, string, error) {
	canonical, err := utils.CanonicalizeURL(rawURL)
	if err != nil {
		return "", "", fmt.Errorf("canonicalizing report url: %w", err)
	}

	var reportID string
	var descPath sql.NullString
	err = c.db.QueryRowContext(ctx, `
		SELECT id, description_path FROM reports WHERE url = ?
	`, canonical).Scan(&reportID, &descPath)
	if errors.Is(err, sql.ErrNoRows) {
		return "", "", nil
	}
	if err != nil {
		return "", "", fmt.Errorf("query report: %w", err)
	}

	// rowid breaks ties between runs recorded within the same second.
	var lastRun sql.NullString
	err = c.db.QueryRowContext(ctx, `
		SELECT run_id FROM captures
		WHERE report_id = ?
		ORDER BY created_at DESC, rowid DESC LIMIT 1
	`, reportID).Scan(&lastRun)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && !lastRun.Valid) {
		return "", descPath.String, nil
	}
	if err != nil {
		return "", "", fmt.Errorf("query last capture run: %w", err)
	}

	rows, err := c.db.QueryContext(ctx, `
		SELECT html FROM captures
		WHERE report_id = ? AND run_id = ?
		ORDER BY page_index ASC
	`, reportID, lastRun.String)
	if err != nil {
		return "", "", fmt.Errorf("query captures: %w", err)
	}
	defer rows.Close()

	var b strings.Builder
	for rows.Next() {
		var html string
		if err := rows.Scan(&html); err != nil {
			return "", "", fmt.Errorf("scan capture: %w", err)
		}
		b.WriteString(html)
		b.WriteByte('\n')
	}
	if err := rows.Err(); err != nil {
		return "", "", fmt.Errorf("iterate captures: %w", err)
	}
	return b.String(), descPath.String, nil
}

// ReportRecord is a catalog row as shown by the catalog listing command.
type ReportRecord struct {
	Name            string
	URL             string
	LastStatus      string
	LastRunID       string
	LastSeenAt      time.Time
	DescriptionPath string
}

// ListReports returns every known report, most recently seen first.
func (c *Catalog) ListReports(ctx context.Context) ([]ReportRecord, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT name, url, last_status, last_run_id, last_seen_at, description_path
		FROM reports
		ORDER BY last_seen_at DESC, name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query reports: %w", err)
	}
	defer rows.Close()

	var records []ReportRecord
	for rows.Next() {
		var rec ReportRecord
		var status, runID, descPath sql.NullString
		var seenAt sql.NullInt64
		if err := rows.Scan(&rec.Name, &rec.URL, &status, &runID, &seenAt, &descPath); err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		rec.LastStatus = status.String
		rec.LastRunID = runID.String
		rec.DescriptionPath = descPath.String
		if seenAt.Valid {
			rec.LastSeenAt = time.Unix(seenAt.Int64, 0)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reports: %w", err)
	}
	return records, nil
}

func nullableString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
