package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	_ "github.com/tursodatabase/libsql-client-go/libsql" // Turso driver
	"github.com/wadjakorntonsri/go-shortlink/pkg/core/domain"
	"github.com/wadjakorntonsri/go-shortlink/pkg/ports"
	sqlite "modernc.org/sqlite" // Local SQLite driver
	sqlite3 "modernc.org/sqlite/lib"
)

// timeLayout is the stored timestamp format, always UTC. Kept as TEXT so
// lexicographic comparison and SQLite's date() both work on it, which the
// range predicates rely on.
const timeLayout = "2006-01-02 15:04:05"

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbURL string) (*SQLiteRepository, error) {
	driverName := "sqlite"
	if strings.Contains(dbURL, "libsql://") || strings.Contains(dbURL, "wss://") {
		driverName = "libsql"
	}

	db, err := sql.Open(driverName, dbURL)
	if err != nil {
		return nil, err
	}

	// Single connection: keeps the pragmas below in force for every query
	// and sidesteps SQLITE_BUSY under concurrent writers.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		return nil, err
	}

	if _, err := db.Exec(`PRAGMA foreign_keys = ON; PRAGMA journal_mode = WAL;`); err != nil {
		return nil, err
	}

	if err := migrate(db); err != nil {
		return nil, err
	}

	return &SQLiteRepository{db: db}, nil
}

func migrate(db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS links (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		slug TEXT NOT NULL UNIQUE,
		target_url TEXT NOT NULL,
		is_permanent INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		created_ip TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_links_slug ON links(slug);

	CREATE TABLE IF NOT EXISTS clicks (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		link_id INTEGER NOT NULL,
		ts TEXT NOT NULL,
		ip TEXT,
		user_agent TEXT,
		referrer TEXT,
		FOREIGN KEY(link_id) REFERENCES links(id)
	);
	CREATE INDEX IF NOT EXISTS idx_clicks_link_id ON clicks(link_id);
	CREATE INDEX IF NOT EXISTS idx_clicks_ts ON clicks(ts);
	`
	_, err := db.Exec(query)
	return err
}

// isUniqueViolation recognizes a UNIQUE constraint failure from either
// driver: typed error codes from modernc, message match as the libsql
// fallback.
func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		if se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE ||
			se.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY {
			return true
		}
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func isForeignKeyViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) && se.Code() == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY {
		return true
	}
	return strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

// Insert stores a new link. The slug uniqueness check is the constraint
// itself, not a prior SELECT, so concurrent inserts racing on one candidate
// get exactly one winner; the loser sees domain.ErrSlugConflict.
func (r *SQLiteRepository) Insert(ctx context.Context, link *domain.Link) error {
	query := `INSERT INTO links (slug, target_url, is_permanent, created_at, created_ip)
			  VALUES (?, ?, ?, ?, ?)`

	res, err := r.db.ExecContext(ctx, query,
		link.Slug, link.TargetURL, boolToInt(link.IsPermanent),
		link.CreatedAt.UTC().Format(timeLayout), nullable(link.CreatedIP))
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrSlugConflict
		}
		return err
	}

	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	link.ID = id
	return nil
}

// GetBySlug returns (nil, nil) on a miss. Slug matching is case-sensitive
// (exact TEXT comparison).
func (r *SQLiteRepository) GetBySlug(ctx context.Context, slug string) (*domain.Link, error) {
	query := `SELECT id, slug, target_url, is_permanent, created_at, created_ip
			  FROM links WHERE slug = ?`

	link, err := scanLink(r.db.QueryRowContext(ctx, query, slug))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return link, nil
}

// RecordClick appends one click row. A dangling link_id surfaces the FK
// violation as domain.ErrNotFound.
func (r *SQLiteRepository) RecordClick(ctx context.Context, click *domain.Click) error {
	query := `INSERT INTO clicks (link_id, ts, ip, user_agent, referrer)
			  VALUES (?, ?, ?, ?, ?)`

	res, err := r.db.ExecContext(ctx, query,
		click.LinkID, click.TS.UTC().Format(timeLayout),
		nullable(click.IP), nullable(click.UserAgent), nullable(click.Referrer))
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.ErrNotFound
		}
		return err
	}

	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	click.ID = id
	return nil
}

// TotalsByLink counts clicks per link within the optional range. The date
// predicate lives in the LEFT JOIN's ON clause so zero-click links survive
// with a count of 0; rows come back newest link first.
func (r *SQLiteRepository) TotalsByLink(ctx context.Context, f domain.LinkFilter) ([]domain.LinkTotals, error) {
	query := `SELECT l.id, l.slug, l.target_url, l.is_permanent, l.created_at, l.created_ip,
			  COALESCE(COUNT(c.id), 0) AS clicks
			  FROM links l
			  LEFT JOIN clicks c ON c.link_id = l.id`
	args := []interface{}{}

	if f.Range.Start != nil {
		query += " AND c.ts >= ?"
		args = append(args, dayStart(*f.Range.Start))
	}
	if f.Range.End != nil {
		query += " AND c.ts < date(?, '+1 day')"
		args = append(args, dayOnly(*f.Range.End))
	}

	if f.Q != "" {
		query += " WHERE (l.slug LIKE ? OR l.target_url LIKE ?)"
		like := "%" + f.Q + "%"
		args = append(args, like, like)
	}

	query += ` GROUP BY l.id ORDER BY l.created_at DESC, l.id DESC LIMIT ? OFFSET ?`
	args = append(args, f.Limit, f.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.LinkTotals
	for rows.Next() {
		var t domain.LinkTotals
		var isPerm int
		var created string
		var createdIP sql.NullString
		if err := rows.Scan(&t.ID, &t.Slug, &t.TargetURL, &isPerm, &created, &createdIP, &t.Clicks); err != nil {
			return nil, err
		}
		t.IsPermanent = isPerm != 0
		t.CreatedAt, _ = time.Parse(timeLayout, created)
		t.CreatedIP = createdIP.String
		out = append(out, t)
	}
	return out, rows.Err()
}

// CountLinks counts links matching the optional q filter. It deliberately
// ignores any date range: dates filter clicks, not link existence, and the
// page count must cover every link.
func (r *SQLiteRepository) CountLinks(ctx context.Context, q string) (int64, error) {
	query := `SELECT COUNT(*) FROM links`
	args := []interface{}{}

	if q != "" {
		query += " WHERE (slug LIKE ? OR target_url LIKE ?)"
		like := "%" + q + "%"
		args = append(args, like, like)
	}

	var count int64
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&count)
	return count, err
}

func (r *SQLiteRepository) CountClicks(ctx context.Context, linkID int64, dr domain.DateRange) (int64, error) {
	query := `SELECT COUNT(*) FROM clicks WHERE link_id = ?`
	args := []interface{}{linkID}
	query, args = appendRange(query, args, dr)

	var count int64
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&count)
	return count, err
}

// ClicksPerDay groups one link's clicks by calendar day, ascending. Days
// with zero clicks are not emitted.
func (r *SQLiteRepository) ClicksPerDay(ctx context.Context, linkID int64, dr domain.DateRange) ([]domain.DayCount, error) {
	query := `SELECT date(ts) AS day, COUNT(*) FROM clicks WHERE link_id = ?`
	args := []interface{}{linkID}
	query, args = appendRange(query, args, dr)
	query += ` GROUP BY day ORDER BY day`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.DayCount
	for rows.Next() {
		var d domain.DayCount
		if err := rows.Scan(&d.Day, &d.Clicks); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) RecentClicks(ctx context.Context, linkID int64, dr domain.DateRange, limit int) ([]domain.Click, error) {
	query := `SELECT id, link_id, ts, ip, user_agent, referrer FROM clicks WHERE link_id = ?`
	args := []interface{}{linkID}
	query, args = appendRange(query, args, dr)
	query += ` ORDER BY ts DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Click
	for rows.Next() {
		var c domain.Click
		var ts string
		var ip, ua, ref sql.NullString
		if err := rows.Scan(&c.ID, &c.LinkID, &ts, &ip, &ua, &ref); err != nil {
			return nil, err
		}
		c.TS, _ = time.Parse(timeLayout, ts)
		c.IP, c.UserAgent, c.Referrer = ip.String, ua.String, ref.String
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) Dump(ctx context.Context) ([]domain.Link, error) {
	query := `SELECT id, slug, target_url, is_permanent, created_at, created_ip FROM links ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var links []domain.Link
	for rows.Next() {
		l, err := scanLink(rows)
		if err != nil {
			return nil, err
		}
		links = append(links, *l)
	}
	return links, rows.Err()
}

// appendRange binds the shared timestamp predicate: ts >= start 00:00:00
// AND ts < end + 1 day, each bound independently optional.
func appendRange(query string, args []interface{}, dr domain.DateRange) (string, []interface{}) {
	if dr.Start != nil {
		query += " AND ts >= ?"
		args = append(args, dayStart(*dr.Start))
	}
	if dr.End != nil {
		query += " AND ts < date(?, '+1 day')"
		args = append(args, dayOnly(*dr.End))
	}
	return query, args
}

func dayStart(t time.Time) string {
	return t.UTC().Format("2006-01-02") + " 00:00:00"
}

func dayOnly(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanLink(row rowScanner) (*domain.Link, error) {
	var l domain.Link
	var isPerm int
	var created string
	var createdIP sql.NullString
	if err := row.Scan(&l.ID, &l.Slug, &l.TargetURL, &isPerm, &created, &createdIP); err != nil {
		return nil, err
	}
	l.IsPermanent = isPerm != 0
	l.CreatedAt, _ = time.Parse(timeLayout, created)
	l.CreatedIP = createdIP.String
	return &l, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// Ensure interface compliance
var _ ports.LinkRepository = (*SQLiteRepository)(nil)
