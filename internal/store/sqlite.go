package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	// Registers the "sqlite" driver (pure Go).
	_ "modernc.org/sqlite"

	"github.com/Canary-Prism/TimeBot/internal/domain"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// SQLiteRepo implements Repo using an embedded SQLite database.
type SQLiteRepo struct{ db *sql.DB }

// OpenSQLite opens (or creates) the SQLite database at the given path,
// applies recommended PRAGMAs, runs SQL migrations, and returns a repository.
func OpenSQLite(ctx context.Context, path string) (*SQLiteRepo, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Reasonable pooling for SQLite; it's a single-writer engine.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := applyPragmas(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}
	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	return &SQLiteRepo{db: db}, nil
}

// applyPragmas configures the SQLite connection for durability and concurrency.
func applyPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA foreign_keys=ON;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the underlying database resources.
func (r *SQLiteRepo) Close() error {
	return r.db.Close()
}

// --- Users ---

// UpsertUser inserts or replaces a user's preference row.
// The write is synchronous: when this returns, the preference is durable.
func (r *SQLiteRepo) UpsertUser(ctx context.Context, p *domain.UserPref) error {
	if p == nil {
		return errors.New("nil user pref")
	}

	created := p.CreatedAt.UTC().Unix()
	if p.CreatedAt.IsZero() {
		created = time.Now().UTC().Unix()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (user_id, tz, visible, format, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			tz      = excluded.tz,
			visible = excluded.visible,
			format  = excluded.format`,
		p.UserID, p.TZ, boolToInt(p.Visible), p.Format, created,
	)
	return err
}

// GetUser returns a user's preference row or ErrNotFound.
func (r *SQLiteRepo) GetUser(ctx context.Context, userID string) (*domain.UserPref, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT user_id, tz, visible, format, created_at
		FROM users
		WHERE user_id = ?`,
		userID,
	)
	p, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// ListUsers returns every stored preference, ordered by user id.
func (r *SQLiteRepo) ListUsers(ctx context.Context) ([]domain.UserPref, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT user_id, tz, visible, format, created_at
		FROM users
		ORDER BY user_id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []domain.UserPref
	for rows.Next() {
		p, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *p)
	}
	return res, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*domain.UserPref, error) {
	var (
		p          domain.UserPref
		visibleInt int
		createdAt  int64
	)
	if err := row.Scan(&p.UserID, &p.TZ, &visibleInt, &p.Format, &createdAt); err != nil {
		return nil, err
	}
	p.Visible = visibleInt != 0
	p.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &p, nil
}

// --- Timers ---

// AddTimer inserts a timer and fills in its assigned id.
func (r *SQLiteRepo) AddTimer(ctx context.Context, t *domain.Timer) error {
	if t == nil {
		return errors.New("nil timer")
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO timers (user_id, duration_s, due_at, message, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		t.UserID, int64(t.Duration.Seconds()), t.DueAt.UTC().Unix(), t.Message, t.CreatedAt.UTC().Unix(),
	)
	if err != nil {
		return err
	}
	t.ID, err = res.LastInsertId()
	return err
}

// ListTimers returns a user's timers ordered by due time.
func (r *SQLiteRepo) ListTimers(ctx context.Context, userID string) ([]domain.Timer, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, duration_s, due_at, message, created_at
		FROM timers
		WHERE user_id = ?
		ORDER BY due_at ASC`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTimers(rows)
}

// DeleteTimer removes a timer by id.
func (r *SQLiteRepo) DeleteTimer(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM timers WHERE id = ?`, id)
	return err
}

// DueTimers returns up to limit timers with due_at <= now, soonest first.
func (r *SQLiteRepo) DueTimers(ctx context.Context, now time.Time, limit int) ([]domain.Timer, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, duration_s, due_at, message, created_at
		FROM timers
		WHERE due_at <= ?
		ORDER BY due_at ASC
		LIMIT ?`,
		now.UTC().Unix(), limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTimers(rows)
}

func collectTimers(rows *sql.Rows) ([]domain.Timer, error) {
	var res []domain.Timer
	for rows.Next() {
		var (
			t         domain.Timer
			durationS int64
			dueAt     int64
			createdAt int64
		)
		if err := rows.Scan(&t.ID, &t.UserID, &durationS, &dueAt, &t.Message, &createdAt); err != nil {
			return nil, err
		}
		t.Duration = time.Duration(durationS) * time.Second
		t.DueAt = time.Unix(dueAt, 0).UTC()
		t.CreatedAt = time.Unix(createdAt, 0).UTC()
		res = append(res, t)
	}
	return res, rows.Err()
}

// --- Alarms ---

// AddAlarm inserts an alarm and fills in its assigned id.
func (r *SQLiteRepo) AddAlarm(ctx context.Context, a *domain.Alarm) error {
	if a == nil {
		return errors.New("nil alarm")
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO alarms (user_id, hour, minute, second, repeat_days, next_fire_at, message, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.UserID, a.Hour, a.Minute, a.Second, a.RepeatDays,
		toNullInt64(a.NextFireAt), a.Message, a.CreatedAt.UTC().Unix(),
	)
	if err != nil {
		return err
	}
	a.ID, err = res.LastInsertId()
	return err
}

// UpdateAlarm rewrites an alarm's mutable fields.
func (r *SQLiteRepo) UpdateAlarm(ctx context.Context, a *domain.Alarm) error {
	if a == nil {
		return errors.New("nil alarm")
	}
	_, err := r.db.ExecContext(ctx, `
		UPDATE alarms
		SET hour = ?, minute = ?, second = ?, repeat_days = ?, next_fire_at = ?, message = ?
		WHERE id = ?`,
		a.Hour, a.Minute, a.Second, a.RepeatDays, toNullInt64(a.NextFireAt), a.Message, a.ID,
	)
	return err
}

// ListAlarms returns a user's alarms in creation order.
func (r *SQLiteRepo) ListAlarms(ctx context.Context, userID string) ([]domain.Alarm, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, hour, minute, second, repeat_days, next_fire_at, message, created_at
		FROM alarms
		WHERE user_id = ?
		ORDER BY id ASC`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAlarms(rows)
}

// DeleteAlarm removes an alarm by id.
func (r *SQLiteRepo) DeleteAlarm(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM alarms WHERE id = ?`, id)
	return err
}

// DueAlarms returns up to limit alarms with next_fire_at <= now, soonest first.
func (r *SQLiteRepo) DueAlarms(ctx context.Context, now time.Time, limit int) ([]domain.Alarm, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, hour, minute, second, repeat_days, next_fire_at, message, created_at
		FROM alarms
		WHERE next_fire_at IS NOT NULL
		  AND next_fire_at <= ?
		ORDER BY next_fire_at ASC
		LIMIT ?`,
		now.UTC().Unix(), limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAlarms(rows)
}

func collectAlarms(rows *sql.Rows) ([]domain.Alarm, error) {
	var res []domain.Alarm
	for rows.Next() {
		var (
			a         domain.Alarm
			nextNS    sql.NullInt64
			createdAt int64
		)
		if err := rows.Scan(
			&a.ID, &a.UserID, &a.Hour, &a.Minute, &a.Second,
			&a.RepeatDays, &nextNS, &a.Message, &createdAt,
		); err != nil {
			return nil, err
		}
		a.NextFireAt = fromNullInt64(nextNS)
		a.CreatedAt = time.Unix(createdAt, 0).UTC()
		res = append(res, a)
	}
	return res, rows.Err()
}
