package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	// Registers the "sqlite" driver (pure Go).
	_ "modernc.org/sqlite"

	"github.com/ykvlv/taskbot/internal/domain"
)

const taskColumns = `id, user_id, chat_id, description, due_at, status, created_at, completed_at, exhausted`

// SQLiteRepo implements Repo using an embedded SQLite database.
type SQLiteRepo struct{ db *sqlx.DB }

var _ Repo = (*SQLiteRepo)(nil)

// OpenSQLite opens (or creates) the SQLite database at the given path,
// applies recommended PRAGMAs, runs SQL migrations, and returns a repository.
func OpenSQLite(ctx context.Context, path string) (*SQLiteRepo, error) {
	db, err := openDB(ctx, path)
	if err != nil {
		return nil, err
	}
	if _, err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}
	return &SQLiteRepo{db: db}, nil
}

// Migrate opens the database, applies pending migrations and closes it.
func Migrate(ctx context.Context, path string) ([]string, error) {
	db, err := openDB(ctx, path)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	return RunMigrations(ctx, db)
}

func openDB(ctx context.Context, path string) (*sqlx.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// SQLite is a single-writer engine; one connection also keeps the
	// per-connection PRAGMAs in effect.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := applyPragmas(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}
	return db, nil
}

// applyPragmas configures the SQLite connection for durability and concurrency.
func applyPragmas(ctx context.Context, db *sqlx.DB) error {
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

// DB exposes the handle for health checks.
func (r *SQLiteRepo) DB() *sqlx.DB { return r.db }

// Ping checks the connection.
func (r *SQLiteRepo) Ping(ctx context.Context) error { return r.db.PingContext(ctx) }

// Close releases the underlying database resources.
func (r *SQLiteRepo) Close() error {
	return r.db.Close()
}

// CreateTask inserts a pending task and returns its id.
func (r *SQLiteRepo) CreateTask(ctx context.Context, t *domain.Task) (int64, error) {
	if t == nil {
		return 0, errors.New("nil task")
	}
	created := t.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO tasks (user_id, chat_id, description, due_at, status, created_at)
		VALUES (?, ?, ?, ?, 'pending', ?)`,
		t.OwnerID, t.ChatID, t.Description, toNullInt64(t.DueAt), created.UTC().Unix(),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// GetTask returns a task with its fired intervals, or ErrNotFound.
func (r *SQLiteRepo) GetTask(ctx context.Context, id int64) (*domain.Task, error) {
	var row taskRow
	err := r.db.GetContext(ctx, &row, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	tasks, err := r.withFired(ctx, []taskRow{row})
	if err != nil {
		return nil, err
	}
	return &tasks[0], nil
}

// ListPending returns pending tasks, optionally for a single owner.
func (r *SQLiteRepo) ListPending(ctx context.Context, ownerID *int64) ([]domain.Task, error) {
	if ownerID != nil {
		return r.ListByStatus(ctx, *ownerID, domain.StatusPending)
	}
	return r.selectTasks(ctx, `
		SELECT `+taskColumns+` FROM tasks
		WHERE status = 'pending'
		ORDER BY due_at IS NULL, due_at, id`)
}

// ListByStatus returns an owner's tasks ordered by due date (undated last).
func (r *SQLiteRepo) ListByStatus(ctx context.Context, ownerID int64, status domain.Status) ([]domain.Task, error) {
	return r.selectTasks(ctx, `
		SELECT `+taskColumns+` FROM tasks
		WHERE user_id = ? AND status = ?
		ORDER BY due_at IS NULL, due_at, id`,
		ownerID, string(status),
	)
}

// ListSchedulable returns pending, non-exhausted tasks due at or before horizon.
func (r *SQLiteRepo) ListSchedulable(ctx context.Context, horizon time.Time) ([]domain.Task, error) {
	return r.selectTasks(ctx, `
		SELECT `+taskColumns+` FROM tasks
		WHERE status = 'pending'
		  AND exhausted = 0
		  AND due_at IS NOT NULL
		  AND due_at <= ?
		ORDER BY due_at, id`,
		horizon.UTC().Unix(),
	)
}

// UpdateStatus moves a task between pending and done.
func (r *SQLiteRepo) UpdateStatus(ctx context.Context, id int64, status domain.Status, at time.Time) error {
	if !status.Valid() {
		return fmt.Errorf("unknown status %q", status)
	}
	var completed *time.Time
	if status == domain.StatusDone {
		completed = &at
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE tasks
		SET status = ?, completed_at = ?, version = version + 1
		WHERE id = ?`,
		string(status), toNullInt64(completed), id,
	)
	if err != nil {
		return err
	}
	return expectOne(res)
}

// MarkFired records tag as handled in one transaction. The version bump acts
// as a compare-and-set on status so a concurrent completion wins.
func (r *SQLiteRepo) MarkFired(ctx context.Context, id int64, tag string, outcome domain.Outcome, at time.Time) (ClaimResult, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		UPDATE tasks SET version = version + 1
		WHERE id = ? AND status = 'pending'`, id)
	if err != nil {
		return 0, err
	}
	if n, err := res.RowsAffected(); err != nil {
		return 0, err
	} else if n == 0 {
		return NotPending, nil
	}

	res, err = tx.ExecContext(ctx, `
		INSERT INTO task_reminders (task_id, tag, fired_at, outcome)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (task_id, tag) DO NOTHING`,
		id, tag, at.UTC().Unix(), string(outcome),
	)
	if err != nil {
		return 0, err
	}
	if n, err := res.RowsAffected(); err != nil {
		return 0, err
	} else if n == 0 {
		return AlreadyFired, nil
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return Claimed, nil
}

// ReleaseFired forgets a fired tag so a later tick may claim it again.
func (r *SQLiteRepo) ReleaseFired(ctx context.Context, id int64, tag string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM task_reminders WHERE task_id = ? AND tag = ?`, id, tag)
	return err
}

// SetOutcome updates the recorded outcome of a fired tag.
func (r *SQLiteRepo) SetOutcome(ctx context.Context, id int64, tag string, outcome domain.Outcome) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE task_reminders SET outcome = ?
		WHERE task_id = ? AND tag = ?`,
		string(outcome), id, tag,
	)
	if err != nil {
		return err
	}
	return expectOne(res)
}

// MarkExhausted removes a pending task from future scheduling queries.
func (r *SQLiteRepo) MarkExhausted(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE tasks SET exhausted = 1
		WHERE id = ? AND status = 'pending'`, id)
	return err
}

// DeleteTask removes a task and, through the foreign key, its reminders.
func (r *SQLiteRepo) DeleteTask(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return expectOne(res)
}

// PurgeDone deletes done tasks completed before the cutoff.
func (r *SQLiteRepo) PurgeDone(ctx context.Context, completedBefore time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM tasks
		WHERE status = 'done'
		  AND completed_at IS NOT NULL
		  AND completed_at < ?`,
		completedBefore.UTC().Unix(),
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// GetTimezone returns the stored zone name, if any.
func (r *SQLiteRepo) GetTimezone(ctx context.Context, userID int64) (string, bool, error) {
	var tz string
	err := r.db.GetContext(ctx, &tz, `SELECT tz FROM users WHERE user_id = ?`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return tz, true, nil
}

// SetTimezone inserts or overwrites a user's zone.
func (r *SQLiteRepo) SetTimezone(ctx context.Context, userID int64, tz string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (user_id, tz, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			tz         = excluded.tz,
			updated_at = excluded.updated_at`,
		userID, tz, time.Now().UTC().Unix(),
	)
	return err
}

func (r *SQLiteRepo) selectTasks(ctx context.Context, query string, args ...any) ([]domain.Task, error) {
	var rows []taskRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	return r.withFired(ctx, rows)
}

// withFired maps rows to domain tasks and attaches their fired intervals.
func (r *SQLiteRepo) withFired(ctx context.Context, rows []taskRow) ([]domain.Task, error) {
	tasks := make([]domain.Task, 0, len(rows))
	if len(rows) == 0 {
		return tasks, nil
	}
	ids := make([]int64, 0, len(rows))
	index := make(map[int64]int, len(rows))
	for i, row := range rows {
		tasks = append(tasks, row.toDomain())
		ids = append(ids, row.ID)
		index[row.ID] = i
	}

	query, args, err := sqlx.In(`
		SELECT task_id, tag, fired_at, outcome FROM task_reminders
		WHERE task_id IN (?)`, ids)
	if err != nil {
		return nil, err
	}
	var reminders []reminderRow
	if err := r.db.SelectContext(ctx, &reminders, r.db.Rebind(query), args...); err != nil {
		return nil, err
	}
	for _, rem := range reminders {
		t := &tasks[index[rem.TaskID]]
		if t.Fired == nil {
			t.Fired = make(map[string]domain.FiredReminder)
		}
		t.Fired[rem.Tag] = domain.FiredReminder{
			FiredAt: time.Unix(rem.FiredAt, 0).UTC(),
			Outcome: domain.Outcome(rem.Outcome),
		}
	}
	return tasks, nil
}

func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
