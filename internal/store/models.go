package store

import (
	"database/sql"
	"time"

	"github.com/ykvlv/taskbot/internal/domain"
)

type taskRow struct {
	ID          int64         `db:"id"`
	UserID      int64         `db:"user_id"`
	ChatID      int64         `db:"chat_id"`
	Description string        `db:"description"`
	DueAt       sql.NullInt64 `db:"due_at"`
	Status      string        `db:"status"`
	CreatedAt   int64         `db:"created_at"`
	CompletedAt sql.NullInt64 `db:"completed_at"`
	Exhausted   int           `db:"exhausted"`
}

type reminderRow struct {
	TaskID  int64  `db:"task_id"`
	Tag     string `db:"tag"`
	FiredAt int64  `db:"fired_at"`
	Outcome string `db:"outcome"`
}

func (r taskRow) toDomain() domain.Task {
	return domain.Task{
		ID:          r.ID,
		OwnerID:     r.UserID,
		ChatID:      r.ChatID,
		Description: r.Description,
		DueAt:       fromNullInt64(r.DueAt),
		Status:      domain.Status(r.Status),
		Exhausted:   r.Exhausted != 0,
		CreatedAt:   time.Unix(r.CreatedAt, 0).UTC(),
		CompletedAt: fromNullInt64(r.CompletedAt),
	}
}

func toNullInt64(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UTC().Unix(), Valid: true}
}

func fromNullInt64(ns sql.NullInt64) *time.Time {
	if !ns.Valid {
		return nil
	}
	t := time.Unix(ns.Int64, 0).UTC()
	return &t
}
