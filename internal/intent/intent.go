// Package intent turns free text into task operations.
package intent

import (
	"context"
	"time"

	"github.com/ykvlv/taskbot/internal/domain"
)

// Kind is the operation a message asks for.
type Kind string

const (
	KindCreate       Kind = "create"
	KindList         Kind = "list"
	KindComplete     Kind = "complete"
	KindDelete       Kind = "delete"
	KindUnrecognized Kind = "unrecognized"
)

// Request is one free-text message and the context needed to read dates in it.
type Request struct {
	Text     string
	UserID   int64
	Location *time.Location
	Now      time.Time
}

// Intent is the structured reading of a Request.
type Intent struct {
	Kind Kind

	// Create
	Description string
	Due         *time.Time // UTC
	DuePhrase   string
	// DueProblem is set when a date phrase was found but could not be
	// resolved; the task is then created without a due date.
	DueProblem error

	// List
	Status domain.Status

	// Complete, Delete
	TaskID int64
}

// Translator never fails: anything it cannot read is KindUnrecognized.
type Translator interface {
	Translate(ctx context.Context, req Request) Intent
}

func (r Request) location() *time.Location {
	if r.Location == nil {
		return time.UTC
	}
	return r.Location
}

func unrecognized() Intent { return Intent{Kind: KindUnrecognized} }
