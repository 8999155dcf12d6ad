package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidZone        = errors.New("invalid timezone")
	ErrAmbiguousLocalTime = errors.New("ambiguous local time")
	// ErrNonexistentLocalTime is returned for wall times skipped by a DST jump.
	ErrNonexistentLocalTime = fmt.Errorf("%w: skipped by a clock change", ErrAmbiguousLocalTime)
	ErrMalformedTask        = errors.New("malformed task")
	ErrDelivery             = errors.New("delivery failed")
	ErrInvalidIntervals     = errors.New("invalid reminder intervals")

	ErrTaskNotFound     = errors.New("task not found")
	ErrAlreadyDone      = errors.New("task already done")
	ErrEmptyDescription = errors.New("empty task description")
)
