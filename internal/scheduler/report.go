package scheduler

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DeliveryPolicy decides what a failed send does to its claim.
type DeliveryPolicy string

const (
	// AtMostOnce records a failed send and never retries it.
	AtMostOnce DeliveryPolicy = "at_most_once"
	// Retry releases the claim so a later tick inside the grace window resends.
	// A send that failed after the transport delivered it can then repeat.
	Retry DeliveryPolicy = "retry"
)

// ParsePolicy accepts the DELIVERY_POLICY values.
func ParsePolicy(s string) (DeliveryPolicy, error) {
	switch p := DeliveryPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case AtMostOnce, Retry:
		return p, nil
	case "":
		return AtMostOnce, nil
	default:
		return "", fmt.Errorf("unknown delivery policy %q (want %s or %s)", s, AtMostOnce, Retry)
	}
}

// Report summarises one tick.
type Report struct {
	TickID  string
	At      time.Time
	Skipped bool // lease held by another process

	Seen       int
	Sent       int
	Failed     int
	Expired    int
	Superseded int
	Suppressed int
	Malformed  int
	Exhausted  int
	Raced      int // claim lost to a concurrent tick
}

func (r Report) fields() []zap.Field {
	return []zap.Field{
		zap.Time("at", r.At),
		zap.Int("seen", r.Seen),
		zap.Int("sent", r.Sent),
		zap.Int("failed", r.Failed),
		zap.Int("expired", r.Expired),
		zap.Int("superseded", r.Superseded),
		zap.Int("suppressed", r.Suppressed),
		zap.Int("malformed", r.Malformed),
		zap.Int("exhausted", r.Exhausted),
		zap.Int("raced", r.Raced),
	}
}

func (r Report) String() string {
	if r.Skipped {
		return fmt.Sprintf("tick %s at %s skipped: lease held", r.TickID, r.At.Format(time.RFC3339))
	}
	return fmt.Sprintf("tick %s at %s: seen=%d sent=%d failed=%d expired=%d superseded=%d suppressed=%d malformed=%d exhausted=%d",
		r.TickID, r.At.Format(time.RFC3339), r.Seen, r.Sent, r.Failed, r.Expired,
		r.Superseded, r.Suppressed, r.Malformed, r.Exhausted)
}
