package models

import (
	"time"

	"github.com/google/uuid"
)

// Execution modes accepted by the council.
const (
	ModeFast        = "fast"
	ModeBalanced    = "balanced"
	ModeBestQuality = "best_quality"
)

// Request lifecycle states. A request moves forward through these in order;
// "failed" is terminal and reachable from any state.
const (
	RequestStatusReceived      = "received"
	RequestStatusKeysResolved  = "keys_resolved"
	RequestStatusRosterBuilt   = "roster_built"
	RequestStatusExecuting     = "executing"
	RequestStatusUsageAttached = "usage_attached"
	RequestStatusFlushed       = "flushed"
	RequestStatusDone          = "done"
	RequestStatusFailed        = "failed"
)

// CouncilRequest is the persisted record of one council request.
type CouncilRequest struct {
	ID           uuid.UUID    `db:"id"            json:"id"`
	UserID       *uuid.UUID   `db:"user_id"       json:"user_id,omitempty"`
	Mode         string       `db:"mode"          json:"mode"`
	Status       string       `db:"status"        json:"status"`
	UsageSummary UsageSummary `db:"usage_summary" json:"usage_summary,omitempty"`
	ErrorMessage *string      `db:"error_message" json:"error_message,omitempty"`
	CompletedAt  *time.Time   `db:"completed_at"  json:"completed_at,omitempty"`
	CreatedAt    time.Time    `db:"created_at"    json:"created_at"`
	UpdatedAt    time.Time    `db:"updated_at"    json:"updated_at"`
}
