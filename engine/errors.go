package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidPolicy is returned when a reorder window is malformed.
	ErrInvalidPolicy = errors.New("invalid reorder policy")
	// ErrOrphanRecord matches every OrphanRecord via errors.Is.
	ErrOrphanRecord = errors.New("orphan record")
	ErrUnknownMode  = errors.New("unknown scheduling mode")
)

type RecordKind string

const (
	RecordKindOrder    RecordKind = "order"
	RecordKindActivity RecordKind = "activity"
)

// OrphanRecord describes an order or activity whose store reference does not resolve
// against the snapshot. Orphans are excluded from plans and metrics, never fatal.
type OrphanRecord struct {
	Kind       RecordKind `json:"kind"`
	RecordID   string     `json:"record_id"`
	StoreID    string     `json:"store_id"`
	Suggestion string     `json:"suggestion,omitempty"`
}

func (o OrphanRecord) Error() string {
	msg := fmt.Sprintf("%s %s references unknown store %q", o.Kind, o.RecordID, o.StoreID)
	if o.Suggestion != "" {
		msg += fmt.Sprintf(" (did you mean %q?)", o.Suggestion)
	}
	return msg
}

func (o OrphanRecord) Is(target error) bool {
	return target == ErrOrphanRecord
}
