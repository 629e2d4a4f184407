package core

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ID represents a domain identifier
type ID string

// NewID creates a new unique identifier using UUID v7 for time-ordered generation
func NewID() ID {
	// v7 keeps report history sortable by creation time
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return ID(id.String())
}

// String returns the string representation
func (id ID) String() string {
	return string(id)
}

// IsEmpty checks if the ID is empty
func (id ID) IsEmpty() bool {
	return id == ""
}

// Domain-specific ID types
type (
	ReportID ID
	TargetID ID
)

func (id ReportID) String() string { return ID(id).String() }
func (id TargetID) String() string { return ID(id).String() }

// NewReportID creates a fresh, time-ordered report identifier
func NewReportID() ReportID {
	return ReportID(NewID())
}

// ParseReportID parses a string into ReportID. The value must be a UUID.
func ParseReportID(s string) (ReportID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("report ID cannot be empty")
	}
	if _, err := uuid.Parse(s); err != nil {
		return "", fmt.Errorf("report ID %q is not a valid UUID: %w", s, err)
	}
	return ReportID(s), nil
}

// ParseTargetID parses a string into TargetID. Surrounding whitespace is
// dropped; the spelling is otherwise kept as the caller sent it.
func ParseTargetID(s string) (TargetID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("target ID cannot be empty")
	}
	return TargetID(s), nil
}

// Fold returns the case-insensitive form used to detect ids that differ
// only in spelling, e.g. "Ampicillin" and "ampicillin".
func (id TargetID) Fold() string {
	return strings.ToLower(string(id))
}
