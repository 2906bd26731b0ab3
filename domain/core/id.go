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
	// Use UUID v7 for time-ordered, sortable IDs
	// Falls back to v4 if v7 is not available (for compatibility)
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
	ExperimentID ID
	VariantID    ID
	UserID       ID
	FlagKey      ID
)

// String conversions for domain IDs
func (id ExperimentID) String() string { return ID(id).String() }
func (id VariantID) String() string    { return ID(id).String() }
func (id UserID) String() string       { return ID(id).String() }
func (k FlagKey) String() string       { return ID(k).String() }

func (id ExperimentID) IsEmpty() bool { return id == "" }
func (id VariantID) IsEmpty() bool    { return id == "" }
func (id UserID) IsEmpty() bool       { return id == "" }
func (k FlagKey) IsEmpty() bool       { return k == "" }

// ParseExperimentID parses a string into ExperimentID
func ParseExperimentID(s string) (ExperimentID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("experiment ID cannot be empty")
	}
	return ExperimentID(s), nil
}

// ParseUserID parses a string into UserID
func ParseUserID(s string) (UserID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("user ID cannot be empty")
	}
	return UserID(s), nil
}

// ParseFlagKey parses a string into FlagKey
func ParseFlagKey(s string) (FlagKey, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("flag key cannot be empty")
	}
	return FlagKey(s), nil
}
