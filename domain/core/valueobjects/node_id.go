package valueobjects

import (
	"errors"

	"github.com/google/uuid"
)

// NodeID identifies a node in the shared node store.
// Node ids are chosen by clients and are free-form, so unlike the
// server-generated ids below they are not required to be UUIDs.
type NodeID struct {
	value string
}

// NewNodeIDFromString creates a NodeID from a client supplied string
func NewNodeIDFromString(id string) (NodeID, error) {
	if id == "" {
		return NodeID{}, errors.New("node ID cannot be empty")
	}
	return NodeID{value: id}, nil
}

// String returns the string representation of the NodeID
func (id NodeID) String() string {
	return id.value
}

// Equals checks if two NodeIDs are equal
func (id NodeID) Equals(other NodeID) bool {
	return id.value == other.value
}

// IsZero checks if the NodeID is the zero value
func (id NodeID) IsZero() bool {
	return id.value == ""
}

// NewEntityID generates an id for server-created records such as
// projects, trees and configurations.
func NewEntityID() string {
	return uuid.New().String()
}

// IsValidEntityID reports whether s looks like a server generated id
func IsValidEntityID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
