// Package types provides value types shared across the yield ledger.
package types

import "time"

// Entity carries the row timestamps embedded in persisted ledger positions.
type Entity struct {
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewEntity creates an Entity stamped with the current UTC time.
func NewEntity() Entity {
	now := time.Now().UTC()
	return Entity{
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Touch updates the UpdatedAt timestamp to now.
func (e *Entity) Touch() {
	e.UpdatedAt = time.Now().UTC()
}

// IsZero reports whether the entity has never been stamped.
func (e Entity) IsZero() bool {
	return e.CreatedAt.IsZero()
}
