package shared

import (
	"time"

	"github.com/google/uuid"
)

// Entity is anything the ledger addresses by id
type Entity interface {
	GetID() uuid.UUID
}

// BaseEntity carries the identity and audit timestamps of a ledger row
type BaseEntity struct {
	ID        uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewBaseEntity stamps a fresh id and creation time
func NewBaseEntity() BaseEntity {
	now := time.Now()
	return BaseEntity{ID: uuid.New(), CreatedAt: now, UpdatedAt: now}
}

// GetID returns the entity ID
func (e *BaseEntity) GetID() uuid.UUID {
	return e.ID
}

// Touch bumps the update timestamp
func (e *BaseEntity) Touch() {
	e.UpdatedAt = time.Now()
}

// AggregateRoot is an entity that buffers the events raised while it
// changes. Callers drain the buffer after the transaction commits.
type AggregateRoot interface {
	Entity
	PendingEvents() []DomainEvent
	PullEvents() []DomainEvent
}

// BaseAggregateRoot embeds BaseEntity with a row version and an event buffer.
// Version is advanced by the repository on every persisted write.
type BaseAggregateRoot struct {
	BaseEntity
	Version int
	pending []DomainEvent
}

// NewBaseAggregateRoot creates a root at version 1
func NewBaseAggregateRoot() BaseAggregateRoot {
	return BaseAggregateRoot{BaseEntity: NewBaseEntity(), Version: 1}
}

// Record buffers an event for publication after commit
func (a *BaseAggregateRoot) Record(event DomainEvent) {
	a.pending = append(a.pending, event)
}

// PendingEvents returns the buffered events without draining them
func (a *BaseAggregateRoot) PendingEvents() []DomainEvent {
	return a.pending
}

// PullEvents drains the buffer
func (a *BaseAggregateRoot) PullEvents() []DomainEvent {
	events := a.pending
	a.pending = nil
	return events
}
