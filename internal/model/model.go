// Package model owns the ticket resource and the stores backing it.
package model

import (
	"context"
)

// Ticket is a created resource record. ID equals its creation slot index.
type Ticket struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

// TicketForCreate is the payload a client sends to create a ticket.
// The id is always assigned by the store.
type TicketForCreate struct {
	Title string `json:"title"`
}

// Stats is a snapshot of the slot collection.
type Stats struct {
	Slots      int `json:"slots"`
	Live       int `json:"live"`
	Tombstones int `json:"tombstones"`
}

// Store is an append-only slot collection of tickets. Implementations must
// serialize Create, List and Delete against each other.
type Store interface {
	// Create appends a ticket whose id is the current collection length.
	Create(ctx context.Context, title string) (Ticket, error)
	// List returns every live ticket in ascending id order.
	List(ctx context.Context) ([]Ticket, error)
	// Delete tombstones the slot at id and returns its ticket, or fails
	// with *shared.ResourceNotFoundError.
	Delete(ctx context.Context, id int64) (Ticket, error)
	Stats(ctx context.Context) (Stats, error)
}

// ModelController is a cheap handle over a Store. Copies share the store.
type ModelController struct {
	store Store
}

// NewModelController returns a controller over store, or over a new
// MemoryStore when store is nil.
func NewModelController(store Store) ModelController {
	if store == nil {
		store = NewMemoryStore()
	}
	return ModelController{store: store}
}

// CreateTicket stores a new ticket built from fc.
func (mc ModelController) CreateTicket(ctx context.Context, fc TicketForCreate) (Ticket, error) {
	return mc.store.Create(ctx, fc.Title)
}

// ListTickets returns all live tickets ordered by id.
func (mc ModelController) ListTickets(ctx context.Context) ([]Ticket, error) {
	return mc.store.List(ctx)
}

// DeleteTicket removes the ticket with the given id. The id is never
// handed out again.
func (mc ModelController) DeleteTicket(ctx context.Context, id int64) (Ticket, error) {
	return mc.store.Delete(ctx, id)
}

// Stats reports slot usage of the underlying store.
func (mc ModelController) Stats(ctx context.Context) (Stats, error) {
	return mc.store.Stats(ctx)
}
