// Package repository contains data access logic separated from HTTP
// handlers.  This file defines repository methods for the event catalog.
// Events are identified by opaque UUID strings; tags are stored as a
// JSON array in a TEXT column.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/event-ticket-booking/internal/model"
)

// EventRepo encapsulates all database queries related to events.  It
// depends on a sql.DB connection which is injected at startup.
type EventRepo struct {
	db *sql.DB
}

// NewEventRepo constructs an EventRepo with the provided DB handle.
func NewEventRepo(db *sql.DB) *EventRepo {
	return &EventRepo{db: db}
}

// EventSearchQuery defines optional filters for listing events.  Empty
// fields are ignored.
type EventSearchQuery struct {
	Title string
	Tag   string
	Limit int
}

// Create inserts a new event.  A fresh UUID is assigned to ev.ID and
// CreatedAt/UpdatedAt are populated from the stored row.
func (r *EventRepo) Create(ctx context.Context, ev *model.Event) error {
	ev.ID = uuid.NewString()
	tags, err := marshalTags(ev.Tags)
	if err != nil {
		return err
	}
	const qInsert = `INSERT INTO events (id, title, description, date, location, tags, organizer_id)
	                 VALUES (?, ?, ?, ?, ?, ?, ?)`
	if _, err := r.db.ExecContext(ctx, qInsert,
		ev.ID, ev.Title, ev.Description, ev.Date.UTC(), ev.Location, tags, ev.OrganizerID); err != nil {
		return err
	}
	const qSelect = "SELECT created_at, updated_at FROM events WHERE id = ?"
	return r.db.QueryRowContext(ctx, qSelect, ev.ID).Scan(&ev.CreatedAt, &ev.UpdatedAt)
}

// GetByID fetches an event by id.  It returns ErrEventNotFound when no
// row exists.
func (r *EventRepo) GetByID(ctx context.Context, id string) (*model.Event, error) {
	const q = `SELECT id, title, description, date, location, tags, organizer_id, created_at, updated_at
	           FROM events WHERE id = ?`
	return r.scanOne(r.db.QueryRowContext(ctx, q, id))
}

// GetByIDAndOrganizer fetches an event only if it belongs to the given
// organizer.  A row owned by someone else yields ErrForbidden so the
// handler can answer 403 instead of 404.
func (r *EventRepo) GetByIDAndOrganizer(ctx context.Context, id string, organizerID uint64) (*model.Event, error) {
	ev, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if ev.OrganizerID != organizerID {
		return nil, ErrForbidden
	}
	return ev, nil
}

// List returns upcoming-first events matching the query filters.  The
// limit defaults to 100, mirroring the catalog listing endpoint.
func (r *EventRepo) List(ctx context.Context, q EventSearchQuery) ([]*model.Event, error) {
	where := []string{"1=1"}
	args := []any{}
	if q.Title != "" {
		where = append(where, "LOWER(title) LIKE ?")
		args = append(args, "%"+strings.ToLower(q.Title)+"%")
	}
	if q.Tag != "" {
		// Tags are a JSON array of strings; a LIKE on the quoted value is
		// good enough for the small catalog this serves.
		where = append(where, "tags LIKE ?")
		args = append(args, "%\""+q.Tag+"\"%")
	}
	limit := q.Limit
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	args = append(args, limit)

	query := `SELECT id, title, description, date, location, tags, organizer_id, created_at, updated_at
	          FROM events WHERE ` + strings.Join(where, " AND ") + `
	          ORDER BY date ASC LIMIT ?`
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Event
	for rows.Next() {
		ev, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Update overwrites the mutable fields of an event owned by the given
// organizer.  ErrEventNotFound / ErrForbidden follow GetByIDAndOrganizer.
func (r *EventRepo) Update(ctx context.Context, organizerID uint64, ev *model.Event) error {
	if _, err := r.GetByIDAndOrganizer(ctx, ev.ID, organizerID); err != nil {
		return err
	}
	tags, err := marshalTags(ev.Tags)
	if err != nil {
		return err
	}
	const q = `UPDATE events SET title = ?, description = ?, date = ?, location = ?, tags = ?
	           WHERE id = ? AND organizer_id = ?`
	_, err = r.db.ExecContext(ctx, q,
		ev.Title, ev.Description, ev.Date.UTC(), ev.Location, tags, ev.ID, organizerID)
	return err
}

// Delete removes an event owned by the organizer.  The seat roster rows
// cascade via foreign key.
func (r *EventRepo) Delete(ctx context.Context, id string, organizerID uint64) error {
	if _, err := r.GetByIDAndOrganizer(ctx, id, organizerID); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, "DELETE FROM events WHERE id = ? AND organizer_id = ?", id, organizerID)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *EventRepo) scanOne(row *sql.Row) (*model.Event, error) {
	ev, err := r.scanRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}
	return ev, nil
}

func (r *EventRepo) scanRow(s rowScanner) (*model.Event, error) {
	var (
		ev   model.Event
		date time.Time
		tags sql.NullString
	)
	if err := s.Scan(&ev.ID, &ev.Title, &ev.Description, &date, &ev.Location, &tags,
		&ev.OrganizerID, &ev.CreatedAt, &ev.UpdatedAt); err != nil {
		return nil, err
	}
	ev.Date = date
	if tags.Valid && tags.String != "" {
		if err := json.Unmarshal([]byte(tags.String), &ev.Tags); err != nil {
			// Malformed tags should not make the event unreadable.
			ev.Tags = nil
		}
	}
	return &ev, nil
}

func marshalTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
