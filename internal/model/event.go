package model

import "time"

// Event describes a bookable timed event in the catalog.  Events own a
// fixed-size seat roster that is created lazily on first access and is
// never resized afterwards.
//
// Fields:
//  ID          – opaque string identifier (UUID).
//  Title       – display title of the event.
//  Description – optional free-form description.
//  Date        – when the event takes place.
//  Location    – optional venue name.
//  Tags        – free-form labels for filtering.
//  OrganizerID – user who created the event.
//  CreatedAt   – creation timestamp.
//  UpdatedAt   – last update timestamp.
type Event struct {
	ID          string    // events.id
	Title       string    // events.title
	Description *string   // events.description (nullable)
	Date        time.Time // events.date
	Location    *string   // events.location (nullable)
	Tags        []string  // events.tags (stored as JSON)
	OrganizerID uint64    // events.organizer_id
	CreatedAt   time.Time // events.created_at
	UpdatedAt   time.Time // events.updated_at
}
