package repository // repository defines data access for event seat rosters

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/iliyamo/event-ticket-booking/internal/model"
)

// SeatRepo provides access to the event_seats table: the durable,
// fixed-size roster of seats per event.  A seat row's state column is
// NULL while the seat is available or held and "reserved" once sold;
// the transition is one-way.
type SeatRepo struct {
	db *sql.DB
}

// NewSeatRepo constructs a SeatRepo with the given DB handle.
func NewSeatRepo(db *sql.DB) *SeatRepo {
	return &SeatRepo{db: db}
}

// EnsureRoster returns the event's roster, creating the fixed rows*cols
// grid on first access.  Creation uses INSERT IGNORE so two racing
// initializers converge on the same roster; the grid is never resized
// afterwards.
func (r *SeatRepo) EnsureRoster(ctx context.Context, eventID string, rows, cols int) ([]model.Seat, error) {
	seats, err := r.Roster(ctx, eventID)
	if err == nil {
		return seats, nil
	}
	if err != ErrRosterNotFound {
		return nil, err
	}
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("invalid roster dimensions %dx%d", rows, cols)
	}
	query := "INSERT IGNORE INTO event_seats (event_id, seat_id, `row`, number) VALUES "
	args := make([]any, 0, rows*cols*4)
	for row := 1; row <= rows; row++ {
		for n := 1; n <= cols; n++ {
			if len(args) > 0 {
				query += ","
			}
			query += "(?, ?, ?, ?)"
			args = append(args, eventID, SeatID(row, n), row, n)
		}
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return nil, err
	}
	return r.Roster(ctx, eventID)
}

// SeatID derives the canonical string id for a roster position.
func SeatID(row, number int) string {
	return fmt.Sprintf("R%d-S%d", row, number)
}

// Roster returns every seat of the event ordered by row and number, or
// ErrRosterNotFound when the roster has not been created.
func (r *SeatRepo) Roster(ctx context.Context, eventID string) ([]model.Seat, error) {
	const q = "SELECT event_id, seat_id, `row`, number, state FROM event_seats WHERE event_id = ? ORDER BY `row`, number"
	rows, err := r.db.QueryContext(ctx, q, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Seat
	for rows.Next() {
		var (
			s     model.Seat
			state sql.NullString
		)
		if err := rows.Scan(&s.EventID, &s.SeatID, &s.Row, &s.Number, &state); err != nil {
			return nil, err
		}
		if state.Valid {
			s.State = state.String
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ErrRosterNotFound
	}
	return out, nil
}

// RosterSeats returns the full seat-id set and the reserved subset for
// an event.  It satisfies the hold manager's roster interface.
func (r *SeatRepo) RosterSeats(ctx context.Context, eventID string) (map[string]bool, map[string]bool, error) {
	seats, err := r.Roster(ctx, eventID)
	if err != nil {
		return nil, nil, err
	}
	all := make(map[string]bool, len(seats))
	reserved := make(map[string]bool)
	for _, s := range seats {
		all[s.SeatID] = true
		if s.State == model.SeatStateReserved {
			reserved[s.SeatID] = true
		}
	}
	return all, reserved, nil
}

// ReservedSeats returns the set of durably reserved seat ids.  Unlike
// RosterSeats, a missing roster is not an error here; the fallback
// commit path treats it as "nothing reserved yet".
func (r *SeatRepo) ReservedSeats(ctx context.Context, eventID string) (map[string]bool, error) {
	const q = "SELECT seat_id FROM event_seats WHERE event_id = ? AND state = ?"
	rows, err := r.db.QueryContext(ctx, q, eventID, model.SeatStateReserved)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reserved := make(map[string]bool)
	for rows.Next() {
		var sid string
		if err := rows.Scan(&sid); err != nil {
			return nil, err
		}
		reserved[sid] = true
	}
	return reserved, rows.Err()
}

// ReserveSeatsTx transitions the given seats to reserved within the
// provided transaction.  The guard `state IS NULL` makes the statement
// itself the race check: when any seat was reserved concurrently the
// affected-row count falls short and ErrSeatAlreadyReserved is returned,
// rolling the whole purchase back.
func (r *SeatRepo) ReserveSeatsTx(ctx context.Context, tx *sql.Tx, eventID string, seatIDs []string) error {
	if len(seatIDs) == 0 {
		return nil
	}
	query, args := reserveQuery(eventID, seatIDs)
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n != int64(len(seatIDs)) {
		return ErrSeatAlreadyReserved
	}
	return nil
}

// ReserveSeats is the non-transactional variant used by the fallback
// commit path.  The same state guard applies.
func (r *SeatRepo) ReserveSeats(ctx context.Context, eventID string, seatIDs []string) error {
	if len(seatIDs) == 0 {
		return nil
	}
	query, args := reserveQuery(eventID, seatIDs)
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n != int64(len(seatIDs)) {
		return ErrSeatAlreadyReserved
	}
	return nil
}

func reserveQuery(eventID string, seatIDs []string) (string, []any) {
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(seatIDs)), ",")
	query := "UPDATE event_seats SET state = ? WHERE event_id = ? AND seat_id IN (" + placeholders + ") AND state IS NULL"
	args := make([]any, 0, len(seatIDs)+2)
	args = append(args, model.SeatStateReserved, eventID)
	for _, sid := range seatIDs {
		args = append(args, sid)
	}
	return query, args
}
