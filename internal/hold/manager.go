// Package hold implements the hold manager: granting, cancelling,
// inspecting and refreshing short-lived exclusive seat holds.  All
// exclusivity lives in the lease store's atomic set-if-absent; the
// manager never takes in-process locks, so it is safe to run as many
// replicas as needed.
package hold

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/event-ticket-booking/internal/lease"
)

// ErrHoldNotFound is returned by Details and Refresh when no lease entry
// for the hold remains (expired, cancelled or never granted).
var ErrHoldNotFound = errors.New("hold not found")

// ErrInvalidSeats is returned by Grant when the requested seat set is
// empty or contains ids outside the event's roster.
var ErrInvalidSeats = errors.New("invalid seat ids")

// SeatConflictError reports every requested seat that could not be
// locked, whether already reserved durably or currently held by another
// hold.  Grant is all-or-nothing: when this error is returned, no lock
// from the attempt survives.
type SeatConflictError struct {
	Seats []string
}

func (e *SeatConflictError) Error() string {
	return fmt.Sprintf("seat conflict: %s", strings.Join(e.Seats, ","))
}

// Roster is the read-only view of the durable inventory the manager
// needs: which seats exist for an event, and which are already sold.
type Roster interface {
	// RosterSeats returns the full set of seat ids for the event and the
	// subset that is durably reserved.  When the roster has not been
	// created the implementation's own not-found error is returned, and
	// Grant surfaces it to the caller verbatim.
	RosterSeats(ctx context.Context, eventID string) (all map[string]bool, reserved map[string]bool, err error)
}

// Grant is the successful result of a hold request.
type Grant struct {
	HoldID       string
	LeaseSeconds int
}

// Details describes a live hold reconstructed from the lease store.
type Details struct {
	HoldID  string
	EventID string
	SeatIDs []string
	TTL     time.Duration
}

// Manager grants and releases seat holds.  It is the only writer of
// lock keys in the lease store.
type Manager struct {
	store    lease.Store
	roster   Roster
	leaseTTL time.Duration
}

// NewManager constructs a Manager.  leaseTTL is the lifetime applied to
// every lock key and group index at grant time.
func NewManager(store lease.Store, roster Roster, leaseTTL time.Duration) *Manager {
	if store == nil || roster == nil {
		panic("nil dependency passed to hold.NewManager")
	}
	if leaseTTL <= 0 {
		leaseTTL = 5 * time.Minute
	}
	return &Manager{store: store, roster: roster, leaseTTL: leaseTTL}
}

// LeaseTTL reports the fixed lease duration applied at grant time.
func (m *Manager) LeaseTTL() time.Duration { return m.leaseTTL }

// Grant attempts to acquire an exclusive lock on every requested seat
// under a single fresh hold id.  Seats already reserved durably are
// immediate conflicts and never reach the lease store.  If any seat
// conflicts, every lock taken during the attempt is rolled back and the
// full conflict list is returned; partial holds are never observable.
func (m *Manager) Grant(ctx context.Context, eventID string, seatIDs []string) (Grant, error) {
	if len(seatIDs) == 0 {
		return Grant{}, ErrInvalidSeats
	}
	// Deduplicate while preserving request order.
	seen := make(map[string]struct{}, len(seatIDs))
	unique := make([]string, 0, len(seatIDs))
	for _, sid := range seatIDs {
		if sid == "" {
			continue
		}
		if _, ok := seen[sid]; !ok {
			seen[sid] = struct{}{}
			unique = append(unique, sid)
		}
	}
	if len(unique) == 0 {
		return Grant{}, ErrInvalidSeats
	}

	all, reserved, err := m.roster.RosterSeats(ctx, eventID)
	if err != nil {
		return Grant{}, err
	}
	for _, sid := range unique {
		if !all[sid] {
			return Grant{}, fmt.Errorf("%w: %s", ErrInvalidSeats, sid)
		}
	}

	holdID := uuid.NewString()
	var (
		conflicts []string
		acquired  []string
	)
	for _, sid := range unique {
		if reserved[sid] {
			conflicts = append(conflicts, sid)
			continue
		}
		key := lease.LockKey(eventID, sid)
		ok, err := m.store.SetIfAbsent(ctx, key, holdID, m.leaseTTL)
		if err != nil {
			m.rollback(ctx, holdID, acquired)
			return Grant{}, fmt.Errorf("acquire lock for %s: %w", sid, err)
		}
		if !ok {
			conflicts = append(conflicts, sid)
			continue
		}
		acquired = append(acquired, key)
	}
	if len(conflicts) > 0 {
		m.rollback(ctx, holdID, acquired)
		return Grant{}, &SeatConflictError{Seats: conflicts}
	}
	if err := m.store.AddToGroup(ctx, lease.GroupKey(holdID), m.leaseTTL, acquired...); err != nil {
		m.rollback(ctx, holdID, acquired)
		return Grant{}, fmt.Errorf("register hold group: %w", err)
	}
	return Grant{HoldID: holdID, LeaseSeconds: int(m.leaseTTL / time.Second)}, nil
}

// rollback removes every lock taken during a failed grant attempt plus
// the (possibly never created) group index.
func (m *Manager) rollback(ctx context.Context, holdID string, acquired []string) {
	if len(acquired) > 0 {
		_ = m.store.Delete(ctx, acquired...)
	}
	_ = m.store.Delete(ctx, lease.GroupKey(holdID))
}

// Cancel releases every lock belonging to the hold and the group index
// itself.  Cancelling an unknown or already-expired hold is a no-op.
func (m *Manager) Cancel(ctx context.Context, holdID string) error {
	group := lease.GroupKey(holdID)
	members, err := m.store.GroupMembers(ctx, group)
	if err != nil {
		return err
	}
	if len(members) > 0 {
		if err := m.store.Delete(ctx, members...); err != nil {
			return err
		}
	}
	return m.store.Delete(ctx, group)
}

// TTL returns the minimum remaining lifetime across the hold's member
// locks, or 0 when the hold is gone.  This value, not any client-side
// countdown, is the sole source of truth for whether a hold is alive.
func (m *Manager) TTL(ctx context.Context, holdID string) (time.Duration, error) {
	members, err := m.store.GroupMembers(ctx, lease.GroupKey(holdID))
	if err != nil {
		return 0, err
	}
	return m.minTTL(ctx, members)
}

func (m *Manager) minTTL(ctx context.Context, keys []string) (time.Duration, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	min := time.Duration(-1)
	for _, key := range keys {
		d, err := m.store.TTL(ctx, key)
		if err != nil {
			return 0, err
		}
		if d <= 0 {
			continue
		}
		if min < 0 || d < min {
			min = d
		}
	}
	if min < 0 {
		return 0, nil
	}
	return min, nil
}

// Details reconstructs a hold's event, seats and remaining TTL from the
// group index.  When the index has expired but member locks survive (a
// refresh race), it falls back to scanning lock keys whose value equals
// the hold id.  The scan is O(total active seats) and acceptable only at
// small inventory scale.
func (m *Manager) Details(ctx context.Context, holdID string) (Details, error) {
	members, err := m.store.GroupMembers(ctx, lease.GroupKey(holdID))
	if err != nil {
		return Details{}, err
	}
	if len(members) == 0 {
		members, err = m.store.ScanByValue(ctx, "hold:*", holdID)
		if err != nil {
			return Details{}, err
		}
	}
	if len(members) == 0 {
		return Details{}, ErrHoldNotFound
	}
	var (
		eventID string
		seatIDs []string
	)
	for _, key := range members {
		ev, sid, ok := lease.SplitLockKey(key)
		if !ok {
			continue
		}
		if eventID == "" {
			eventID = ev
		}
		seatIDs = append(seatIDs, sid)
	}
	if eventID == "" {
		return Details{}, ErrHoldNotFound
	}
	sort.Strings(seatIDs)
	ttl, err := m.minTTL(ctx, members)
	if err != nil {
		return Details{}, err
	}
	return Details{HoldID: holdID, EventID: eventID, SeatIDs: seatIDs, TTL: ttl}, nil
}

// Refresh extends every member lock and the group index to the given
// duration.  It fails with ErrHoldNotFound when the group index is
// empty.  When extend is not positive the configured lease TTL is used.
func (m *Manager) Refresh(ctx context.Context, holdID string, extend time.Duration) (time.Duration, error) {
	if extend <= 0 {
		extend = m.leaseTTL
	}
	group := lease.GroupKey(holdID)
	members, err := m.store.GroupMembers(ctx, group)
	if err != nil {
		return 0, err
	}
	if len(members) == 0 {
		return 0, ErrHoldNotFound
	}
	for _, key := range members {
		if _, err := m.store.Expire(ctx, key, extend); err != nil {
			return 0, err
		}
	}
	if _, err := m.store.Expire(ctx, group, extend); err != nil {
		return 0, err
	}
	return extend, nil
}
