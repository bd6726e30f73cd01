package hold

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-ticket-booking/internal/lease"
)

// fakeStore is an in-memory lease.Store used to exercise manager logic
// without a Redis server.  TTLs are tracked as plain durations; the fake
// never ages keys on its own, tests expire entries explicitly via
// deleteKey.
type fakeStore struct {
	values map[string]string
	ttls   map[string]time.Duration
	groups map[string]map[string]struct{}

	failSetFor string // seat lock key that should error on SetIfAbsent
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		values: map[string]string{},
		ttls:   map[string]time.Duration{},
		groups: map[string]map[string]struct{}{},
	}
}

func (f *fakeStore) SetIfAbsent(_ context.Context, key, value string, ttl time.Duration) (bool, error) {
	if key == f.failSetFor {
		return false, errors.New("store unavailable")
	}
	if _, ok := f.values[key]; ok {
		return false, nil
	}
	f.values[key] = value
	f.ttls[key] = ttl
	return true, nil
}

func (f *fakeStore) Get(_ context.Context, key string) (string, error) {
	return f.values[key], nil
}

func (f *fakeStore) Delete(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(f.values, k)
		delete(f.ttls, k)
		delete(f.groups, k)
	}
	return nil
}

func (f *fakeStore) AddToGroup(_ context.Context, group string, ttl time.Duration, keys ...string) error {
	set, ok := f.groups[group]
	if !ok {
		set = map[string]struct{}{}
		f.groups[group] = set
	}
	for _, k := range keys {
		set[k] = struct{}{}
	}
	f.ttls[group] = ttl
	return nil
}

func (f *fakeStore) GroupMembers(_ context.Context, group string) ([]string, error) {
	var out []string
	for k := range f.groups[group] {
		out = append(out, k)
	}
	return out, nil
}

func (f *fakeStore) TTL(_ context.Context, key string) (time.Duration, error) {
	if _, ok := f.values[key]; !ok {
		if _, grp := f.groups[key]; !grp {
			return 0, nil
		}
	}
	return f.ttls[key], nil
}

func (f *fakeStore) Expire(_ context.Context, key string, ttl time.Duration) (bool, error) {
	_, isVal := f.values[key]
	_, isGrp := f.groups[key]
	if !isVal && !isGrp {
		return false, nil
	}
	f.ttls[key] = ttl
	return true, nil
}

func (f *fakeStore) ScanByValue(_ context.Context, pattern, value string) ([]string, error) {
	prefix := strings.TrimSuffix(pattern, "*")
	var out []string
	for k, v := range f.values {
		if strings.HasPrefix(k, prefix) && v == value {
			out = append(out, k)
		}
	}
	return out, nil
}

// errUnknownEvent is the roster fake's own not-found sentinel; Grant
// must surface it verbatim rather than translating it.
var errUnknownEvent = errors.New("no roster for event")

// fakeRoster serves a fixed roster for one event.
type fakeRoster struct {
	eventID  string
	all      map[string]bool
	reserved map[string]bool
}

func (f *fakeRoster) RosterSeats(_ context.Context, eventID string) (map[string]bool, map[string]bool, error) {
	if eventID != f.eventID {
		return nil, nil, errUnknownEvent
	}
	return f.all, f.reserved, nil
}

func newTestManager(reserved ...string) (*Manager, *fakeStore) {
	all := map[string]bool{}
	for r := 1; r <= 2; r++ {
		for n := 1; n <= 5; n++ {
			all[seatID(r, n)] = true
		}
	}
	res := map[string]bool{}
	for _, sid := range reserved {
		res[sid] = true
	}
	store := newFakeStore()
	m := NewManager(store, &fakeRoster{eventID: "ev-1", all: all, reserved: res}, 5*time.Minute)
	return m, store
}

func seatID(row, number int) string {
	return "R" + string(rune('0'+row)) + "-S" + string(rune('0'+number))
}

func TestGrantSucceeds(t *testing.T) {
	m, store := newTestManager()
	ctx := context.Background()

	g, err := m.Grant(ctx, "ev-1", []string{"R1-S1", "R1-S2"})
	require.NoError(t, err)
	assert.NotEmpty(t, g.HoldID)
	assert.Equal(t, 300, g.LeaseSeconds)

	// Both lock keys point at the new hold and are grouped under it.
	assert.Equal(t, g.HoldID, store.values[lease.LockKey("ev-1", "R1-S1")])
	assert.Equal(t, g.HoldID, store.values[lease.LockKey("ev-1", "R1-S2")])
	members, _ := store.GroupMembers(ctx, lease.GroupKey(g.HoldID))
	assert.Len(t, members, 2)
}

func TestGrantDeduplicatesSeats(t *testing.T) {
	m, store := newTestManager()

	g, err := m.Grant(context.Background(), "ev-1", []string{"R1-S1", "R1-S1", ""})
	require.NoError(t, err)
	members, _ := store.GroupMembers(context.Background(), lease.GroupKey(g.HoldID))
	assert.Len(t, members, 1)
}

func TestGrantConflictRollsBackAllLocks(t *testing.T) {
	m, store := newTestManager()
	ctx := context.Background()

	first, err := m.Grant(ctx, "ev-1", []string{"R1-S2"})
	require.NoError(t, err)

	_, err = m.Grant(ctx, "ev-1", []string{"R1-S1", "R1-S2", "R1-S3"})
	var conflict *SeatConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, []string{"R1-S2"}, conflict.Seats)

	// The winner keeps its lock; the loser's partial locks are gone.
	assert.Equal(t, first.HoldID, store.values[lease.LockKey("ev-1", "R1-S2")])
	assert.Empty(t, store.values[lease.LockKey("ev-1", "R1-S1")])
	assert.Empty(t, store.values[lease.LockKey("ev-1", "R1-S3")])
}

func TestGrantReservedSeatIsImmediateConflict(t *testing.T) {
	m, store := newTestManager("R1-S1")

	_, err := m.Grant(context.Background(), "ev-1", []string{"R1-S1", "R1-S2"})
	var conflict *SeatConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, []string{"R1-S1"}, conflict.Seats)
	// No lock was ever attempted for the reserved seat, and the one taken
	// for R1-S2 was rolled back.
	assert.Empty(t, store.values)
}

func TestGrantStoreErrorRollsBack(t *testing.T) {
	m, store := newTestManager()
	store.failSetFor = lease.LockKey("ev-1", "R1-S2")

	_, err := m.Grant(context.Background(), "ev-1", []string{"R1-S1", "R1-S2"})
	require.Error(t, err)
	assert.Empty(t, store.values)
}

func TestGrantValidation(t *testing.T) {
	m, _ := newTestManager()
	ctx := context.Background()

	_, err := m.Grant(ctx, "ev-1", nil)
	assert.ErrorIs(t, err, ErrInvalidSeats)

	_, err = m.Grant(ctx, "ev-1", []string{"R9-S9"})
	assert.ErrorIs(t, err, ErrInvalidSeats)

	_, err = m.Grant(ctx, "ev-unknown", []string{"R1-S1"})
	assert.ErrorIs(t, err, errUnknownEvent)
}

func TestCancelIsIdempotent(t *testing.T) {
	m, store := newTestManager()
	ctx := context.Background()

	g, err := m.Grant(ctx, "ev-1", []string{"R1-S1"})
	require.NoError(t, err)

	require.NoError(t, m.Cancel(ctx, g.HoldID))
	assert.Empty(t, store.values)

	// Cancelling again, or cancelling garbage, is a no-op success.
	require.NoError(t, m.Cancel(ctx, g.HoldID))
	require.NoError(t, m.Cancel(ctx, "never-existed"))
}

func TestTTLReturnsMinimumAcrossMembers(t *testing.T) {
	m, store := newTestManager()
	ctx := context.Background()

	g, err := m.Grant(ctx, "ev-1", []string{"R1-S1", "R1-S2"})
	require.NoError(t, err)

	// Simulate one member lock having been independently extended.
	store.ttls[lease.LockKey("ev-1", "R1-S1")] = 10 * time.Minute

	ttl, err := m.TTL(ctx, g.HoldID)
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, ttl)
}

func TestTTLZeroForUnknownHold(t *testing.T) {
	m, _ := newTestManager()
	ttl, err := m.TTL(context.Background(), "gone")
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), ttl)
}

func TestDetailsFromGroupIndex(t *testing.T) {
	m, _ := newTestManager()
	ctx := context.Background()

	g, err := m.Grant(ctx, "ev-1", []string{"R1-S2", "R1-S1"})
	require.NoError(t, err)

	d, err := m.Details(ctx, g.HoldID)
	require.NoError(t, err)
	assert.Equal(t, "ev-1", d.EventID)
	assert.Equal(t, []string{"R1-S1", "R1-S2"}, d.SeatIDs)
	assert.Equal(t, 5*time.Minute, d.TTL)
}

func TestDetailsFallsBackToScanWhenIndexExpired(t *testing.T) {
	m, store := newTestManager()
	ctx := context.Background()

	g, err := m.Grant(ctx, "ev-1", []string{"R1-S1", "R1-S2"})
	require.NoError(t, err)

	// Drop the group index while member locks survive.
	require.NoError(t, store.Delete(ctx, lease.GroupKey(g.HoldID)))

	d, err := m.Details(ctx, g.HoldID)
	require.NoError(t, err)
	assert.Equal(t, []string{"R1-S1", "R1-S2"}, d.SeatIDs)
}

func TestDetailsUnknownHold(t *testing.T) {
	m, _ := newTestManager()
	_, err := m.Details(context.Background(), "gone")
	assert.ErrorIs(t, err, ErrHoldNotFound)
}

func TestRefreshExtendsEveryMemberAndIndex(t *testing.T) {
	m, store := newTestManager()
	ctx := context.Background()

	g, err := m.Grant(ctx, "ev-1", []string{"R1-S1", "R1-S2"})
	require.NoError(t, err)

	ttl, err := m.Refresh(ctx, g.HoldID, 10*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 10*time.Minute, ttl)
	assert.Equal(t, 10*time.Minute, store.ttls[lease.LockKey("ev-1", "R1-S1")])
	assert.Equal(t, 10*time.Minute, store.ttls[lease.LockKey("ev-1", "R1-S2")])
	assert.Equal(t, 10*time.Minute, store.ttls[lease.GroupKey(g.HoldID)])
}

func TestRefreshUnknownHold(t *testing.T) {
	m, _ := newTestManager()
	_, err := m.Refresh(context.Background(), "gone", time.Minute)
	assert.ErrorIs(t, err, ErrHoldNotFound)
}
