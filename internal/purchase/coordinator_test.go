package purchase

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-ticket-booking/internal/lease"
	"github.com/iliyamo/event-ticket-booking/internal/model"
	"github.com/iliyamo/event-ticket-booking/internal/repository"
)

type fakeLeases struct {
	values map[string]string
	groups map[string][]string

	getErr    error
	deleteErr error
}

func newFakeLeases() *fakeLeases {
	return &fakeLeases{values: map[string]string{}, groups: map[string][]string{}}
}

func (f *fakeLeases) SetIfAbsent(_ context.Context, key, value string, _ time.Duration) (bool, error) {
	if _, ok := f.values[key]; ok {
		return false, nil
	}
	f.values[key] = value
	return true, nil
}

func (f *fakeLeases) Get(_ context.Context, key string) (string, error) {
	if f.getErr != nil {
		return "", f.getErr
	}
	return f.values[key], nil
}

func (f *fakeLeases) Delete(_ context.Context, keys ...string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	for _, k := range keys {
		delete(f.values, k)
		delete(f.groups, k)
	}
	return nil
}

func (f *fakeLeases) AddToGroup(_ context.Context, group string, _ time.Duration, keys ...string) error {
	f.groups[group] = append(f.groups[group], keys...)
	return nil
}

func (f *fakeLeases) GroupMembers(_ context.Context, group string) ([]string, error) {
	return f.groups[group], nil
}

func (f *fakeLeases) TTL(_ context.Context, _ string) (time.Duration, error) { return 0, nil }

func (f *fakeLeases) Expire(_ context.Context, _ string, _ time.Duration) (bool, error) {
	return true, nil
}

func (f *fakeLeases) ScanByValue(_ context.Context, _, _ string) ([]string, error) {
	return nil, nil
}

// holdSeats installs locks and the group index the way a granted hold
// leaves them.
func (f *fakeLeases) holdSeats(holdID, eventID string, seatIDs ...string) {
	group := lease.GroupKey(holdID)
	for _, sid := range seatIDs {
		key := lease.LockKey(eventID, sid)
		f.values[key] = holdID
		f.groups[group] = append(f.groups[group], key)
	}
}

type fakeInventory struct {
	transactional bool
	reserved      map[string]bool
	orders        []*model.Order

	commitErr      error
	reservedErr    error
	reserveErr     error
	createOrderErr error
}

func newFakeInventory(transactional bool) *fakeInventory {
	return &fakeInventory{transactional: transactional, reserved: map[string]bool{}}
}

func (f *fakeInventory) SupportsTransactions() bool { return f.transactional }

func (f *fakeInventory) CommitPurchase(_ context.Context, o *model.Order) error {
	if f.commitErr != nil {
		return f.commitErr
	}
	for _, sid := range o.SeatIDs {
		if f.reserved[sid] {
			return repository.ErrSeatAlreadyReserved
		}
	}
	for _, sid := range o.SeatIDs {
		f.reserved[sid] = true
	}
	f.orders = append(f.orders, o)
	return nil
}

func (f *fakeInventory) ReservedSeats(_ context.Context, _ string) (map[string]bool, error) {
	if f.reservedErr != nil {
		return nil, f.reservedErr
	}
	out := make(map[string]bool, len(f.reserved))
	for k, v := range f.reserved {
		out[k] = v
	}
	return out, nil
}

func (f *fakeInventory) ReserveSeats(_ context.Context, _ string, seatIDs []string) error {
	if f.reserveErr != nil {
		return f.reserveErr
	}
	for _, sid := range seatIDs {
		if f.reserved[sid] {
			return repository.ErrSeatAlreadyReserved
		}
	}
	for _, sid := range seatIDs {
		f.reserved[sid] = true
	}
	return nil
}

func (f *fakeInventory) CreateOrder(_ context.Context, o *model.Order) error {
	if f.createOrderErr != nil {
		return f.createOrderErr
	}
	f.orders = append(f.orders, o)
	return nil
}

type fakePayments struct {
	statuses map[string]string
}

func (f *fakePayments) Status(_ context.Context, ref string) (string, error) {
	s, ok := f.statuses[ref]
	if !ok {
		return "", repository.ErrPaymentNotFound
	}
	return s, nil
}

type fakeResponses struct {
	entries map[string][]byte
	putErr  error
}

func newFakeResponses() *fakeResponses { return &fakeResponses{entries: map[string][]byte{}} }

func (f *fakeResponses) Get(_ context.Context, token string) ([]byte, bool, error) {
	b, ok := f.entries[token]
	return b, ok, nil
}

func (f *fakeResponses) Put(_ context.Context, token string, response []byte) error {
	if f.putErr != nil {
		return f.putErr
	}
	f.entries[token] = response
	return nil
}

type capturingPublisher struct {
	orders []*model.Order
}

func (p *capturingPublisher) OrderConfirmed(_ context.Context, o *model.Order) {
	p.orders = append(p.orders, o)
}

func baseRequest() Request {
	return Request{
		UserID:         7,
		EventID:        "ev-1",
		HoldID:         "hold-1",
		SeatIDs:        []string{"R1-S1", "R1-S2"},
		PaymentRef:     "pay-1",
		IdempotencyKey: "tok-1",
	}
}

func newTestCoordinator(inv *fakeInventory, leases *fakeLeases) (*Coordinator, *fakeResponses, *capturingPublisher) {
	payments := &fakePayments{statuses: map[string]string{"pay-1": model.PaymentSucceeded}}
	responses := newFakeResponses()
	pub := &capturingPublisher{}
	return NewCoordinator(inv, leases, payments, responses, pub), responses, pub
}

func TestPurchaseSucceedsAndReleasesLeases(t *testing.T) {
	inv := newFakeInventory(true)
	leases := newFakeLeases()
	leases.holdSeats("hold-1", "ev-1", "R1-S1", "R1-S2")
	coord, responses, pub := newTestCoordinator(inv, leases)

	resp, err := coord.Purchase(context.Background(), baseRequest())
	require.NoError(t, err)

	assert.NotEmpty(t, resp.OrderID)
	assert.Equal(t, model.OrderStatusReserved, resp.Status)
	assert.Equal(t, []string{"R1-S1", "R1-S2"}, resp.SeatIDs)
	require.Len(t, inv.orders, 1)
	assert.Equal(t, uint64(7), inv.orders[0].UserID)

	// Locks and the group index are gone after commit.
	assert.Empty(t, leases.values)
	assert.Empty(t, leases.groups)

	// The response is cached under the token and the event published.
	_, cached := responses.entries["tok-1"]
	assert.True(t, cached)
	require.Len(t, pub.orders, 1)
}

func TestPurchaseReplaysCachedResponse(t *testing.T) {
	inv := newFakeInventory(true)
	leases := newFakeLeases()
	coord, responses, _ := newTestCoordinator(inv, leases)

	prior := Response{OrderID: "order-9", EventID: "ev-1", SeatIDs: []string{"R1-S1"}, Status: model.OrderStatusReserved}
	b, err := json.Marshal(prior)
	require.NoError(t, err)
	responses.entries["tok-1"] = b

	// No hold locks and no payment exist; the replay must short-circuit
	// before any of those checks run.
	req := baseRequest()
	req.PaymentRef = "unknown"
	resp, err := coord.Purchase(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, prior, resp)
	assert.Empty(t, inv.orders)
}

func TestPurchaseRejectsIncompletePayment(t *testing.T) {
	inv := newFakeInventory(true)
	leases := newFakeLeases()
	leases.holdSeats("hold-1", "ev-1", "R1-S1", "R1-S2")
	coord, _, _ := newTestCoordinator(inv, leases)

	req := baseRequest()
	req.IdempotencyKey = ""
	req.PaymentRef = "pay-pending"
	payments := coord.payments.(*fakePayments)
	payments.statuses["pay-pending"] = model.PaymentRequiresConfirmation

	_, err := coord.Purchase(context.Background(), req)
	assert.ErrorIs(t, err, ErrPaymentRequired)
	assert.Empty(t, inv.orders)

	req.PaymentRef = "never-created"
	_, err = coord.Purchase(context.Background(), req)
	assert.ErrorIs(t, err, ErrPaymentRequired)
}

func TestPurchaseDetectsLostHold(t *testing.T) {
	inv := newFakeInventory(true)
	leases := newFakeLeases()
	// First seat still owned, second lock was taken over by another hold.
	leases.holdSeats("hold-1", "ev-1", "R1-S1")
	leases.values[lease.LockKey("ev-1", "R1-S2")] = "hold-2"
	coord, responses, _ := newTestCoordinator(inv, leases)

	_, err := coord.Purchase(context.Background(), baseRequest())

	var conflict *HoldConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "R1-S2", conflict.SeatID)
	assert.Empty(t, inv.orders)
	_, cached := responses.entries["tok-1"]
	assert.False(t, cached)
}

func TestPurchaseDetectsExpiredHold(t *testing.T) {
	inv := newFakeInventory(true)
	leases := newFakeLeases()
	coord, _, _ := newTestCoordinator(inv, leases)

	_, err := coord.Purchase(context.Background(), baseRequest())

	var conflict *HoldConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "R1-S1", conflict.SeatID)
}

func TestPurchaseSurfacesReservedSeat(t *testing.T) {
	inv := newFakeInventory(true)
	inv.reserved["R1-S2"] = true
	leases := newFakeLeases()
	leases.holdSeats("hold-1", "ev-1", "R1-S1", "R1-S2")
	coord, _, _ := newTestCoordinator(inv, leases)

	_, err := coord.Purchase(context.Background(), baseRequest())
	assert.ErrorIs(t, err, repository.ErrSeatAlreadyReserved)
	assert.Empty(t, inv.orders)
}

func TestPurchaseFallbackPath(t *testing.T) {
	inv := newFakeInventory(false)
	leases := newFakeLeases()
	leases.holdSeats("hold-1", "ev-1", "R1-S1", "R1-S2")
	coord, _, _ := newTestCoordinator(inv, leases)

	resp, err := coord.Purchase(context.Background(), baseRequest())
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusReserved, resp.Status)
	assert.True(t, inv.reserved["R1-S1"])
	assert.True(t, inv.reserved["R1-S2"])
	require.Len(t, inv.orders, 1)
}

func TestPurchaseFallbackRecheckCatchesReservedSeat(t *testing.T) {
	inv := newFakeInventory(false)
	inv.reserved["R1-S1"] = true
	leases := newFakeLeases()
	leases.holdSeats("hold-1", "ev-1", "R1-S1", "R1-S2")
	coord, _, _ := newTestCoordinator(inv, leases)

	_, err := coord.Purchase(context.Background(), baseRequest())
	assert.ErrorIs(t, err, repository.ErrSeatAlreadyReserved)
	assert.Empty(t, inv.orders)
}

func TestPurchaseFallbackOrderFailureIsFatal(t *testing.T) {
	inv := newFakeInventory(false)
	inv.createOrderErr = errors.New("connection dropped")
	leases := newFakeLeases()
	leases.holdSeats("hold-1", "ev-1", "R1-S1", "R1-S2")
	coord, responses, _ := newTestCoordinator(inv, leases)

	_, err := coord.Purchase(context.Background(), baseRequest())
	assert.ErrorIs(t, err, ErrReservationFailed)

	// Seats flipped before the order insert failed: the seat state stays
	// authoritative and no response is cached for the token.
	assert.True(t, inv.reserved["R1-S1"])
	_, cached := responses.entries["tok-1"]
	assert.False(t, cached)
}

func TestPurchaseLeaseReleaseFailureIsNotFatal(t *testing.T) {
	inv := newFakeInventory(true)
	leases := newFakeLeases()
	leases.holdSeats("hold-1", "ev-1", "R1-S1", "R1-S2")
	leases.deleteErr = errors.New("redis down")
	coord, responses, _ := newTestCoordinator(inv, leases)

	resp, err := coord.Purchase(context.Background(), baseRequest())
	require.NoError(t, err)
	assert.NotEmpty(t, resp.OrderID)
	_, cached := responses.entries["tok-1"]
	assert.True(t, cached)
}

func TestPurchaseDeduplicatesSeatIDs(t *testing.T) {
	inv := newFakeInventory(true)
	leases := newFakeLeases()
	leases.holdSeats("hold-1", "ev-1", "R1-S1", "R1-S2")
	coord, _, _ := newTestCoordinator(inv, leases)

	// A repeated seat id passes the lock ownership check (each copy maps
	// to the same lock) and must not surface as a reserved-seat conflict.
	req := baseRequest()
	req.SeatIDs = []string{"R1-S1", "R1-S1", "R1-S2"}

	resp, err := coord.Purchase(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, []string{"R1-S1", "R1-S2"}, resp.SeatIDs)
	require.Len(t, inv.orders, 1)
	assert.Equal(t, []string{"R1-S1", "R1-S2"}, inv.orders[0].SeatIDs)
}

func TestPurchaseValidatesPayload(t *testing.T) {
	inv := newFakeInventory(true)
	coord, _, _ := newTestCoordinator(inv, newFakeLeases())

	for _, mutate := range []func(*Request){
		func(r *Request) { r.EventID = "" },
		func(r *Request) { r.HoldID = "" },
		func(r *Request) { r.SeatIDs = nil },
		func(r *Request) { r.SeatIDs = []string{""} },
		func(r *Request) { r.PaymentRef = "" },
	} {
		req := baseRequest()
		mutate(&req)
		_, err := coord.Purchase(context.Background(), req)
		assert.ErrorIs(t, err, ErrInvalidPayload)
	}
}
