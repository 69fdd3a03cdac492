package payment

import (
	"context"
	"sync"

	"rentals/internal/domain"
	"rentals/internal/pkg/events"
	"rentals/internal/pkg/gateway"
	"rentals/internal/repository"
)

// memStore is an in-memory PaymentStore and booking reader with the same
// compare-and-set contract as the SQL repository.
type memStore struct {
	mu       sync.Mutex
	bookings map[int64]*domain.Booking
	calls    int
	// beforeCAS runs once before the next compare-and-set, outside the lock.
	beforeCAS func()
}

func newMemStore(bookings ...*domain.Booking) *memStore {
	s := &memStore{bookings: map[int64]*domain.Booking{}}
	for _, b := range bookings {
		if b.PaymentStatus == "" {
			b.PaymentStatus = domain.PaymentUnset
		}
		s.bookings[b.ID] = b
	}
	return s
}

func (s *memStore) GetByID(_ context.Context, id int64) (*domain.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	b, ok := s.bookings[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (s *memStore) GetByPaymentIntentID(_ context.Context, intentID string) (*domain.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	for _, b := range s.bookings {
		if b.PaymentIntentID != nil && *b.PaymentIntentID == intentID {
			cp := *b
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *memStore) GetPaymentState(ctx context.Context, bookingID int64) (domain.PaymentState, error) {
	b, err := s.GetByID(ctx, bookingID)
	if err != nil {
		return domain.PaymentState{}, err
	}
	return b.PaymentState(), nil
}

func (s *memStore) CompareAndSetPayment(_ context.Context, expected domain.PaymentState, next domain.PaymentUpdate) (bool, error) {
	if hook := s.beforeCAS; hook != nil {
		s.beforeCAS = nil
		hook()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++

	b, ok := s.bookings[expected.BookingID]
	if !ok {
		return false, nil
	}
	cur := b.PaymentState()
	if cur.Status != expected.Status || cur.IntentID != expected.IntentID {
		return false, nil
	}

	at := next.At.UTC()
	id := next.IntentID
	b.PaymentStatus = next.Status
	b.PaymentIntentID = &id
	b.PaymentAmount = next.AmountMinor
	switch next.Status {
	case domain.PaymentSubmitted:
		b.PaymentSubmittedAt = &at
	case domain.PaymentConfirmed:
		b.PaymentConfirmedAt = &at
	case domain.PaymentFailed:
		b.PaymentFailedAt = &at
	case domain.PaymentCanceled:
		b.PaymentCanceledAt = &at
	}
	return true, nil
}

// booking returns a snapshot; later writes do not show through it.
func (s *memStore) booking(id int64) *domain.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *s.bookings[id]
	return &cp
}

func (s *memStore) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type sentNotification struct {
	UserID int64
	Type   domain.NotificationType
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
	err  error
}

func (n *recordingNotifier) Create(_ context.Context, userID int64, typ domain.NotificationType, _, _ string, _ map[string]any) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentNotification{UserID: userID, Type: typ})
	return n.err
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, ev events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

// fakeGateway plays the processor.
type fakeGateway struct {
	mu        sync.Mutex
	next      int
	intents   map[string]*gateway.Intent
	createErr error
	confirm   func(id string) (*gateway.Intent, error)
	canceled  []string
	ids       []string
}

func newFakeGateway(ids ...string) *fakeGateway {
	return &fakeGateway{intents: map[string]*gateway.Intent{}, ids: ids}
}

func (g *fakeGateway) CreateIntent(_ context.Context, p gateway.CreateIntentParams) (*gateway.Intent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.createErr != nil {
		return nil, g.createErr
	}
	id := g.ids[g.next]
	g.next++
	in := &gateway.Intent{
		ID:           id,
		ClientSecret: id + "_secret",
		Status:       "requires_payment_method",
		AmountMinor:  p.AmountMinor,
		Currency:     p.Currency,
		BookingID:    p.BookingID,
	}
	g.intents[id] = in
	cp := *in
	return &cp, nil
}

func (g *fakeGateway) ConfirmIntent(_ context.Context, id, _ string) (*gateway.Intent, error) {
	if g.confirm != nil {
		return g.confirm(id)
	}
	return g.RetrieveIntent(context.Background(), id)
}

func (g *fakeGateway) RetrieveIntent(_ context.Context, id string) (*gateway.Intent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	in, ok := g.intents[id]
	if !ok {
		return nil, gateway.ErrIntentNotFound
	}
	cp := *in
	return &cp, nil
}

func (g *fakeGateway) CancelIntent(_ context.Context, id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.canceled = append(g.canceled, id)
	return nil
}
