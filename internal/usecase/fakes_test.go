package usecase

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"artisan-marketplace/internal/data/entity"
	"artisan-marketplace/internal/data/repository"
	"artisan-marketplace/pkg/apperr"
	"artisan-marketplace/pkg/clock"
	"artisan-marketplace/pkg/gateway"
	"artisan-marketplace/pkg/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

// memStore backs every fake repository. Finders return copies so services
// cannot mutate stored rows without going through a repository call.
type memStore struct {
	mu            sync.Mutex
	users         map[uuid.UUID]*entity.User
	artisans      map[uuid.UUID]*entity.Artisan
	bookings      map[uuid.UUID]*entity.Booking
	transactions  []*entity.Transaction
	reviews       map[uuid.UUID]*entity.Review
	fees          []entity.PlatformFeeConfig
	feeErr        error
	feeLoads      int
	notifications []*entity.Notification

	// Hooks run under mu just before the matching write, to simulate a
	// concurrent writer landing between a read and the update.
	beforeDowngrade  func(a *entity.Artisan)
	beforeTransition func(b *entity.Booking)
}

func newMemStore() *memStore {
	return &memStore{
		users:    map[uuid.UUID]*entity.User{},
		artisans: map[uuid.UUID]*entity.Artisan{},
		bookings: map[uuid.UUID]*entity.Booking{},
		reviews:  map[uuid.UUID]*entity.Review{},
	}
}

func (s *memStore) repository() *repository.Repository {
	return &repository.Repository{
		User:         &fakeUserRepo{s},
		Artisan:      &fakeArtisanRepo{s},
		Booking:      &fakeBookingRepo{s},
		Transaction:  &fakeTransactionRepo{s},
		Review:       &fakeReviewRepo{s},
		PlatformFee:  &fakeFeeRepo{s},
		Notification: &fakeNotificationRepo{s},
	}
}

func (s *memStore) addUser(role entity.UserRole) *entity.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := &entity.User{Base: entity.Base{ID: uuid.New()}, Name: string(role), Email: string(role) + "@example.com", Role: role}
	s.users[u.ID] = u
	return u
}

func (s *memStore) addArtisan(userID uuid.UUID, rate float64, verified bool, tier entity.SubscriptionTier) *entity.Artisan {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := &entity.Artisan{
		Base:             entity.Base{ID: uuid.New()},
		UserID:           userID,
		BusinessName:     "Workshop",
		HourlyRate:       rate,
		Verified:         verified,
		SubscriptionTier: tier,
	}
	s.artisans[a.ID] = a
	return a
}

func (s *memStore) putBooking(b *entity.Booking) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *b
	s.bookings[b.ID] = &c
}

func (s *memStore) booking(id uuid.UUID) entity.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.bookings[id]
}

func (s *memStore) artisan(id uuid.UUID) entity.Artisan {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.artisans[id]
}

func (s *memStore) ledger() []entity.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]entity.Transaction, len(s.transactions))
	for i, t := range s.transactions {
		out[i] = *t
	}
	return out
}

func (s *memStore) notificationsFor(userID uuid.UUID) []entity.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []entity.Notification
	for _, n := range s.notifications {
		if n.UserID == userID {
			out = append(out, *n)
		}
	}
	return out
}

type fakeUserRepo struct{ s *memStore }

func (r *fakeUserRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, nil
	}
	c := *u
	return &c, nil
}

func (r *fakeUserRepo) FindByRole(_ context.Context, role entity.UserRole) ([]*entity.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.User
	for _, u := range r.s.users {
		if u.Role == role {
			c := *u
			out = append(out, &c)
		}
	}
	return out, nil
}

type fakeArtisanRepo struct{ s *memStore }

func (r *fakeArtisanRepo) get(id uuid.UUID) (*entity.Artisan, error) {
	a, ok := r.s.artisans[id]
	if !ok {
		return nil, errors.New("artisan not found")
	}
	return a, nil
}

func (r *fakeArtisanRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.Artisan, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.artisans[id]
	if !ok {
		return nil, nil
	}
	c := *a
	return &c, nil
}

func (r *fakeArtisanRepo) FindByUserID(_ context.Context, userID uuid.UUID) (*entity.Artisan, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, a := range r.s.artisans {
		if a.UserID == userID {
			c := *a
			return &c, nil
		}
	}
	return nil, nil
}

func (r *fakeArtisanRepo) IncrementCompletedJobs(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, err := r.get(id)
	if err != nil {
		return err
	}
	a.CompletedJobs++
	return nil
}

func (r *fakeArtisanRepo) UpdateRating(_ context.Context, id uuid.UUID, rating float64, count int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, err := r.get(id)
	if err != nil {
		return err
	}
	a.Rating = rating
	a.ReviewCount = count
	return nil
}

func (r *fakeArtisanRepo) ActivateSubscription(_ context.Context, id uuid.UUID, tier entity.SubscriptionTier, expiresAt time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, err := r.get(id)
	if err != nil {
		return err
	}
	a.SubscriptionTier = tier
	a.SubscriptionExpiresAt = &expiresAt
	a.SubscriptionExpiryNotified = false
	a.SubscriptionExpiredNotified = false
	return nil
}

func (r *fakeArtisanRepo) FindExpiringSubscriptions(_ context.Context, now, until time.Time) ([]*entity.Artisan, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.Artisan
	for _, a := range r.s.artisans {
		exp := a.SubscriptionExpiresAt
		if a.SubscriptionTier != entity.TierFree && exp != nil && exp.After(now) && !exp.After(until) && !a.SubscriptionExpiryNotified {
			c := *a
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r *fakeArtisanRepo) FindExpiredSubscriptions(_ context.Context, now time.Time) ([]*entity.Artisan, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.Artisan
	for _, a := range r.s.artisans {
		exp := a.SubscriptionExpiresAt
		if a.SubscriptionTier != entity.TierFree && exp != nil && !exp.After(now) && !a.SubscriptionExpiredNotified {
			c := *a
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r *fakeArtisanRepo) MarkExpiryNotified(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, err := r.get(id)
	if err != nil {
		return err
	}
	a.SubscriptionExpiryNotified = true
	return nil
}

func (r *fakeArtisanRepo) DowngradeExpired(_ context.Context, id uuid.UUID, now time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, err := r.get(id)
	if err != nil {
		return false, err
	}
	if r.s.beforeDowngrade != nil {
		r.s.beforeDowngrade(a)
	}
	if a.SubscriptionExpiresAt == nil || a.SubscriptionExpiresAt.After(now) {
		return false, nil
	}
	a.SubscriptionTier = entity.TierFree
	a.SubscriptionExpiredNotified = true
	return true, nil
}

type fakeBookingRepo struct{ s *memStore }

func (r *fakeBookingRepo) get(id uuid.UUID) (*entity.Booking, error) {
	b, ok := r.s.bookings[id]
	if !ok {
		return nil, errors.New("booking not found")
	}
	return b, nil
}

func (r *fakeBookingRepo) Create(_ context.Context, b *entity.Booking) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c := *b
	r.s.bookings[b.ID] = &c
	return nil
}

func (r *fakeBookingRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, ok := r.s.bookings[id]
	if !ok {
		return nil, nil
	}
	c := *b
	return &c, nil
}

func (r *fakeBookingRepo) FindByPaymentIntentID(_ context.Context, ref string) (*entity.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, b := range r.s.bookings {
		if b.PaymentIntentID != nil && *b.PaymentIntentID == ref {
			c := *b
			return &c, nil
		}
	}
	return nil, nil
}

func (r *fakeBookingRepo) match(f repository.BookingFilter) []*entity.Booking {
	var out []*entity.Booking
	for _, b := range r.s.bookings {
		if f.CustomerID != nil && b.CustomerID != *f.CustomerID {
			continue
		}
		if f.ArtisanID != nil && b.ArtisanID != *f.ArtisanID {
			continue
		}
		if f.Status != nil && b.Status != *f.Status {
			continue
		}
		c := *b
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (r *fakeBookingRepo) List(_ context.Context, f repository.BookingFilter, limit, offset int) ([]*entity.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	all := r.match(f)
	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (r *fakeBookingRepo) Count(_ context.Context, f repository.BookingFilter) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return int64(len(r.match(f))), nil
}

func (r *fakeBookingRepo) FindActiveByArtisanOnDay(_ context.Context, artisanID uuid.UUID, day time.Time) ([]*entity.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	y, m, d := day.Date()
	var out []*entity.Booking
	for _, b := range r.s.bookings {
		by, bm, bd := b.ScheduledDate.Date()
		if b.ArtisanID == artisanID && b.Status.Active() && by == y && bm == m && bd == d {
			c := *b
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r *fakeBookingRepo) FindCancelledAwaitingRefund(_ context.Context, limit int) ([]*entity.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.Booking
	for _, b := range r.s.bookings {
		if b.Status == entity.BookingStatusCancelled && b.PaymentStatus == entity.PaymentStatusPaid && b.HasPaymentIntent() {
			c := *b
			out = append(out, &c)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *fakeBookingRepo) TransitionStatus(_ context.Context, id uuid.UUID, from entity.BookingStatus, version int, to entity.BookingStatus, reason *string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, err := r.get(id)
	if err != nil {
		return err
	}
	if r.s.beforeTransition != nil {
		r.s.beforeTransition(b)
	}
	if b.Status != from || b.Version != version {
		return repository.ErrStaleWrite
	}
	b.Status = to
	if reason != nil {
		b.CancellationReason = reason
	}
	b.Version++
	return nil
}

func (r *fakeBookingRepo) ReleaseEscrow(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, err := r.get(id)
	if err != nil {
		return err
	}
	b.EscrowReleased = true
	return nil
}

func (r *fakeBookingRepo) SetPaymentIntent(_ context.Context, id uuid.UUID, ref string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, err := r.get(id)
	if err != nil {
		return err
	}
	b.PaymentIntentID = &ref
	return nil
}

func (r *fakeBookingRepo) MarkPaid(_ context.Context, id uuid.UUID, ref string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, err := r.get(id)
	if err != nil {
		return err
	}
	if b.PaymentStatus == entity.PaymentStatusPaid {
		return repository.ErrStaleWrite
	}
	b.PaymentStatus = entity.PaymentStatusPaid
	b.PaymentIntentID = &ref
	if b.Status == entity.BookingStatusPending {
		b.Status = entity.BookingStatusConfirmed
	}
	b.Version++
	return nil
}

func (r *fakeBookingRepo) UpdatePaymentStatus(_ context.Context, id uuid.UUID, status entity.PaymentStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, err := r.get(id)
	if err != nil {
		return err
	}
	b.PaymentStatus = status
	return nil
}

func (r *fakeBookingRepo) MarkPaymentFailedByIntent(_ context.Context, ref string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, b := range r.s.bookings {
		if b.PaymentIntentID != nil && *b.PaymentIntentID == ref && b.PaymentStatus == entity.PaymentStatusPending {
			b.PaymentStatus = entity.PaymentStatusFailed
			n++
		}
	}
	return n, nil
}

type fakeTransactionRepo struct{ s *memStore }

func (r *fakeTransactionRepo) Create(_ context.Context, txn *entity.Transaction) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, t := range r.s.transactions {
		if t.ExternalPaymentReference == txn.ExternalPaymentReference {
			return apperr.DuplicateKey("transaction already recorded")
		}
	}
	c := *txn
	r.s.transactions = append(r.s.transactions, &c)
	return nil
}

func (r *fakeTransactionRepo) FindByReference(_ context.Context, ref string) (*entity.Transaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, t := range r.s.transactions {
		if t.ExternalPaymentReference == ref {
			c := *t
			return &c, nil
		}
	}
	return nil, nil
}

func (r *fakeTransactionRepo) ListByUser(_ context.Context, userID uuid.UUID, limit, offset int) ([]*entity.Transaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.Transaction
	for _, t := range r.s.transactions {
		if t.UserID == userID {
			c := *t
			out = append(out, &c)
		}
	}
	if offset >= len(out) {
		return nil, nil
	}
	end := offset + limit
	if end > len(out) {
		end = len(out)
	}
	return out[offset:end], nil
}

func (r *fakeTransactionRepo) CountByUser(_ context.Context, userID uuid.UUID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, t := range r.s.transactions {
		if t.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (r *fakeTransactionRepo) UpdateStatusByReference(_ context.Context, ref string, status entity.TransactionStatus) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, t := range r.s.transactions {
		if t.ExternalPaymentReference == ref {
			t.Status = status
			n++
		}
	}
	return n, nil
}

type fakeReviewRepo struct{ s *memStore }

func (r *fakeReviewRepo) Create(_ context.Context, review *entity.Review) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.reviews {
		if existing.BookingID == review.BookingID {
			return apperr.DuplicateKey("booking has already been reviewed")
		}
	}
	c := *review
	r.s.reviews[review.ID] = &c
	return nil
}

func (r *fakeReviewRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.Review, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rv, ok := r.s.reviews[id]
	if !ok {
		return nil, nil
	}
	c := *rv
	return &c, nil
}

func (r *fakeReviewRepo) FindByBookingID(_ context.Context, bookingID uuid.UUID) (*entity.Review, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, rv := range r.s.reviews {
		if rv.BookingID == bookingID {
			c := *rv
			return &c, nil
		}
	}
	return nil, nil
}

func (r *fakeReviewRepo) ListByArtisan(_ context.Context, artisanID uuid.UUID, limit, offset int) ([]*entity.Review, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.Review
	for _, rv := range r.s.reviews {
		if rv.ArtisanID == artisanID {
			c := *rv
			out = append(out, &c)
		}
	}
	if offset >= len(out) {
		return nil, nil
	}
	end := offset + limit
	if end > len(out) {
		end = len(out)
	}
	return out[offset:end], nil
}

func (r *fakeReviewRepo) CountByArtisan(_ context.Context, artisanID uuid.UUID) (int64, error) {
	_, count, err := r.GetArtisanStats(context.Background(), artisanID)
	return int64(count), err
}

func (r *fakeReviewRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.reviews[id]; !ok {
		return errors.New("review not found")
	}
	delete(r.s.reviews, id)
	return nil
}

func (r *fakeReviewRepo) GetArtisanStats(_ context.Context, artisanID uuid.UUID) (float64, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sum, count := 0, 0
	for _, rv := range r.s.reviews {
		if rv.ArtisanID == artisanID {
			sum += rv.Rating
			count++
		}
	}
	if count == 0 {
		return 0, 0, nil
	}
	return float64(sum) / float64(count), count, nil
}

type fakeFeeRepo struct{ s *memStore }

func (r *fakeFeeRepo) ListActive(_ context.Context) ([]entity.PlatformFeeConfig, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.feeLoads++
	if r.s.feeErr != nil {
		return nil, r.s.feeErr
	}
	var out []entity.PlatformFeeConfig
	for _, cfg := range r.s.fees {
		if cfg.IsActive {
			out = append(out, cfg)
		}
	}
	return out, nil
}

func (r *fakeFeeRepo) ListAll(_ context.Context) ([]entity.PlatformFeeConfig, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.feeErr != nil {
		return nil, r.s.feeErr
	}
	return append([]entity.PlatformFeeConfig(nil), r.s.fees...), nil
}

func (r *fakeFeeRepo) Upsert(_ context.Context, cfg *entity.PlatformFeeConfig) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i, existing := range r.s.fees {
		if existing.Tier == cfg.Tier {
			r.s.fees[i] = *cfg
			return nil
		}
	}
	r.s.fees = append(r.s.fees, *cfg)
	return nil
}

type fakeNotificationRepo struct{ s *memStore }

func (r *fakeNotificationRepo) Create(_ context.Context, n *entity.Notification) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c := *n
	r.s.notifications = append(r.s.notifications, &c)
	return nil
}

func (r *fakeNotificationRepo) filter(userID uuid.UUID, unreadOnly bool) []*entity.Notification {
	var out []*entity.Notification
	for _, n := range r.s.notifications {
		if n.UserID == userID && (!unreadOnly || !n.IsRead) {
			c := *n
			out = append(out, &c)
		}
	}
	return out
}

func (r *fakeNotificationRepo) ListByUser(_ context.Context, userID uuid.UUID, unreadOnly bool, limit, offset int) ([]*entity.Notification, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := r.filter(userID, unreadOnly)
	if offset >= len(out) {
		return nil, nil
	}
	end := offset + limit
	if end > len(out) {
		end = len(out)
	}
	return out[offset:end], nil
}

func (r *fakeNotificationRepo) CountByUser(_ context.Context, userID uuid.UUID, unreadOnly bool) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return int64(len(r.filter(userID, unreadOnly))), nil
}

func (r *fakeNotificationRepo) MarkRead(_ context.Context, id, userID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, n := range r.s.notifications {
		if n.ID == id && n.UserID == userID {
			n.IsRead = true
			return nil
		}
	}
	return apperr.NotFound("notification")
}

func (r *fakeNotificationRepo) MarkAllRead(_ context.Context, userID uuid.UUID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, item := range r.s.notifications {
		if item.UserID == userID && !item.IsRead {
			item.IsRead = true
			n++
		}
	}
	return n, nil
}

// MockGateway is a testify mock of gateway.PaymentGateway.
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) CreateIntent(ctx context.Context, amount decimal.Decimal, currency string, metadata map[string]string) (*gateway.Intent, error) {
	args := m.Called(ctx, amount, currency, metadata)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.Intent), args.Error(1)
}

func (m *MockGateway) RetrieveIntent(ctx context.Context, id string) (*gateway.Intent, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.Intent), args.Error(1)
}

func (m *MockGateway) CreateRefund(ctx context.Context, intentID string) (*gateway.Refund, error) {
	args := m.Called(ctx, intentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.Refund), args.Error(1)
}

func (m *MockGateway) ParseWebhook(payload []byte, signature string) (*gateway.Event, error) {
	args := m.Called(payload, signature)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.Event), args.Error(1)
}

var testNow = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

type testEnv struct {
	store   *memStore
	gateway *MockGateway
	clock   *clock.Fake
	config  *utils.Config
	svc     *Service
}

func testConfig() *utils.Config {
	return &utils.Config{
		Stripe:       utils.StripeConfig{Currency: "usd"},
		Subscription: utils.SubscriptionConfig{BasicPrice: 9.99, PremiumPrice: 19.99, PeriodDays: 30, ExpiryWarningDays: 3},
		Notification: utils.NotificationConfig{QueueSize: 64, Workers: 1},
	}
}

func newTestEnv(t *testing.T, mutate ...func(*utils.Config)) *testEnv {
	t.Helper()

	cfg := testConfig()
	for _, fn := range mutate {
		fn(cfg)
	}

	env := &testEnv{
		store:   newMemStore(),
		gateway: new(MockGateway),
		clock:   clock.NewFake(testNow),
		config:  cfg,
	}
	env.svc = NewService(env.store.repository(), cfg, zap.NewNop(), Deps{
		Gateway: env.gateway,
		Clock:   env.clock,
	})
	env.svc.Dispatcher.Start()
	t.Cleanup(env.svc.Dispatcher.Stop)

	return env
}

// flush waits for queued notifications to be written.
func (e *testEnv) flush() {
	e.svc.Dispatcher.Stop()
}

// seedBooking stores a booking for customer with artisan a.
func (e *testEnv) seedBooking(customer *entity.User, a *entity.Artisan, status entity.BookingStatus, payment entity.PaymentStatus, intentID string) *entity.Booking {
	b := &entity.Booking{
		Base:          entity.Base{ID: uuid.New(), CreatedAt: testNow, UpdatedAt: testNow},
		CustomerID:    customer.ID,
		ArtisanID:     a.ID,
		ServiceType:   "plumbing",
		Description:   "Fix the kitchen sink",
		ScheduledDate: testNow.AddDate(0, 0, 2),
		TimeSlot:      entity.TimeSlot{Start: "09:00", End: "11:00"},
		Location:      "12 Main St",
		Amount:        900,
		Status:        status,
		PaymentStatus: payment,
		Version:       1,
	}
	if intentID != "" {
		b.PaymentIntentID = &intentID
	}
	e.store.putBooking(b)
	return b
}

func actorOf(u *entity.User) Actor {
	return Actor{UserID: u.ID, Role: u.Role}
}

func mustParse(t *testing.T, id string) uuid.UUID {
	t.Helper()
	parsed, err := uuid.Parse(id)
	if err != nil {
		t.Fatalf("parse uuid %q: %v", id, err)
	}
	return parsed
}

func zapNop() *zap.Logger {
	return zap.NewNop()
}
