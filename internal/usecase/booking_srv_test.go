package usecase

import (
	"context"
	"errors"
	"testing"

	"artisan-marketplace/internal/data/entity"
	"artisan-marketplace/internal/dto/request"
	"artisan-marketplace/pkg/apperr"
	"artisan-marketplace/pkg/gateway"
	"artisan-marketplace/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func validBookingRequest(artisanID string) *request.CreateBookingRequest {
	return &request.CreateBookingRequest{
		ArtisanID:     artisanID,
		ServiceType:   "carpentry",
		Description:   "Build a set of kitchen shelves",
		ScheduledDate: "2025-06-03",
		TimeSlot:      request.TimeSlotRequest{Start: "10:00", End: "12:30"},
		Location:      "7 Elm Road",
	}
}

func TestCreateBooking(t *testing.T) {
	ctx := context.Background()

	t.Run("computes amount and notifies artisan", func(t *testing.T) {
		env := newTestEnv(t)
		customer := env.store.addUser(entity.RoleCustomer)
		artisanUser := env.store.addUser(entity.RoleArtisan)
		artisan := env.store.addArtisan(artisanUser.ID, 400, true, entity.TierFree)

		resp, err := env.svc.Booking.CreateBooking(ctx, actorOf(customer), validBookingRequest(artisan.ID.String()))
		require.NoError(t, err)

		assert.Equal(t, 1000.0, resp.Amount)
		assert.Equal(t, entity.BookingStatusPending, resp.Status)
		assert.Equal(t, entity.PaymentStatusPending, resp.PaymentStatus)
		assert.False(t, resp.EscrowReleased)

		env.flush()
		notes := env.store.notificationsFor(artisanUser.ID)
		require.Len(t, notes, 1)
		assert.Equal(t, entity.NotificationBookingCreated, notes[0].Type)
		assert.Equal(t, resp.ID, notes[0].Metadata["bookingId"])
	})

	t.Run("unknown artisan", func(t *testing.T) {
		env := newTestEnv(t)
		customer := env.store.addUser(entity.RoleCustomer)

		_, err := env.svc.Booking.CreateBooking(ctx, actorOf(customer), validBookingRequest("5f1c1b8e-0f7a-4b7e-9a57-7f0a4a3b2c10"))
		assert.True(t, apperr.Is(err, apperr.ErrNotFound))
	})

	t.Run("unverified artisan", func(t *testing.T) {
		env := newTestEnv(t)
		customer := env.store.addUser(entity.RoleCustomer)
		artisan := env.store.addArtisan(env.store.addUser(entity.RoleArtisan).ID, 400, false, entity.TierFree)

		_, err := env.svc.Booking.CreateBooking(ctx, actorOf(customer), validBookingRequest(artisan.ID.String()))
		assert.True(t, apperr.Is(err, apperr.ErrNotVerified))
	})

	t.Run("validation", func(t *testing.T) {
		env := newTestEnv(t)
		customer := env.store.addUser(entity.RoleCustomer)
		artisan := env.store.addArtisan(env.store.addUser(entity.RoleArtisan).ID, 400, true, entity.TierFree)

		cases := map[string]func(r *request.CreateBookingRequest){
			"short description": func(r *request.CreateBookingRequest) { r.Description = "too short" },
			"past date":         func(r *request.CreateBookingRequest) { r.ScheduledDate = "2025-05-31" },
			"bad date":          func(r *request.CreateBookingRequest) { r.ScheduledDate = "next tuesday" },
			"end before start":  func(r *request.CreateBookingRequest) { r.TimeSlot.End = "09:00" },
			"bad time format":   func(r *request.CreateBookingRequest) { r.TimeSlot.Start = "9am" },
		}
		for name, mutate := range cases {
			req := validBookingRequest(artisan.ID.String())
			mutate(req)
			_, err := env.svc.Booking.CreateBooking(ctx, actorOf(customer), req)
			assert.True(t, apperr.Is(err, apperr.ErrValidation), name)
		}
	})

	t.Run("only customers book", func(t *testing.T) {
		env := newTestEnv(t)
		artisanUser := env.store.addUser(entity.RoleArtisan)
		artisan := env.store.addArtisan(artisanUser.ID, 400, true, entity.TierFree)

		_, err := env.svc.Booking.CreateBooking(ctx, actorOf(artisanUser), validBookingRequest(artisan.ID.String()))
		assert.True(t, apperr.Is(err, apperr.ErrForbidden))
	})
}

func TestCreateBooking_ConflictCheck(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T, strict bool) (*testEnv, *entity.User, *entity.Artisan) {
		env := newTestEnv(t, func(c *utils.Config) { c.Booking.StrictConflictCheck = strict })
		customer := env.store.addUser(entity.RoleCustomer)
		artisan := env.store.addArtisan(env.store.addUser(entity.RoleArtisan).ID, 400, true, entity.TierFree)
		_, err := env.svc.Booking.CreateBooking(ctx, actorOf(customer), validBookingRequest(artisan.ID.String()))
		require.NoError(t, err)
		return env, customer, artisan
	}

	t.Run("lenient path allows overlap", func(t *testing.T) {
		env, customer, artisan := setup(t, false)
		req := validBookingRequest(artisan.ID.String())
		req.TimeSlot = request.TimeSlotRequest{Start: "11:00", End: "13:00"}

		_, err := env.svc.Booking.CreateBooking(ctx, actorOf(customer), req)
		assert.NoError(t, err)
	})

	t.Run("strict path rejects overlap", func(t *testing.T) {
		env, customer, artisan := setup(t, true)
		req := validBookingRequest(artisan.ID.String())
		req.TimeSlot = request.TimeSlotRequest{Start: "11:00", End: "13:00"}

		_, err := env.svc.Booking.CreateBooking(ctx, actorOf(customer), req)
		assert.True(t, apperr.Is(err, apperr.ErrConflict))

		req.TimeSlot = request.TimeSlotRequest{Start: "12:30", End: "14:00"}
		_, err = env.svc.Booking.CreateBooking(ctx, actorOf(customer), req)
		assert.NoError(t, err, "adjacent slots do not overlap")
	})
}

func TestGetAvailability(t *testing.T) {
	env := newTestEnv(t)
	customer := env.store.addUser(entity.RoleCustomer)
	artisan := env.store.addArtisan(env.store.addUser(entity.RoleArtisan).ID, 400, true, entity.TierFree)
	env.seedBooking(customer, artisan, entity.BookingStatusConfirmed, entity.PaymentStatusPaid, "pi_1")
	env.seedBooking(customer, artisan, entity.BookingStatusCancelled, entity.PaymentStatusPending, "")
	ctx := context.Background()

	resp, err := env.svc.Booking.GetAvailability(ctx, artisan.ID.String(), &request.AvailabilityRequest{Date: "2025-06-03", Start: "10:00", End: "12:00"})
	require.NoError(t, err)
	require.Len(t, resp.Busy, 1)
	assert.Equal(t, "09:00", resp.Busy[0].Start)
	require.NotNil(t, resp.Available)
	assert.False(t, *resp.Available)

	resp, err = env.svc.Booking.GetAvailability(ctx, artisan.ID.String(), &request.AvailabilityRequest{Date: "2025-06-03", Start: "11:00", End: "12:00"})
	require.NoError(t, err)
	assert.True(t, *resp.Available)
}

func TestUpdateStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("artisan walks booking to completion", func(t *testing.T) {
		env := newTestEnv(t)
		customer := env.store.addUser(entity.RoleCustomer)
		artisanUser := env.store.addUser(entity.RoleArtisan)
		artisan := env.store.addArtisan(artisanUser.ID, 450, true, entity.TierFree)
		b := env.seedBooking(customer, artisan, entity.BookingStatusConfirmed, entity.PaymentStatusPaid, "pi_1")

		_, err := env.svc.Booking.UpdateStatus(ctx, actorOf(artisanUser), b.ID.String(), &request.UpdateBookingStatusRequest{Status: "in-progress"})
		require.NoError(t, err)

		resp, err := env.svc.Booking.UpdateStatus(ctx, actorOf(artisanUser), b.ID.String(), &request.UpdateBookingStatusRequest{Status: "completed"})
		require.NoError(t, err)
		assert.Equal(t, entity.BookingStatusCompleted, resp.Status)
		assert.True(t, resp.EscrowReleased)
		assert.Equal(t, 1, env.store.artisan(artisan.ID).CompletedJobs)

		env.flush()
		assert.Len(t, env.store.notificationsFor(customer.ID), 2)
	})

	t.Run("illegal transitions", func(t *testing.T) {
		env := newTestEnv(t)
		customer := env.store.addUser(entity.RoleCustomer)
		artisanUser := env.store.addUser(entity.RoleArtisan)
		artisan := env.store.addArtisan(artisanUser.ID, 450, true, entity.TierFree)

		pending := env.seedBooking(customer, artisan, entity.BookingStatusPending, entity.PaymentStatusPending, "")
		_, err := env.svc.Booking.UpdateStatus(ctx, actorOf(artisanUser), pending.ID.String(), &request.UpdateBookingStatusRequest{Status: "completed"})
		assert.True(t, apperr.Is(err, apperr.ErrInvalidTransition))

		done := env.seedBooking(customer, artisan, entity.BookingStatusCompleted, entity.PaymentStatusPaid, "pi_2")
		_, err = env.svc.Booking.UpdateStatus(ctx, actorOf(artisanUser), done.ID.String(), &request.UpdateBookingStatusRequest{Status: "cancelled"})
		assert.True(t, apperr.Is(err, apperr.ErrInvalidTransition))
		assert.Equal(t, 0, env.store.artisan(artisan.ID).CompletedJobs)
	})

	t.Run("customer cannot change status", func(t *testing.T) {
		env := newTestEnv(t)
		customer := env.store.addUser(entity.RoleCustomer)
		artisan := env.store.addArtisan(env.store.addUser(entity.RoleArtisan).ID, 450, true, entity.TierFree)
		b := env.seedBooking(customer, artisan, entity.BookingStatusPending, entity.PaymentStatusPending, "")

		_, err := env.svc.Booking.UpdateStatus(ctx, actorOf(customer), b.ID.String(), &request.UpdateBookingStatusRequest{Status: "confirmed"})
		assert.True(t, apperr.Is(err, apperr.ErrForbidden))
	})

	t.Run("admin may transition", func(t *testing.T) {
		env := newTestEnv(t)
		customer := env.store.addUser(entity.RoleCustomer)
		admin := env.store.addUser(entity.RoleAdmin)
		artisan := env.store.addArtisan(env.store.addUser(entity.RoleArtisan).ID, 450, true, entity.TierFree)
		b := env.seedBooking(customer, artisan, entity.BookingStatusPending, entity.PaymentStatusPending, "")

		resp, err := env.svc.Booking.UpdateStatus(ctx, actorOf(admin), b.ID.String(), &request.UpdateBookingStatusRequest{Status: "confirmed"})
		require.NoError(t, err)
		assert.Equal(t, entity.BookingStatusConfirmed, resp.Status)
	})
}

func TestUpdateStatus_TransitionMatrix(t *testing.T) {
	ctx := context.Background()
	statuses := []entity.BookingStatus{
		entity.BookingStatusPending,
		entity.BookingStatusConfirmed,
		entity.BookingStatusInProgress,
		entity.BookingStatusCompleted,
		entity.BookingStatusCancelled,
	}

	for _, from := range statuses {
		for _, to := range statuses {
			t.Run(string(from)+"->"+string(to), func(t *testing.T) {
				env := newTestEnv(t)
				customer := env.store.addUser(entity.RoleCustomer)
				artisanUser := env.store.addUser(entity.RoleArtisan)
				artisan := env.store.addArtisan(artisanUser.ID, 450, true, entity.TierFree)
				b := env.seedBooking(customer, artisan, from, entity.PaymentStatusPending, "")

				_, err := env.svc.Booking.UpdateStatus(ctx, actorOf(artisanUser), b.ID.String(), &request.UpdateBookingStatusRequest{Status: string(to)})
				stored := env.store.booking(b.ID)

				if CanTransition(from, to) {
					require.NoError(t, err)
					assert.Equal(t, to, stored.Status)
					assert.Equal(t, b.Version+1, stored.Version)
					return
				}

				assert.True(t, apperr.Is(err, apperr.ErrInvalidTransition))
				assert.Equal(t, from, stored.Status)
				assert.Equal(t, b.Version, stored.Version)
				assert.False(t, stored.EscrowReleased)
				assert.Zero(t, env.store.artisan(artisan.ID).CompletedJobs)
			})
		}
	}
}

func TestBookingWrites_ConcurrentModificationConflicts(t *testing.T) {
	ctx := context.Background()

	// bumpOnce simulates another writer committing between load and write.
	bumpOnce := func(env *testEnv) {
		env.store.beforeTransition = func(b *entity.Booking) {
			b.Version++
			env.store.beforeTransition = nil
		}
	}

	t.Run("status update", func(t *testing.T) {
		env := newTestEnv(t)
		customer := env.store.addUser(entity.RoleCustomer)
		artisanUser := env.store.addUser(entity.RoleArtisan)
		artisan := env.store.addArtisan(artisanUser.ID, 450, true, entity.TierFree)
		b := env.seedBooking(customer, artisan, entity.BookingStatusConfirmed, entity.PaymentStatusPaid, "pi_1")
		bumpOnce(env)

		_, err := env.svc.Booking.UpdateStatus(ctx, actorOf(artisanUser), b.ID.String(), &request.UpdateBookingStatusRequest{Status: "in-progress"})
		assert.True(t, apperr.Is(err, apperr.ErrConflict))
		assert.Equal(t, entity.BookingStatusConfirmed, env.store.booking(b.ID).Status)
	})

	t.Run("completion leaves escrow and job count alone", func(t *testing.T) {
		env := newTestEnv(t)
		customer := env.store.addUser(entity.RoleCustomer)
		artisanUser := env.store.addUser(entity.RoleArtisan)
		artisan := env.store.addArtisan(artisanUser.ID, 450, true, entity.TierFree)
		b := env.seedBooking(customer, artisan, entity.BookingStatusInProgress, entity.PaymentStatusPaid, "pi_1")
		bumpOnce(env)

		_, err := env.svc.Booking.UpdateStatus(ctx, actorOf(artisanUser), b.ID.String(), &request.UpdateBookingStatusRequest{Status: "completed"})
		assert.True(t, apperr.Is(err, apperr.ErrConflict))

		stored := env.store.booking(b.ID)
		assert.Equal(t, entity.BookingStatusInProgress, stored.Status)
		assert.False(t, stored.EscrowReleased)
		assert.Zero(t, env.store.artisan(artisan.ID).CompletedJobs)
	})

	t.Run("cancellation skips refund", func(t *testing.T) {
		env := newTestEnv(t)
		customer := env.store.addUser(entity.RoleCustomer)
		artisan := env.store.addArtisan(env.store.addUser(entity.RoleArtisan).ID, 450, true, entity.TierFree)
		b := env.seedBooking(customer, artisan, entity.BookingStatusConfirmed, entity.PaymentStatusPaid, "pi_1")
		bumpOnce(env)

		_, err := env.svc.Booking.CancelBooking(ctx, actorOf(customer), b.ID.String(), nil)
		assert.True(t, apperr.Is(err, apperr.ErrConflict))

		stored := env.store.booking(b.ID)
		assert.Equal(t, entity.BookingStatusConfirmed, stored.Status)
		assert.Equal(t, entity.PaymentStatusPaid, stored.PaymentStatus)
		env.gateway.AssertNotCalled(t, "CreateRefund", mock.Anything, mock.Anything)
	})
}

func TestCancelBooking(t *testing.T) {
	ctx := context.Background()
	reason := "schedule changed"

	t.Run("paid booking is refunded", func(t *testing.T) {
		env := newTestEnv(t)
		customer := env.store.addUser(entity.RoleCustomer)
		artisan := env.store.addArtisan(env.store.addUser(entity.RoleArtisan).ID, 450, true, entity.TierFree)
		b := env.seedBooking(customer, artisan, entity.BookingStatusConfirmed, entity.PaymentStatusPaid, "pi_123")

		env.gateway.On("CreateRefund", mock.Anything, "pi_123").
			Return(&gateway.Refund{ID: "re_1", PaymentIntentID: "pi_123", Status: "succeeded"}, nil).Once()

		resp, err := env.svc.Booking.CancelBooking(ctx, actorOf(customer), b.ID.String(), &request.CancelBookingRequest{Reason: &reason})
		require.NoError(t, err)

		assert.Equal(t, entity.BookingStatusCancelled, resp.Status)
		assert.Equal(t, entity.PaymentStatusRefunded, resp.PaymentStatus)
		require.NotNil(t, resp.CancellationReason)
		assert.Equal(t, reason, *resp.CancellationReason)

		ledger := env.store.ledger()
		require.Len(t, ledger, 1)
		assert.Equal(t, entity.TransactionTypeRefund, ledger[0].Type)
		assert.Equal(t, "re_1", ledger[0].ExternalPaymentReference)
		assert.Equal(t, 900.0, ledger[0].Amount)
		env.gateway.AssertExpectations(t)
	})

	t.Run("refund failure keeps cancellation", func(t *testing.T) {
		env := newTestEnv(t)
		customer := env.store.addUser(entity.RoleCustomer)
		artisan := env.store.addArtisan(env.store.addUser(entity.RoleArtisan).ID, 450, true, entity.TierFree)
		b := env.seedBooking(customer, artisan, entity.BookingStatusConfirmed, entity.PaymentStatusPaid, "pi_123")

		env.gateway.On("CreateRefund", mock.Anything, "pi_123").Return(nil, errors.New("gateway timeout")).Once()

		resp, err := env.svc.Booking.CancelBooking(ctx, actorOf(customer), b.ID.String(), nil)
		require.NoError(t, err)

		assert.Equal(t, entity.BookingStatusCancelled, resp.Status)
		assert.Equal(t, entity.PaymentStatusPaid, resp.PaymentStatus)
		assert.Empty(t, env.store.ledger())
	})

	t.Run("unpaid booking skips refund", func(t *testing.T) {
		env := newTestEnv(t)
		customer := env.store.addUser(entity.RoleCustomer)
		artisanUser := env.store.addUser(entity.RoleArtisan)
		artisan := env.store.addArtisan(artisanUser.ID, 450, true, entity.TierFree)
		admin := env.store.addUser(entity.RoleAdmin)
		b := env.seedBooking(customer, artisan, entity.BookingStatusPending, entity.PaymentStatusPending, "")

		_, err := env.svc.Booking.CancelBooking(ctx, actorOf(customer), b.ID.String(), nil)
		require.NoError(t, err)
		env.gateway.AssertNotCalled(t, "CreateRefund", mock.Anything, mock.Anything)

		env.flush()
		assert.Len(t, env.store.notificationsFor(artisanUser.ID), 1)
		assert.Len(t, env.store.notificationsFor(admin.ID), 1)
		assert.Empty(t, env.store.notificationsFor(customer.ID), "the canceller is not notified")
	})

	t.Run("in-progress cannot be cancelled by request", func(t *testing.T) {
		env := newTestEnv(t)
		customer := env.store.addUser(entity.RoleCustomer)
		artisan := env.store.addArtisan(env.store.addUser(entity.RoleArtisan).ID, 450, true, entity.TierFree)
		b := env.seedBooking(customer, artisan, entity.BookingStatusInProgress, entity.PaymentStatusPaid, "pi_1")

		_, err := env.svc.Booking.CancelBooking(ctx, actorOf(customer), b.ID.String(), nil)
		assert.True(t, apperr.Is(err, apperr.ErrInvalidState))
		assert.Equal(t, entity.BookingStatusInProgress, env.store.booking(b.ID).Status)
	})

	t.Run("stranger cannot cancel", func(t *testing.T) {
		env := newTestEnv(t)
		customer := env.store.addUser(entity.RoleCustomer)
		other := env.store.addUser(entity.RoleCustomer)
		artisan := env.store.addArtisan(env.store.addUser(entity.RoleArtisan).ID, 450, true, entity.TierFree)
		b := env.seedBooking(customer, artisan, entity.BookingStatusPending, entity.PaymentStatusPending, "")

		_, err := env.svc.Booking.CancelBooking(ctx, actorOf(other), b.ID.String(), nil)
		assert.True(t, apperr.Is(err, apperr.ErrForbidden))
	})
}

func TestListBookings_ScopedByRole(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.store.addUser(entity.RoleCustomer)
	bob := env.store.addUser(entity.RoleCustomer)
	artisanUser := env.store.addUser(entity.RoleArtisan)
	artisan := env.store.addArtisan(artisanUser.ID, 450, true, entity.TierFree)
	admin := env.store.addUser(entity.RoleAdmin)

	env.seedBooking(alice, artisan, entity.BookingStatusPending, entity.PaymentStatusPending, "")
	env.seedBooking(alice, artisan, entity.BookingStatusConfirmed, entity.PaymentStatusPaid, "pi_1")
	env.seedBooking(bob, artisan, entity.BookingStatusPending, entity.PaymentStatusPending, "")

	page := request.PaginatedRequest{Page: 1, PerPage: 10}

	resp, err := env.svc.Booking.ListBookings(ctx, actorOf(alice), &request.ListBookingsRequest{PaginatedRequest: page})
	require.NoError(t, err)
	assert.Equal(t, int64(2), resp.Pagination.Total)

	resp, err = env.svc.Booking.ListBookings(ctx, actorOf(artisanUser), &request.ListBookingsRequest{PaginatedRequest: page, Status: "pending"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), resp.Pagination.Total)

	resp, err = env.svc.Booking.ListBookings(ctx, actorOf(admin), &request.ListBookingsRequest{PaginatedRequest: page})
	require.NoError(t, err)
	assert.Equal(t, int64(3), resp.Pagination.Total)
}
