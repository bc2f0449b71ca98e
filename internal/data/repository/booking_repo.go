package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"artisan-marketplace/internal/data/entity"
	"artisan-marketplace/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type BookingFilter struct {
	CustomerID *uuid.UUID
	ArtisanID  *uuid.UUID
	Status     *entity.BookingStatus
}

type BookingRepository interface {
	Create(ctx context.Context, booking *entity.Booking) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error)
	FindByPaymentIntentID(ctx context.Context, paymentIntentID string) (*entity.Booking, error)
	List(ctx context.Context, filter BookingFilter, limit, offset int) ([]*entity.Booking, error)
	Count(ctx context.Context, filter BookingFilter) (int64, error)

	// Business queries
	FindActiveByArtisanOnDay(ctx context.Context, artisanID uuid.UUID, day time.Time) ([]*entity.Booking, error)
	FindCancelledAwaitingRefund(ctx context.Context, limit int) ([]*entity.Booking, error)

	// TransitionStatus moves status from -> to only if the row still holds
	// (from, version). Returns ErrStaleWrite otherwise.
	TransitionStatus(ctx context.Context, id uuid.UUID, from entity.BookingStatus, version int, to entity.BookingStatus, reason *string) error
	ReleaseEscrow(ctx context.Context, id uuid.UUID) error
	SetPaymentIntent(ctx context.Context, id uuid.UUID, paymentIntentID string) error
	// MarkPaid stores paymentIntentID as the intent that paid. Returns
	// ErrStaleWrite when the booking is already paid.
	MarkPaid(ctx context.Context, id uuid.UUID, paymentIntentID string) error
	UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status entity.PaymentStatus) error
	MarkPaymentFailedByIntent(ctx context.Context, paymentIntentID string) (int64, error)
}

type bookingRepository struct {
	db  database.Querier
	log *zap.Logger
}

func NewBookingRepository(db database.Querier, log *zap.Logger) BookingRepository {
	return &bookingRepository{
		db:  db,
		log: log.With(zap.String("repository", "booking")),
	}
}

const bookingColumns = `id, customer_id, artisan_id, service_type, description, scheduled_date, slot_start, slot_end,
	location, notes, amount, status, payment_status, payment_intent_id, escrow_released, cancellation_reason,
	version, created_at, updated_at`

func scanBooking(row rowScanner) (*entity.Booking, error) {
	var b entity.Booking
	err := row.Scan(
		&b.ID,
		&b.CustomerID,
		&b.ArtisanID,
		&b.ServiceType,
		&b.Description,
		&b.ScheduledDate,
		&b.TimeSlot.Start,
		&b.TimeSlot.End,
		&b.Location,
		&b.Notes,
		&b.Amount,
		&b.Status,
		&b.PaymentStatus,
		&b.PaymentIntentID,
		&b.EscrowReleased,
		&b.CancellationReason,
		&b.Version,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *bookingRepository) Create(ctx context.Context, booking *entity.Booking) error {
	query := `
		INSERT INTO bookings (id, customer_id, artisan_id, service_type, description, scheduled_date,
		                      slot_start, slot_end, location, notes, amount, status, payment_status,
		                      escrow_released, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`

	_, err := r.db.Exec(ctx, query,
		booking.ID,
		booking.CustomerID,
		booking.ArtisanID,
		booking.ServiceType,
		booking.Description,
		booking.ScheduledDate,
		booking.TimeSlot.Start,
		booking.TimeSlot.End,
		booking.Location,
		booking.Notes,
		booking.Amount,
		booking.Status,
		booking.PaymentStatus,
		booking.EscrowReleased,
		booking.Version,
		booking.CreatedAt,
		booking.UpdatedAt,
	)

	if err != nil {
		r.log.Error("Failed to create booking",
			zap.Error(err),
			zap.String("customer_id", booking.CustomerID.String()),
			zap.String("artisan_id", booking.ArtisanID.String()),
		)
		return fmt.Errorf("create booking %s: %w", booking.ID.String(), err)
	}

	return nil
}

func (r *bookingRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`

	booking, err := scanBooking(r.db.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find booking by ID",
			zap.Error(err),
			zap.String("booking_id", id.String()),
		)
		return nil, fmt.Errorf("find booking by ID %s: %w", id.String(), err)
	}

	return booking, nil
}

func (r *bookingRepository) FindByPaymentIntentID(ctx context.Context, paymentIntentID string) (*entity.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE payment_intent_id = $1`

	booking, err := scanBooking(r.db.QueryRow(ctx, query, paymentIntentID))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find booking by payment intent",
			zap.Error(err),
			zap.String("payment_intent_id", paymentIntentID),
		)
		return nil, fmt.Errorf("find booking by payment intent %s: %w", paymentIntentID, err)
	}

	return booking, nil
}

// where builds the WHERE clause for filter, numbering placeholders from 1
func (f BookingFilter) where() (string, []any) {
	var conds []string
	var args []any

	if f.CustomerID != nil {
		args = append(args, *f.CustomerID)
		conds = append(conds, fmt.Sprintf("customer_id = $%d", len(args)))
	}
	if f.ArtisanID != nil {
		args = append(args, *f.ArtisanID)
		conds = append(conds, fmt.Sprintf("artisan_id = $%d", len(args)))
	}
	if f.Status != nil {
		args = append(args, *f.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (r *bookingRepository) List(ctx context.Context, filter BookingFilter, limit, offset int) ([]*entity.Booking, error) {
	where, args := filter.where()
	args = append(args, limit, offset)
	query := fmt.Sprintf(`SELECT %s FROM bookings%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		bookingColumns, where, len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.log.Error("Failed to list bookings",
			zap.Error(err),
			zap.Int("limit", limit),
			zap.Int("offset", offset),
		)
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	defer rows.Close()

	return r.collect(rows)
}

func (r *bookingRepository) Count(ctx context.Context, filter BookingFilter) (int64, error) {
	where, args := filter.where()
	query := `SELECT COUNT(*) FROM bookings` + where

	var count int64
	if err := r.db.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		r.log.Error("Failed to count bookings", zap.Error(err))
		return 0, fmt.Errorf("count bookings: %w", err)
	}

	return count, nil
}

func (r *bookingRepository) FindActiveByArtisanOnDay(ctx context.Context, artisanID uuid.UUID, day time.Time) ([]*entity.Booking, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.AddDate(0, 0, 1)

	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE artisan_id = $1
		  AND scheduled_date >= $2 AND scheduled_date < $3
		  AND status IN ('pending', 'confirmed', 'in-progress')
		ORDER BY slot_start
	`

	rows, err := r.db.Query(ctx, query, artisanID, start, end)
	if err != nil {
		r.log.Error("Failed to find active bookings for artisan",
			zap.Error(err),
			zap.String("artisan_id", artisanID.String()),
			zap.Time("day", start),
		)
		return nil, fmt.Errorf("find active bookings for artisan %s: %w", artisanID.String(), err)
	}
	defer rows.Close()

	return r.collect(rows)
}

func (r *bookingRepository) FindCancelledAwaitingRefund(ctx context.Context, limit int) ([]*entity.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE status = 'cancelled' AND payment_status = 'paid' AND payment_intent_id IS NOT NULL
		ORDER BY updated_at
		LIMIT $1
	`

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		r.log.Error("Failed to find cancelled bookings awaiting refund", zap.Error(err))
		return nil, fmt.Errorf("find cancelled bookings awaiting refund: %w", err)
	}
	defer rows.Close()

	return r.collect(rows)
}

func (r *bookingRepository) TransitionStatus(ctx context.Context, id uuid.UUID, from entity.BookingStatus, version int, to entity.BookingStatus, reason *string) error {
	query := `
		UPDATE bookings
		SET status = $4,
		    cancellation_reason = COALESCE($5, cancellation_reason),
		    version = version + 1,
		    updated_at = NOW()
		WHERE id = $1 AND status = $2 AND version = $3
	`

	result, err := r.db.Exec(ctx, query, id, from, version, to, reason)
	if err != nil {
		r.log.Error("Failed to transition booking status",
			zap.Error(err),
			zap.String("booking_id", id.String()),
			zap.String("from", string(from)),
			zap.String("to", string(to)),
		)
		return fmt.Errorf("transition booking %s from %s to %s: %w", id.String(), from, to, err)
	}

	if result.RowsAffected() == 0 {
		return ErrStaleWrite
	}

	return nil
}

func (r *bookingRepository) ReleaseEscrow(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE bookings SET escrow_released = TRUE, updated_at = NOW() WHERE id = $1`

	return r.execOne(ctx, "release escrow", id, query, id)
}

func (r *bookingRepository) SetPaymentIntent(ctx context.Context, id uuid.UUID, paymentIntentID string) error {
	query := `UPDATE bookings SET payment_intent_id = $2, updated_at = NOW() WHERE id = $1`

	return r.execOne(ctx, "set payment intent", id, query, id, paymentIntentID)
}

// MarkPaid records payment and promotes a pending booking to confirmed.
// Bookings already past pending keep their status, cancelled included.
func (r *bookingRepository) MarkPaid(ctx context.Context, id uuid.UUID, paymentIntentID string) error {
	query := `
		UPDATE bookings
		SET payment_status = 'paid',
		    payment_intent_id = $2,
		    status = CASE WHEN status = 'pending' THEN 'confirmed' ELSE status END,
		    version = version + 1,
		    updated_at = NOW()
		WHERE id = $1 AND payment_status <> 'paid'
	`

	result, err := r.db.Exec(ctx, query, id, paymentIntentID)
	if err != nil {
		r.log.Error("Failed to mark booking paid",
			zap.Error(err),
			zap.String("booking_id", id.String()),
			zap.String("payment_intent_id", paymentIntentID),
		)
		return fmt.Errorf("mark booking %s paid: %w", id.String(), err)
	}

	if result.RowsAffected() == 0 {
		return ErrStaleWrite
	}

	return nil
}

func (r *bookingRepository) UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status entity.PaymentStatus) error {
	query := `UPDATE bookings SET payment_status = $2, updated_at = NOW() WHERE id = $1`

	return r.execOne(ctx, "update payment status", id, query, id, status)
}

func (r *bookingRepository) MarkPaymentFailedByIntent(ctx context.Context, paymentIntentID string) (int64, error) {
	query := `
		UPDATE bookings
		SET payment_status = 'failed', updated_at = NOW()
		WHERE payment_intent_id = $1 AND payment_status = 'pending'
	`

	result, err := r.db.Exec(ctx, query, paymentIntentID)
	if err != nil {
		r.log.Error("Failed to mark payment failed",
			zap.Error(err),
			zap.String("payment_intent_id", paymentIntentID),
		)
		return 0, fmt.Errorf("mark payment failed for intent %s: %w", paymentIntentID, err)
	}

	return result.RowsAffected(), nil
}

func (r *bookingRepository) collect(rows pgx.Rows) ([]*entity.Booking, error) {
	var bookings []*entity.Booking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			r.log.Error("Failed to scan booking row", zap.Error(err))
			return nil, fmt.Errorf("scan booking row: %w", err)
		}
		bookings = append(bookings, booking)
	}
	return bookings, rows.Err()
}

func (r *bookingRepository) execOne(ctx context.Context, op string, id uuid.UUID, query string, args ...any) error {
	result, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		r.log.Error("Failed to "+op,
			zap.Error(err),
			zap.String("booking_id", id.String()),
		)
		return fmt.Errorf("%s for booking %s: %w", op, id.String(), err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("booking %s not found", id.String())
	}

	return nil
}
