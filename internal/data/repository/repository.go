package repository

import (
	"context"
	"errors"
	"fmt"

	"artisan-marketplace/pkg/database"

	"go.uber.org/zap"
)

// ErrStaleWrite is returned by compare-and-swap updates when the row no
// longer matches the expected state.
var ErrStaleWrite = errors.New("row was modified concurrently")

type Repository struct {
	User         UserRepository
	Artisan      ArtisanRepository
	Booking      BookingRepository
	Transaction  TransactionRepository
	Review       ReviewRepository
	PlatformFee  PlatformFeeRepository
	Notification NotificationRepository

	Tx Transactor
}

// Transactor runs fn against repositories bound to a single database
// transaction. Returning an error from fn rolls the transaction back.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(tx *Repository) error) error
}

func NewRepository(db database.PgxIface, log *zap.Logger) *Repository {
	repo := newRepositories(db, log)
	repo.Tx = &pgTransactor{db: db, log: log.With(zap.String("repository", "tx"))}
	return repo
}

func newRepositories(q database.Querier, log *zap.Logger) *Repository {
	return &Repository{
		User:         NewUserRepository(q, log),
		Artisan:      NewArtisanRepository(q, log),
		Booking:      NewBookingRepository(q, log),
		Transaction:  NewTransactionRepository(q, log),
		Review:       NewReviewRepository(q, log),
		PlatformFee:  NewPlatformFeeRepository(q, log),
		Notification: NewNotificationRepository(q, log),
	}
}

// WithinTx runs fn inside a transaction. Without a transactor (in-memory
// wiring) fn runs directly against r.
func (r *Repository) WithinTx(ctx context.Context, fn func(tx *Repository) error) error {
	if r.Tx == nil {
		return fn(r)
	}
	return r.Tx.WithinTx(ctx, fn)
}

type pgTransactor struct {
	db  database.PgxIface
	log *zap.Logger
}

func (t *pgTransactor) WithinTx(ctx context.Context, fn func(tx *Repository) error) (err error) {
	tx, err := t.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				t.log.Warn("Rollback failed", zap.Error(rbErr))
			}
		}
	}()

	if err = fn(newRepositories(tx, t.log)); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}
