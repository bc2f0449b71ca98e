package repository

import (
	"context"
	"fmt"

	"artisan-marketplace/internal/data/entity"
	"artisan-marketplace/pkg/apperr"
	"artisan-marketplace/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type TransactionRepository interface {
	// Create inserts a ledger entry. A reused external reference yields an
	// apperr DUPLICATE_KEY error.
	Create(ctx context.Context, txn *entity.Transaction) error
	FindByReference(ctx context.Context, reference string) (*entity.Transaction, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*entity.Transaction, error)
	CountByUser(ctx context.Context, userID uuid.UUID) (int64, error)
	UpdateStatusByReference(ctx context.Context, reference string, status entity.TransactionStatus) (int64, error)
}

type transactionRepository struct {
	db  database.Querier
	log *zap.Logger
}

func NewTransactionRepository(db database.Querier, log *zap.Logger) TransactionRepository {
	return &transactionRepository{
		db:  db,
		log: log.With(zap.String("repository", "transaction")),
	}
}

const transactionColumns = `id, booking_id, user_id, type, amount, platform_fee, net_amount,
	external_payment_reference, status, created_at, updated_at`

func scanTransaction(row rowScanner) (*entity.Transaction, error) {
	var t entity.Transaction
	err := row.Scan(
		&t.ID,
		&t.BookingID,
		&t.UserID,
		&t.Type,
		&t.Amount,
		&t.PlatformFee,
		&t.NetAmount,
		&t.ExternalPaymentReference,
		&t.Status,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *transactionRepository) Create(ctx context.Context, txn *entity.Transaction) error {
	query := `
		INSERT INTO transactions (id, booking_id, user_id, type, amount, platform_fee, net_amount,
		                          external_payment_reference, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.db.Exec(ctx, query,
		txn.ID,
		txn.BookingID,
		txn.UserID,
		txn.Type,
		txn.Amount,
		txn.PlatformFee,
		txn.NetAmount,
		txn.ExternalPaymentReference,
		txn.Status,
		txn.CreatedAt,
		txn.UpdatedAt,
	)

	if database.IsUniqueViolation(err) {
		r.log.Info("Transaction reference already recorded",
			zap.String("reference", txn.ExternalPaymentReference),
		)
		return apperr.DuplicateKey(fmt.Sprintf("transaction %s already recorded", txn.ExternalPaymentReference))
	}
	if err != nil {
		r.log.Error("Failed to create transaction",
			zap.Error(err),
			zap.String("reference", txn.ExternalPaymentReference),
			zap.String("user_id", txn.UserID.String()),
		)
		return fmt.Errorf("create transaction %s: %w", txn.ExternalPaymentReference, err)
	}

	return nil
}

func (r *transactionRepository) FindByReference(ctx context.Context, reference string) (*entity.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE external_payment_reference = $1`

	txn, err := scanTransaction(r.db.QueryRow(ctx, query, reference))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find transaction by reference",
			zap.Error(err),
			zap.String("reference", reference),
		)
		return nil, fmt.Errorf("find transaction by reference %s: %w", reference, err)
	}

	return txn, nil
}

func (r *transactionRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*entity.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Query(ctx, query, userID, limit, offset)
	if err != nil {
		r.log.Error("Failed to list transactions",
			zap.Error(err),
			zap.String("user_id", userID.String()),
		)
		return nil, fmt.Errorf("list transactions for user %s: %w", userID.String(), err)
	}
	defer rows.Close()

	var txns []*entity.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			r.log.Error("Failed to scan transaction row", zap.Error(err))
			return nil, fmt.Errorf("scan transaction row: %w", err)
		}
		txns = append(txns, txn)
	}

	return txns, rows.Err()
}

func (r *transactionRepository) CountByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	query := `SELECT COUNT(*) FROM transactions WHERE user_id = $1`

	var count int64
	if err := r.db.QueryRow(ctx, query, userID).Scan(&count); err != nil {
		r.log.Error("Failed to count transactions",
			zap.Error(err),
			zap.String("user_id", userID.String()),
		)
		return 0, fmt.Errorf("count transactions for user %s: %w", userID.String(), err)
	}

	return count, nil
}

func (r *transactionRepository) UpdateStatusByReference(ctx context.Context, reference string, status entity.TransactionStatus) (int64, error) {
	query := `UPDATE transactions SET status = $2, updated_at = NOW() WHERE external_payment_reference = $1`

	result, err := r.db.Exec(ctx, query, reference, status)
	if err != nil {
		r.log.Error("Failed to update transaction status",
			zap.Error(err),
			zap.String("reference", reference),
			zap.String("status", string(status)),
		)
		return 0, fmt.Errorf("update transaction %s status: %w", reference, err)
	}

	return result.RowsAffected(), nil
}
