package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"edusocial/internal/models"
)

type paymentRepository struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewPaymentRepository(db *sqlx.DB) PaymentRepository {
	return &paymentRepository{db: db, now: time.Now}
}

// MarkProcessed records a transaction and returns false if it was already recorded.
func (r *paymentRepository) MarkProcessed(ctx context.Context, res models.PaymentResult) (bool, error) {
	if res.TransactionID == "" {
		return true, nil
	}

	query := r.db.Rebind(`
		INSERT INTO processed_payments (transaction_id, status, course_id, processed_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (transaction_id) DO NOTHING
	`)

	result, err := r.db.ExecContext(ctx, query, res.TransactionID, res.Status, res.CourseID, r.now().UTC())
	if err != nil {
		return false, errors.Wrapf(err, "recording payment %s", res.TransactionID)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "checking recorded payment")
	}

	return rowsAffected == 1, nil
}

// Release forgets a transaction so the same redirect can be processed again.
func (r *paymentRepository) Release(ctx context.Context, transactionID string) error {
	if transactionID == "" {
		return nil
	}

	query := r.db.Rebind(`DELETE FROM processed_payments WHERE transaction_id = ?`)
	if _, err := r.db.ExecContext(ctx, query, transactionID); err != nil {
		return errors.Wrapf(err, "releasing payment %s", transactionID)
	}
	return nil
}
