package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"comandero_backend/internal/models"

	"github.com/lib/pq"
)

// PaymentRepository defines the interface for transaction-payment database operations.
type PaymentRepository interface {
	CreateTransactionPayment(executor SQLExecutor, payment *models.TransactionPayment) (int64, error)
	GetPaymentsByTransactionID(transactionID string) ([]models.TransactionPayment, error)
}

type paymentRepository struct {
	db *sql.DB
}

// NewPaymentRepository creates a new instance of PaymentRepository.
func NewPaymentRepository(db *sql.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) CreateTransactionPayment(executor SQLExecutor, payment *models.TransactionPayment) (int64, error) {
	query := `INSERT INTO transaction_payments (transaction_id, method, amount, created_at)
	          VALUES ($1, $2, $3, $4)
	          RETURNING id`
	if payment.CreatedAt.IsZero() {
		payment.CreatedAt = time.Now()
	}
	err := executor.QueryRow(query, payment.TransactionID, payment.Method, payment.Amount, payment.CreatedAt).Scan(&payment.ID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return 0, fmt.Errorf("%w: payment for transaction '%s' (constraint: %s)", ErrDuplicateKey, payment.TransactionID, pqErr.Constraint)
		}
		return 0, fmt.Errorf("%w: creating transaction payment: %v", ErrDatabaseError, err)
	}
	return payment.ID, nil
}

func (r *paymentRepository) GetPaymentsByTransactionID(transactionID string) ([]models.TransactionPayment, error) {
	payments := []models.TransactionPayment{}
	query := `SELECT id, transaction_id, method, amount, created_at
	          FROM transaction_payments
	          WHERE transaction_id = $1
	          ORDER BY created_at`
	rows, err := r.db.Query(query, transactionID)
	if err != nil {
		return nil, fmt.Errorf("%w: getting payments for transaction %s: %v", ErrDatabaseError, transactionID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var p models.TransactionPayment
		if err := rows.Scan(&p.ID, &p.TransactionID, &p.Method, &p.Amount, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: scanning transaction payment: %v", ErrDatabaseError, err)
		}
		payments = append(payments, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating transaction payments: %v", ErrDatabaseError, err)
	}
	return payments, nil
}
