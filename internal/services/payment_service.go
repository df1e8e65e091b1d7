package services

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"comandero_backend/internal/models"
	"comandero_backend/internal/repositories"
)

// --- Custom Service Errors ---
var (
	ErrValidation = errors.New("validation error")
)

// --- Data Transfer Objects (DTOs) ---

// CreatePaymentRequest is the payload of a payment registration. Every field
// is mandatory; validation failures never reach the database.
type CreatePaymentRequest struct {
	TransactionID string  `json:"transaction_id"`
	Method        string  `json:"method"`
	Amount        float64 `json:"amount"`
}

// --- PaymentService Interface ---

// PaymentService records how finalized transactions were paid.
type PaymentService interface {
	RecordPayment(req CreatePaymentRequest) (*models.TransactionPayment, error)
	GetPaymentsByTransactionID(transactionID string) ([]models.TransactionPayment, error)
}

// --- paymentService Implementation ---

type paymentService struct {
	paymentRepo repositories.PaymentRepository
	db          *sql.DB
}

// NewPaymentService creates a new instance of PaymentService.
func NewPaymentService(repo repositories.PaymentRepository, db *sql.DB) PaymentService {
	return &paymentService{paymentRepo: repo, db: db}
}

func (s *paymentService) RecordPayment(req CreatePaymentRequest) (*models.TransactionPayment, error) {
	if req.TransactionID == "" {
		return nil, fmt.Errorf("%w: transaction_id is required", ErrValidation)
	}
	if req.Method == "" {
		return nil, fmt.Errorf("%w: method is required", ErrValidation)
	}
	if req.Amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be greater than zero", ErrValidation)
	}

	payment := &models.TransactionPayment{
		TransactionID: req.TransactionID,
		Method:        req.Method,
		Amount:        req.Amount,
		CreatedAt:     time.Now(),
	}
	if _, err := s.paymentRepo.CreateTransactionPayment(s.db, payment); err != nil {
		return nil, fmt.Errorf("recording payment for transaction %s: %w", req.TransactionID, err)
	}
	return payment, nil
}

func (s *paymentService) GetPaymentsByTransactionID(transactionID string) ([]models.TransactionPayment, error) {
	if transactionID == "" {
		return nil, fmt.Errorf("%w: transaction_id is required", ErrValidation)
	}
	payments, err := s.paymentRepo.GetPaymentsByTransactionID(transactionID)
	if err != nil {
		return nil, fmt.Errorf("fetching payments for transaction %s: %w", transactionID, err)
	}
	return payments, nil
}
