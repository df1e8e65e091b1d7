package services

import (
	"errors"
	"testing"

	"comandero_backend/internal/models"
	"comandero_backend/internal/repositories"
)

type fakePaymentRepo struct {
	created []models.TransactionPayment
	err     error
}

func (f *fakePaymentRepo) CreateTransactionPayment(_ repositories.SQLExecutor, payment *models.TransactionPayment) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	payment.ID = int64(len(f.created) + 1)
	f.created = append(f.created, *payment)
	return payment.ID, nil
}

func (f *fakePaymentRepo) GetPaymentsByTransactionID(transactionID string) ([]models.TransactionPayment, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []models.TransactionPayment
	for _, p := range f.created {
		if p.TransactionID == transactionID {
			out = append(out, p)
		}
	}
	return out, nil
}

func TestRecordPaymentValidation(t *testing.T) {
	tests := []struct {
		name string
		req  CreatePaymentRequest
	}{
		{"missing transaction id", CreatePaymentRequest{Method: "cash", Amount: 10}},
		{"missing method", CreatePaymentRequest{TransactionID: "tx1", Amount: 10}},
		{"zero amount", CreatePaymentRequest{TransactionID: "tx1", Method: "cash"}},
		{"negative amount", CreatePaymentRequest{TransactionID: "tx1", Method: "cash", Amount: -5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &fakePaymentRepo{}
			svc := NewPaymentService(repo, nil)

			if _, err := svc.RecordPayment(tt.req); !errors.Is(err, ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if len(repo.created) != 0 {
				t.Error("invalid payment must never reach the repository")
			}
		})
	}
}

func TestRecordPaymentPersists(t *testing.T) {
	repo := &fakePaymentRepo{}
	svc := NewPaymentService(repo, nil)

	payment, err := svc.RecordPayment(CreatePaymentRequest{TransactionID: "tx1", Method: "card", Amount: 42.50})
	if err != nil {
		t.Fatalf("RecordPayment: %v", err)
	}
	if payment.ID == 0 {
		t.Error("payment should carry the assigned id")
	}
	if payment.CreatedAt.IsZero() {
		t.Error("payment should carry a creation timestamp")
	}
	if len(repo.created) != 1 || repo.created[0].Amount != 42.50 {
		t.Errorf("unexpected persisted payment: %+v", repo.created)
	}
}

func TestRecordPaymentSurfacesRepositoryFailure(t *testing.T) {
	repo := &fakePaymentRepo{err: repositories.ErrDatabaseError}
	svc := NewPaymentService(repo, nil)

	_, err := svc.RecordPayment(CreatePaymentRequest{TransactionID: "tx1", Method: "cash", Amount: 10})
	if !errors.Is(err, repositories.ErrDatabaseError) {
		t.Fatalf("underlying database error should be preserved, got %v", err)
	}
	if errors.Is(err, ErrValidation) {
		t.Error("a persistence failure is not a validation error")
	}
}
