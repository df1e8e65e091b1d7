package handlers

import (
	"errors"
	"net/http"

	"comandero_backend/internal/services"
	"comandero_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// PaymentHandler holds the payment service.
type PaymentHandler struct {
	paymentService services.PaymentService
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(ps services.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: ps}
}

// CreateTransactionPayment registers how a transaction was paid. The response
// shape is the {success, message} contract the POS clients already consume:
// 400 on any missing field, 500 with the underlying message on persistence
// failure, 200 on success.
func (h *PaymentHandler) CreateTransactionPayment(c *gin.Context) {
	var req services.CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.LogError(err, "CreateTransactionPayment: Failed to bind JSON")
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid request payload: " + err.Error()})
		return
	}

	payment, err := h.paymentService.RecordPayment(req)
	if err != nil {
		utils.LogError(err, "CreateTransactionPayment: Error from paymentService.RecordPayment")
		if errors.Is(err, services.ErrValidation) {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": payment})
}

// GetTransactionPayments lists the payments recorded for one transaction.
func (h *PaymentHandler) GetTransactionPayments(c *gin.Context) {
	transactionID := c.Param("transaction_id")

	payments, err := h.paymentService.GetPaymentsByTransactionID(transactionID)
	if err != nil {
		utils.LogError(err, "GetTransactionPayments: Error from paymentService.GetPaymentsByTransactionID")
		if errors.Is(err, services.ErrValidation) {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": payments})
}
