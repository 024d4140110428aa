package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"school_fees_echo/internal/apperrors"
	"school_fees_echo/internal/middleware"
	"school_fees_echo/internal/models"
	"school_fees_echo/internal/services"
)

// PaymentController is the part of services.PaymentService the HTTP layer calls
type PaymentController interface {
	InitiatePayment(ctx context.Context, payerID uint, in services.InitiatePaymentInput) (*services.InitiatePaymentResult, error)
	VerifyPayment(ctx context.Context, reference string) (*services.VerifyPaymentResult, error)
	ListForPayer(ctx context.Context, payerID uint) ([]models.Payment, error)
}

type PaymentHandler struct {
	payments PaymentController
	currency string
}

func NewPaymentHandler(payments PaymentController, currency string) *PaymentHandler {
	return &PaymentHandler{payments: payments, currency: currency}
}

type InitializePaymentRequest struct {
	FeeType   string           `json:"fee_type" validate:"max=32"`
	Amount    *decimal.Decimal `json:"amount"`
	StudentID string           `json:"student_id" validate:"required,max=32"`
}

type StudentSummary struct {
	StudentID string `json:"student_id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// PaymentResponse is the public projection of a payment
type PaymentResponse struct {
	ID            uint            `json:"id"`
	Reference     string          `json:"reference"`
	PayerEmail    string          `json:"payer_email"`
	Student       *StudentSummary `json:"student"`
	FeeType       string          `json:"fee_type"`
	Amount        string          `json:"amount"`
	AmountDisplay string          `json:"amount_display"`
	Status        string          `json:"status"`
	Verified      bool            `json:"verified"`
	Metadata      json.RawMessage `json:"metadata"`
	CreatedAt     time.Time       `json:"created_at"`
}

func (h *PaymentHandler) toResponse(p *models.Payment) PaymentResponse {
	resp := PaymentResponse{
		ID:            p.ID,
		Reference:     p.Reference,
		PayerEmail:    p.Payer.Email,
		FeeType:       string(p.FeeType),
		Amount:        p.Amount.StringFixed(2),
		AmountDisplay: p.AmountDisplay(h.currency),
		Status:        string(p.Status),
		Verified:      p.Verified,
		Metadata:      json.RawMessage(p.Metadata),
		CreatedAt:     p.CreatedAt,
	}
	if len(resp.Metadata) == 0 {
		resp.Metadata = json.RawMessage("null")
	}
	if p.Student != nil {
		resp.Student = &StudentSummary{
			StudentID: p.Student.StudentID,
			FirstName: p.Student.FirstName,
			LastName:  p.Student.LastName,
		}
	}
	return resp
}

// InitializePayment starts a gateway checkout for the authenticated payer
func (h *PaymentHandler) InitializePayment(c echo.Context) error {
	payerID := getUintFromContext(c, middleware.ContextKeyUserID)
	if payerID == 0 {
		return apperrors.ErrUnauthorized
	}

	var req InitializePaymentRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("Invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	result, err := h.payments.InitiatePayment(c.Request().Context(), payerID, services.InitiatePaymentInput{
		FeeType:   req.FeeType,
		Amount:    req.Amount,
		StudentID: req.StudentID,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, map[string]interface{}{
		"authorization_url": result.AuthorizationURL,
		"reference":         result.Reference,
		"message":           "Initialized. Redirect user to authorization_url to complete payment.",
	})
}

// VerifyPayment is the gateway callback target; it needs no authentication
func (h *PaymentHandler) VerifyPayment(c echo.Context) error {
	reference := c.Param("reference")
	if reference == "" {
		return apperrors.ValidationError(map[string]string{"reference": "This field is required"})
	}

	result, err := h.payments.VerifyPayment(c.Request().Context(), reference)
	if err != nil {
		return err
	}

	payment := h.toResponse(result.Payment)

	if result.Payment.Status != models.PaymentStatusSuccess {
		details := result.Details
		if len(details) == 0 {
			details = json.RawMessage("null")
		}
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"message": "Payment not successful",
			"details": details,
			"payment": payment,
		})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "Payment verified",
		"payment": payment,
	})
}

// ListMyPayments returns the authenticated payer's payments, newest first
func (h *PaymentHandler) ListMyPayments(c echo.Context) error {
	payerID := getUintFromContext(c, middleware.ContextKeyUserID)
	if payerID == 0 {
		return apperrors.ErrUnauthorized
	}

	payments, err := h.payments.ListForPayer(c.Request().Context(), payerID)
	if err != nil {
		return err
	}

	resp := make([]PaymentResponse, 0, len(payments))
	for i := range payments {
		resp = append(resp, h.toResponse(&payments[i]))
	}
	return c.JSON(http.StatusOK, resp)
}
