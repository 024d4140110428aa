package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"school_fees_echo/internal/apperrors"
	"school_fees_echo/internal/logger"
	"school_fees_echo/internal/models"
)

// DefaultFeeSchedule holds the standard fee amounts in major units
var DefaultFeeSchedule = map[models.FeeType]decimal.Decimal{
	models.FeeTypeTuition:    decimal.RequireFromString("500.00"),
	models.FeeTypeBusFee:     decimal.RequireFromString("100.00"),
	models.FeeTypeFeedingFee: decimal.RequireFromString("20.00"),
}

// maxAmount is the first value a decimal(10,2) column cannot hold
var maxAmount = decimal.New(1, 8)

// ToMinorUnits converts a major-unit amount to the gateway's smallest unit (100.00 -> 10000)
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

// PaymentService owns the payment lifecycle: it is the only writer of payments
type PaymentService struct {
	store    PaymentStore
	gateway  PaymentGateway
	notifier Notifier
	cache    *RedisCache
	fees     map[models.FeeType]decimal.Decimal
	appURL   string
}

type PaymentServiceConfig struct {
	Store    PaymentStore
	Gateway  PaymentGateway
	Notifier Notifier
	Cache    *RedisCache // optional
	Fees     map[models.FeeType]decimal.Decimal
	AppURL   string
}

func NewPaymentService(cfg PaymentServiceConfig) *PaymentService {
	fees := cfg.Fees
	if fees == nil {
		fees = DefaultFeeSchedule
	}
	return &PaymentService{
		store:    cfg.Store,
		gateway:  cfg.Gateway,
		notifier: cfg.Notifier,
		cache:    cfg.Cache,
		fees:     fees,
		appURL:   strings.TrimRight(cfg.AppURL, "/"),
	}
}

// InitiatePaymentInput is the validated client request
type InitiatePaymentInput struct {
	FeeType   string
	Amount    *decimal.Decimal // overrides the fee table when set
	StudentID string
}

// InitiatePaymentResult holds what the client needs to reach the hosted checkout
type InitiatePaymentResult struct {
	AuthorizationURL string
	Reference        string
	Payment          *models.Payment
}

// ResolveAmount picks the explicit amount when given, otherwise the fee table entry
func (s *PaymentService) ResolveAmount(feeType string, amount *decimal.Decimal) (decimal.Decimal, error) {
	if amount != nil {
		if !amount.Equal(amount.Round(2)) {
			return decimal.Zero, apperrors.ValidationError(map[string]string{"amount": "must have at most 2 decimal places"})
		}
		if !amount.IsPositive() {
			return decimal.Zero, apperrors.ValidationError(map[string]string{"amount": "must be greater than zero"})
		}
		if amount.GreaterThanOrEqual(maxAmount) {
			return decimal.Zero, apperrors.ValidationError(map[string]string{"amount": "must be less than " + maxAmount.String()})
		}
		return amount.Round(2), nil
	}
	fee, ok := s.fees[models.FeeType(feeType)]
	if !ok {
		return decimal.Zero, apperrors.ErrMissingAmount
	}
	return fee, nil
}

// CallbackURL is where the gateway sends the payer back after checkout
func (s *PaymentService) CallbackURL(reference string) string {
	return fmt.Sprintf("%s/api/v1/payments/verify/%s/", s.appURL, reference)
}

// InitiatePayment opens a gateway transaction and records a pending payment.
// Nothing is written when the gateway call fails.
func (s *PaymentService) InitiatePayment(ctx context.Context, payerID uint, in InitiatePaymentInput) (*InitiatePaymentResult, error) {
	log := logger.FromContext(ctx)

	studentID := strings.TrimSpace(in.StudentID)
	if studentID == "" {
		return nil, apperrors.ValidationError(map[string]string{"student_id": "Student ID is required."})
	}

	payer, err := s.store.FindPayer(ctx, payerID)
	if err != nil {
		return nil, err
	}

	student, err := s.store.FindStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}

	amount, err := s.ResolveAmount(in.FeeType, in.Amount)
	if err != nil {
		return nil, err
	}

	reference := uuid.NewString()

	opened, err := s.gateway.Initialize(ctx, InitializeRequest{
		Email:            payer.Email,
		AmountMinorUnits: ToMinorUnits(amount),
		CallbackURL:      s.CallbackURL(reference),
		Reference:        reference,
	})
	if err != nil {
		log.Warn("gateway initialize failed", "student_id", studentID, "error", err)
		return nil, err
	}

	if opened.Reference != "" {
		reference = opened.Reference
	}

	payment := &models.Payment{
		Reference: reference,
		PayerID:   payer.ID,
		StudentID: &student.ID,
		FeeType:   models.FeeType(in.FeeType),
		Amount:    amount,
		Status:    models.PaymentStatusPending,
		Verified:  false,
		Metadata:  datatypes.JSON(opened.Raw),
	}
	if err := s.store.Create(ctx, payment); err != nil {
		return nil, apperrors.InternalError(fmt.Errorf("store payment %s: %w", reference, err))
	}
	payment.Payer = *payer
	payment.Student = student

	s.invalidatePayer(ctx, payer.ID)

	log.Info("payment initialized", "reference", reference, "amount", amount.StringFixed(2), "fee_type", in.FeeType)

	return &InitiatePaymentResult{
		AuthorizationURL: opened.AuthorizationURL,
		Reference:        reference,
		Payment:          payment,
	}, nil
}

// VerifyPaymentResult reports the payment after reconciliation
type VerifyPaymentResult struct {
	Payment *models.Payment
	// Succeeded reports the stored outcome: the payment is in success after this call.
	// A success answer for a payment that already failed leaves it false.
	Succeeded bool
	// Transitioned is true only for the call that moved the payment out of pending
	Transitioned bool
	Details      json.RawMessage
}

// VerifyPayment asks the gateway for the transaction state and reconciles the local record.
// Terminal payments never change status; only the call that wins the pending transition
// sends the receipt.
func (s *PaymentService) VerifyPayment(ctx context.Context, reference string) (*VerifyPaymentResult, error) {
	log := logger.FromContext(ctx).With("reference", reference)

	payment, err := s.store.FindByReference(ctx, reference)
	if err != nil {
		return nil, err
	}

	verdict, err := s.gateway.Verify(ctx, reference)
	if err != nil {
		log.Warn("gateway verify failed", "error", err)
		return nil, err
	}

	target := models.PaymentStatusFailed
	if verdict.Success {
		target = models.PaymentStatusSuccess
	}

	transitioned, err := s.store.TransitionFromPending(ctx, reference, target, verdict.Success, verdict.Raw)
	if err != nil {
		return nil, apperrors.InternalError(fmt.Errorf("transition payment %s: %w", reference, err))
	}

	if !transitioned {
		if err := s.store.RefreshMetadata(ctx, reference, verdict.Raw); err != nil {
			return nil, apperrors.InternalError(fmt.Errorf("refresh payment %s: %w", reference, err))
		}
		log.Info("payment already settled, metadata refreshed", "gateway_status", verdict.Status)
	} else {
		log.Info("payment transitioned", "status", target, "gateway_status", verdict.Status)
	}

	entry := &models.PaymentCallbackHistory{
		PaymentID:      payment.ID,
		Reference:      reference,
		PaymentGateway: s.gateway.Name(),
		GatewayStatus:  verdict.Status,
		Transitioned:   transitioned,
		Metadata:       datatypes.JSON(verdict.Raw),
	}
	if err := s.store.RecordCallback(ctx, entry); err != nil {
		log.Warn("failed to record verification history", "error", err)
	}

	payment, err = s.store.FindByReference(ctx, reference)
	if err != nil {
		return nil, err
	}

	s.invalidatePayer(ctx, payment.PayerID)

	if transitioned && payment.Status == models.PaymentStatusSuccess && s.notifier != nil {
		s.notifier.DispatchPaymentReceipt(ctx, payment, &payment.Payer)
	}

	return &VerifyPaymentResult{
		Payment:      payment,
		Succeeded:    payment.Status == models.PaymentStatusSuccess,
		Transitioned: transitioned,
		Details:      verdict.Raw,
	}, nil
}

// ListForPayer returns the payer's payments, newest first
func (s *PaymentService) ListForPayer(ctx context.Context, payerID uint) ([]models.Payment, error) {
	return s.cache.PayerPayments(ctx, payerID, func() ([]models.Payment, error) {
		return s.store.ListByPayer(ctx, payerID)
	})
}

// History returns every recorded gateway answer for reference, oldest first
func (s *PaymentService) History(ctx context.Context, reference string) ([]models.PaymentCallbackHistory, error) {
	if _, err := s.store.FindByReference(ctx, reference); err != nil {
		return nil, err
	}
	return s.store.ListCallbacks(ctx, reference)
}

func (s *PaymentService) invalidatePayer(ctx context.Context, payerID uint) {
	if err := s.cache.ForgetPayer(ctx, payerID); err != nil {
		logger.FromContext(ctx).Warn("cache invalidate failed", "payer_id", payerID, "error", err)
	}
}
