package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/coreapi"
	"github.com/midtrans/midtrans-go/snap"

	"school_fees_echo/internal/apperrors"
	"school_fees_echo/internal/models"
)

// MidtransGateway implements PaymentGateway on top of Snap (checkout) and Core API (status)
type MidtransGateway struct {
	SnapClient snap.Client
	CoreClient coreapi.Client
}

func NewMidtransGateway(serverKey, clientKey string, production bool, timeout time.Duration) *MidtransGateway {
	env := midtrans.Sandbox
	if production {
		env = midtrans.Production
	}

	// Set Default Options; New copies DefaultGoHttpClient, so the timeout goes in first
	midtrans.ServerKey = serverKey
	midtrans.ClientKey = clientKey
	midtrans.Environment = env
	if timeout > 0 {
		midtrans.DefaultGoHttpClient = &http.Client{Timeout: timeout}
	}

	var s snap.Client
	s.New(serverKey, env)

	var c coreapi.Client
	c.New(serverKey, env)

	return &MidtransGateway{
		SnapClient: s,
		CoreClient: c,
	}
}

func (m *MidtransGateway) Name() models.PaymentGateway { return models.PaymentGatewayMidtrans }

// midtransError maps an SDK error onto the gateway error kinds
func midtransError(op string, err *midtrans.Error) error {
	code := err.GetStatusCode()
	if code == 0 || unavailableStatus(code) {
		return apperrors.ErrGatewayUnavailable.Wrap(fmt.Errorf("midtrans %s: %w", op, err))
	}
	return apperrors.ErrGatewayRejected.WithDetails(err.GetMessage())
}

// Initialize creates a Snap transaction. Snap amounts are whole currency units, so an amount
// with cents is rejected instead of being truncated.
func (m *MidtransGateway) Initialize(ctx context.Context, in InitializeRequest) (*GatewayInitResult, error) {
	if in.AmountMinorUnits <= 0 || in.AmountMinorUnits%100 != 0 {
		return nil, apperrors.ErrGatewayRejected.WithDetails("midtrans only accepts whole currency amounts")
	}

	orderID := in.Reference
	if orderID == "" {
		orderID = uuid.NewString()
	}

	req := &snap.Request{
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  orderID,
			GrossAmt: in.AmountMinorUnits / 100,
		},
		CustomerDetail: &midtrans.CustomerDetails{
			Email: in.Email,
		},
		Callbacks: &snap.Callbacks{
			Finish: in.CallbackURL,
		},
	}

	resp, mErr := m.SnapClient.CreateTransaction(req)
	if mErr != nil {
		return nil, midtransError("create transaction", mErr)
	}
	if resp.RedirectURL == "" {
		return nil, apperrors.ErrGatewayRejected.WithDetails(resp.ErrorMessages)
	}

	raw, _ := json.Marshal(resp)

	return &GatewayInitResult{
		Reference:        orderID,
		AuthorizationURL: resp.RedirectURL,
		Raw:              rawOrNull(raw),
	}, nil
}

// Verify checks the order status through the Core API. Any SDK error, including the 404
// Midtrans answers before the payer picks a payment method, leaves the payment alone.
func (m *MidtransGateway) Verify(ctx context.Context, reference string) (*GatewayVerifyResult, error) {
	resp, mErr := m.CoreClient.CheckTransaction(reference)
	if mErr != nil {
		return nil, apperrors.ErrGatewayUnavailable.Wrap(fmt.Errorf("midtrans check transaction %s: status %d", reference, mErr.GetStatusCode()))
	}
	if resp.TransactionStatus == "" {
		return nil, apperrors.ErrGatewayUnavailable.Wrap(fmt.Errorf("midtrans check transaction %s: missing transaction status", reference))
	}

	raw, _ := json.Marshal(resp)

	return &GatewayVerifyResult{
		Status:  resp.TransactionStatus,
		Success: midtransSettled(resp.TransactionStatus, resp.FraudStatus),
		Raw:     rawOrNull(raw),
	}, nil
}

func midtransSettled(transactionStatus, fraudStatus string) bool {
	switch transactionStatus {
	case "settlement":
		return true
	case "capture":
		return fraudStatus == "accept"
	default:
		return false
	}
}
