package services

import (
	"context"
	"encoding/json"

	"school_fees_echo/internal/models"
)

// InitializeRequest is what the controller hands to a gateway to open a hosted checkout
type InitializeRequest struct {
	Email            string
	AmountMinorUnits int64 // pesewas, cents, ...
	CallbackURL      string
	Reference        string // optional; gateways may assign their own
}

type GatewayInitResult struct {
	Reference        string
	AuthorizationURL string
	Raw              json.RawMessage
}

type GatewayVerifyResult struct {
	Status  string // gateway's own status word, e.g. "success", "abandoned", "settlement"
	Success bool
	Raw     json.RawMessage
}

// PaymentGateway is the narrow surface the controller needs from a payment provider.
// Implementations return apperrors.ErrGatewayUnavailable for transport failures and
// apperrors.ErrGatewayRejected when the provider refuses the request.
type PaymentGateway interface {
	Name() models.PaymentGateway
	Initialize(ctx context.Context, req InitializeRequest) (*GatewayInitResult, error)
	Verify(ctx context.Context, reference string) (*GatewayVerifyResult, error)
}

// rawOrNull keeps metadata columns valid JSON even when a provider returned nothing
func rawOrNull(b []byte) json.RawMessage {
	if len(b) == 0 || !json.Valid(b) {
		return json.RawMessage("null")
	}
	return json.RawMessage(b)
}
