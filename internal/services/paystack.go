package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"school_fees_echo/internal/apperrors"
	"school_fees_echo/internal/models"
)

const DefaultPaystackBaseURL = "https://api.paystack.co"

// PaystackClient talks to the Paystack transaction API
type PaystackClient struct {
	baseURL   string
	secretKey string
	client    *http.Client
}

func NewPaystackClient(baseURL, secretKey string, timeout time.Duration) *PaystackClient {
	if baseURL == "" {
		baseURL = DefaultPaystackBaseURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &PaystackClient{
		baseURL:   strings.TrimRight(baseURL, "/"),
		secretKey: secretKey,
		client:    &http.Client{Timeout: timeout},
	}
}

// paystackEnvelope is the shape shared by every Paystack response
type paystackEnvelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type paystackInitData struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

type paystackVerifyData struct {
	Status    string `json:"status"`
	Reference string `json:"reference"`
	Amount    int64  `json:"amount"`
}

func (p *PaystackClient) makeRequest(ctx context.Context, method, endpoint string, payload interface{}) (int, []byte, error) {
	var bodyReader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, fmt.Errorf("failed to marshal payload: %w", err)
		}
		bodyReader = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+endpoint, bodyReader)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+p.secretKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return 0, nil, apperrors.ErrGatewayUnavailable.Wrap(fmt.Errorf("paystack %s %s: %w", method, endpoint, err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, apperrors.ErrGatewayUnavailable.Wrap(fmt.Errorf("paystack read body: %w", err))
	}

	return resp.StatusCode, body, nil
}

func (p *PaystackClient) Name() models.PaymentGateway { return models.PaymentGatewayPaystack }

// unavailableStatus covers responses that say nothing about the transaction itself
func unavailableStatus(code int) bool {
	return code >= 500 || code == http.StatusUnauthorized || code == http.StatusForbidden
}

// Initialize opens a Paystack checkout. The reference is forwarded when set.
func (p *PaystackClient) Initialize(ctx context.Context, in InitializeRequest) (*GatewayInitResult, error) {
	payload := map[string]interface{}{
		"email":        in.Email,
		"amount":       in.AmountMinorUnits,
		"callback_url": in.CallbackURL,
	}
	if in.Reference != "" {
		payload["reference"] = in.Reference
	}

	code, body, err := p.makeRequest(ctx, http.MethodPost, "/transaction/initialize", payload)
	if err != nil {
		return nil, err
	}
	if unavailableStatus(code) {
		return nil, apperrors.ErrGatewayUnavailable.Wrap(fmt.Errorf("paystack initialize: status %d", code))
	}

	var env paystackEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, apperrors.ErrGatewayUnavailable.Wrap(fmt.Errorf("paystack initialize: decode: %w", err))
	}

	if code >= 400 || !env.Status {
		return nil, apperrors.ErrGatewayRejected.WithDetails(env.Message)
	}

	var data paystackInitData
	if err := json.Unmarshal(env.Data, &data); err != nil || data.AuthorizationURL == "" {
		return nil, apperrors.ErrGatewayRejected.WithDetails("missing authorization_url in gateway response")
	}

	ref := data.Reference
	if ref == "" {
		ref = in.Reference
	}

	return &GatewayInitResult{
		Reference:        ref,
		AuthorizationURL: data.AuthorizationURL,
		Raw:              rawOrNull(body),
	}, nil
}

// Verify fetches the transaction state. Only a 2xx answer with status:true says anything
// about the transaction; every other answer (rate limits, unknown reference, bad key) is
// reported as GatewayUnavailable so the payment is left alone.
func (p *PaystackClient) Verify(ctx context.Context, reference string) (*GatewayVerifyResult, error) {
	code, body, err := p.makeRequest(ctx, http.MethodGet, "/transaction/verify/"+url.PathEscape(reference), nil)
	if err != nil {
		return nil, err
	}
	if code < 200 || code >= 300 {
		return nil, apperrors.ErrGatewayUnavailable.Wrap(fmt.Errorf("paystack verify %s: status %d", reference, code))
	}

	var env paystackEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, apperrors.ErrGatewayUnavailable.Wrap(fmt.Errorf("paystack verify: decode: %w", err))
	}
	if !env.Status {
		return nil, apperrors.ErrGatewayUnavailable.Wrap(fmt.Errorf("paystack verify %s: %s", reference, env.Message))
	}

	var data paystackVerifyData
	if err := json.Unmarshal(env.Data, &data); err != nil || data.Status == "" {
		return nil, apperrors.ErrGatewayUnavailable.Wrap(fmt.Errorf("paystack verify %s: missing transaction status", reference))
	}

	return &GatewayVerifyResult{
		Status:  data.Status,
		Success: data.Status == "success",
		Raw:     rawOrNull(body),
	}, nil
}
