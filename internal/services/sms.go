package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// SMSSender delivers a text message to one or more phone numbers
type SMSSender interface {
	Send(ctx context.Context, message string, recipients []string) error
}

const (
	africasTalkingLiveURL    = "https://api.africastalking.com"
	africasTalkingSandboxURL = "https://api.sandbox.africastalking.com"
)

// AfricasTalkingSMS sends SMS through the Africa's Talking messaging API
type AfricasTalkingSMS struct {
	baseURL  string
	username string
	apiKey   string
	senderID string
	client   *http.Client
}

// NewAfricasTalkingSMS picks the sandbox host when username is "sandbox"
func NewAfricasTalkingSMS(username, apiKey, senderID string) *AfricasTalkingSMS {
	baseURL := africasTalkingLiveURL
	if username == "sandbox" {
		baseURL = africasTalkingSandboxURL
	}
	return &AfricasTalkingSMS{
		baseURL:  baseURL,
		username: username,
		apiKey:   apiKey,
		senderID: senderID,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

// WithBaseURL points the sender at another host (tests, proxies)
func (s *AfricasTalkingSMS) WithBaseURL(baseURL string) *AfricasTalkingSMS {
	s.baseURL = strings.TrimRight(baseURL, "/")
	return s
}

type atRecipient struct {
	StatusCode int    `json:"statusCode"`
	Number     string `json:"number"`
	Status     string `json:"status"`
	MessageID  string `json:"messageId"`
}

type atResponse struct {
	SMSMessageData struct {
		Message    string        `json:"Message"`
		Recipients []atRecipient `json:"Recipients"`
	} `json:"SMSMessageData"`
}

// 100 Processed, 101 Sent, 102 Queued
func atAccepted(code int) bool {
	return code >= 100 && code <= 102
}

func (s *AfricasTalkingSMS) Send(ctx context.Context, message string, recipients []string) error {
	if len(recipients) == 0 {
		return fmt.Errorf("no recipients")
	}

	form := url.Values{}
	form.Set("username", s.username)
	form.Set("to", strings.Join(recipients, ","))
	form.Set("message", message)
	if s.senderID != "" {
		form.Set("from", s.senderID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/version1/messaging", strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("apiKey", s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		return fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var parsed atResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	var failed []string
	for _, r := range parsed.SMSMessageData.Recipients {
		if !atAccepted(r.StatusCode) {
			failed = append(failed, fmt.Sprintf("%s (%s)", r.Number, r.Status))
		}
	}
	if len(parsed.SMSMessageData.Recipients) == 0 {
		return fmt.Errorf("message not accepted: %s", parsed.SMSMessageData.Message)
	}
	if len(failed) > 0 {
		return fmt.Errorf("delivery rejected for %s", strings.Join(failed, ", "))
	}

	return nil
}

// NoopSMS is used when SMS_PROVIDER=none
type NoopSMS struct{}

func (NoopSMS) Send(context.Context, string, []string) error { return nil }
