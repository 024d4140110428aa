package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// WahaService delivers receipts over WhatsApp through a WAHA instance
type WahaService struct {
	baseURL     string
	apiKey      string
	session     string
	countryCode string
	client      *http.Client

	// pauses between the seen/typing steps; zero in tests
	pause func(time.Duration)
}

func NewWahaService(baseURL, apiKey, session, countryCode string) *WahaService {
	if baseURL == "" {
		baseURL = "http://waha:3000"
	}
	if session == "" {
		session = "default"
	}
	return &WahaService{
		baseURL:     strings.TrimRight(baseURL, "/"),
		apiKey:      apiKey,
		session:     session,
		countryCode: countryCode,
		client:      &http.Client{Timeout: 30 * time.Second},
		pause:       time.Sleep,
	}
}

func (s *WahaService) makeRequest(ctx context.Context, method, endpoint string, payload interface{}) error {
	var bodyReader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal payload: %w", err)
		}
		bodyReader = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+endpoint, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Api-Key", s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(body))
	}

	return nil
}

func (s *WahaService) chatAction(ctx context.Context, endpoint, chatID string) error {
	return s.makeRequest(ctx, http.MethodPost, endpoint, map[string]string{
		"chatId":  chatID,
		"session": s.session,
	})
}

func (s *WahaService) sendText(ctx context.Context, chatID, text string) error {
	return s.makeRequest(ctx, http.MethodPost, "/api/sendText", map[string]string{
		"chatId":  chatID,
		"text":    text,
		"session": s.session,
	})
}

// NormalizeChatID turns a phone number into a WhatsApp chat ID. Local numbers with a leading
// '0' get countryCode, a leading '+' is dropped, and group IDs pass through.
func NormalizeChatID(chatID, countryCode string) string {
	chatID = strings.TrimSpace(chatID)

	if strings.HasSuffix(chatID, "@g.us") {
		return chatID
	}

	chatID = strings.TrimSuffix(chatID, "@c.us")
	chatID = strings.ReplaceAll(chatID, " ", "")
	chatID = strings.TrimPrefix(chatID, "+")

	if strings.HasPrefix(chatID, "0") && countryCode != "" {
		chatID = countryCode + strings.TrimPrefix(chatID, "0")
	}

	return chatID + "@c.us"
}

// SendMessage sends a message with authentic behavior (seen -> typing -> stop typing -> send)
func (s *WahaService) SendMessage(ctx context.Context, chatID, text string) error {
	chatID = NormalizeChatID(chatID, s.countryCode)

	if err := s.chatAction(ctx, "/api/sendSeen", chatID); err != nil {
		return fmt.Errorf("failed to send seen: %w", err)
	}
	s.pause(100 * time.Millisecond)

	if err := s.chatAction(ctx, "/api/startTyping", chatID); err != nil {
		return fmt.Errorf("failed to start typing: %w", err)
	}
	s.pause(150 * time.Millisecond)

	if err := s.chatAction(ctx, "/api/stopTyping", chatID); err != nil {
		return fmt.Errorf("failed to stop typing: %w", err)
	}
	s.pause(50 * time.Millisecond)

	if err := s.sendText(ctx, chatID, text); err != nil {
		return fmt.Errorf("failed to send text: %w", err)
	}

	return nil
}

// Send implements SMSSender
func (s *WahaService) Send(ctx context.Context, message string, recipients []string) error {
	if len(recipients) == 0 {
		return fmt.Errorf("no recipients")
	}
	for _, r := range recipients {
		if err := s.SendMessage(ctx, r, message); err != nil {
			return fmt.Errorf("waha %s: %w", r, err)
		}
	}
	return nil
}
