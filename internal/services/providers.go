package services

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"school_fees_echo/internal/config"
	"school_fees_echo/internal/logger"
)

// NewGateway builds the payment gateway selected by PAYMENT_GATEWAY
func NewGateway(cfg *config.Config) (PaymentGateway, error) {
	switch cfg.PaymentGateway {
	case "", "paystack":
		if cfg.PaystackSecretKey == "" {
			return nil, fmt.Errorf("PAYSTACK_SECRET_KEY is not set")
		}
		return NewPaystackClient(cfg.PaystackBaseURL, cfg.PaystackSecretKey, cfg.GatewayTimeout), nil
	case "midtrans":
		if cfg.MidtransServerKey == "" {
			return nil, fmt.Errorf("MIDTRANS_SERVER_KEY is not set")
		}
		return NewMidtransGateway(cfg.MidtransServerKey, cfg.MidtransClientKey, cfg.MidtransIsProd, cfg.GatewayTimeout), nil
	default:
		return nil, fmt.Errorf("unknown PAYMENT_GATEWAY %q", cfg.PaymentGateway)
	}
}

// NewSMSSender builds the SMS transport selected by SMS_PROVIDER
func NewSMSSender(cfg *config.Config) (SMSSender, error) {
	switch cfg.SMSProvider {
	case "", "africastalking":
		if cfg.AfricasTalkingAPIKey == "" {
			return nil, fmt.Errorf("AFRICASTALKING_API_KEY is not set")
		}
		return NewAfricasTalkingSMS(cfg.AfricasTalkingUsername, cfg.AfricasTalkingAPIKey, cfg.AfricasTalkingSenderID), nil
	case "waha":
		return NewWahaService(cfg.WahaBaseURL, cfg.WahaAPIKey, cfg.WahaSession, cfg.PhoneCountryCode), nil
	case "none":
		return NoopSMS{}, nil
	default:
		return nil, fmt.Errorf("unknown SMS_PROVIDER %q", cfg.SMSProvider)
	}
}

// NewAuthenticator builds the bearer token verifier selected by AUTH_PROVIDER
func NewAuthenticator(ctx context.Context, cfg *config.Config, users UserByEmail) (Authenticator, error) {
	switch cfg.AuthProvider {
	case "", "jwt":
		return NewJWTAuthenticator(cfg.JWTSecret, cfg.JWTTTL)
	case "firebase":
		client, err := InitFirebase(ctx, cfg.FirebaseCredentialsPath)
		if err != nil {
			return nil, fmt.Errorf("firebase: %w", err)
		}
		return NewFirebaseAuthenticator(client, users), nil
	default:
		return nil, fmt.Errorf("unknown AUTH_PROVIDER %q", cfg.AuthProvider)
	}
}

// NewPaymentServiceFromConfig wires store, gateway, notifications and the optional cache
func NewPaymentServiceFromConfig(cfg *config.Config, db *gorm.DB, cache *RedisCache) (*PaymentService, error) {
	gateway, err := NewGateway(cfg)
	if err != nil {
		return nil, err
	}

	sms, err := NewSMSSender(cfg)
	if err != nil {
		logger.Warn("SMS receipts disabled", "error", err)
		sms = NoopSMS{}
	}

	email := NewGomailSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass)
	notifier := NewNotificationService(sms, email, cfg.EmailFrom, cfg.SchoolName, cfg.Currency)

	return NewPaymentService(PaymentServiceConfig{
		Store:    NewGormPaymentStore(db),
		Gateway:  gateway,
		Notifier: notifier,
		Cache:    cache,
		AppURL:   cfg.AppURL,
	}), nil
}
