package services

import (
	"context"
	"fmt"

	"school_fees_echo/internal/logger"
	"school_fees_echo/internal/models"
)

// Notifier is what the payment controller calls after a payment becomes successful
type Notifier interface {
	DispatchPaymentReceipt(ctx context.Context, payment *models.Payment, payer *models.User)
}

// NotificationService sends payment receipts by SMS and email. Each channel fails on its own
// and nothing is reported back to the caller.
type NotificationService struct {
	sms        SMSSender
	email      EmailSender
	emailFrom  string
	schoolName string
	currency   string
}

func NewNotificationService(sms SMSSender, email EmailSender, emailFrom, schoolName, currency string) *NotificationService {
	if sms == nil {
		sms = NoopSMS{}
	}
	return &NotificationService{
		sms:        sms,
		email:      email,
		emailFrom:  emailFrom,
		schoolName: schoolName,
		currency:   currency,
	}
}

// receipt holds the values both channels print
type receipt struct {
	PayerName   string
	FeeLabel    string
	Amount      string
	StudentName string
	Reference   string
	Status      string
}

func (s *NotificationService) buildReceipt(payment *models.Payment, payer *models.User) receipt {
	studentName := "-"
	if payment.Student != nil {
		studentName = payment.Student.DisplayName()
	}
	return receipt{
		PayerName:   payer.FullName(),
		FeeLabel:    payment.FeeType.Label(),
		Amount:      payment.AmountDisplay(s.currency),
		StudentName: studentName,
		Reference:   payment.Reference,
		Status:      string(payment.Status),
	}
}

// SMSText is the receipt sent to the payer's phone
func (s *NotificationService) SMSText(payment *models.Payment, payer *models.User) string {
	r := s.buildReceipt(payment, payer)
	return fmt.Sprintf("Hello %s, your %s payment of %s for %s was successful. Ref: %s. - %s",
		r.PayerName, r.FeeLabel, r.Amount, r.StudentName, r.Reference, s.schoolName)
}

// EmailSubject and EmailBody make up the receipt email
func (s *NotificationService) EmailSubject() string {
	return "Payment Receipt - " + s.schoolName
}

func (s *NotificationService) EmailBody(payment *models.Payment, payer *models.User) string {
	r := s.buildReceipt(payment, payer)
	return fmt.Sprintf("Dear %s,\n\n"+
		"We have successfully received your payment.\n\n"+
		"Amount:    %s\n"+
		"Type:      %s\n"+
		"Student:   %s\n"+
		"Reference: %s\n"+
		"Status:    %s\n\n"+
		"Thank you for your support.\n\n"+
		"%s Finance Office",
		r.PayerName, r.Amount, r.FeeLabel, r.StudentName, r.Reference, r.Status, s.schoolName)
}

// DispatchPaymentReceipt sends the SMS (when a phone number is on file) and the email
func (s *NotificationService) DispatchPaymentReceipt(ctx context.Context, payment *models.Payment, payer *models.User) {
	log := logger.FromContext(ctx).With("reference", payment.Reference)

	if phone := payer.PhoneNumber(); phone != "" {
		s.runChannel(ctx, "sms", func() error {
			return s.sms.Send(ctx, s.SMSText(payment, payer), []string{phone})
		})
	} else {
		log.Info("no phone number on file, skipping SMS receipt")
	}

	if payer.Email == "" || s.email == nil {
		log.Warn("no email recipient or sender, skipping email receipt")
		return
	}
	s.runChannel(ctx, "email", func() error {
		return s.email.Send(ctx, s.EmailSubject(), s.EmailBody(payment, payer), s.emailFrom, []string{payer.Email})
	})
}

func (s *NotificationService) runChannel(ctx context.Context, channel string, send func() error) {
	log := logger.FromContext(ctx).With("channel", channel)

	defer func() {
		if r := recover(); r != nil {
			log.Error("receipt notification panicked", "panic", r)
		}
	}()

	if err := send(); err != nil {
		log.Error("receipt notification failed", "error", err)
		return
	}
	log.Info("receipt notification sent")
}
