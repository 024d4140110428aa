package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"school_fees_echo/internal/apperrors"
	"school_fees_echo/internal/models"
)

// PaymentStore persists payments and reads the users and students they point at
type PaymentStore interface {
	Create(ctx context.Context, payment *models.Payment) error
	FindByReference(ctx context.Context, reference string) (*models.Payment, error)
	ListByPayer(ctx context.Context, payerID uint) ([]models.Payment, error)
	ListPending(ctx context.Context, olderThan time.Duration) ([]models.Payment, error)
	// TransitionFromPending moves a pending payment to status. It reports false when the
	// payment was no longer pending, in which case nothing was written.
	TransitionFromPending(ctx context.Context, reference string, status models.PaymentStatus, verified bool, metadata json.RawMessage) (bool, error)
	RefreshMetadata(ctx context.Context, reference string, metadata json.RawMessage) error
	RecordCallback(ctx context.Context, entry *models.PaymentCallbackHistory) error
	ListCallbacks(ctx context.Context, reference string) ([]models.PaymentCallbackHistory, error)
	FindStudent(ctx context.Context, studentID string) (*models.Student, error)
	FindPayer(ctx context.Context, userID uint) (*models.User, error)
	FindPayerByEmail(ctx context.Context, email string) (*models.User, error)
}

type GormPaymentStore struct {
	db *gorm.DB
}

func NewGormPaymentStore(db *gorm.DB) *GormPaymentStore {
	return &GormPaymentStore{db: db}
}

func (s *GormPaymentStore) Create(ctx context.Context, payment *models.Payment) error {
	return s.db.WithContext(ctx).Omit("Payer", "Student").Create(payment).Error
}

func (s *GormPaymentStore) FindByReference(ctx context.Context, reference string) (*models.Payment, error) {
	var payment models.Payment
	err := s.db.WithContext(ctx).
		Preload("Student").
		Preload("Payer.ParentProfile").
		Where("reference = ?", reference).
		First(&payment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrPaymentNotFound
		}
		return nil, err
	}
	return &payment, nil
}

func (s *GormPaymentStore) ListByPayer(ctx context.Context, payerID uint) ([]models.Payment, error) {
	var payments []models.Payment
	err := s.db.WithContext(ctx).
		Preload("Student").
		Preload("Payer").
		Where("payer_id = ?", payerID).
		Order("created_at desc, id desc").
		Find(&payments).Error
	return payments, err
}

func (s *GormPaymentStore) ListPending(ctx context.Context, olderThan time.Duration) ([]models.Payment, error) {
	var payments []models.Payment
	q := s.db.WithContext(ctx).
		Preload("Student").
		Preload("Payer").
		Where("status = ?", models.PaymentStatusPending)
	if olderThan > 0 {
		q = q.Where("created_at < ?", time.Now().Add(-olderThan))
	}
	err := q.Order("created_at asc").Find(&payments).Error
	return payments, err
}

func (s *GormPaymentStore) TransitionFromPending(ctx context.Context, reference string, status models.PaymentStatus, verified bool, metadata json.RawMessage) (bool, error) {
	updates := map[string]interface{}{
		"status":     status,
		"metadata":   datatypes.JSON(metadata),
		"updated_at": time.Now(),
	}
	if verified {
		updates["verified"] = true
	}

	result := s.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("reference = ? AND status = ?", reference, models.PaymentStatusPending).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (s *GormPaymentStore) RefreshMetadata(ctx context.Context, reference string, metadata json.RawMessage) error {
	return s.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("reference = ?", reference).
		Updates(map[string]interface{}{
			"metadata":   datatypes.JSON(metadata),
			"updated_at": time.Now(),
		}).Error
}

func (s *GormPaymentStore) RecordCallback(ctx context.Context, entry *models.PaymentCallbackHistory) error {
	return s.db.WithContext(ctx).Create(entry).Error
}

// ListCallbacks returns the verification history of a payment, oldest first
func (s *GormPaymentStore) ListCallbacks(ctx context.Context, reference string) ([]models.PaymentCallbackHistory, error) {
	var entries []models.PaymentCallbackHistory
	err := s.db.WithContext(ctx).
		Where("reference = ?", reference).
		Order("created_at asc, id asc").
		Find(&entries).Error
	return entries, err
}

func (s *GormPaymentStore) FindStudent(ctx context.Context, studentID string) (*models.Student, error) {
	var student models.Student
	err := s.db.WithContext(ctx).Where("student_id = ?", studentID).First(&student).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrStudentNotFound
		}
		return nil, err
	}
	return &student, nil
}

// FindPayer loads the user with the parent profile, if any
func (s *GormPaymentStore) FindPayer(ctx context.Context, userID uint) (*models.User, error) {
	return s.findUser(ctx, "id = ?", userID)
}

func (s *GormPaymentStore) FindPayerByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findUser(ctx, "email = ?", email)
}

func (s *GormPaymentStore) findUser(ctx context.Context, query string, arg interface{}) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Preload("ParentProfile").Where(query, arg).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}
