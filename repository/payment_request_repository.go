package repository

import (
	"context"
	"errors"
	"time"

	"payment-service/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PaymentRequestRepository persists payment request records. Every call
// writes through synchronously; there is no caching layer. A missing
// request is a normal outcome and is reported as (nil, nil).
type PaymentRequestRepository interface {
	Create(ctx context.Context, pr *models.PaymentRequest) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.PaymentRequest, error)
	Update(ctx context.Context, pr *models.PaymentRequest) error
	FindPending(ctx context.Context) ([]models.PaymentRequest, error)
	FindFailedForRetry(ctx context.Context, minAge time.Duration) ([]models.PaymentRequest, error)
	FindActiveByOrderID(ctx context.Context, orderID uuid.UUID) (*models.PaymentRequest, error)
}

type GormPaymentRequestRepository struct {
	db *gorm.DB
}

func NewGormPaymentRequestRepository(db *gorm.DB) PaymentRequestRepository {
	return &GormPaymentRequestRepository{db: db}
}

func (r *GormPaymentRequestRepository) Create(ctx context.Context, pr *models.PaymentRequest) error {
	return r.db.WithContext(ctx).Create(pr).Error
}

func (r *GormPaymentRequestRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.PaymentRequest, error) {
	var pr models.PaymentRequest
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&pr).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &pr, nil
}

func (r *GormPaymentRequestRepository) Update(ctx context.Context, pr *models.PaymentRequest) error {
	return r.db.WithContext(ctx).Save(pr).Error
}

func (r *GormPaymentRequestRepository) FindPending(ctx context.Context) ([]models.PaymentRequest, error) {
	var requests []models.PaymentRequest
	if err := r.db.WithContext(ctx).
		Where("status = ?", models.PaymentRequestStatusPending).
		Order("created_at ASC").
		Find(&requests).Error; err != nil {
		return nil, err
	}
	return requests, nil
}

// FindFailedForRetry returns failed requests still under the retry cap
// that have cooled down for at least minAge.
func (r *GormPaymentRequestRepository) FindFailedForRetry(ctx context.Context, minAge time.Duration) ([]models.PaymentRequest, error) {
	cutoff := time.Now().UTC().Add(-minAge)

	var requests []models.PaymentRequest
	if err := r.db.WithContext(ctx).
		Where("status = ?", models.PaymentRequestStatusFailed).
		Where("retry_count < ?", models.MaxRetryCount).
		Where("created_at < ?", cutoff).
		Order("created_at ASC").
		Find(&requests).Error; err != nil {
		return nil, err
	}
	return requests, nil
}

// FindActiveByOrderID returns the pending or processing request for an
// order, if one exists.
func (r *GormPaymentRequestRepository) FindActiveByOrderID(ctx context.Context, orderID uuid.UUID) (*models.PaymentRequest, error) {
	var pr models.PaymentRequest
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Where("status IN ?", []models.PaymentRequestStatus{
			models.PaymentRequestStatusPending,
			models.PaymentRequestStatusProcessing,
		}).
		Order("created_at DESC").
		First(&pr).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &pr, nil
}
