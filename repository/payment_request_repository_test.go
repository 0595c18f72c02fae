package repository_test

import (
	"context"
	"regexp"
	"testing"
	"time"

	"payment-service/models"
	"payment-service/repository"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func decimalAmount(s string) decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return d
}

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{})
	assert.NoError(t, err)
	return gormDB, mock
}

func requestColumns() []string {
	return []string{
		"id", "order_id", "amount", "currency", "payment_method",
		"customer_email", "status", "retry_count", "created_at", "updated_at",
	}
}

func TestCreate_Success(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormPaymentRequestRepository(gormDB)

	pr := models.NewPaymentRequest(uuid.New(), decimalAmount("150.00"), "credit_card", "buyer@example.com")

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "payment_requests"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(pr.ID))
	mock.ExpectCommit()

	err := repo.Create(context.Background(), pr)
	assert.NoError(t, err)
}

func TestFindByID_Success(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormPaymentRequestRepository(gormDB)

	id := uuid.New()
	now := time.Now()
	rows := sqlmock.NewRows(requestColumns()).
		AddRow(id, uuid.New(), "150.00", "BRL", "credit_card",
			"buyer@example.com", models.PaymentRequestStatusPending, 0, now, now)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "payment_requests"`)).
		WithArgs(id, 1).
		WillReturnRows(rows)

	pr, err := repo.FindByID(context.Background(), id)
	assert.NoError(t, err)
	assert.Equal(t, id, pr.ID)
	assert.Equal(t, models.PaymentRequestStatusPending, pr.Status)
}

func TestFindByID_NotFoundIsNotAnError(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormPaymentRequestRepository(gormDB)

	id := uuid.New()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "payment_requests"`)).
		WithArgs(id, 1).
		WillReturnRows(sqlmock.NewRows(requestColumns()))

	pr, err := repo.FindByID(context.Background(), id)
	assert.NoError(t, err)
	assert.Nil(t, pr)
}

func TestUpdate_Success(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormPaymentRequestRepository(gormDB)

	pr := models.NewPaymentRequest(uuid.New(), decimalAmount("75.50"), "pix", "buyer@example.com")
	pr.CreatedAt = time.Now()
	pr.MarkAsFailed("insufficient funds")

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "payment_requests"`)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := repo.Update(context.Background(), pr)
	assert.NoError(t, err)
}

func TestFindPending_OrdersByCreation(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormPaymentRequestRepository(gormDB)

	now := time.Now()
	rows := sqlmock.NewRows(requestColumns()).
		AddRow(uuid.New(), uuid.New(), "10.00", "BRL", "credit_card",
			"a@example.com", models.PaymentRequestStatusPending, 0, now.Add(-time.Hour), now).
		AddRow(uuid.New(), uuid.New(), "20.00", "BRL", "pix",
			"b@example.com", models.PaymentRequestStatusPending, 0, now, now)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "payment_requests"`)).
		WithArgs(string(models.PaymentRequestStatusPending)).
		WillReturnRows(rows)

	pending, err := repo.FindPending(context.Background())
	assert.NoError(t, err)
	assert.Len(t, pending, 2)
}

func TestFindFailedForRetry_FiltersStatusCapAndAge(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormPaymentRequestRepository(gormDB)

	now := time.Now()
	rows := sqlmock.NewRows(requestColumns()).
		AddRow(uuid.New(), uuid.New(), "99.90", "BRL", "credit_card",
			"a@example.com", models.PaymentRequestStatusFailed, 1, now.Add(-time.Hour), now)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "payment_requests"`)).
		WithArgs(string(models.PaymentRequestStatusFailed), models.MaxRetryCount, sqlmock.AnyArg()).
		WillReturnRows(rows)

	failed, err := repo.FindFailedForRetry(context.Background(), 5*time.Minute)
	assert.NoError(t, err)
	assert.Len(t, failed, 1)
	assert.Equal(t, 1, failed[0].RetryCount)
}

func TestFindActiveByOrderID_NoneReturnsNil(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormPaymentRequestRepository(gormDB)

	orderID := uuid.New()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "payment_requests"`)).
		WithArgs(orderID,
			string(models.PaymentRequestStatusPending),
			string(models.PaymentRequestStatusProcessing),
			1).
		WillReturnRows(sqlmock.NewRows(requestColumns()))

	pr, err := repo.FindActiveByOrderID(context.Background(), orderID)
	assert.NoError(t, err)
	assert.Nil(t, pr)
}
