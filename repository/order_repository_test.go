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
	"github.com/stretchr/testify/assert"
)

func TestOrderFindByID_Success(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormOrderRepository(gormDB)

	id := uuid.New()
	now := time.Now()
	orderRows := sqlmock.NewRows([]string{
		"id", "customer_id", "customer_email", "shipping_cost",
		"shipping_address", "shipping_service", "status", "created_at", "updated_at",
	}).AddRow(id, uuid.New(), "buyer@example.com", "10.00",
		"Rua das Flores 100", "SEDEX", models.OrderStatusPending, now, now)

	itemRows := sqlmock.NewRows([]string{
		"id", "order_id", "product_id", "quantity", "unit_price",
	}).AddRow(uuid.New(), id, uuid.New(), 2, "70.00")

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "orders"`)).
		WithArgs(id, 1).
		WillReturnRows(orderRows)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "order_items"`)).
		WithArgs(id).
		WillReturnRows(itemRows)

	order, err := repo.FindByID(context.Background(), id)
	assert.NoError(t, err)
	assert.Equal(t, id, order.ID)
	assert.Len(t, order.Items, 1)
	assert.True(t, order.Total().Equal(decimalAmount("150.00")), "total = %s", order.Total())
}

func TestOrderFindByID_NotFoundIsNotAnError(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormOrderRepository(gormDB)

	id := uuid.New()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "orders"`)).
		WithArgs(id, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	order, err := repo.FindByID(context.Background(), id)
	assert.NoError(t, err)
	assert.Nil(t, order)
}

func TestOrderUpdate_Success(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormOrderRepository(gormDB)

	order := &models.Order{
		ID:            uuid.New(),
		CustomerID:    uuid.New(),
		CustomerEmail: "buyer@example.com",
		Status:        models.OrderStatusConfirmed,
		CreatedAt:     time.Now(),
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "orders"`)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := repo.Update(context.Background(), order)
	assert.NoError(t, err)
}
