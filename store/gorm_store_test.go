package store

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"shopdesk/models"
)

func newMockStore(t *testing.T) (*GormStore, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return NewGormStore(db), mock
}

func TestGormStoreFindIntegrationByDomain(t *testing.T) {
	s, mock := newMockStore(t)

	rows := sqlmock.NewRows([]string{"id", "user_id", "name", "type", "domain", "webhook_secret", "is_active"}).
		AddRow(3, 1, "My Store", "shopify", "my-store.myshopify.com", "S", true)
	mock.ExpectQuery(`SELECT \* FROM "integrations" WHERE domain = \$1`).
		WillReturnRows(rows)

	integration, err := s.FindIntegrationByDomain(context.Background(), "my-store.myshopify.com")
	require.NoError(t, err)
	assert.Equal(t, uint(3), integration.ID)
	assert.Equal(t, models.PlatformShopify, integration.Type)
	assert.Equal(t, "S", integration.WebhookSecret)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStoreNotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT \* FROM "orders" WHERE .*integration_id = \$1 AND external_order_id = \$2`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := s.FindOrderByExternalID(context.Background(), 1, "9001")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStoreCreateCustomerUniqueViolation(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "customers"`).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "ux_customers_user_email"})
	mock.ExpectRollback()

	err := s.CreateCustomer(context.Background(), &models.Customer{UserID: 1, Name: "A", Email: "a@x.com"})
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStoreTransactionRollsBack(t *testing.T) {
	s, mock := newMockStore(t)
	boom := errors.New("boom")

	mock.ExpectBegin()
	mock.ExpectRollback()

	err := s.Transaction(context.Background(), func(tx Store) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStoreCreateOrderItemsSkipsEmpty(t *testing.T) {
	s, mock := newMockStore(t)

	require.NoError(t, s.CreateOrderItems(context.Background(), nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, IsUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.True(t, IsUniqueViolation(gorm.ErrDuplicatedKey))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, IsUniqueViolation(errors.New("other")))
}
