// Package store is the query interface of the ingestion pipeline over the
// relational store. Implementations must enforce the unique constraints on
// integrations (domain, webhook secret), customers (user, email) and orders
// (integration, external order id) and report violations as ErrDuplicate.
package store

import (
	"context"
	"errors"

	"shopdesk/models"
)

var (
	ErrNotFound  = errors.New("store: record not found")
	ErrDuplicate = errors.New("store: duplicate key")
)

// Store is implemented by GormStore and MemoryStore.
type Store interface {
	// Transaction runs fn against a transactional view of the store. The
	// transaction commits when fn returns nil and rolls back otherwise.
	Transaction(ctx context.Context, fn func(tx Store) error) error
	Ping(ctx context.Context) error

	CreateUser(ctx context.Context, user *models.User) error
	FindUser(ctx context.Context, id uint) (*models.User, error)

	CreateIntegration(ctx context.Context, integration *models.Integration) error
	FindIntegrationByDomain(ctx context.Context, domain string) (*models.Integration, error)
	FindIntegrationBySecret(ctx context.Context, secret string) (*models.Integration, error)

	FindCustomerByEmail(ctx context.Context, userID uint, email string) (*models.Customer, error)
	CreateCustomer(ctx context.Context, customer *models.Customer) error
	UpdateCustomer(ctx context.Context, customer *models.Customer) error

	FindOrderByExternalID(ctx context.Context, integrationID uint, externalOrderID string) (*models.Order, error)
	CreateOrder(ctx context.Context, order *models.Order) error
	UpdateOrder(ctx context.Context, order *models.Order) error
	CreateOrderItems(ctx context.Context, items []models.OrderItem) error

	FindLeadByOrderID(ctx context.Context, orderID uint) (*models.CrmLead, error)
	CreateLead(ctx context.Context, lead *models.CrmLead) error
	CreateLeadEvent(ctx context.Context, event *models.CrmLeadEvent) error
}
