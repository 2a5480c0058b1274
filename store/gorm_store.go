package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"shopdesk/models"
)

// uniqueViolation is the postgres SQLSTATE for unique_violation.
const uniqueViolation = "23505"

// GormStore implements Store on a shared, pooled *gorm.DB.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	})
}

func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

func (s *GormStore) CreateUser(ctx context.Context, user *models.User) error {
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		return translate("create user", err)
	}
	return nil
}

func (s *GormStore) FindUser(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, translate("find user", err)
	}
	return &user, nil
}

func (s *GormStore) CreateIntegration(ctx context.Context, integration *models.Integration) error {
	if err := s.db.WithContext(ctx).Create(integration).Error; err != nil {
		return translate("create integration", err)
	}
	return nil
}

func (s *GormStore) FindIntegrationByDomain(ctx context.Context, domain string) (*models.Integration, error) {
	var integration models.Integration
	if err := s.db.WithContext(ctx).Where("domain = ?", domain).First(&integration).Error; err != nil {
		return nil, translate("find integration by domain", err)
	}
	return &integration, nil
}

func (s *GormStore) FindIntegrationBySecret(ctx context.Context, secret string) (*models.Integration, error) {
	var integration models.Integration
	if err := s.db.WithContext(ctx).Where("webhook_secret = ?", secret).First(&integration).Error; err != nil {
		return nil, translate("find integration by secret", err)
	}
	return &integration, nil
}

func (s *GormStore) FindCustomerByEmail(ctx context.Context, userID uint, email string) (*models.Customer, error) {
	var customer models.Customer
	if err := s.db.WithContext(ctx).Where("user_id = ? AND email = ?", userID, email).First(&customer).Error; err != nil {
		return nil, translate("find customer", err)
	}
	return &customer, nil
}

func (s *GormStore) CreateCustomer(ctx context.Context, customer *models.Customer) error {
	if err := s.db.WithContext(ctx).Create(customer).Error; err != nil {
		return translate("create customer", err)
	}
	return nil
}

func (s *GormStore) UpdateCustomer(ctx context.Context, customer *models.Customer) error {
	err := s.db.WithContext(ctx).Model(customer).
		Select("name", "phone", "address").
		Updates(customer).Error
	if err != nil {
		return translate("update customer", err)
	}
	return nil
}

func (s *GormStore) FindOrderByExternalID(ctx context.Context, integrationID uint, externalOrderID string) (*models.Order, error) {
	var order models.Order
	err := s.db.WithContext(ctx).
		Where("integration_id = ? AND external_order_id = ?", integrationID, externalOrderID).
		First(&order).Error
	if err != nil {
		return nil, translate("find order", err)
	}
	return &order, nil
}

func (s *GormStore) CreateOrder(ctx context.Context, order *models.Order) error {
	// Items are written separately by CreateOrderItems.
	if err := s.db.WithContext(ctx).Omit("Items").Create(order).Error; err != nil {
		return translate("create order", err)
	}
	return nil
}

func (s *GormStore) UpdateOrder(ctx context.Context, order *models.Order) error {
	err := s.db.WithContext(ctx).Model(order).
		Select("status", "total_amount", "currency", "order_created_at").
		Updates(order).Error
	if err != nil {
		return translate("update order", err)
	}
	return nil
}

func (s *GormStore) CreateOrderItems(ctx context.Context, items []models.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	if err := s.db.WithContext(ctx).Create(&items).Error; err != nil {
		return translate("create order items", err)
	}
	return nil
}

func (s *GormStore) FindLeadByOrderID(ctx context.Context, orderID uint) (*models.CrmLead, error) {
	var lead models.CrmLead
	if err := s.db.WithContext(ctx).Where("order_id = ?", orderID).First(&lead).Error; err != nil {
		return nil, translate("find lead", err)
	}
	return &lead, nil
}

func (s *GormStore) CreateLead(ctx context.Context, lead *models.CrmLead) error {
	if err := s.db.WithContext(ctx).Create(lead).Error; err != nil {
		return translate("create lead", err)
	}
	return nil
}

func (s *GormStore) CreateLeadEvent(ctx context.Context, event *models.CrmLeadEvent) error {
	if err := s.db.WithContext(ctx).Create(event).Error; err != nil {
		return translate("create lead event", err)
	}
	return nil
}

// translate maps driver errors onto ErrNotFound and ErrDuplicate.
func translate(op string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	if IsUniqueViolation(err) {
		return fmt.Errorf("%s: %w: %v", op, ErrDuplicate, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// IsUniqueViolation reports whether err comes from a unique constraint.
func IsUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) || errors.Is(err, ErrDuplicate) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
