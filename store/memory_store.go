package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"gorm.io/datatypes"

	"shopdesk/models"
)

type customerKey struct {
	userID uint
	email  string
}

type orderKey struct {
	integrationID uint
	externalID    string
}

// memoryState holds the tables and their unique indexes.
type memoryState struct {
	nextID uint

	users        map[uint]models.User
	integrations map[uint]models.Integration
	customers    map[uint]models.Customer
	orders       map[uint]models.Order
	orderItems   map[uint]models.OrderItem
	leads        map[uint]models.CrmLead
	leadEvents   map[uint]models.CrmLeadEvent

	integrationsByDomain map[string]uint
	integrationsBySecret map[string]uint
	customersByEmail     map[customerKey]uint
	ordersByExternalID   map[orderKey]uint
}

func newMemoryState() *memoryState {
	return &memoryState{
		users:                map[uint]models.User{},
		integrations:         map[uint]models.Integration{},
		customers:            map[uint]models.Customer{},
		orders:               map[uint]models.Order{},
		orderItems:           map[uint]models.OrderItem{},
		leads:                map[uint]models.CrmLead{},
		leadEvents:           map[uint]models.CrmLeadEvent{},
		integrationsByDomain: map[string]uint{},
		integrationsBySecret: map[string]uint{},
		customersByEmail:     map[customerKey]uint{},
		ordersByExternalID:   map[orderKey]uint{},
	}
}

func (s *memoryState) clone() *memoryState {
	c := &memoryState{
		nextID:               s.nextID,
		users:                make(map[uint]models.User, len(s.users)),
		integrations:         make(map[uint]models.Integration, len(s.integrations)),
		customers:            make(map[uint]models.Customer, len(s.customers)),
		orders:               make(map[uint]models.Order, len(s.orders)),
		orderItems:           make(map[uint]models.OrderItem, len(s.orderItems)),
		leads:                make(map[uint]models.CrmLead, len(s.leads)),
		leadEvents:           make(map[uint]models.CrmLeadEvent, len(s.leadEvents)),
		integrationsByDomain: make(map[string]uint, len(s.integrationsByDomain)),
		integrationsBySecret: make(map[string]uint, len(s.integrationsBySecret)),
		customersByEmail:     make(map[customerKey]uint, len(s.customersByEmail)),
		ordersByExternalID:   make(map[orderKey]uint, len(s.ordersByExternalID)),
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.integrations {
		c.integrations[k] = v
	}
	for k, v := range s.customers {
		c.customers[k] = v
	}
	for k, v := range s.orders {
		c.orders[k] = v
	}
	for k, v := range s.orderItems {
		c.orderItems[k] = v
	}
	for k, v := range s.leads {
		c.leads[k] = v
	}
	for k, v := range s.leadEvents {
		c.leadEvents[k] = v
	}
	for k, v := range s.integrationsByDomain {
		c.integrationsByDomain[k] = v
	}
	for k, v := range s.integrationsBySecret {
		c.integrationsBySecret[k] = v
	}
	for k, v := range s.customersByEmail {
		c.customersByEmail[k] = v
	}
	for k, v := range s.ordersByExternalID {
		c.ordersByExternalID[k] = v
	}
	return c
}

func (s *memoryState) id() uint {
	s.nextID++
	return s.nextID
}

// MemoryStore is an in-process Store used for local runs and tests. It
// enforces the same unique constraints as the postgres schema.
type MemoryStore struct {
	mu    sync.Mutex
	state *memoryState
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: newMemoryState()}
}

// Transaction runs fn on a copy of the state and swaps it in on success.
// Writers are serialized for the duration of fn.
func (m *MemoryStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx := &memoryTx{state: m.state.clone()}
	if err := fn(tx); err != nil {
		return err
	}
	m.state = tx.state
	return nil
}

func (m *MemoryStore) Ping(ctx context.Context) error { return ctx.Err() }

func (m *MemoryStore) with(fn func(tx *memoryTx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(&memoryTx{state: m.state})
}

func (m *MemoryStore) CreateUser(ctx context.Context, user *models.User) error {
	return m.with(func(tx *memoryTx) error { return tx.CreateUser(ctx, user) })
}

func (m *MemoryStore) FindUser(ctx context.Context, id uint) (user *models.User, err error) {
	err = m.with(func(tx *memoryTx) error {
		user, err = tx.FindUser(ctx, id)
		return err
	})
	return user, err
}

func (m *MemoryStore) CreateIntegration(ctx context.Context, integration *models.Integration) error {
	return m.with(func(tx *memoryTx) error { return tx.CreateIntegration(ctx, integration) })
}

func (m *MemoryStore) FindIntegrationByDomain(ctx context.Context, domain string) (integration *models.Integration, err error) {
	err = m.with(func(tx *memoryTx) error {
		integration, err = tx.FindIntegrationByDomain(ctx, domain)
		return err
	})
	return integration, err
}

func (m *MemoryStore) FindIntegrationBySecret(ctx context.Context, secret string) (integration *models.Integration, err error) {
	err = m.with(func(tx *memoryTx) error {
		integration, err = tx.FindIntegrationBySecret(ctx, secret)
		return err
	})
	return integration, err
}

func (m *MemoryStore) FindCustomerByEmail(ctx context.Context, userID uint, email string) (customer *models.Customer, err error) {
	err = m.with(func(tx *memoryTx) error {
		customer, err = tx.FindCustomerByEmail(ctx, userID, email)
		return err
	})
	return customer, err
}

func (m *MemoryStore) CreateCustomer(ctx context.Context, customer *models.Customer) error {
	return m.with(func(tx *memoryTx) error { return tx.CreateCustomer(ctx, customer) })
}

func (m *MemoryStore) UpdateCustomer(ctx context.Context, customer *models.Customer) error {
	return m.with(func(tx *memoryTx) error { return tx.UpdateCustomer(ctx, customer) })
}

func (m *MemoryStore) FindOrderByExternalID(ctx context.Context, integrationID uint, externalOrderID string) (order *models.Order, err error) {
	err = m.with(func(tx *memoryTx) error {
		order, err = tx.FindOrderByExternalID(ctx, integrationID, externalOrderID)
		return err
	})
	return order, err
}

func (m *MemoryStore) CreateOrder(ctx context.Context, order *models.Order) error {
	return m.with(func(tx *memoryTx) error { return tx.CreateOrder(ctx, order) })
}

func (m *MemoryStore) UpdateOrder(ctx context.Context, order *models.Order) error {
	return m.with(func(tx *memoryTx) error { return tx.UpdateOrder(ctx, order) })
}

func (m *MemoryStore) CreateOrderItems(ctx context.Context, items []models.OrderItem) error {
	return m.with(func(tx *memoryTx) error { return tx.CreateOrderItems(ctx, items) })
}

func (m *MemoryStore) FindLeadByOrderID(ctx context.Context, orderID uint) (lead *models.CrmLead, err error) {
	err = m.with(func(tx *memoryTx) error {
		lead, err = tx.FindLeadByOrderID(ctx, orderID)
		return err
	})
	return lead, err
}

func (m *MemoryStore) CreateLead(ctx context.Context, lead *models.CrmLead) error {
	return m.with(func(tx *memoryTx) error { return tx.CreateLead(ctx, lead) })
}

func (m *MemoryStore) CreateLeadEvent(ctx context.Context, event *models.CrmLeadEvent) error {
	return m.with(func(tx *memoryTx) error { return tx.CreateLeadEvent(ctx, event) })
}

// Snapshot accessors, ordered by id.

func (m *MemoryStore) Customers() []models.Customer {
	m.mu.Lock()
	defer m.mu.Unlock()
	return sortedValues(m.state.customers, func(c models.Customer) uint { return c.ID })
}

func (m *MemoryStore) Orders() []models.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	return sortedValues(m.state.orders, func(o models.Order) uint { return o.ID })
}

func (m *MemoryStore) OrderItems() []models.OrderItem {
	m.mu.Lock()
	defer m.mu.Unlock()
	return sortedValues(m.state.orderItems, func(i models.OrderItem) uint { return i.ID })
}

func (m *MemoryStore) Leads() []models.CrmLead {
	m.mu.Lock()
	defer m.mu.Unlock()
	return sortedValues(m.state.leads, func(l models.CrmLead) uint { return l.ID })
}

func (m *MemoryStore) LeadEvents() []models.CrmLeadEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return sortedValues(m.state.leadEvents, func(e models.CrmLeadEvent) uint { return e.ID })
}

func sortedValues[T any](src map[uint]T, id func(T) uint) []T {
	out := make([]T, 0, len(src))
	for _, v := range src {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return id(out[i]) < id(out[j]) })
	return out
}

// memoryTx operates on a state without locking; the owning MemoryStore
// holds the lock.
type memoryTx struct {
	state *memoryState
}

func (t *memoryTx) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return fn(t)
}

func (t *memoryTx) Ping(ctx context.Context) error { return ctx.Err() }

func (t *memoryTx) CreateUser(ctx context.Context, user *models.User) error {
	for _, u := range t.state.users {
		if u.Email == user.Email {
			return fmt.Errorf("create user: %w: email %q", ErrDuplicate, user.Email)
		}
	}
	user.ID = t.state.id()
	user.CreatedAt, user.UpdatedAt = now(), now()
	t.state.users[user.ID] = *user
	return nil
}

func (t *memoryTx) FindUser(ctx context.Context, id uint) (*models.User, error) {
	u, ok := t.state.users[id]
	if !ok {
		return nil, fmt.Errorf("find user: %w", ErrNotFound)
	}
	return &u, nil
}

func (t *memoryTx) CreateIntegration(ctx context.Context, integration *models.Integration) error {
	if _, ok := t.state.integrationsByDomain[integration.Domain]; ok {
		return fmt.Errorf("create integration: %w: domain %q", ErrDuplicate, integration.Domain)
	}
	if _, ok := t.state.integrationsBySecret[integration.WebhookSecret]; ok {
		return fmt.Errorf("create integration: %w: webhook secret", ErrDuplicate)
	}
	integration.ID = t.state.id()
	integration.CreatedAt, integration.UpdatedAt = now(), now()
	stored := *integration
	stored.Orders = nil
	t.state.integrations[integration.ID] = stored
	t.state.integrationsByDomain[integration.Domain] = integration.ID
	t.state.integrationsBySecret[integration.WebhookSecret] = integration.ID
	return nil
}

func (t *memoryTx) FindIntegrationByDomain(ctx context.Context, domain string) (*models.Integration, error) {
	id, ok := t.state.integrationsByDomain[domain]
	if !ok {
		return nil, fmt.Errorf("find integration by domain: %w", ErrNotFound)
	}
	integration := t.state.integrations[id]
	return &integration, nil
}

func (t *memoryTx) FindIntegrationBySecret(ctx context.Context, secret string) (*models.Integration, error) {
	id, ok := t.state.integrationsBySecret[secret]
	if !ok {
		return nil, fmt.Errorf("find integration by secret: %w", ErrNotFound)
	}
	integration := t.state.integrations[id]
	return &integration, nil
}

func (t *memoryTx) FindCustomerByEmail(ctx context.Context, userID uint, email string) (*models.Customer, error) {
	id, ok := t.state.customersByEmail[customerKey{userID, email}]
	if !ok {
		return nil, fmt.Errorf("find customer: %w", ErrNotFound)
	}
	customer := t.state.customers[id]
	customer.Address = cloneJSON(customer.Address)
	return &customer, nil
}

func (t *memoryTx) CreateCustomer(ctx context.Context, customer *models.Customer) error {
	key := customerKey{customer.UserID, customer.Email}
	if _, ok := t.state.customersByEmail[key]; ok {
		return fmt.Errorf("create customer: %w: ux_customers_user_email", ErrDuplicate)
	}
	customer.ID = t.state.id()
	customer.CreatedAt, customer.UpdatedAt = now(), now()
	stored := *customer
	stored.Address = cloneJSON(customer.Address)
	stored.Orders = nil
	t.state.customers[customer.ID] = stored
	t.state.customersByEmail[key] = customer.ID
	return nil
}

func (t *memoryTx) UpdateCustomer(ctx context.Context, customer *models.Customer) error {
	stored, ok := t.state.customers[customer.ID]
	if !ok {
		return fmt.Errorf("update customer: %w", ErrNotFound)
	}
	stored.Name = customer.Name
	stored.Phone = customer.Phone
	stored.Address = cloneJSON(customer.Address)
	stored.UpdatedAt = now()
	customer.UpdatedAt = stored.UpdatedAt
	t.state.customers[customer.ID] = stored
	return nil
}

func (t *memoryTx) FindOrderByExternalID(ctx context.Context, integrationID uint, externalOrderID string) (*models.Order, error) {
	id, ok := t.state.ordersByExternalID[orderKey{integrationID, externalOrderID}]
	if !ok {
		return nil, fmt.Errorf("find order: %w", ErrNotFound)
	}
	order := t.state.orders[id]
	return &order, nil
}

func (t *memoryTx) CreateOrder(ctx context.Context, order *models.Order) error {
	key := orderKey{order.IntegrationID, order.ExternalOrderID}
	if _, ok := t.state.ordersByExternalID[key]; ok {
		return fmt.Errorf("create order: %w: ux_orders_integration_external", ErrDuplicate)
	}
	if _, ok := t.state.customers[order.CustomerID]; !ok {
		return fmt.Errorf("create order: customer %d does not exist", order.CustomerID)
	}
	order.ID = t.state.id()
	order.CreatedAt, order.UpdatedAt = now(), now()
	stored := *order
	stored.Items = nil
	stored.Customer = models.Customer{}
	t.state.orders[order.ID] = stored
	t.state.ordersByExternalID[key] = order.ID
	return nil
}

func (t *memoryTx) UpdateOrder(ctx context.Context, order *models.Order) error {
	stored, ok := t.state.orders[order.ID]
	if !ok {
		return fmt.Errorf("update order: %w", ErrNotFound)
	}
	stored.Status = order.Status
	stored.TotalAmount = order.TotalAmount
	stored.Currency = order.Currency
	stored.OrderCreatedAt = order.OrderCreatedAt
	stored.UpdatedAt = now()
	order.UpdatedAt = stored.UpdatedAt
	t.state.orders[order.ID] = stored
	return nil
}

func (t *memoryTx) CreateOrderItems(ctx context.Context, items []models.OrderItem) error {
	for i := range items {
		if _, ok := t.state.orders[items[i].OrderID]; !ok {
			return fmt.Errorf("create order items: order %d does not exist", items[i].OrderID)
		}
		if items[i].Quantity < 1 {
			return fmt.Errorf("create order items: quantity %d violates check constraint", items[i].Quantity)
		}
		items[i].ID = t.state.id()
		items[i].CreatedAt, items[i].UpdatedAt = now(), now()
		t.state.orderItems[items[i].ID] = items[i]
	}
	return nil
}

func (t *memoryTx) FindLeadByOrderID(ctx context.Context, orderID uint) (*models.CrmLead, error) {
	var found *models.CrmLead
	for _, l := range t.state.leads {
		if l.OrderID != nil && *l.OrderID == orderID && (found == nil || l.ID < found.ID) {
			lead := l
			found = &lead
		}
	}
	if found == nil {
		return nil, fmt.Errorf("find lead: %w", ErrNotFound)
	}
	return found, nil
}

func (t *memoryTx) CreateLead(ctx context.Context, lead *models.CrmLead) error {
	lead.ID = t.state.id()
	lead.CreatedAt, lead.UpdatedAt = now(), now()
	stored := *lead
	stored.Events = nil
	t.state.leads[lead.ID] = stored
	return nil
}

func (t *memoryTx) CreateLeadEvent(ctx context.Context, event *models.CrmLeadEvent) error {
	if _, ok := t.state.leads[event.LeadID]; !ok {
		return fmt.Errorf("create lead event: lead %d does not exist", event.LeadID)
	}
	event.ID = t.state.id()
	event.CreatedAt = now()
	stored := *event
	stored.Details = cloneJSON(event.Details)
	t.state.leadEvents[event.ID] = stored
	return nil
}

func now() time.Time { return time.Now().UTC() }

func cloneJSON(b datatypes.JSON) datatypes.JSON {
	if b == nil {
		return nil
	}
	return append(datatypes.JSON(nil), b...)
}
