package services

import (
	"context"
	"sort"
	"sync"

	"github.com/counterjob/backend/internal/models"
	"github.com/counterjob/backend/internal/notify"
	"github.com/counterjob/backend/internal/repository"
	"github.com/stretchr/testify/mock"
)

// --- in-memory repositories ---

type memProducts struct {
	mu           sync.Mutex
	items        map[string]models.Product
	decrementErr map[string]error
	increments   map[string]int
}

func newMemProducts(ps ...models.Product) *memProducts {
	m := &memProducts{items: map[string]models.Product{}, decrementErr: map[string]error{}, increments: map[string]int{}}
	for _, p := range ps {
		m.items[p.Barcode] = p
	}
	return m
}

func (m *memProducts) List(ctx context.Context) ([]models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Product{}
	for _, p := range m.items {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memProducts) FindByBarcode(ctx context.Context, barcode string) (*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.items[barcode]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (m *memProducts) Create(ctx context.Context, p *models.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[p.Barcode]; ok {
		return repository.ErrDuplicateBarcode
	}
	if p.ID == "" {
		p.ID = "id-" + p.Barcode
	}
	m.items[p.Barcode] = *p
	return nil
}

func (m *memProducts) SetStock(ctx context.Context, barcode string, stock int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.items[barcode]
	if !ok {
		return repository.ErrNotFound
	}
	p.Stock = stock
	m.items[barcode] = p
	return nil
}

func (m *memProducts) DecrementStock(ctx context.Context, barcode string, qty int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.decrementErr[barcode]; err != nil {
		return err
	}
	p, ok := m.items[barcode]
	if !ok {
		return repository.ErrNotFound
	}
	if p.Stock < qty {
		return repository.ErrInsufficientStock
	}
	p.Stock -= qty
	m.items[barcode] = p
	return nil
}

func (m *memProducts) IncrementStock(ctx context.Context, barcode string, qty int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.items[barcode]
	if !ok {
		return repository.ErrNotFound
	}
	p.Stock += qty
	m.items[barcode] = p
	m.increments[barcode] += qty
	return nil
}

func (m *memProducts) EnsureIndexes(ctx context.Context) error { return nil }

func (m *memProducts) stock(barcode string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.items[barcode].Stock
}

type memCarts struct {
	mu    sync.Mutex
	carts map[string]models.Cart
}

func newMemCarts() *memCarts { return &memCarts{carts: map[string]models.Cart{}} }

func (m *memCarts) Get(ctx context.Context, email string) (*models.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.carts[email]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c.Items = append([]models.CartItem(nil), c.Items...)
	return &c, nil
}

func (m *memCarts) Save(ctx context.Context, cart *models.Cart) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *cart
	c.Items = append([]models.CartItem(nil), cart.Items...)
	m.carts[cart.UserEmail] = c
	return nil
}

func (m *memCarts) Delete(ctx context.Context, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.carts, email)
	return nil
}

type memReceipts struct {
	mu        sync.Mutex
	receipts  map[string]models.Receipt
	createErr error
}

func newMemReceipts() *memReceipts { return &memReceipts{receipts: map[string]models.Receipt{}} }

func (m *memReceipts) Create(ctx context.Context, r *models.Receipt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	m.receipts[r.Email+"/"+r.ReceiptID] = *r
	return nil
}

func (m *memReceipts) Find(ctx context.Context, email, id string) (*models.Receipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.receipts[email+"/"+id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &r, nil
}

func (m *memReceipts) ListByEmail(ctx context.Context, email string) ([]models.Receipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Receipt{}
	for _, r := range m.receipts {
		if r.Email == email {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DatePurchased.After(out[j].DatePurchased) })
	return out, nil
}

func (m *memReceipts) Delete(ctx context.Context, email, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.receipts[email+"/"+id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.receipts, email+"/"+id)
	return nil
}

type memUsers struct {
	mu    sync.Mutex
	users map[string]models.User
}

func newMemUsers() *memUsers { return &memUsers{users: map[string]models.User{}} }

func (m *memUsers) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[email]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (m *memUsers) Upsert(ctx context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.Email] = *u
	return nil
}

func (m *memUsers) SetLoggedIn(ctx context.Context, email string, loggedIn bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[email]
	if !ok {
		return repository.ErrNotFound
	}
	u.LoggedIn = loggedIn
	m.users[email] = u
	return nil
}

func (m *memUsers) Rekey(ctx context.Context, oldEmail string, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.Email]; ok {
		return repository.ErrDuplicateEmail
	}
	delete(m.users, oldEmail)
	m.users[u.Email] = *u
	return nil
}

// --- mocks for side effects ---

type MockPublisher struct{ mock.Mock }

func (m *MockPublisher) Publish(ctx context.Context, topicArn, eventType string, message []byte) error {
	args := m.Called(ctx, topicArn, eventType, message)
	return args.Error(0)
}

type MockArchiver struct{ mock.Mock }

func (m *MockArchiver) PutJSON(ctx context.Context, name string, body []byte) error {
	args := m.Called(ctx, name, body)
	return args.Error(0)
}

type MockMailer struct{ mock.Mock }

func (m *MockMailer) SendEmail(ctx context.Context, to, subject, body string) (notify.SendResult, error) {
	args := m.Called(ctx, to, subject, body)
	return notify.SendResult{MessageID: "test"}, args.Error(0)
}

type MockMetrics struct{ mock.Mock }

func (m *MockMetrics) RecordCount(ctx context.Context, name string, dims map[string]string) error {
	args := m.Called(ctx, name, dims)
	return args.Error(0)
}

func (m *MockMetrics) RecordValue(ctx context.Context, name string, value float64, dims map[string]string) error {
	args := m.Called(ctx, name, value, dims)
	return args.Error(0)
}

var (
	milk  = models.Product{ID: "p1", Barcode: "4800361384478", Name: "Fresh Milk", Brand: "Alaska", Price: 89.75, Stock: 5}
	chips = models.Product{ID: "p2", Barcode: "4800016644290", Name: "Piattos", Brand: "Jack n Jill", Price: 35.50, Stock: 2}
)

var errInsufficientRace = repository.ErrInsufficientStock
