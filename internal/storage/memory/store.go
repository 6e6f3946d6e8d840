// Package memory is an in-process implementation of storage.Store for
// single-instance development runs and tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hongminglow/access-web-be/internal/models"
	"github.com/hongminglow/access-web-be/internal/storage"
)

var _ storage.Store = (*Store)(nil)

type Store struct {
	mu            sync.RWMutex
	accounts      map[string]models.Account
	subscriptions map[string]models.Subscription
	payments      []models.Payment
	plans         map[int64]models.Plan
	nextPlanID    int64
	now           func() time.Time
}

func New() *Store {
	return &Store{
		accounts:      make(map[string]models.Account),
		subscriptions: make(map[string]models.Subscription),
		plans:         make(map[int64]models.Plan),
		nextPlanID:    1,
		now:           time.Now,
	}
}

func (s *Store) Close() {}

func (s *Store) CreateAccount(_ context.Context, account models.Account, sub models.Subscription) (models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.accounts {
		if existing.Email == account.Email {
			return models.Account{}, storage.ErrAlreadyExists
		}
		if account.Username != "" && existing.Username == account.Username {
			return models.Account{}, storage.ErrAlreadyExists
		}
	}

	now := s.now()
	if account.ID == "" {
		account.ID = uuid.NewString()
	}
	account.CreatedAt = now
	account.UpdatedAt = now
	s.accounts[account.ID] = account

	sub.AccountID = account.ID
	sub.CreatedAt = now
	sub.UpdatedAt = now
	s.subscriptions[account.ID] = sub
	return account, nil
}

func (s *Store) FindAccountByID(_ context.Context, id string) (models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[id]
	if !ok {
		return models.Account{}, storage.ErrNotFound
	}
	return a, nil
}

func (s *Store) FindAccountByEmail(_ context.Context, email string) (models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.accounts {
		if a.Email == email {
			return a, nil
		}
	}
	return models.Account{}, storage.ErrNotFound
}

func (s *Store) UpdatePasswordHash(_ context.Context, id, hash string) error {
	return s.mutateAccount(id, func(a *models.Account) { a.PasswordHash = hash })
}

func (s *Store) SetPaymentCustomerID(_ context.Context, id, customerID string) error {
	return s.mutateAccount(id, func(a *models.Account) { a.PaymentCustomerID = customerID })
}

func (s *Store) SetRole(_ context.Context, id, role string, canAccessUserFeatures bool) error {
	return s.mutateAccount(id, func(a *models.Account) {
		a.Role = role
		a.CanAccessUserFeatures = canAccessUserFeatures
	})
}

func (s *Store) SetDisabled(_ context.Context, id string, disabled bool) error {
	return s.mutateAccount(id, func(a *models.Account) { a.Disabled = disabled })
}

func (s *Store) mutateAccount(id string, fn func(*models.Account)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return storage.ErrNotFound
	}
	fn(&a)
	a.UpdatedAt = s.now()
	s.accounts[id] = a
	return nil
}

func (s *Store) FindSubscription(_ context.Context, accountID string) (models.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sub, ok := s.subscriptions[accountID]
	if !ok {
		return models.Subscription{}, storage.ErrNotFound
	}
	return sub, nil
}

func (s *Store) UpsertSubscription(_ context.Context, sub models.Subscription) (models.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[sub.AccountID]; !ok {
		return models.Subscription{}, storage.ErrNotFound
	}
	now := s.now()
	if existing, ok := s.subscriptions[sub.AccountID]; ok {
		sub.CreatedAt = existing.CreatedAt
	} else {
		sub.CreatedAt = now
	}
	sub.UpdatedAt = now
	s.subscriptions[sub.AccountID] = sub
	return sub, nil
}

func (s *Store) RecordPayment(_ context.Context, payment models.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.payments {
		if p.ProviderPaymentID == payment.ProviderPaymentID {
			return storage.ErrAlreadyExists
		}
	}
	if payment.ID == "" {
		payment.ID = uuid.NewString()
	}
	payment.CreatedAt = s.now()
	s.payments = append(s.payments, payment)
	return nil
}

func (s *Store) ApplyPayment(_ context.Context, payment models.Payment, sub models.Subscription) (models.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[sub.AccountID]; !ok {
		return models.Subscription{}, storage.ErrNotFound
	}

	now := s.now()
	idx := -1
	for i, p := range s.payments {
		if p.ProviderPaymentID != payment.ProviderPaymentID {
			continue
		}
		if p.Status == models.PaymentSucceeded {
			return models.Subscription{}, storage.ErrAlreadyExists
		}
		idx = i
	}
	if idx >= 0 {
		payment.ID = s.payments[idx].ID
		payment.CreatedAt = now
		s.payments = append(s.payments[:idx], s.payments[idx+1:]...)
	} else {
		if payment.ID == "" {
			payment.ID = uuid.NewString()
		}
		payment.CreatedAt = now
	}
	s.payments = append(s.payments, payment)

	if existing, ok := s.subscriptions[sub.AccountID]; ok {
		sub.CreatedAt = existing.CreatedAt
	} else {
		sub.CreatedAt = now
	}
	sub.UpdatedAt = now
	s.subscriptions[sub.AccountID] = sub
	return sub, nil
}

func (s *Store) ListPayments(_ context.Context, accountID string) ([]models.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Payment, 0)
	for i := len(s.payments) - 1; i >= 0; i-- {
		if s.payments[i].AccountID == accountID {
			out = append(out, s.payments[i])
		}
	}
	return out, nil
}

func (s *Store) ListPlans(_ context.Context, includeInactive bool) ([]models.Plan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Plan, 0, len(s.plans))
	for _, p := range s.plans {
		if includeInactive || p.IsActive {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) FindPlan(_ context.Context, id int64) (models.Plan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.plans[id]
	if !ok {
		return models.Plan{}, storage.ErrNotFound
	}
	return p, nil
}

func (s *Store) CreatePlan(_ context.Context, plan models.Plan) (models.Plan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.plans {
		if p.Name == plan.Name {
			return models.Plan{}, storage.ErrAlreadyExists
		}
	}
	plan.ID = s.nextPlanID
	s.nextPlanID++
	plan.CreatedAt = s.now()
	s.plans[plan.ID] = plan
	return plan, nil
}

// SeedDefaultPlans loads the same starter plans the postgres migrations
// insert, so a memory-backed server has something to sell.
func (s *Store) SeedDefaultPlans(ctx context.Context) error {
	defaults := []models.Plan{
		{Name: "Basic", Description: "Automated scans for a single site", PriceCents: 1900, Currency: "usd", Period: "month",
			Features: []string{"accessibility-scan"}, IsActive: true, SortOrder: 1},
		{Name: "Professional", Description: "Full WCAG audits and API access", PriceCents: 4900, Currency: "usd", Period: "month",
			Features: []string{"accessibility-scan", "wcag-audit", "api-access"}, IsPopular: true, IsActive: true, SortOrder: 2},
		{Name: "Enterprise", Description: "White-label reports for agencies", PriceCents: 14900, Currency: "usd", Period: "month",
			Features: []string{"accessibility-scan", "wcag-audit", "api-access", "white-label"}, IsActive: true, SortOrder: 3},
	}
	for _, p := range defaults {
		if _, err := s.CreatePlan(ctx, p); err != nil && err != storage.ErrAlreadyExists {
			return err
		}
	}
	return nil
}
