package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hongminglow/access-web-be/internal/models"
	"github.com/hongminglow/access-web-be/internal/storage"
)

func TestCreateAccount_CreatesSubscriptionAlongside(t *testing.T) {
	ctx := context.Background()
	s := New()

	acc, err := s.CreateAccount(ctx, models.Account{Email: "a@x.com", Username: "a", Role: models.RoleUser},
		models.FreeSubscription("", time.Now()))
	require.NoError(t, err)
	require.NotEmpty(t, acc.ID)

	sub, err := s.FindSubscription(ctx, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PlanFree, sub.Plan)
	assert.Equal(t, models.SubscriptionActive, sub.Status)
}

func TestCreateAccount_Duplicates(t *testing.T) {
	ctx := context.Background()
	s := New()
	_, err := s.CreateAccount(ctx, models.Account{Email: "a@x.com", Username: "a"}, models.Subscription{})
	require.NoError(t, err)

	_, err = s.CreateAccount(ctx, models.Account{Email: "a@x.com", Username: "b"}, models.Subscription{})
	assert.ErrorIs(t, err, storage.ErrAlreadyExists)

	_, err = s.CreateAccount(ctx, models.Account{Email: "b@x.com", Username: "a"}, models.Subscription{})
	assert.ErrorIs(t, err, storage.ErrAlreadyExists)
}

func TestFindAccountByEmail_IsCaseSensitive(t *testing.T) {
	ctx := context.Background()
	s := New()
	_, err := s.CreateAccount(ctx, models.Account{Email: "User@x.com"}, models.Subscription{})
	require.NoError(t, err)

	_, err = s.FindAccountByEmail(ctx, "user@x.com")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = s.FindAccountByEmail(ctx, "User@x.com")
	assert.NoError(t, err)
}

func TestAccountMutations(t *testing.T) {
	ctx := context.Background()
	s := New()
	acc, err := s.CreateAccount(ctx, models.Account{Email: "a@x.com", Role: models.RoleUser}, models.Subscription{})
	require.NoError(t, err)

	require.NoError(t, s.SetRole(ctx, acc.ID, models.RoleAdmin, true))
	require.NoError(t, s.SetDisabled(ctx, acc.ID, true))
	require.NoError(t, s.SetPaymentCustomerID(ctx, acc.ID, "cus_1"))
	require.NoError(t, s.UpdatePasswordHash(ctx, acc.ID, "hash"))

	got, err := s.FindAccountByID(ctx, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, got.Role)
	assert.True(t, got.CanAccessUserFeatures)
	assert.True(t, got.Disabled)
	assert.Equal(t, "cus_1", got.PaymentCustomerID)
	assert.Equal(t, "hash", got.PasswordHash)

	assert.ErrorIs(t, s.SetDisabled(ctx, "missing", true), storage.ErrNotFound)
}

func TestRecordPayment_IdempotentOnProviderID(t *testing.T) {
	ctx := context.Background()
	s := New()

	p := models.Payment{AccountID: "acc", ProviderPaymentID: "pi_1", Status: models.PaymentSucceeded}
	require.NoError(t, s.RecordPayment(ctx, p))
	assert.ErrorIs(t, s.RecordPayment(ctx, p), storage.ErrAlreadyExists)

	list, err := s.ListPayments(ctx, "acc")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestPlans_SortedAndFiltered(t *testing.T) {
	ctx := context.Background()
	s := New()
	_, err := s.CreatePlan(ctx, models.Plan{Name: "Enterprise", SortOrder: 3, IsActive: true})
	require.NoError(t, err)
	_, err = s.CreatePlan(ctx, models.Plan{Name: "Legacy", SortOrder: 0, IsActive: false})
	require.NoError(t, err)
	basic, err := s.CreatePlan(ctx, models.Plan{Name: "Basic", SortOrder: 1, IsActive: true})
	require.NoError(t, err)

	active, err := s.ListPlans(ctx, false)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, "Basic", active[0].Name)
	assert.Equal(t, "Enterprise", active[1].Name)

	all, err := s.ListPlans(ctx, true)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	got, err := s.FindPlan(ctx, basic.ID)
	require.NoError(t, err)
	assert.Equal(t, "Basic", got.Name)

	_, err = s.CreatePlan(ctx, models.Plan{Name: "Basic"})
	assert.ErrorIs(t, err, storage.ErrAlreadyExists)
}

func TestUpsertSubscription_RequiresAccount(t *testing.T) {
	ctx := context.Background()
	s := New()
	_, err := s.UpsertSubscription(ctx, models.Subscription{AccountID: "ghost", Plan: "pro"})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSeedDefaultPlans_IsRepeatable(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.SeedDefaultPlans(ctx))
	require.NoError(t, s.SeedDefaultPlans(ctx))

	plans, err := s.ListPlans(ctx, false)
	require.NoError(t, err)
	require.Len(t, plans, 3)
	assert.Equal(t, "Basic", plans[0].Name)
	assert.True(t, plans[1].IsPopular)
}

func TestApplyPayment(t *testing.T) {
	ctx := context.Background()
	s := New()
	acc, err := s.CreateAccount(ctx, models.Account{Email: "pay@x.com"}, models.FreeSubscription("", time.Now()))
	require.NoError(t, err)

	failed := models.Payment{AccountID: acc.ID, ProviderPaymentID: "pi_1", Status: models.PaymentFailed}
	require.NoError(t, s.RecordPayment(ctx, failed))

	paid := failed
	paid.Status = models.PaymentSucceeded
	sub, err := s.ApplyPayment(ctx, paid, models.Subscription{AccountID: acc.ID, Plan: "basic", Status: models.SubscriptionActive})
	require.NoError(t, err)
	assert.Equal(t, "basic", sub.Plan)

	list, err := s.ListPayments(ctx, acc.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, models.PaymentSucceeded, list[0].Status)

	_, err = s.ApplyPayment(ctx, paid, models.Subscription{AccountID: acc.ID, Plan: "enterprise", Status: models.SubscriptionActive})
	assert.ErrorIs(t, err, storage.ErrAlreadyExists)
	got, err := s.FindSubscription(ctx, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, "basic", got.Plan)
}

func TestApplyPayment_UnknownAccountWritesNothing(t *testing.T) {
	ctx := context.Background()
	s := New()
	p := models.Payment{AccountID: "ghost", ProviderPaymentID: "pi_2", Status: models.PaymentSucceeded}
	_, err := s.ApplyPayment(ctx, p, models.Subscription{AccountID: "ghost", Plan: "basic"})
	assert.ErrorIs(t, err, storage.ErrNotFound)

	list, err := s.ListPayments(ctx, "ghost")
	require.NoError(t, err)
	assert.Empty(t, list)
}
