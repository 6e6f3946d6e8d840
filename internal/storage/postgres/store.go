package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/hongminglow/access-web-be/internal/models"
	"github.com/hongminglow/access-web-be/internal/storage"
	"github.com/hongminglow/access-web-be/internal/storage/postgres/migrations"
)

// Ensure Store satisfies the storage.Store interface at compile time.
var _ storage.Store = (*Store)(nil)

// Store provides Postgres-backed persistence.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore connects to the database and applies pending migrations.
func NewStore(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	s := &Store{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return s, nil
}

// Close releases database resources.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *Store) migrate(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(s.pool)
	defer db.Close()

	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

const accountColumns = `a.id::text, a.email, COALESCE(a.username, ''), a.password_hash, a.role,
	a.can_access_user_features, a.disabled, COALESCE(a.payment_customer_id, ''), a.created_at, a.updated_at`

// CreateAccount inserts the account and its initial subscription in one transaction.
func (s *Store) CreateAccount(ctx context.Context, account models.Account, sub models.Subscription) (models.Account, error) {
	if account.ID == "" {
		account.ID = uuid.NewString()
	}

	var created models.Account
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		const insertAccount = `
		INSERT INTO accounts AS a (id, email, username, password_hash, role, can_access_user_features)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6)
		RETURNING ` + accountColumns
		row := tx.QueryRow(ctx, insertAccount, account.ID, account.Email, account.Username,
			account.PasswordHash, account.Role, account.CanAccessUserFeatures)
		var err error
		if created, err = scanAccount(row); err != nil {
			return err
		}

		const insertSub = `
		INSERT INTO subscriptions (account_id, plan, status, current_period_end, provider_subscription_id)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''))`
		_, err = tx.Exec(ctx, insertSub, created.ID, sub.Plan, sub.Status, sub.PeriodEnd, sub.ProviderSubscriptionID)
		return err
	})
	if err != nil {
		if isUniqueViolation(err) {
			return models.Account{}, storage.ErrAlreadyExists
		}
		return models.Account{}, err
	}
	return created, nil
}

// FindAccountByID fetches an account by id.
func (s *Store) FindAccountByID(ctx context.Context, id string) (models.Account, error) {
	if _, err := uuid.Parse(id); err != nil {
		return models.Account{}, storage.ErrNotFound
	}
	query := `SELECT ` + accountColumns + ` FROM accounts a WHERE a.id = $1`
	return scanAccount(s.pool.QueryRow(ctx, query, id))
}

// FindAccountByEmail fetches an account by exact email.
func (s *Store) FindAccountByEmail(ctx context.Context, email string) (models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts a WHERE a.email = $1`
	return scanAccount(s.pool.QueryRow(ctx, query, email))
}

func (s *Store) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	return s.execAccount(ctx, `UPDATE accounts SET password_hash = $2, updated_at = NOW() WHERE id = $1`, id, hash)
}

func (s *Store) SetPaymentCustomerID(ctx context.Context, id, customerID string) error {
	return s.execAccount(ctx, `UPDATE accounts SET payment_customer_id = $2, updated_at = NOW() WHERE id = $1`, id, customerID)
}

func (s *Store) SetRole(ctx context.Context, id, role string, canAccessUserFeatures bool) error {
	return s.execAccount(ctx, `UPDATE accounts SET role = $2, can_access_user_features = $3, updated_at = NOW() WHERE id = $1`,
		id, role, canAccessUserFeatures)
}

func (s *Store) SetDisabled(ctx context.Context, id string, disabled bool) error {
	return s.execAccount(ctx, `UPDATE accounts SET disabled = $2, updated_at = NOW() WHERE id = $1`, id, disabled)
}

func (s *Store) execAccount(ctx context.Context, query, id string, args ...any) error {
	if _, err := uuid.Parse(id); err != nil {
		return storage.ErrNotFound
	}
	tag, err := s.pool.Exec(ctx, query, append([]any{id}, args...)...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// FindSubscription fetches the subscription row of an account.
func (s *Store) FindSubscription(ctx context.Context, accountID string) (models.Subscription, error) {
	if _, err := uuid.Parse(accountID); err != nil {
		return models.Subscription{}, storage.ErrNotFound
	}
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE account_id = $1`
	return scanSubscription(s.pool.QueryRow(ctx, query, accountID))
}

const subscriptionColumns = `account_id::text, plan, status, current_period_end, COALESCE(provider_subscription_id, ''), created_at, updated_at`

const upsertSubscriptionSQL = `
	INSERT INTO subscriptions (account_id, plan, status, current_period_end, provider_subscription_id)
	VALUES ($1, $2, $3, $4, NULLIF($5, ''))
	ON CONFLICT (account_id) DO UPDATE SET
		plan = EXCLUDED.plan,
		status = EXCLUDED.status,
		current_period_end = EXCLUDED.current_period_end,
		provider_subscription_id = EXCLUDED.provider_subscription_id,
		updated_at = NOW()
	RETURNING ` + subscriptionColumns

type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func upsertSubscription(ctx context.Context, q rowQuerier, sub models.Subscription) (models.Subscription, error) {
	row := q.QueryRow(ctx, upsertSubscriptionSQL, sub.AccountID, sub.Plan, sub.Status, sub.PeriodEnd, sub.ProviderSubscriptionID)
	return scanSubscription(row)
}

// UpsertSubscription creates or replaces the subscription of an account.
func (s *Store) UpsertSubscription(ctx context.Context, sub models.Subscription) (models.Subscription, error) {
	out, err := upsertSubscription(ctx, s.pool, sub)
	if err != nil {
		if isForeignKeyViolation(err) {
			return models.Subscription{}, storage.ErrNotFound
		}
		return models.Subscription{}, err
	}
	return out, nil
}

// ApplyPayment stores a succeeded payment and the resulting subscription
// in one transaction. A failed row for the same intent is overwritten.
func (s *Store) ApplyPayment(ctx context.Context, p models.Payment, sub models.Subscription) (models.Subscription, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}

	var out models.Subscription
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		const upsertPayment = `
		INSERT INTO payments (id, account_id, plan_id, plan_name, amount_cents, currency, status, provider_payment_id)
		VALUES ($1, $2, NULLIF($3, 0), $4, $5, $6, $7, $8)
		ON CONFLICT (provider_payment_id) DO UPDATE SET
			plan_id = EXCLUDED.plan_id,
			plan_name = EXCLUDED.plan_name,
			amount_cents = EXCLUDED.amount_cents,
			currency = EXCLUDED.currency,
			status = EXCLUDED.status,
			created_at = NOW()
		WHERE payments.status <> EXCLUDED.status`
		tag, err := tx.Exec(ctx, upsertPayment, p.ID, p.AccountID, p.PlanID, p.PlanName, p.AmountCents, p.Currency,
			models.PaymentSucceeded, p.ProviderPaymentID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return storage.ErrAlreadyExists
		}
		out, err = upsertSubscription(ctx, tx, sub)
		return err
	})
	if err != nil {
		if isForeignKeyViolation(err) {
			return models.Subscription{}, storage.ErrNotFound
		}
		return models.Subscription{}, err
	}
	return out, nil
}

// RecordPayment inserts a payment unless its provider id was already recorded.
func (s *Store) RecordPayment(ctx context.Context, p models.Payment) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	const query = `
	INSERT INTO payments (id, account_id, plan_id, plan_name, amount_cents, currency, status, provider_payment_id)
	VALUES ($1, $2, NULLIF($3, 0), $4, $5, $6, $7, $8)
	ON CONFLICT (provider_payment_id) DO NOTHING`
	tag, err := s.pool.Exec(ctx, query, p.ID, p.AccountID, p.PlanID, p.PlanName, p.AmountCents, p.Currency, p.Status, p.ProviderPaymentID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrAlreadyExists
	}
	return nil
}

// ListPayments returns an account's payments, newest first.
func (s *Store) ListPayments(ctx context.Context, accountID string) ([]models.Payment, error) {
	if _, err := uuid.Parse(accountID); err != nil {
		return []models.Payment{}, nil
	}
	const query = `
	SELECT id::text, account_id::text, COALESCE(plan_id, 0), plan_name, amount_cents, currency, status, provider_payment_id, created_at
	FROM payments WHERE account_id = $1 ORDER BY created_at DESC`
	rows, err := s.pool.Query(ctx, query, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.Payment, 0)
	for rows.Next() {
		var p models.Payment
		if err := rows.Scan(&p.ID, &p.AccountID, &p.PlanID, &p.PlanName, &p.AmountCents, &p.Currency, &p.Status, &p.ProviderPaymentID, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

const planColumns = `id, name, description, price_cents, currency, period, features, is_popular, is_active, sort_order, created_at`

// ListPlans returns plans ordered for display.
func (s *Store) ListPlans(ctx context.Context, includeInactive bool) ([]models.Plan, error) {
	query := `SELECT ` + planColumns + ` FROM pricing_plans WHERE $1 OR is_active ORDER BY sort_order, id`
	rows, err := s.pool.Query(ctx, query, includeInactive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.Plan, 0)
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// FindPlan fetches a plan by id.
func (s *Store) FindPlan(ctx context.Context, id int64) (models.Plan, error) {
	query := `SELECT ` + planColumns + ` FROM pricing_plans WHERE id = $1`
	return scanPlan(s.pool.QueryRow(ctx, query, id))
}

// CreatePlan inserts a new pricing plan.
func (s *Store) CreatePlan(ctx context.Context, p models.Plan) (models.Plan, error) {
	if p.Features == nil {
		p.Features = []string{}
	}
	query := `
	INSERT INTO pricing_plans (name, description, price_cents, currency, period, features, is_popular, is_active, sort_order)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	RETURNING ` + planColumns
	row := s.pool.QueryRow(ctx, query, p.Name, p.Description, p.PriceCents, p.Currency, p.Period, p.Features, p.IsPopular, p.IsActive, p.SortOrder)
	created, err := scanPlan(row)
	if err != nil {
		if isUniqueViolation(err) {
			return models.Plan{}, storage.ErrAlreadyExists
		}
		return models.Plan{}, err
	}
	return created, nil
}

func scanAccount(row pgx.Row) (models.Account, error) {
	var a models.Account
	if err := row.Scan(&a.ID, &a.Email, &a.Username, &a.PasswordHash, &a.Role,
		&a.CanAccessUserFeatures, &a.Disabled, &a.PaymentCustomerID, &a.CreatedAt, &a.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Account{}, storage.ErrNotFound
		}
		return models.Account{}, err
	}
	return a, nil
}

func scanSubscription(row pgx.Row) (models.Subscription, error) {
	var sub models.Subscription
	if err := row.Scan(&sub.AccountID, &sub.Plan, &sub.Status, &sub.PeriodEnd, &sub.ProviderSubscriptionID, &sub.CreatedAt, &sub.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Subscription{}, storage.ErrNotFound
		}
		return models.Subscription{}, err
	}
	return sub, nil
}

func scanPlan(row pgx.Row) (models.Plan, error) {
	var p models.Plan
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &p.PriceCents, &p.Currency, &p.Period, &p.Features,
		&p.IsPopular, &p.IsActive, &p.SortOrder, &p.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Plan{}, storage.ErrNotFound
		}
		return models.Plan{}, err
	}
	return p, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}
