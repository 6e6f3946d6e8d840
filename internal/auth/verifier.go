package auth

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	"github.com/hongminglow/access-web-be/internal/access"
	"github.com/hongminglow/access-web-be/internal/apperr"
	"github.com/hongminglow/access-web-be/internal/lockout"
	"github.com/hongminglow/access-web-be/internal/logging"
	"github.com/hongminglow/access-web-be/internal/models"
	"github.com/hongminglow/access-web-be/internal/redact"
	"github.com/hongminglow/access-web-be/internal/storage"
)

const minPasswordLength = 8

// maxPasswordBytes is the bcrypt input limit.
const maxPasswordBytes = 72

// Lockout is the part of the lockout tracker the verifier needs.
type Lockout interface {
	RecordFailedAttempt(ctx context.Context, identity string) (lockout.Record, error)
	IsAccountLocked(ctx context.Context, identity string) (bool, error)
	LockoutTimeRemaining(ctx context.Context, identity string) (int, error)
	ResetLockout(ctx context.Context, identity string) error
}

type LoginInput struct {
	Identifier  string
	Password    string
	AdminPortal bool
}

type LoginResult struct {
	Account models.Account
	Tokens  TokenPair
}

type RegisterInput struct {
	Email    string
	Username string
	Password string
}

// Verifier checks credentials and issues session tokens.
type Verifier struct {
	store    storage.AccountStore
	tokens   *TokenManager
	lockout  Lockout
	log      logging.Logger
	hashCost int
	now      func() time.Time
}

type VerifierOption func(*Verifier)

// WithHashCost overrides bcrypt.DefaultCost for new hashes.
func WithHashCost(cost int) VerifierOption {
	return func(v *Verifier) { v.hashCost = cost }
}

func NewVerifier(store storage.AccountStore, tokens *TokenManager, lock Lockout, log logging.Logger,
	opts ...VerifierOption) *Verifier {
	v := &Verifier{
		store:    store,
		tokens:   tokens,
		lockout:  lock,
		log:      log,
		hashCost: bcrypt.DefaultCost,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

func invalidCredentials() error {
	return apperr.New(apperr.ErrInvalidCredentials, apperr.CodeInvalidCredentials, "Invalid email or password.")
}

// Login verifies the credentials and the login portal, then issues tokens.
// Unknown accounts and wrong passwords produce the same error. The portal
// gate runs only after the password matched, so it reveals nothing about
// accounts the caller cannot authenticate as.
func (v *Verifier) Login(ctx context.Context, in LoginInput) (LoginResult, error) {
	identity := strings.TrimSpace(in.Identifier)
	if identity == "" || in.Password == "" {
		return LoginResult{}, apperr.New(apperr.ErrValidation, apperr.CodeMissingCredentials,
			"Email and password are required.")
	}

	locked, err := v.lockout.IsAccountLocked(ctx, identity)
	if err != nil {
		return LoginResult{}, apperr.Wrap(apperr.ErrExternalService, apperr.CodeInternal, "Login is temporarily unavailable.", err)
	}
	if locked {
		remaining, err := v.lockout.LockoutTimeRemaining(ctx, identity)
		if err != nil {
			return LoginResult{}, apperr.Wrap(apperr.ErrExternalService, apperr.CodeInternal, "Login is temporarily unavailable.", err)
		}
		if remaining < 1 {
			remaining = 1
		}
		return LoginResult{}, apperr.New(apperr.ErrAccountLocked, apperr.CodeAccountLocked,
			"Too many failed login attempts. Please try again later.").With("timeRemaining", remaining)
	}

	account, err := v.store.FindAccountByEmail(ctx, identity)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			return LoginResult{}, err
		}
		CheckPassword(dummyHash(), in.Password)
		v.recordFailure(ctx, identity)
		return LoginResult{}, invalidCredentials()
	}

	if !CheckPassword(account.PasswordHash, in.Password) {
		v.recordFailure(ctx, identity)
		return LoginResult{}, invalidCredentials()
	}

	if account.Disabled {
		return LoginResult{}, accountDisabled()
	}

	if err := access.PortalDecision(account, in.AdminPortal).Err(); err != nil {
		v.log.Info(ctx, "login portal mismatch", "account_id", account.ID, "admin_portal", in.AdminPortal)
		return LoginResult{}, err
	}

	if err := v.lockout.ResetLockout(ctx, identity); err != nil {
		v.log.Warn(ctx, "reset lockout failed", "error", redact.Error(err))
	}

	tokens, err := v.tokens.Issue(account.ID)
	if err != nil {
		return LoginResult{}, err
	}
	v.log.Info(ctx, "login succeeded", "account_id", account.ID, "admin_portal", in.AdminPortal)
	return LoginResult{Account: account, Tokens: tokens}, nil
}

func (v *Verifier) recordFailure(ctx context.Context, identity string) {
	if _, err := v.lockout.RecordFailedAttempt(ctx, identity); err != nil {
		v.log.Warn(ctx, "record failed login", "error", redact.Error(err))
	}
}

func accountDisabled() error {
	return apperr.New(apperr.ErrForbidden, apperr.CodeAccountDisabled, "This account has been disabled.")
}

// Register creates a user account together with its free subscription.
func (v *Verifier) Register(ctx context.Context, in RegisterInput) (models.Account, error) {
	email := strings.TrimSpace(in.Email)
	username := strings.TrimSpace(in.Username)
	if err := validateRegistration(email, in.Password); err != nil {
		return models.Account{}, err
	}

	hash, err := HashPassword(in.Password, v.hashCost)
	if err != nil {
		return models.Account{}, err
	}

	account := models.Account{
		Email:        email,
		Username:     username,
		PasswordHash: hash,
		Role:         models.RoleUser,
	}
	created, err := v.store.CreateAccount(ctx, account, models.FreeSubscription("", v.now()))
	if err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return models.Account{}, apperr.New(apperr.ErrConflict, apperr.CodeAccountExists,
				"An account with this email or username already exists.")
		}
		return models.Account{}, err
	}
	v.log.Info(ctx, "account registered", "account_id", created.ID)
	return created, nil
}

// Refresh exchanges a refresh token for a new token pair.
func (v *Verifier) Refresh(ctx context.Context, refreshToken string) (LoginResult, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return LoginResult{}, apperr.New(apperr.ErrUnauthenticated, apperr.CodeUnauthenticated, "Refresh token is required.")
	}
	accountID, err := v.tokens.ParseRefresh(refreshToken)
	if err != nil {
		return LoginResult{}, err
	}
	account, err := v.store.FindAccountByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return LoginResult{}, apperr.New(apperr.ErrUnauthenticated, apperr.CodeUnauthenticated, "Account no longer exists.")
		}
		return LoginResult{}, err
	}
	if account.Disabled {
		return LoginResult{}, accountDisabled()
	}
	tokens, err := v.tokens.Issue(account.ID)
	if err != nil {
		return LoginResult{}, err
	}
	return LoginResult{Account: account, Tokens: tokens}, nil
}

// ChangePassword replaces the password after re-checking the current one.
func (v *Verifier) ChangePassword(ctx context.Context, accountID, current, next string) error {
	account, err := v.store.FindAccountByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return apperr.New(apperr.ErrUnauthenticated, apperr.CodeUnauthenticated, "Account no longer exists.")
		}
		return err
	}
	if !CheckPassword(account.PasswordHash, current) {
		return apperr.New(apperr.ErrInvalidCredentials, apperr.CodeInvalidCredentials, "Current password is incorrect.")
	}
	if err := validatePassword(next); err != nil {
		return err
	}
	hash, err := HashPassword(next, v.hashCost)
	if err != nil {
		return err
	}
	if err := v.store.UpdatePasswordHash(ctx, accountID, hash); err != nil {
		return err
	}
	v.log.Info(ctx, "password changed", "account_id", accountID)
	return nil
}

func validateRegistration(email, password string) error {
	if email == "" || password == "" {
		return apperr.New(apperr.ErrValidation, apperr.CodeMissingCredentials, "Email and password are required.")
	}
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return apperr.New(apperr.ErrValidation, apperr.CodeValidation, "Email address is not valid.").With("field", "email")
	}
	return validatePassword(password)
}

func validatePassword(password string) error {
	if utf8.RuneCountInString(password) < minPasswordLength || !utf8.ValidString(password) {
		return apperr.New(apperr.ErrValidation, apperr.CodeValidation, "Password must be at least 8 characters.").
			With("field", "password")
	}
	if len(password) > maxPasswordBytes {
		return apperr.New(apperr.ErrValidation, apperr.CodeValidation, "Password must be at most 72 bytes.").
			With("field", "password")
	}
	return nil
}
