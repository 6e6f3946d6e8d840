// Command createadmin creates an admin account, or promotes an existing
// one, in the configured Postgres database.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"

	"github.com/hongminglow/access-web-be/internal/auth"
	"github.com/hongminglow/access-web-be/internal/models"
	"github.com/hongminglow/access-web-be/internal/storage"
	"github.com/hongminglow/access-web-be/internal/storage/postgres"
)

var readPassword = term.ReadPassword

func main() {
	email := flag.String("email", "", "admin email (required)")
	username := flag.String("username", "", "optional username")
	dual := flag.Bool("dual", false, "also allow the account into the user portal")
	flag.Parse()

	if err := run(*email, *username, *dual); err != nil {
		fmt.Fprintf(os.Stderr, "createadmin: %v\n", err)
		os.Exit(1)
	}
}

func run(email, username string, dual bool) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return errors.New("-email is required")
	}
	_ = godotenv.Load()
	dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dbURL == "" {
		return errors.New("DATABASE_URL is required")
	}

	ctx := context.Background()
	store, err := postgres.NewStore(ctx, dbURL)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	defer store.Close()

	_, existsErr := store.FindAccountByEmail(ctx, email)
	var password string
	if errors.Is(existsErr, storage.ErrNotFound) {
		password, err = promptPassword(os.Stdin, os.Stderr)
		if err != nil {
			return err
		}
	}

	account, created, err := ensureAdmin(ctx, store, email, username, password, dual, bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if created {
		fmt.Printf("created admin %s (id=%s, dual=%t)\n", account.Email, account.ID, dual)
	} else {
		fmt.Printf("promoted %s (id=%s) to admin (dual=%t)\n", account.Email, account.ID, dual)
	}
	return nil
}

// ensureAdmin promotes the account registered under email, or creates it
// with password when it does not exist yet.
func ensureAdmin(ctx context.Context, store storage.AccountStore, email, username, password string, dual bool, cost int) (models.Account, bool, error) {
	existing, err := store.FindAccountByEmail(ctx, email)
	switch {
	case err == nil:
		if err := store.SetRole(ctx, existing.ID, models.RoleAdmin, dual); err != nil {
			return models.Account{}, false, err
		}
		existing.Role, existing.CanAccessUserFeatures = models.RoleAdmin, dual
		return existing, false, nil
	case !errors.Is(err, storage.ErrNotFound):
		return models.Account{}, false, err
	}

	if len([]rune(password)) < 8 {
		return models.Account{}, false, errors.New("password must be at least 8 characters")
	}
	hash, err := auth.HashPassword(password, cost)
	if err != nil {
		return models.Account{}, false, err
	}
	account, err := store.CreateAccount(ctx, models.Account{
		Email:                 email,
		Username:              strings.TrimSpace(username),
		PasswordHash:          hash,
		Role:                  models.RoleAdmin,
		CanAccessUserFeatures: dual,
	}, models.FreeSubscription("", time.Now()))
	if err != nil {
		return models.Account{}, false, err
	}
	return account, true, nil
}

// promptPassword reads the password without echo from a terminal, or one
// line from in when it is piped.
func promptPassword(in *os.File, out io.Writer) (string, error) {
	fd := int(in.Fd())
	if !term.IsTerminal(fd) {
		line, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", err
		}
		return strings.TrimRight(line, "\r\n"), nil
	}

	fmt.Fprint(out, "Password: ")
	first, err := readPassword(fd)
	fmt.Fprintln(out)
	if err != nil {
		return "", err
	}
	fmt.Fprint(out, "Confirm password: ")
	second, err := readPassword(fd)
	fmt.Fprintln(out)
	if err != nil {
		return "", err
	}
	if string(first) != string(second) {
		return "", errors.New("passwords do not match")
	}
	return string(first), nil
}
