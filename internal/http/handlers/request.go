package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/hongminglow/access-web-be/internal/apperr"
	"github.com/hongminglow/access-web-be/internal/auth"
	"github.com/hongminglow/access-web-be/internal/models"
)

const maxBodyBytes = 1 << 20

// decodeJSON reads a JSON body into dst. An empty body leaves dst untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return apperr.Wrap(apperr.ErrValidation, apperr.CodeValidation, "Invalid JSON payload.", err)
}

// principal returns the caller attached by the session middleware.
func principal(r *http.Request) (models.Principal, error) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		return models.Principal{}, apperr.New(apperr.ErrUnauthenticated, apperr.CodeUnauthenticated, "Authentication required.")
	}
	return p, nil
}
