package httpx

import (
	"errors"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/zamsuite/zamsuite-auth/internal/shared"
)

const uniqueViolation = "23505"

// RespondError maps domain errors to the JSON envelopes used across the API:
// {message} for auth and lookup failures, {message, errors} for validation,
// {error, message} for invariant violations and unexpected failures.
func RespondError(w http.ResponseWriter, err error) {
	var ie *shared.InvariantError
	var ve *shared.ValidationError
	var pgErr *pgconn.PgError
	switch {
	case errors.As(err, &ie):
		JSON(w, http.StatusConflict, ErrorBody{Error: ie.Rule, Message: ie.Message})
	case errors.As(err, &ve):
		JSON(w, http.StatusUnprocessableEntity, ValidationBody{Message: "validation failed", Errors: ve.Fields})
	case errors.Is(err, shared.ErrNotFound):
		Message(w, http.StatusNotFound, "resource not found")
	case errors.Is(err, shared.ErrUnauthenticated), errors.Is(err, shared.ErrInvalidCredentials):
		Message(w, http.StatusUnauthorized, "unauthenticated")
	case errors.Is(err, shared.ErrForbidden):
		Message(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, shared.ErrDuplicate):
		JSON(w, http.StatusUnprocessableEntity, ValidationBody{Message: "duplicate entry", Errors: map[string]string{}})
	case errors.As(err, &pgErr) && pgErr.Code == uniqueViolation:
		JSON(w, http.StatusUnprocessableEntity, ValidationBody{
			Message: "duplicate entry",
			Errors:  map[string]string{pgErr.ColumnName: "already taken"},
		})
	default:
		JSON(w, http.StatusInternalServerError, ErrorBody{Error: "internal_error", Message: "something went wrong"})
	}
}
