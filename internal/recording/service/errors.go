package service

import (
	"errors"
	"net/http"

	pgx "github.com/jackc/pgx/v4"

	"github.com/AlibekovAA/recordkeeper/internal/common/db"
	commonerrors "github.com/AlibekovAA/recordkeeper/internal/common/errors"
)

var (
	ErrInvalidDate = commonerrors.NewDomainError(
		"INVALID_DATE",
		commonerrors.CategoryValidation,
		http.StatusBadRequest,
		"date must be RFC 3339 or YYYY-MM-DD",
	)

	ErrInvalidPagination = commonerrors.NewDomainError(
		"INVALID_PAGINATION",
		commonerrors.CategoryValidation,
		http.StatusBadRequest,
		"page must be >= 1 and limit between 1 and 100",
	)

	ErrInvalidRecord = commonerrors.NewDomainError(
		"INVALID_RECORD",
		commonerrors.CategoryValidation,
		http.StatusBadRequest,
		"invalid recording",
	)

	ErrRejectedValue = commonerrors.NewDomainError(
		"INVALID_VALUE",
		commonerrors.CategoryValidation,
		http.StatusBadRequest,
		"value rejected by the store",
	)

	ErrServiceUnavailable = commonerrors.NewDomainError(
		"SERVICE_UNAVAILABLE",
		commonerrors.CategoryExternal,
		http.StatusServiceUnavailable,
		"service temporarily unavailable",
	)
)

func handleCircuitBreakerError(err error) error {
	switch {
	case errors.Is(err, commonerrors.ErrCircuitOpen):
		return ErrServiceUnavailable.WithCause(err)
	case db.IsDataException(err), db.IsConstraintViolation(err):
		return ErrRejectedValue.WithCause(err)
	}
	return err
}

// isStoreFailure counts only errors that say something about the database.
func isStoreFailure(err error) bool {
	if errors.Is(err, pgx.ErrNoRows) || commonerrors.IsDomainError(err) {
		return false
	}
	return !db.IsCallerError(err)
}
