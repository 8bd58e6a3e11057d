package service

import (
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/nurpe/giga-contracts/internal/metrics"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidStatus     = errors.New("invalid status")
	ErrDependencyFailure = errors.New("dependency failure")
	ErrPermissionDenied  = errors.New("permission denied")
	ErrInvalidInput      = errors.New("invalid input")

	ErrContractNotFound = &NotFoundError{Resource: "Contract"}
	ErrDraftNotFound    = &NotFoundError{Resource: "Draft"}
)

// NotFoundError names the missing resource and matches ErrNotFound.
type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string {
	return e.Resource + " not found"
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

func isRecordNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// isBusinessError reports whether err is a validated outcome callers branch on.
func isBusinessError(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrInvalidStatus)
}

// normalizeTxError is applied once at the transaction boundary. Business
// errors pass through untouched; anything else is logged and replaced by
// ErrDependencyFailure.
func normalizeTxError(log zerolog.Logger, m *metrics.Metrics, operation string, contractID uuid.UUID, err error) error {
	if isBusinessError(err) {
		return err
	}
	event := log.Error().Err(err).Str("operation", operation)
	if contractID != uuid.Nil {
		event = event.Str("contract_id", contractID.String())
	}
	event.Msg("transaction rolled back")
	m.IncDependencyFailure(operation)
	return ErrDependencyFailure
}
