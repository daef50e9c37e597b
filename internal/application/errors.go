package application

import (
	"errors"

	"github.com/wms-platform/stock-ledger-service/internal/domain"
	apperrors "github.com/wms-platform/stock-ledger-service/pkg/errors"
)

// MapError translates domain errors into transport-level AppErrors.
// Mapping is by sentinel identity, not message matching, so wrapped
// errors keep their classification.
func MapError(err error) *apperrors.AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := apperrors.AsAppError(err); ok {
		return appErr
	}

	switch {
	case errors.Is(err, domain.ErrItemNotFound):
		return apperrors.ErrNotFound("item").Wrap(err)
	case errors.Is(err, domain.ErrLocationNotFound):
		return apperrors.ErrNotFound("location").Wrap(err)
	case errors.Is(err, domain.ErrReasonCodeNotFound):
		return apperrors.ErrNotFound("reason code").Wrap(err)
	case errors.Is(err, domain.ErrEventNotFound):
		return apperrors.ErrNotFound("stock event").Wrap(err)
	case errors.Is(err, domain.ErrSiteMismatch):
		return apperrors.ErrSiteMismatch(err.Error()).Wrap(err)
	case errors.Is(err, domain.ErrInvalidConversion):
		return apperrors.ErrInvalidConversion(err.Error()).Wrap(err)
	case errors.Is(err, domain.ErrReasonCodeTypeMismatch):
		return apperrors.ErrReasonCodeTypeMismatch(err.Error()).Wrap(err)
	case errors.Is(err, domain.ErrNegativeBalance):
		return apperrors.ErrNegativeBalance(err.Error()).Wrap(err)
	case errors.Is(err, domain.ErrConcurrencyConflict):
		return apperrors.ErrConcurrencyConflict(err.Error()).Wrap(err)
	case errors.Is(err, domain.ErrInvalidEventType),
		errors.Is(err, domain.ErrInvalidQuantity),
		errors.Is(err, domain.ErrQuantityNotPositive),
		errors.Is(err, domain.ErrMissingFromLocation),
		errors.Is(err, domain.ErrMissingToLocation),
		errors.Is(err, domain.ErrUnexpectedFromLocation),
		errors.Is(err, domain.ErrUnexpectedToLocation),
		errors.Is(err, domain.ErrMissingWorkcell),
		errors.Is(err, domain.ErrMissingReasonCode),
		errors.Is(err, domain.ErrSameLocation),
		errors.Is(err, domain.ErrHoldLocationMismatch),
		errors.Is(err, domain.ErrAdjustLocationAmbiguous):
		return apperrors.ErrValidation(err.Error()).Wrap(err)
	default:
		return apperrors.ErrInternal("").Wrap(err)
	}
}
