package api

import (
	"context"
	"errors"

	"FinGenius/internal/domain/models"
	"FinGenius/internal/usecase"
	xhttp "FinGenius/pkg/http"
)

// appError maps domain errors to HTTP errors. Unknown errors become 500
// without leaking their text.
func appError(err error) *xhttp.AppError {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return xhttp.NotFoundError("resource not found").WithError(err)
	case errors.Is(err, models.ErrUnauthorized):
		return xhttp.ForbiddenError("not authorized").WithError(err)
	case errors.Is(err, models.ErrUpstreamProvider):
		return xhttp.BadGatewayError("account provider unavailable").WithError(err)
	case errors.Is(err, models.ErrUntrainedModel):
		return xhttp.ConflictError("model has not been trained").WithError(err)
	case errors.Is(err, usecase.ErrActionBusy):
		return xhttp.ConflictError("action is being processed").WithError(err)
	case errors.Is(err, models.ErrInsufficientData):
		return xhttp.UnprocessableError("not enough data").WithError(err)
	case errors.Is(err, context.DeadlineExceeded):
		return xhttp.InternalError("request timed out").WithError(err)
	default:
		return xhttp.InternalError("internal error").WithError(err)
	}
}
