package shipmentserver

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/Apurer/go-gin-shipment-server/internal/domains/shipments/application"
	"github.com/Apurer/go-gin-shipment-server/internal/domains/shipments/domain"
	"github.com/Apurer/go-gin-shipment-server/internal/domains/shipments/ports"
	apierrors "github.com/Apurer/go-gin-shipment-server/internal/shared/errors"
)

var responder = apierrors.NewResponder(apierrors.WithMappers(shipmentProblem))

// respondBindingError turns request binding failures into a 400 with field errors when available.
func respondBindingError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Tag()
		}
		responder.ValidationFailed(c, fields)
		return
	}
	responder.BadRequest(c, err.Error())
}

// respondServiceError maps application errors to RFC 7807 responses.
func respondServiceError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	responder.RespondError(c, err)
}

func shipmentProblem(err error) (apierrors.ProblemDetail, bool) {
	var overShipment *domain.OverShipmentError
	var invalidState *domain.InvalidOrderStateError
	switch {
	case errors.As(err, &overShipment):
		return apierrors.ErrUnprocessable.WithDetail(err.Error()).
			WithExtension("itemId", overShipment.ItemID).
			WithExtension("requested", overShipment.Requested).
			WithExtension("remaining", overShipment.Remaining).
			WithExtension("excess", overShipment.Excess()), true
	case errors.Is(err, domain.ErrEmptyRequest):
		return apierrors.ErrUnprocessable.WithDetail(err.Error()), true
	case errors.As(err, &invalidState):
		return apierrors.ErrConflict.WithDetail(err.Error()).
			WithExtension("status", string(invalidState.Status)), true
	case errors.Is(err, domain.ErrInvalidOrderState):
		return apierrors.ErrConflict.WithDetail(err.Error()), true
	case errors.Is(err, ports.ErrIdempotencyConflict):
		return apierrors.ErrConflict.WithDetail(err.Error()), true
	case errors.Is(err, ports.ErrOrderBusy):
		return apierrors.ErrConflict.WithDetail(err.Error()).Retryable(), true
	case errors.Is(err, domain.ErrNotFound):
		return apierrors.ErrNotFound.WithDetail(err.Error()), true
	case errors.Is(err, application.ErrInvalidInput):
		return apierrors.ErrValidation.WithDetail(err.Error()), true
	case errors.Is(err, application.ErrPersistence):
		return apierrors.ErrUnavailable.WithDetail(err.Error()).Retryable(), true
	case errors.Is(err, application.ErrPartialCommit):
		return apierrors.ErrInternal.WithDetail(err.Error()).WithExtension("integrityAlert", true), true
	}
	return apierrors.ProblemDetail{}, false
}

func badRequest(c *gin.Context, detail string) {
	responder.BadRequest(c, detail)
}

