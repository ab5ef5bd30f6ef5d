package server

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/iwvelando/feedmix/internal/formulation"
	"github.com/iwvelando/feedmix/internal/ingredients"
)

// Error codes returned in the "code" field of error responses.
const (
	errCodeInvalidRequest    = "INVALID_REQUEST"
	errCodeInvalidModel      = "INVALID_MODEL"
	errCodeUnknownIngredient = "UNKNOWN_INGREDIENT"
	errCodeInfeasibleTarget  = "INFEASIBLE_TARGET"
	errCodeSolverFailure     = "SOLVER_FAILURE"
	errCodeTooLarge          = "PAYLOAD_TOO_LARGE"
	errCodeRateLimited       = "RATE_LIMIT_EXCEEDED"
	errCodeInternal          = "INTERNAL_ERROR"
)

type errorResponse struct {
	Error     string                 `json:"error"`
	Code      string                 `json:"code"`
	RequestID string                 `json:"requestId,omitempty"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// classify maps a formulation pipeline error to a status, code, details and
// metrics outcome.
func classify(err error) (int, string, map[string]interface{}, string) {
	var (
		invalid    *formulation.InvalidModelError
		infeasible *formulation.InfeasibleTargetError
		failure    *formulation.SolverFailure
		mismatch   *formulation.MismatchedLengthError
		notFound   *ingredients.NotFoundError
	)

	switch {
	case errors.As(err, &infeasible):
		return http.StatusUnprocessableEntity, errCodeInfeasibleTarget, map[string]interface{}{
			"nutrient":   infeasible.Nutrient,
			"required":   infeasible.Required,
			"achievable": infeasible.Achievable,
			"best":       infeasible.Best,
		}, outcomeInfeasible
	case errors.As(err, &failure):
		return http.StatusUnprocessableEntity, errCodeSolverFailure, map[string]interface{}{
			"method":  failure.Method,
			"message": failure.Message,
		}, outcomeSolverFailure
	case errors.As(err, &invalid):
		return http.StatusBadRequest, errCodeInvalidModel, map[string]interface{}{
			"field": invalid.Field,
		}, outcomeInvalid
	case errors.As(err, &notFound):
		return http.StatusBadRequest, errCodeUnknownIngredient, map[string]interface{}{
			"names": notFound.Names,
		}, outcomeInvalid
	case errors.As(err, &mismatch):
		return http.StatusInternalServerError, errCodeInternal, nil, outcomeError
	default:
		return http.StatusBadRequest, errCodeInvalidRequest, nil, outcomeInvalid
	}
}

func (h *handler) respondFormulationError(w http.ResponseWriter, r *http.Request, err error, op string) {
	status, code, details, _ := classify(err)
	h.writeError(w, r, status, code, err.Error(), op, details)
}

func (h *handler) writeError(w http.ResponseWriter, r *http.Request, status int, code, msg, op string, details map[string]interface{}) {
	h.logger.Error("request failed",
		zap.String("op", op),
		zap.String("requestID", requestID(r)),
		zap.Int("status", status),
		zap.String("code", code),
		zap.String("error", msg),
	)

	h.writeJSON(w, status, errorResponse{
		Error:     msg,
		Code:      code,
		RequestID: requestID(r),
		Details:   details,
	})
}
