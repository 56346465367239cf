package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/prepexam/internal/engine"
	"github.com/stemsi/prepexam/internal/model"
	"github.com/stemsi/prepexam/internal/response"
	"github.com/stemsi/prepexam/internal/service"
)

// errorStatus maps a domain error to its HTTP status and envelope code.
func errorStatus(err error) (int, response.ErrCode) {
	switch {
	case errors.Is(err, service.ErrPaperNotFound):
		return http.StatusNotFound, response.ErrPaperNotFound
	case errors.Is(err, service.ErrAttemptNotFound):
		return http.StatusNotFound, response.ErrAttemptNotFound
	case errors.Is(err, service.ErrNotAttemptOwner):
		return http.StatusForbidden, response.ErrForbidden
	case errors.Is(err, service.ErrAttemptNotCompleted):
		return http.StatusConflict, response.ErrAttemptNotCompleted
	case errors.Is(err, service.ErrAnswerHidden):
		return http.StatusForbidden, response.ErrForbidden
	case errors.Is(err, engine.ErrInvalidIndex):
		return http.StatusBadRequest, response.ErrInvalidIndex
	case errors.Is(err, engine.ErrInvalidOption):
		return http.StatusBadRequest, response.ErrInvalidOption
	case errors.Is(err, engine.ErrInvalidMode), errors.Is(err, engine.ErrInvalidFilter):
		return http.StatusBadRequest, response.ErrValidation
	case errors.Is(err, engine.ErrInvalidModeOperation):
		return http.StatusConflict, response.ErrInvalidModeOperation
	case errors.Is(err, engine.ErrNoQuestions):
		return http.StatusUnprocessableEntity, response.ErrNoQuestions
	case errors.Is(err, model.ErrInvalidPaper), errors.Is(err, engine.ErrInvalidQuestion), errors.Is(err, engine.ErrInvalidScheme):
		return http.StatusUnprocessableEntity, response.ErrInvalidPaper
	case errors.Is(err, engine.ErrScoringPrecondition):
		return http.StatusInternalServerError, response.ErrScoringPrecondition
	default:
		return http.StatusInternalServerError, response.ErrInternal
	}
}

// failWithError writes the envelope for err and records it for the request
// logger.
func failWithError(c *gin.Context, err error) {
	_ = c.Error(err)
	status, code := errorStatus(err)
	response.Fail(c, status, code)
}
