package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stemsi/prepexam/internal/engine"
	"github.com/stemsi/prepexam/internal/middleware"
	"github.com/stemsi/prepexam/internal/model"
	"github.com/stemsi/prepexam/internal/response"
	"github.com/stemsi/prepexam/internal/service"
	"github.com/stemsi/prepexam/internal/validator"
)

// AttemptHandler handles the candidate-facing attempt endpoints.
type AttemptHandler struct {
	attemptService *service.AttemptService
}

// NewAttemptHandler creates a new AttemptHandler.
func NewAttemptHandler(attemptService *service.AttemptService) *AttemptHandler {
	return &AttemptHandler{attemptService: attemptService}
}

// attemptCall resolves the caller and the :attempt_id param. It writes the
// failure response itself and reports false when the request cannot go on.
func attemptCall(c *gin.Context) (int, uuid.UUID, bool) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return 0, uuid.Nil, false
	}
	id, err := uuid.Parse(c.Param("attempt_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return 0, uuid.Nil, false
	}
	return claims.UserID, id, true
}

// StartAttempt godoc
// POST /api/v1/attempts
// Starts a timed attempt on a paper in exam or practice mode.
func (h *AttemptHandler) StartAttempt(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.StartAttemptRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	view, err := h.attemptService.Start(c.Request.Context(), claims.UserID, uuid.MustParse(req.PaperID), engine.Mode(req.Mode))
	if err != nil {
		failWithError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"attempt": view})
}

// ListAttempts godoc
// GET /api/v1/attempts
// Pages through the caller's persisted attempts, newest first.
func (h *AttemptHandler) ListAttempts(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var q model.HistoryQuery
	if fields := validator.BindQuery(c, &q); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	attempts, pagination, err := h.attemptService.History(c.Request.Context(), claims.UserID, q.Page, q.PerPage)
	if err != nil {
		failWithError(c, err)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"attempts": attempts}, pagination)
}

// GetAttempt godoc
// GET /api/v1/attempts/:attempt_id
func (h *AttemptHandler) GetAttempt(c *gin.Context) {
	userID, id, ok := attemptCall(c)
	if !ok {
		return
	}
	respondView(c)(h.attemptService.Progress(c.Request.Context(), userID, id))
}

// SelectAnswer godoc
// POST /api/v1/attempts/:attempt_id/answer
// Exam mode toggles the option; practice mode locks it and reveals the key.
func (h *AttemptHandler) SelectAnswer(c *gin.Context) {
	userID, id, ok := attemptCall(c)
	if !ok {
		return
	}

	var req model.SelectAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	respondView(c)(h.attemptService.SelectAnswer(c.Request.Context(), userID, id, *req.Option))
}

// NextQuestion godoc
// POST /api/v1/attempts/:attempt_id/next
// On the last question nothing moves and submit_requested is set.
func (h *AttemptHandler) NextQuestion(c *gin.Context) {
	userID, id, ok := attemptCall(c)
	if !ok {
		return
	}
	respondView(c)(h.attemptService.Next(c.Request.Context(), userID, id))
}

// PreviousQuestion godoc
// POST /api/v1/attempts/:attempt_id/previous
func (h *AttemptHandler) PreviousQuestion(c *gin.Context) {
	userID, id, ok := attemptCall(c)
	if !ok {
		return
	}
	respondView(c)(h.attemptService.Previous(c.Request.Context(), userID, id))
}

// JumpToQuestion godoc
// POST /api/v1/attempts/:attempt_id/jump
func (h *AttemptHandler) JumpToQuestion(c *gin.Context) {
	userID, id, ok := attemptCall(c)
	if !ok {
		return
	}

	var req model.JumpRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	respondView(c)(h.attemptService.JumpTo(c.Request.Context(), userID, id, *req.Index))
}

// ToggleMark godoc
// POST /api/v1/attempts/:attempt_id/mark
func (h *AttemptHandler) ToggleMark(c *gin.Context) {
	userID, id, ok := attemptCall(c)
	if !ok {
		return
	}
	respondView(c)(h.attemptService.ToggleMark(c.Request.Context(), userID, id))
}

// RevealAnswer godoc
// GET /api/v1/attempts/:attempt_id/questions/:index/answer
// Returns the key once the question is locked in practice mode or the
// attempt is graded.
func (h *AttemptHandler) RevealAnswer(c *gin.Context) {
	userID, id, ok := attemptCall(c)
	if !ok {
		return
	}
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidIndex)
		return
	}

	key, err := h.attemptService.RevealCorrect(c.Request.Context(), userID, id, index)
	if err != nil {
		failWithError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"index": index, "correct_option_index": key})
}

// SubmitAttempt godoc
// POST /api/v1/attempts/:attempt_id/submit
// Grades the attempt. Repeated calls return the same result.
func (h *AttemptHandler) SubmitAttempt(c *gin.Context) {
	userID, id, ok := attemptCall(c)
	if !ok {
		return
	}

	sv, err := h.attemptService.Submit(c.Request.Context(), userID, id)
	if err != nil {
		failWithError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"submission": sv})
}

// GetResult godoc
// GET /api/v1/attempts/:attempt_id/result
func (h *AttemptHandler) GetResult(c *gin.Context) {
	userID, id, ok := attemptCall(c)
	if !ok {
		return
	}

	sv, err := h.attemptService.Result(c.Request.Context(), userID, id)
	if err != nil {
		failWithError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"submission": sv})
}

// GetReview godoc
// GET /api/v1/attempts/:attempt_id/review
func (h *AttemptHandler) GetReview(c *gin.Context) {
	userID, id, ok := attemptCall(c)
	if !ok {
		return
	}
	respondReview(c)(h.attemptService.Review(c.Request.Context(), userID, id))
}

// SetReviewFilter godoc
// POST /api/v1/attempts/:attempt_id/review/filter
// Changes the filter; the cursor returns to the first match.
func (h *AttemptHandler) SetReviewFilter(c *gin.Context) {
	userID, id, ok := attemptCall(c)
	if !ok {
		return
	}

	var req model.ReviewFilterRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	respondReview(c)(h.attemptService.SetReviewFilter(c.Request.Context(), userID, id, engine.Filter(req.Filter)))
}

// ReviewNext godoc
// POST /api/v1/attempts/:attempt_id/review/next
func (h *AttemptHandler) ReviewNext(c *gin.Context) {
	userID, id, ok := attemptCall(c)
	if !ok {
		return
	}
	respondReview(c)(h.attemptService.ReviewStep(c.Request.Context(), userID, id, true))
}

// ReviewPrevious godoc
// POST /api/v1/attempts/:attempt_id/review/previous
func (h *AttemptHandler) ReviewPrevious(c *gin.Context) {
	userID, id, ok := attemptCall(c)
	if !ok {
		return
	}
	respondReview(c)(h.attemptService.ReviewStep(c.Request.Context(), userID, id, false))
}

// ReviewJump godoc
// POST /api/v1/attempts/:attempt_id/review/jump
// Jumping to a question hidden by the filter switches the filter to all.
func (h *AttemptHandler) ReviewJump(c *gin.Context) {
	userID, id, ok := attemptCall(c)
	if !ok {
		return
	}

	var req model.JumpRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	respondReview(c)(h.attemptService.ReviewJump(c.Request.Context(), userID, id, *req.Index))
}

func respondView(c *gin.Context) func(*model.AttemptView, error) {
	return func(v *model.AttemptView, err error) {
		if err != nil {
			failWithError(c, err)
			return
		}
		response.Success(c, http.StatusOK, gin.H{"attempt": v})
	}
}

func respondReview(c *gin.Context) func(*engine.ReviewState, error) {
	return func(st *engine.ReviewState, err error) {
		if err != nil {
			failWithError(c, err)
			return
		}
		response.Success(c, http.StatusOK, gin.H{"review": st})
	}
}
