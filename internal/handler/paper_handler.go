package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stemsi/prepexam/internal/response"
	"github.com/stemsi/prepexam/internal/service"
)

// PaperHandler serves paper metadata ahead of an attempt.
type PaperHandler struct {
	paperService *service.PaperService
}

// NewPaperHandler creates a new PaperHandler.
func NewPaperHandler(paperService *service.PaperService) *PaperHandler {
	return &PaperHandler{paperService: paperService}
}

// GetPaper godoc
// GET /api/v1/papers/:paper_id
// Returns the paper summary without questions or the answer key.
func (h *PaperHandler) GetPaper(c *gin.Context) {
	paperID, err := uuid.Parse(c.Param("paper_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	summary, err := h.paperService.GetSummary(c.Request.Context(), paperID)
	if err != nil {
		failWithError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"paper": summary})
}

// PrefetchPaper godoc
// POST /api/v1/papers/:paper_id/prefetch
// Warms the paper cache so the next attempt start skips the database.
func (h *PaperHandler) PrefetchPaper(c *gin.Context) {
	paperID, err := uuid.Parse(c.Param("paper_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	summary, err := h.paperService.Prefetch(c.Request.Context(), paperID)
	if err != nil {
		failWithError(c, err)
		return
	}

	response.Success(c, http.StatusAccepted, gin.H{"paper": summary})
}
