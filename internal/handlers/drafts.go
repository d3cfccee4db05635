package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"checkin-concierge-go/internal/ledger"
	"checkin-concierge-go/internal/models"
)

// GetPendingDrafts returns all drafts awaiting review
func (h *Handlers) GetPendingDrafts(c *gin.Context) {
	drafts, err := h.ledger.GetPendingDrafts()
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "database_error",
			Message: "Failed to fetch pending drafts",
			Code:    http.StatusInternalServerError,
		})
		return
	}
	if drafts == nil {
		drafts = []models.Draft{}
	}
	c.JSON(http.StatusOK, drafts)
}

// GetDraft returns one draft together with its parent request
func (h *Handlers) GetDraft(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid_id", Message: "Invalid draft ID", Code: http.StatusBadRequest})
		return
	}

	draft, err := h.ledger.GetDraft(uint(id))
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "database_error", Message: "Failed to fetch draft", Code: http.StatusInternalServerError})
		return
	}
	if draft == nil {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "not_found", Message: "Draft not found", Code: http.StatusNotFound})
		return
	}

	request, err := h.ledger.GetRequest(draft.RequestID)
	if err != nil {
		logrus.Errorf("Failed to load parent request for draft %d: %v", draft.ID, err)
	}

	c.JSON(http.StatusOK, models.DraftDetailResponse{Draft: *draft, Request: request})
}

// ReviewDraft records the owner's verdict on a pending draft
func (h *Handlers) ReviewDraft(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid_id", Message: "Invalid draft ID", Code: http.StatusBadRequest})
		return
	}

	var req models.ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "validation_error", Message: "Invalid request body", Code: http.StatusBadRequest})
		return
	}
	if req.Verdict != models.VerdictOK && req.Verdict != models.VerdictNOK {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "validation_error", Message: "Verdict must be ok or nok", Code: http.StatusBadRequest})
		return
	}

	// The ledger enforces the pending-only transition atomically, so the
	// handler just maps the outcome to a status code.
	err = h.ledger.ReviewDraft(uint(id), req.Verdict, req.ActualMessageSent, req.OwnerComment)
	switch {
	case errors.Is(err, ledger.ErrDraftNotFound):
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "not_found", Message: "Draft not found", Code: http.StatusNotFound})
		return
	case errors.Is(err, ledger.ErrAlreadyReviewed):
		c.JSON(http.StatusConflict, models.ErrorResponse{Error: "already_reviewed", Message: "Draft has already been reviewed", Code: http.StatusConflict})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "database_error", Message: "Failed to review draft", Code: http.StatusInternalServerError})
		return
	}

	reviewed, err := h.ledger.GetDraft(uint(id))
	if err != nil || reviewed == nil {
		c.Status(http.StatusOK)
		return
	}
	c.JSON(http.StatusOK, reviewed)
}

// GetReservationHistory returns all requests recorded for a reservation
func (h *Handlers) GetReservationHistory(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid_id", Message: "Invalid reservation ID", Code: http.StatusBadRequest})
		return
	}

	history, err := h.ledger.GetHistory(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "database_error", Message: "Failed to fetch request history", Code: http.StatusInternalServerError})
		return
	}
	if history == nil {
		history = []models.ProcessedRequest{}
	}
	c.JSON(http.StatusOK, history)
}
