package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/AnTengye/bettertender/backend/model"
	"github.com/AnTengye/bettertender/backend/service"
	"github.com/gin-gonic/gin"
)

type TenderHandler struct {
	tenders *service.TenderService
}

func NewTenderHandler(tenders *service.TenderService) *TenderHandler {
	return &TenderHandler{tenders: tenders}
}

type PublishRequest struct {
	CloseAt *time.Time `json:"close_at"`
}

type AwardRequest struct {
	SubmissionID int64 `json:"submission_id" binding:"required"`
}

// List returns all tenders, optionally filtered with ?status=
func (h *TenderHandler) List(c *gin.Context) {
	tenders, err := h.tenders.List(c.Request.Context(), model.TenderStatus(c.Query("status")))
	if err != nil {
		respondError(c, err)
		return
	}
	if tenders == nil {
		tenders = []*model.Tender{}
	}
	c.JSON(http.StatusOK, gin.H{"tenders": tenders})
}

// Create opens a draft tender
func (h *TenderHandler) Create(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var req service.NewTender
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	tender, err := h.tenders.Create(c.Request.Context(), actor, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, tender)
}

// Get returns a single tender
func (h *TenderHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	tender, err := h.tenders.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tender)
}

// Update edits title, description or budget
func (h *TenderHandler) Update(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req model.TenderChanges
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	tender, err := h.tenders.Update(c.Request.Context(), actor, id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tender)
}

// Publish accepts an optional {"close_at": ...} body
func (h *TenderHandler) Publish(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req PublishRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
	}

	tender, err := h.tenders.Publish(c.Request.Context(), actor, id, req.CloseAt)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tender)
}

// Close stops accepting submissions
func (h *TenderHandler) Close(c *gin.Context) {
	h.simpleTransition(c, h.tenders.Close)
}

// Cancel abandons the tender
func (h *TenderHandler) Cancel(c *gin.Context) {
	h.simpleTransition(c, h.tenders.Cancel)
}

// Award requires {"submission_id": n}
func (h *TenderHandler) Award(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req AwardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "submission_id is required"})
		return
	}

	tender, err := h.tenders.Award(c.Request.Context(), actor, id, req.SubmissionID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tender)
}

// Delete removes the tender and its submissions
func (h *TenderHandler) Delete(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.tenders.Delete(c.Request.Context(), actor, id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Tender deleted"})
}

type transitionFunc func(ctx context.Context, actor model.Actor, id int64) (*model.Tender, error)

func (h *TenderHandler) simpleTransition(c *gin.Context, fn transitionFunc) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	tender, err := fn(c.Request.Context(), actor, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tender)
}
