package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/AnTengye/bettertender/backend/model"
	"github.com/AnTengye/bettertender/backend/service"
	"github.com/gin-gonic/gin"
)

type AuditHandler struct {
	audit *service.AuditService
}

func NewAuditHandler(audit *service.AuditService) *AuditHandler {
	return &AuditHandler{audit: audit}
}

// List returns ledger entries newest first.
// Query: limit, action, resource_type, actor_id.
func (h *AuditHandler) List(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	filter := model.AuditFilter{
		Action:       c.Query("action"),
		ResourceType: c.Query("resource_type"),
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
			return
		}
		filter.Limit = limit
	}
	if raw := c.Query("actor_id"); raw != "" {
		actorID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid actor_id"})
			return
		}
		filter.ActorID = &actorID
	}

	entries, err := h.audit.List(c.Request.Context(), actor, filter)
	if err != nil {
		respondError(c, err)
		return
	}
	if entries == nil {
		entries = []*model.AuditEntry{}
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

// Verify walks the chain. A broken chain is reported in the body with 200.
func (h *AuditHandler) Verify(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	n, err := h.audit.Verify(c.Request.Context(), actor)
	var violation *service.IntegrityViolationError
	if errors.As(err, &violation) {
		c.JSON(http.StatusOK, gin.H{
			"valid":        false,
			"verified":     n,
			"entry_id":     violation.EntryID,
			"reason":       violation.Reason,
			"unverifiable": violation.Unverifiable,
		})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"valid": true, "verified": n})
}
