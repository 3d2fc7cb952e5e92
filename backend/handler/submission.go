package handler

import (
	"net/http"

	"github.com/AnTengye/bettertender/backend/model"
	"github.com/AnTengye/bettertender/backend/service"
	"github.com/gin-gonic/gin"
)

type SubmissionHandler struct {
	submissions *service.SubmissionService
}

func NewSubmissionHandler(submissions *service.SubmissionService) *SubmissionHandler {
	return &SubmissionHandler{submissions: submissions}
}

type RevealRequest struct {
	Payload string `json:"payload" binding:"required"`
	Nonce   string `json:"nonce" binding:"required"`
}

// Create places a bid on the tender in the path
func (h *SubmissionHandler) Create(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	tenderID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req model.NewSubmission
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	req.TenderID = tenderID

	sub, err := h.submissions.Create(c.Request.Context(), actor, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sub)
}

// ListForTender returns every bid on a tender to its owner
func (h *SubmissionHandler) ListForTender(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	tenderID, ok := pathID(c, "id")
	if !ok {
		return
	}
	subs, err := h.submissions.ListForTender(c.Request.Context(), actor, tenderID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondSubmissions(c, subs)
}

// ListMine returns the caller's own attributable bids
func (h *SubmissionHandler) ListMine(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	subs, err := h.submissions.ListMine(c.Request.Context(), actor)
	if err != nil {
		respondError(c, err)
		return
	}
	respondSubmissions(c, subs)
}

// Get returns one submission
func (h *SubmissionHandler) Get(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	sub, err := h.submissions.Get(c.Request.Context(), actor, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sub)
}

// Verify checks a revealed payload and nonce against the stored commitment
func (h *SubmissionHandler) Verify(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req RevealRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "payload and nonce are required"})
		return
	}

	match, err := h.submissions.VerifyCommitment(c.Request.Context(), actor, id, req.Payload, req.Nonce)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"submission_id": id, "match": match})
}

func respondSubmissions(c *gin.Context, subs []*model.Submission) {
	if subs == nil {
		subs = []*model.Submission{}
	}
	c.JSON(http.StatusOK, gin.H{"submissions": subs})
}
