package handler

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/AnTengye/bettertender/backend/model"
	"github.com/AnTengye/bettertender/backend/service"
	"github.com/gin-gonic/gin"
)

// MaxDocumentSize caps uploaded document bodies
const MaxDocumentSize = 32 << 20

type DocumentHandler struct {
	documents *service.DocumentService
}

func NewDocumentHandler(documents *service.DocumentService) *DocumentHandler {
	return &DocumentHandler{documents: documents}
}

// Upload handles multipart uploads with fields file, tender_id and visibility
func (h *DocumentHandler) Upload(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxDocumentSize+1<<20)
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file provided"})
		return
	}
	defer file.Close()

	if header.Size > MaxDocumentSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "File too large"})
		return
	}

	in := service.Upload{
		Filename:   header.Filename,
		MimeType:   header.Header.Get("Content-Type"),
		Size:       header.Size,
		Visibility: c.PostForm("visibility"),
		Body:       file,
	}
	if in.MimeType == "" || in.MimeType == "application/octet-stream" {
		// sniff the first bytes, then rewind
		buf := make([]byte, 512)
		n, _ := file.Read(buf)
		in.MimeType = http.DetectContentType(buf[:n])
		if _, err := file.Seek(0, io.SeekStart); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read file"})
			return
		}
	}
	if raw := c.PostForm("tender_id"); raw != "" {
		tenderID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || tenderID <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid tender_id"})
			return
		}
		in.TenderID = &tenderID
	}

	doc, err := h.documents.Upload(c.Request.Context(), actor, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, doc)
}

// List returns the caller's documents
func (h *DocumentHandler) List(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	docs, err := h.documents.ListMine(c.Request.Context(), actor)
	if err != nil {
		respondError(c, err)
		return
	}
	if docs == nil {
		docs = []*model.Document{}
	}
	c.JSON(http.StatusOK, gin.H{"documents": docs})
}

// Download streams the document body
func (h *DocumentHandler) Download(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	doc, body, err := h.documents.Open(c.Request.Context(), actor, id)
	if err != nil {
		respondError(c, err)
		return
	}
	defer body.Close()

	contentType := doc.MimeType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.DataFromReader(http.StatusOK, doc.Size, contentType, body, map[string]string{
		"Content-Disposition": mime.FormatMediaType("attachment", map[string]string{"filename": doc.OriginalFilename}),
		"X-Checksum-SHA256":   doc.Checksum,
	})
}

// Link returns a time-limited download URL
func (h *DocumentHandler) Link(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	url, err := h.documents.Link(c.Request.Context(), actor, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

// Delete removes the document
func (h *DocumentHandler) Delete(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.documents.Delete(c.Request.Context(), actor, id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("Document %d deleted", id)})
}
