package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/AnTengye/bettertender/backend/model"
	"github.com/gin-gonic/gin"
)

func newRecoveryRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(RequestID())
	router.Use(Recovery())
	router.GET("/tenders/:id/award", func(c *gin.Context) {
		var awarded *int64
		_ = *awarded // nil dereference inside a handler
	})
	router.GET("/tenders/:id", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": c.Param("id"), "status": model.TenderDraft})
	})
	return router
}

func TestRecoveryReportsRequestID(t *testing.T) {
	router := newRecoveryRouter()

	tests := []struct {
		name     string
		incoming string
	}{
		{"generated id", ""},
		{"caller id", "trace-award-42"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/tenders/7/award", nil)
			if tt.incoming != "" {
				req.Header.Set("X-Request-ID", tt.incoming)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != http.StatusInternalServerError {
				t.Fatalf("Expected status 500, got %d", w.Code)
			}
			var body struct {
				Error     string `json:"error"`
				RequestID string `json:"request_id"`
			}
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if body.Error != "Internal server error" {
				t.Errorf("Expected generic error, got %q", body.Error)
			}
			header := w.Header().Get("X-Request-ID")
			if body.RequestID == "" || body.RequestID != header {
				t.Errorf("Expected body request_id %q to match header %q", body.RequestID, header)
			}
			if tt.incoming != "" && body.RequestID != tt.incoming {
				t.Errorf("Expected caller id %q, got %q", tt.incoming, body.RequestID)
			}
		})
	}
}

func TestRecoveryPassesThrough(t *testing.T) {
	router := newRecoveryRouter()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/tenders/7", nil))
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
}
