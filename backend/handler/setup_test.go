package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"github.com/AnTengye/bettertender/backend/config"
	"github.com/AnTengye/bettertender/backend/service"
	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeStorage is an in-memory service.ObjectStorage
type fakeStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (f *fakeStorage) UploadFile(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[objectName] = data
	return nil
}

func (f *fakeStorage) GetFile(ctx context.Context, objectName string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[objectName]
	if !ok {
		return nil, service.ErrObjectMissing
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *fakeStorage) DeleteFile(ctx context.Context, objectName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, objectName)
	return nil
}

func (f *fakeStorage) clear() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects = map[string][]byte{}
}

type testApp struct {
	router  *gin.Engine
	store   *service.Store
	storage *fakeStorage
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	cfg := &config.Config{
		Store:     config.StoreConfig{Path: filepath.Join(t.TempDir(), "api.db"), MaxRetries: 3},
		Auth:      config.AuthConfig{JWTSecret: "test-secret", TokenExpireHours: 1, BcryptCost: 4},
		RateLimit: config.RateLimitConfig{Requests: 1000, WindowSeconds: 60},
		Users: []config.User{
			{Email: "admin@example.com", Password: "admin-pass", Role: "admin"},
			{Email: "auditor@example.com", Password: "auditor-pass", Role: "auditor"},
		},
	}

	ctx := context.Background()
	store, err := service.OpenStore(ctx, &cfg.Store)
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	ledger := service.NewLedger()
	storage := &fakeStorage{objects: map[string][]byte{}}
	users := service.NewUserService(store, ledger, &cfg.Auth)
	if err := users.Bootstrap(ctx, cfg.Users); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}

	router := NewRouter(cfg, &Services{
		Users:       users,
		Tenders:     service.NewTenderService(store, ledger),
		Submissions: service.NewSubmissionService(store, ledger, &cfg.Lifecycle),
		Documents:   service.NewDocumentService(store, ledger, storage),
		Audit:       service.NewAuditService(store, ledger),
	})
	return &testApp{router: router, store: store, storage: storage}
}

// do sends a JSON request and returns the recorder
func (a *testApp) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

// expect checks the status and decodes the body into out when out is non-nil
func expect(t *testing.T, w *httptest.ResponseRecorder, status int, out any) {
	t.Helper()
	if w.Code != status {
		t.Fatalf("Expected status %d, got %d: %s", status, w.Code, w.Body.String())
	}
	if out != nil {
		if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
			t.Fatalf("Failed to parse response: %v", err)
		}
	}
}

// login registers (unless the email is a bootstrap account) and returns a token
func (a *testApp) login(t *testing.T, email, role string) string {
	t.Helper()
	password := "pw-" + email
	switch email {
	case "admin@example.com":
		password = "admin-pass"
	case "auditor@example.com":
		password = "auditor-pass"
	default:
		w := a.do(t, http.MethodPost, "/api/auth/register", "", gin.H{"email": email, "password": password, "role": role})
		expect(t, w, http.StatusCreated, nil)
	}
	var resp LoginResponse
	expect(t, a.do(t, http.MethodPost, "/api/auth/login", "", gin.H{"email": email, "password": password}), http.StatusOK, &resp)
	if resp.Token == "" {
		t.Fatal("Expected token")
	}
	return resp.Token
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{service.ErrNotFound, http.StatusNotFound},
		{service.ErrForbidden, http.StatusForbidden},
		{service.ErrInvalidTransition, http.StatusConflict},
		{service.ErrConflict, http.StatusConflict},
		{service.ErrInvalidInput, http.StatusBadRequest},
		{service.ErrInvalidCredentials, http.StatusUnauthorized},
		{service.ErrObjectMissing, http.StatusGone},
		{service.ErrStorageUnavailable, http.StatusServiceUnavailable},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			wrapped := errors.Join(errors.New("context"), tt.err)
			if got := statusFor(wrapped); got != tt.want {
				t.Errorf("Expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestInternalErrorsAreNotLeaked(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	respondError(c, errors.New("sqlite: disk I/O error at /var/lib/db"))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("Expected 500, got %d", w.Code)
	}
	if bytes.Contains(w.Body.Bytes(), []byte("/var/lib/db")) {
		t.Errorf("Internal error leaked: %s", w.Body.String())
	}
}

func TestHealth(t *testing.T) {
	app := newTestApp(t)
	var body map[string]string
	expect(t, app.do(t, http.MethodGet, "/health", "", nil), http.StatusOK, &body)
	if body["status"] != "ok" {
		t.Errorf("Expected status ok, got %v", body)
	}
}
