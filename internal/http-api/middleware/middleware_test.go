package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"yamdb/internal/http-api/policy"
	"yamdb/internal/http-api/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockAuthenticator struct {
	mock.Mock
}

func (m *MockAuthenticator) Authenticate(ctx context.Context, token string) (policy.Actor, error) {
	args := m.Called(ctx, token)
	return args.Get(0).(policy.Actor), args.Error(1)
}

var alice = policy.Actor{UserID: "alice-id", Username: "alice", Level: policy.LevelUser}

func setupRouter(auth Authenticator, p policy.Policy) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(AuthMiddleware(auth))
	h := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user": ActorFrom(c).Username})
	}
	g := r.Group("/", Authorize(p))
	g.GET("/things", h)
	g.POST("/things", h)
	g.DELETE("/things", h)
	return r
}

func do(r http.Handler, method, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/things", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware_Anonymous(t *testing.T) {
	auth := new(MockAuthenticator)
	r := setupRouter(auth, policy.PublicReadAdminWrite{})

	w := do(r, http.MethodGet, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(r, http.MethodPost, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	auth.AssertNotCalled(t, "Authenticate", mock.Anything, mock.Anything)
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	auth := new(MockAuthenticator)
	auth.On("Authenticate", mock.Anything, "good").Return(alice, nil)
	r := setupRouter(auth, policy.AuthorModerationWrite{})

	w := do(r, http.MethodPost, "Bearer good")

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "alice", body["user"])
}

func TestAuthMiddleware_Rejections(t *testing.T) {
	auth := new(MockAuthenticator)
	auth.On("Authenticate", mock.Anything, "bad").
		Return(policy.Anonymous(), fmt.Errorf("parse: %w", service.ErrUnauthorized))
	auth.On("Authenticate", mock.Anything, "dbdown").
		Return(policy.Anonymous(), errors.New("connection refused"))
	r := setupRouter(auth, policy.PublicReadAdminWrite{})

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"NoScheme", "good", http.StatusUnauthorized},
		{"WrongScheme", "Basic abc", http.StatusUnauthorized},
		{"InvalidToken", "Bearer bad", http.StatusUnauthorized},
		{"StoreFailure", "Bearer dbdown", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// even safe methods fail on a bad credential
			w := do(r, http.MethodGet, tt.header)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestAuthorize_ForbiddenForUser(t *testing.T) {
	auth := new(MockAuthenticator)
	auth.On("Authenticate", mock.Anything, "good").Return(alice, nil)
	r := setupRouter(auth, policy.AdminOnly{})

	w := do(r, http.MethodGet, "Bearer good")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(r, http.MethodDelete, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestActionFor(t *testing.T) {
	assert.Equal(t, policy.ActionRead, actionFor(http.MethodGet))
	assert.Equal(t, policy.ActionRead, actionFor(http.MethodHead))
	assert.Equal(t, policy.ActionCreate, actionFor(http.MethodPost))
	assert.Equal(t, policy.ActionUpdate, actionFor(http.MethodPatch))
	assert.Equal(t, policy.ActionUpdate, actionFor(http.MethodPut))
	assert.Equal(t, policy.ActionDelete, actionFor(http.MethodDelete))
}

func TestRequestIDAndLogger(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	r := gin.New()
	r.Use(RequestID(), RequestLogger(logger))
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.GET("/boom", func(c *gin.Context) {
		_ = c.Error(errors.New("kaboom"))
		c.Status(http.StatusInternalServerError)
	})

	req := httptest.NewRequest(http.MethodGet, "/ok", nil)
	req.Header.Set(RequestIDHeader, "5f0c2a34-8d1e-4b7a-9c3f-2e6d8a1b4c70")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "5f0c2a34-8d1e-4b7a-9c3f-2e6d8a1b4c70", w.Header().Get(RequestIDHeader))
	assert.Contains(t, buf.String(), `"request_id":"5f0c2a34-8d1e-4b7a-9c3f-2e6d8a1b4c70"`)

	buf.Reset()
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
	assert.Contains(t, buf.String(), "kaboom")
	assert.Contains(t, buf.String(), `"level":"ERROR"`)
}

func TestRequestID_ReplacesUntrustedValues(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	r.GET("/ok", func(c *gin.Context) { c.String(http.StatusOK, RequestIDFrom(c)) })

	for _, sent := range []string{"req-123", strings.Repeat("a", 4096), "x\"\ninjected=1"} {
		req := httptest.NewRequest(http.MethodGet, "/ok", nil)
		req.Header.Set(RequestIDHeader, sent)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		got := w.Header().Get(RequestIDHeader)
		assert.NotEqual(t, sent, got)
		assert.NoError(t, uuid.Validate(got))
		assert.Equal(t, got, w.Body.String())
	}
}
