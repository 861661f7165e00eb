package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/flexprice/subscriptions/internal/auth"
	"github.com/flexprice/subscriptions/internal/config"
	ierr "github.com/flexprice/subscriptions/internal/errors"
	"github.com/flexprice/subscriptions/internal/logger"
	"github.com/flexprice/subscriptions/internal/sentry"
	"github.com/flexprice/subscriptions/internal/types"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type MiddlewareSuite struct {
	suite.Suite
	cfg *config.Configuration
	log *logger.Logger
}

func TestMiddleware(t *testing.T) {
	suite.Run(t, new(MiddlewareSuite))
}

func (s *MiddlewareSuite) SetupSuite() {
	gin.SetMode(gin.TestMode)
}

func (s *MiddlewareSuite) SetupTest() {
	s.cfg = config.GetDefaultConfig()
	s.cfg.Auth.Secret = "middleware-secret"
	s.log = logger.NewNoopLogger()
}

func (s *MiddlewareSuite) engine() *gin.Engine {
	r := gin.New()
	r.Use(RequestIDMiddleware, ErrorHandler(s.log, sentry.NewSentryService(s.cfg, s.log)))

	users := r.Group("/users/:ref", AuthenticateMiddleware(s.cfg, s.log), AuthorizeUserMiddleware("ref"))
	users.GET("", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"user": types.GetUserID(c.Request.Context()),
			"role": types.GetUserRole(c.Request.Context()),
		})
	})

	r.GET("/boom", func(c *gin.Context) {
		_ = c.Error(ierr.NewError("plan is gone").
			WithHint("Plan pro was not found").
			WithReportableDetails(map[string]any{"plan": "pro"}).
			Mark(ierr.ErrNotFound))
	})
	r.GET("/crash", func(c *gin.Context) {
		_ = c.Error(ierr.NewError("driver exploded").Mark(ierr.ErrDatabase))
	})
	return r
}

func (s *MiddlewareSuite) do(r *gin.Engine, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set(types.HeaderAuthorization, "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func (s *MiddlewareSuite) token(userID, role string) string {
	token, err := auth.GenerateToken(s.cfg.Auth.Secret, userID, role, time.Hour)
	s.Require().NoError(err)
	return token
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ierr.ErrorResponse {
	t.Helper()
	var body ierr.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func (s *MiddlewareSuite) TestErrorHandler_ClientError() {
	w := s.do(s.engine(), "/boom", "")

	s.Equal(http.StatusNotFound, w.Code)
	body := decodeError(s.T(), w)
	s.Equal(http.StatusNotFound, body.Status)
	s.Equal("Plan pro was not found", body.Message)
	s.Regexp(`^E[0-9A-Z_-]+$`, body.Reference)
	s.Equal("pro", body.Details["plan"])
	s.NotEmpty(w.Header().Get(types.HeaderRequestID))
}

func (s *MiddlewareSuite) TestErrorHandler_ServerErrorHidesInternals() {
	w := s.do(s.engine(), "/crash", "")

	s.Equal(http.StatusInternalServerError, w.Code)
	body := decodeError(s.T(), w)
	s.Equal("An unexpected error occurred", body.Message)
	s.NotContains(w.Body.String(), "driver exploded")
	s.Nil(body.Details)
}

func (s *MiddlewareSuite) TestAuthenticate() {
	r := s.engine()

	s.Run("missing token", func() {
		w := s.do(r, "/users/alice", "")
		s.Equal(http.StatusUnauthorized, w.Code)
		s.Equal("Authorization header is required", decodeError(s.T(), w).Message)
	})

	s.Run("bad signature", func() {
		token, err := auth.GenerateToken("wrong", "alice", "", time.Hour)
		s.Require().NoError(err)
		w := s.do(r, "/users/alice", token)
		s.Equal(http.StatusUnauthorized, w.Code)
	})

	s.Run("owner", func() {
		w := s.do(r, "/users/alice", s.token("alice", ""))
		s.Equal(http.StatusOK, w.Code)
		s.JSONEq(`{"user":"alice","role":""}`, w.Body.String())
	})

	s.Run("other user", func() {
		w := s.do(r, "/users/bob", s.token("alice", ""))
		s.Equal(http.StatusUnauthorized, w.Code)
		s.Equal("Only the authorized user or an admin can access this", decodeError(s.T(), w).Message)
	})

	s.Run("admin", func() {
		w := s.do(r, "/users/bob", s.token("ops", auth.RoleAdmin))
		s.Equal(http.StatusOK, w.Code)
	})
}

func (s *MiddlewareSuite) TestAuthenticate_Disabled() {
	s.cfg.Auth.Disabled = true

	w := s.do(s.engine(), "/users/anyone", "")
	s.Equal(http.StatusOK, w.Code)
	s.JSONEq(`{"user":"`+types.DefaultUserID+`","role":"admin"}`, w.Body.String())
}

func TestRequestIDMiddleware_KeepsIncoming(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestIDMiddleware)
	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, types.GetRequestID(c.Request.Context()))
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(types.HeaderRequestID, "req-42")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "req-42", w.Body.String())
	assert.Equal(t, "req-42", w.Header().Get(types.HeaderRequestID))
}

func TestSetSurrogateKey(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	SetSurrogateKey(c, "acme")
	assert.Equal(t, "Account:acme", w.Header().Get(types.HeaderSurrogateKey))
}
