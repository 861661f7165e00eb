package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/flexprice/subscriptions/internal/api/dto"
	"github.com/flexprice/subscriptions/internal/auth"
	"github.com/flexprice/subscriptions/internal/domain/account"
	ierr "github.com/flexprice/subscriptions/internal/errors"
	"github.com/flexprice/subscriptions/internal/integration/base"
	"github.com/flexprice/subscriptions/internal/service"
	"github.com/flexprice/subscriptions/internal/testutil"
	"github.com/flexprice/subscriptions/internal/types"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/suite"
)

const testSecret = "router-secret"

type RouterSuite struct {
	testutil.BaseServiceTestSuite
	router *gin.Engine
}

func TestRouter(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}

func (s *RouterSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	gin.SetMode(gin.TestMode)

	cfg := s.GetConfig()
	cfg.Auth.Secret = testSecret
	cfg.Auth.Disabled = false

	stores := s.GetStores()
	params := service.NewServiceParams(
		s.GetLogger(),
		cfg,
		stores.AccountRepo,
		stores.PlanRepo,
		stores.UserRepo,
		s.GetProvider(),
		s.GetPurger(),
		s.GetCache(),
		s.GetWebhookPublisher(),
		service.NewAccountLocker(),
		s.GetMetrics(),
		s.GetSentry(),
	)
	plans := service.NewPlanCatalog(params)
	resolver := service.NewSubscriptionResolver(plans, false, s.GetLogger())
	subscriptions := service.NewSubscriptionService(
		params,
		plans,
		service.NewSubscriptionReconciler(params, resolver, plans),
		service.NewCancellationEngine(params),
	)

	handlers := NewHandlers(plans, subscriptions, service.NewRenewalService(params), s.GetLogger())
	s.router = NewRouter(handlers, cfg, s.GetLogger(), s.GetMetrics(), s.GetSentry())
}

func (s *RouterSuite) token(userID, role string) string {
	token, err := auth.GenerateToken(testSecret, userID, role, time.Hour)
	s.Require().NoError(err)
	return token
}

func (s *RouterSuite) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set(types.HeaderAuthorization, "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *RouterSuite) decode(w *httptest.ResponseRecorder, into any) {
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), into), w.Body.String())
}

func (s *RouterSuite) TestHealthAndMetrics() {
	s.Equal(http.StatusOK, s.do(http.MethodGet, "/v1/health", "", nil).Code)

	w := s.do(http.MethodGet, "/metrics", "", nil)
	s.Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), "http_requests_total")
}

func (s *RouterSuite) TestListPlansIsPublic() {
	s.CreatePlan("pro", false)

	w := s.do(http.MethodGet, "/v1/plans", "", nil)
	s.Require().Equal(http.StatusOK, w.Code)

	var resp dto.ListPlansResponse
	s.decode(w, &resp)
	s.Require().Len(resp.Items, 1)
	s.Equal("pro", resp.Items[0].Reference)
}

func (s *RouterSuite) TestAccountRoutesRequireToken() {
	s.CreateAccount("acme")

	w := s.do(http.MethodGet, "/v1/accounts/acme/subscriptions", "", nil)
	s.Equal(http.StatusUnauthorized, w.Code)

	var body ierr.ErrorResponse
	s.decode(w, &body)
	s.Equal(http.StatusUnauthorized, body.Status)
	s.NotEmpty(body.Reference)
}

func (s *RouterSuite) TestSubscriptionLifecycle() {
	s.CreatePlan("pro", false)
	s.CreateAccount("acme")
	token := s.token("ops", auth.RoleAdmin)

	w := s.do(http.MethodPost, "/v1/accounts/acme/subscriptions", token, dto.CreateSubscriptionRequest{
		Plan:    "pro",
		Billing: types.BillingIntervalMonth,
		Token:   "tok_visa",
	})
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	s.Equal("Account:acme", w.Header().Get(types.HeaderSurrogateKey))

	var created dto.ListSubscriptionsResponse
	s.decode(w, &created)
	s.Require().Len(created.Items, 1)
	s.True(created.Items[0].IsActive)
	s.Require().NotNil(created.Items[0].PlanDetails)

	w = s.do(http.MethodGet, "/v1/accounts/acme/subscriptions/"+created.Items[0].ID, token, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Equal("Account:acme", w.Header().Get(types.HeaderSurrogateKey))

	w = s.do(http.MethodPut, "/v1/accounts/acme/subscriptions/"+created.Items[0].ID, token, dto.UpdateSubscriptionRequest{
		Billing: types.BillingIntervalYear,
	})
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var updated dto.ListSubscriptionsResponse
	s.decode(w, &updated)
	s.Require().Len(updated.Items, 1)
	s.Equal(types.BillingIntervalYear, updated.Items[0].Billing)

	w = s.do(http.MethodDelete, "/v1/accounts/acme/subscriptions", token, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.JSONEq(`{"stoppedCount":1}`, w.Body.String())
}

func (s *RouterSuite) TestCreateRejectsMalformedBody() {
	s.CreateAccount("acme")

	req := httptest.NewRequest(http.MethodPost, "/v1/accounts/acme/subscriptions", bytes.NewBufferString("{"))
	req.Header.Set(types.HeaderAuthorization, "Bearer "+s.token("ops", auth.RoleAdmin))
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal(0, s.GetProvider().CreateCalls())
}

func (s *RouterSuite) TestIgnorePaymentProvider() {
	s.CreatePlan("pro", false)
	s.CreateAccount("acme")

	w := s.do(http.MethodPost, "/v1/accounts/acme/subscriptions?ignorePaymentProvider=true",
		s.token("ops", auth.RoleAdmin), dto.CreateSubscriptionRequest{Plan: "pro"})
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	s.Equal(0, s.GetProvider().CreateCalls())
}

func (s *RouterSuite) TestUserRoutesCheckOwnership() {
	acc := s.CreateAccount("acme")
	s.CreateUser("jane", acc)

	w := s.do(http.MethodGet, "/v1/users/jane/subscriptions", s.token("john", ""), nil)
	s.Equal(http.StatusUnauthorized, w.Code)

	w = s.do(http.MethodGet, "/v1/users/jane/subscriptions", s.token("jane", ""), nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Equal("Account:acme", w.Header().Get(types.HeaderSurrogateKey))
}

func (s *RouterSuite) TestRenew() {
	p := s.CreatePlan("pro", false)
	sub := account.NewSubscription(p.ID, p.Reference, types.BillingIntervalMonth, "", s.GetNow())
	sub.ProviderMetadata[types.MetadataKeyStripeSubscriptionID] = "si_pro"
	acc := s.CreateAccount("acme", sub)
	acc.SetProviderMetadata(types.MetadataKeyStripeCustomerID, "cus_acme")
	s.Require().NoError(s.GetStores().AccountRepo.Save(s.GetContext(), acc))

	s.GetProvider().Notification = &base.RenewalNotification{
		EventID:        "evt_1",
		CustomerID:     "cus_acme",
		SubscriptionID: "si_pro",
		Interval:       types.BillingIntervalMonth,
		IntervalCount:  1,
	}

	w := s.do(http.MethodPost, "/v1/subscriptions/renew", "", map[string]string{"type": "invoice.payment_succeeded"})
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	s.JSONEq(`{"message":"Updated account and 1 subscription(s)","renewed":1}`, w.Body.String())
}

func (s *RouterSuite) TestRenewRejectsInvalidNotification() {
	s.GetProvider().ParseErr = ierr.NewError("bad signature").
		WithHint("Invalid notification signature").
		Mark(ierr.ErrInvalidNotification)

	w := s.do(http.MethodPost, "/v1/subscriptions/renew", "", map[string]string{})
	s.Equal(http.StatusBadRequest, w.Code)

	var body ierr.ErrorResponse
	s.decode(w, &body)
	s.Equal("Invalid notification signature", body.Message)
}
