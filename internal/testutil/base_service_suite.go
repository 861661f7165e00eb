package testutil

import (
	"context"
	"time"

	"github.com/flexprice/subscriptions/internal/cache"
	"github.com/flexprice/subscriptions/internal/config"
	"github.com/flexprice/subscriptions/internal/domain/account"
	"github.com/flexprice/subscriptions/internal/domain/plan"
	"github.com/flexprice/subscriptions/internal/domain/user"
	"github.com/flexprice/subscriptions/internal/logger"
	"github.com/flexprice/subscriptions/internal/metrics"
	"github.com/flexprice/subscriptions/internal/sentry"
	"github.com/flexprice/subscriptions/internal/types"
	webhookPublisher "github.com/flexprice/subscriptions/internal/webhook/publisher"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

// Stores holds all the repository interfaces for testing
type Stores struct {
	AccountRepo *InMemoryAccountStore
	PlanRepo    *InMemoryPlanStore
	UserRepo    *InMemoryUserStore
}

// BaseServiceTestSuite provides common functionality for all service test suites
type BaseServiceTestSuite struct {
	suite.Suite
	ctx              context.Context
	stores           Stores
	provider         *MockPaymentProvider
	purger           *MockPurger
	pubsub           *InMemoryPubSub
	webhookPublisher webhookPublisher.WebhookPublisher
	cache            cache.Cache
	metrics          *metrics.Metrics
	sentry           *sentry.Service
	logger           *logger.Logger
	config           *config.Configuration
	now              time.Time
}

// SetupSuite is called once before running the tests in the suite
func (s *BaseServiceTestSuite) SetupSuite() {
	s.config = config.GetDefaultConfig()
	s.config.Billing.SellerCountry = "FR"
	s.config.Payment.Timeout = 2 * time.Second
	s.logger = logger.NewNoopLogger()
	s.sentry = sentry.NewSentryService(s.config, s.logger)
}

// SetupTest is called before each test
func (s *BaseServiceTestSuite) SetupTest() {
	s.ctx = SetupContext()
	s.now = time.Now().UTC()
	s.setupStores()
}

// TearDownTest is called after each test
func (s *BaseServiceTestSuite) TearDownTest() {
	s.clearStores()
}

func (s *BaseServiceTestSuite) setupStores() {
	s.stores = Stores{
		AccountRepo: NewInMemoryAccountStore(),
		PlanRepo:    NewInMemoryPlanStore(),
		UserRepo:    NewInMemoryUserStore(),
	}

	s.provider = NewMockPaymentProvider()
	s.purger = NewMockPurger()
	s.cache = cache.NewInMemoryCache(time.Minute)
	s.metrics = metrics.NewMetricsWithRegistry(prometheus.NewRegistry())

	s.pubsub = NewInMemoryPubSub()
	publisher, err := webhookPublisher.NewPublisher(s.pubsub, s.config, s.logger)
	if err != nil {
		s.T().Fatalf("failed to create webhook publisher: %v", err)
	}
	s.webhookPublisher = publisher
}

func (s *BaseServiceTestSuite) clearStores() {
	s.stores.AccountRepo.Clear()
	s.stores.PlanRepo.Clear()
	s.stores.UserRepo.Clear()
	s.cache.Flush(context.Background())
	s.pubsub.ClearMessages()
}

func (s *BaseServiceTestSuite) ClearStores() {
	s.clearStores()
}

// CreateAccount stores an account with the given subscriptions.
func (s *BaseServiceTestSuite) CreateAccount(reference string, subs ...account.Subscription) *account.Account {
	acc := account.NewAccount(reference, reference, reference+"@example.test")
	acc.Subscriptions = append(acc.Subscriptions, subs...)
	s.Require().NoError(s.stores.AccountRepo.Create(s.ctx, acc))
	return acc
}

// CreatePlan stores an available plan with a monthly and a yearly price.
func (s *BaseServiceTestSuite) CreatePlan(reference string, allowMultiple bool) *plan.Plan {
	month := decimal.NewFromInt(10)
	year := decimal.NewFromInt(100)
	p := &plan.Plan{
		ID:            types.GenerateUUIDWithPrefix(types.UUID_PREFIX_PLAN),
		Reference:     reference,
		Name:          reference,
		IsAvailable:   true,
		AllowMultiple: allowMultiple,
		Price: plan.PriceTable{
			Month:       &month,
			Year:        &year,
			VATIncluded: true,
		},
		Metadata: types.Metadata{},
	}
	s.Require().NoError(s.stores.PlanRepo.Create(s.ctx, p))
	return p
}

// CreateUser stores a user of acc.
func (s *BaseServiceTestSuite) CreateUser(reference string, acc *account.Account) *user.User {
	u := user.NewUser(reference, acc.ID, reference+"@example.test")
	s.Require().NoError(s.stores.UserRepo.Create(s.ctx, u))
	return u
}

// ReloadAccount returns the stored version of acc.
func (s *BaseServiceTestSuite) ReloadAccount(acc *account.Account) *account.Account {
	stored, err := s.stores.AccountRepo.Get(s.ctx, acc.ID)
	s.Require().NoError(err)
	return stored
}

// GetContext returns the test context
func (s *BaseServiceTestSuite) GetContext() context.Context {
	return s.ctx
}

// GetConfig returns the test configuration
func (s *BaseServiceTestSuite) GetConfig() *config.Configuration {
	return s.config
}

// GetStores returns all test repositories
func (s *BaseServiceTestSuite) GetStores() Stores {
	return s.stores
}

func (s *BaseServiceTestSuite) GetProvider() *MockPaymentProvider {
	return s.provider
}

func (s *BaseServiceTestSuite) GetPurger() *MockPurger {
	return s.purger
}

func (s *BaseServiceTestSuite) GetPubSub() *InMemoryPubSub {
	return s.pubsub
}

// GetWebhookPublisher returns the test webhook publisher
func (s *BaseServiceTestSuite) GetWebhookPublisher() webhookPublisher.WebhookPublisher {
	return s.webhookPublisher
}

func (s *BaseServiceTestSuite) GetCache() cache.Cache {
	return s.cache
}

func (s *BaseServiceTestSuite) GetMetrics() *metrics.Metrics {
	return s.metrics
}

func (s *BaseServiceTestSuite) GetSentry() *sentry.Service {
	return s.sentry
}

// GetLogger returns the test logger
func (s *BaseServiceTestSuite) GetLogger() *logger.Logger {
	return s.logger
}

// GetNow returns the current test time
func (s *BaseServiceTestSuite) GetNow() time.Time {
	return s.now
}
