package service

import (
	"github.com/flexprice/subscriptions/internal/testutil"
)

// newTestParams wires ServiceParams to the suite's in-memory collaborators.
func newTestParams(s *testutil.BaseServiceTestSuite) ServiceParams {
	stores := s.GetStores()
	return NewServiceParams(
		s.GetLogger(),
		s.GetConfig(),
		stores.AccountRepo,
		stores.PlanRepo,
		stores.UserRepo,
		s.GetProvider(),
		s.GetPurger(),
		s.GetCache(),
		s.GetWebhookPublisher(),
		NewAccountLocker(),
		s.GetMetrics(),
		s.GetSentry(),
	)
}
