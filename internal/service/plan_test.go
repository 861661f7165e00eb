package service

import (
	"testing"

	"github.com/flexprice/subscriptions/internal/api/dto"
	ierr "github.com/flexprice/subscriptions/internal/errors"
	"github.com/flexprice/subscriptions/internal/testutil"
	"github.com/samber/lo"
	"github.com/stretchr/testify/suite"
)

type PlanCatalogSuite struct {
	testutil.BaseServiceTestSuite
	catalog PlanCatalog
}

func TestPlanCatalog(t *testing.T) {
	suite.Run(t, new(PlanCatalogSuite))
}

func (s *PlanCatalogSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.catalog = NewPlanCatalog(newTestParams(&s.BaseServiceTestSuite))
}

func (s *PlanCatalogSuite) TestListPlansOrderAndFilter() {
	late := s.CreatePlan("late", false)
	late.Position = 3
	late.Tags = []string{"web"}
	early := s.CreatePlan("early", false)
	early.Position = 1
	early.Tags = []string{"web", "api"}
	hidden := s.CreatePlan("hidden", false)
	hidden.IsAvailable = false
	hidden.Tags = []string{"web"}
	api := s.CreatePlan("api-only", false)
	api.Position = 2
	api.Tags = []string{"api"}

	resp, err := s.catalog.ListPlans(s.GetContext(), dto.ListPlansRequest{Tag: "web"})
	s.Require().NoError(err)
	s.Equal([]string{"early", "late"}, lo.Map(resp.Items, func(p *dto.PlanResponse, _ int) string {
		return p.Reference
	}))

	resp, err = s.catalog.ListPlans(s.GetContext(), dto.ListPlansRequest{})
	s.Require().NoError(err)
	s.Len(resp.Items, 3)
}

func (s *PlanCatalogSuite) TestListPlansProjectsVAT() {
	s.CreatePlan("basic", false)

	resp, err := s.catalog.ListPlans(s.GetContext(), dto.ListPlansRequest{})
	s.Require().NoError(err)
	s.Require().Len(resp.Items, 1)
	s.Equal(10.0, *resp.Items[0].Price.Month)
	s.Equal(2.0, *resp.Items[0].VAT.Month)
	s.Nil(resp.Items[0].Price.Once)
	s.Equal(DefaultCurrency, resp.Items[0].Price.Currency)

	resp, err = s.catalog.ListPlans(s.GetContext(), dto.ListPlansRequest{IncludeVAT: lo.ToPtr(false)})
	s.Require().NoError(err)
	s.Equal(8.0, *resp.Items[0].Price.Month)
	s.Equal(0.0, *resp.Items[0].VAT.Month)
}

func (s *PlanCatalogSuite) TestLookupsAreCached() {
	p := s.CreatePlan("basic", false)

	_, err := s.catalog.GetByReference(s.GetContext(), "basic")
	s.Require().NoError(err)
	_, err = s.catalog.Get(s.GetContext(), p.ID)
	s.Require().NoError(err)

	s.Require().NoError(s.GetStores().PlanRepo.Delete(s.GetContext(), p.ID))

	got, err := s.catalog.GetByReference(s.GetContext(), "basic")
	s.Require().NoError(err)
	s.Equal(p.ID, got.ID)

	byID, err := s.catalog.GetByIDs(s.GetContext(), []string{p.ID, p.ID, "", "plan_missing"})
	s.Require().NoError(err)
	s.Len(byID, 1)
	s.Contains(byID, p.ID)
}

func (s *PlanCatalogSuite) TestGetPlanNotFound() {
	_, err := s.catalog.GetPlan(s.GetContext(), "ghost", nil)
	s.Require().Error(err)
	s.True(ierr.IsNotFound(err))
}
