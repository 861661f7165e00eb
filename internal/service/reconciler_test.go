package service

import (
	"context"
	"testing"
	"time"

	"github.com/flexprice/subscriptions/internal/domain/account"
	"github.com/flexprice/subscriptions/internal/domain/plan"
	ierr "github.com/flexprice/subscriptions/internal/errors"
	"github.com/flexprice/subscriptions/internal/integration/base"
	"github.com/flexprice/subscriptions/internal/testutil"
	"github.com/flexprice/subscriptions/internal/types"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/samber/lo"
	"github.com/stretchr/testify/suite"
)

type ReconcilerServiceSuite struct {
	testutil.BaseServiceTestSuite
	reconciler *subscriptionReconciler
	basic      *plan.Plan
	pro        *plan.Plan
	addon      *plan.Plan
}

func TestReconcilerService(t *testing.T) {
	suite.Run(t, new(ReconcilerServiceSuite))
}

func (s *ReconcilerServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()

	params := newTestParams(&s.BaseServiceTestSuite)
	plans := NewPlanCatalog(params)
	resolver := NewSubscriptionResolver(plans, false, s.GetLogger())
	resolver.(*subscriptionResolver).now = s.GetNow

	s.reconciler = NewSubscriptionReconciler(params, resolver, plans).(*subscriptionReconciler)
	s.reconciler.now = s.GetNow

	s.basic = s.CreatePlan("basic", false)
	s.pro = s.CreatePlan("pro", false)
	s.addon = s.CreatePlan("addon", true)
}

func (s *ReconcilerServiceSuite) activeSub(p *plan.Plan, providerID string) account.Subscription {
	sub := account.NewSubscription(p.ID, p.Reference, types.BillingIntervalMonth, "", s.GetNow().Add(-48*time.Hour))
	sub.DateExpires = s.GetNow().Add(10 * 24 * time.Hour)
	if providerID != "" {
		sub.ProviderMetadata[types.MetadataKeyStripeSubscriptionID] = providerID
	}
	return sub
}

func (s *ReconcilerServiceSuite) TestCreateOnEmptyAccount() {
	acc := s.CreateAccount("acme")

	saved, sub, err := s.reconciler.Apply(s.GetContext(), ApplyRequest{
		Target:  ForAccount("acme"),
		Plan:    "basic",
		Payment: base.PaymentDetails{Token: "tok_visa"},
	})
	s.Require().NoError(err)

	s.Len(saved.Subscriptions, 1)
	s.Equal(s.basic.ID, sub.PlanID)
	s.Equal(types.BillingIntervalMonth, sub.Billing)
	s.Equal(s.GetNow().Add(types.MonthPeriod), sub.DateExpires)
	s.Equal("si_2", sub.ProviderSubscriptionID())

	stored := s.ReloadAccount(acc)
	s.Equal("cus_1", stored.ProviderCustomerID())
	s.Equal(int64(1), stored.Version)
	s.reconciler.Notifier.Wait()
	s.Equal([]string{"acme"}, s.GetPurger().Purged())

	req := s.GetProvider().Requests[0]
	s.Nil(req.Existing)
	s.Equal("tok_visa", req.Payment.Token)
}

func (s *ReconcilerServiceSuite) TestExpiry() {
	explicit := time.Date(2031, 5, 4, 3, 2, 1, 0, time.UTC)

	tests := []struct {
		name    string
		billing types.BillingInterval
		expires *time.Time
		want    time.Time
	}{
		{name: "month", billing: types.BillingIntervalMonth, want: s.GetNow().Add(31 * 24 * time.Hour)},
		{name: "year", billing: types.BillingIntervalYear, want: s.GetNow().Add(366 * 24 * time.Hour)},
		{name: "explicit date wins", billing: types.BillingIntervalYear, expires: &explicit, want: explicit},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			s.CreateAccount("acct-" + tt.name)
			_, sub, err := s.reconciler.Apply(s.GetContext(), ApplyRequest{
				Target:      ForAccount("acct-" + tt.name),
				Plan:        "basic",
				Billing:     tt.billing,
				DateExpires: tt.expires,
			})
			s.Require().NoError(err)
			s.Equal(tt.want, sub.DateExpires)
		})
	}
}

func (s *ReconcilerServiceSuite) TestExclusivePlanReplacesInPlace() {
	existing := s.activeSub(s.basic, "si_basic")
	acc := s.CreateAccount("acme", existing)

	saved, sub, err := s.reconciler.Apply(s.GetContext(), ApplyRequest{
		Target: ForAccount("acme"),
		Plan:   "pro",
	})
	s.Require().NoError(err)

	s.Len(saved.Subscriptions, 1)
	s.Equal(existing.ID, sub.ID)
	s.Equal(existing.DateCreated, sub.DateCreated)
	s.Equal("pro", sub.PlanReference)
	s.Equal("si_basic", sub.ProviderSubscriptionID())
	s.Len(s.ReloadAccount(acc).Subscriptions, 1)

	req := s.GetProvider().Requests[0]
	s.Require().NotNil(req.Existing)
	s.Equal(existing.ID, req.Existing.ID)
}

func (s *ReconcilerServiceSuite) TestAtMostOneActiveExclusive() {
	acc := s.CreateAccount("acme")

	for _, ref := range []string{"basic", "pro", "addon", "basic", "pro"} {
		_, _, err := s.reconciler.Apply(s.GetContext(), ApplyRequest{
			Target: ForAccount("acme"),
			Plan:   ref,
		})
		s.Require().NoError(err)
	}

	stored := s.ReloadAccount(acc)
	exclusive := lo.Filter(stored.Subscriptions, func(sub account.Subscription, _ int) bool {
		return sub.IsActive(s.GetNow()) && sub.PlanID != s.addon.ID
	})
	s.Len(exclusive, 1)
	s.Equal("pro", exclusive[0].PlanReference)
	s.Len(stored.Subscriptions, 2)
}

func (s *ReconcilerServiceSuite) TestAllowMultipleOpensNewSlot() {
	s.CreateAccount("acme", s.activeSub(s.basic, ""))

	saved, _, err := s.reconciler.Apply(s.GetContext(), ApplyRequest{
		Target: ForAccount("acme"),
		Plan:   "addon",
	})
	s.Require().NoError(err)
	s.Len(saved.Subscriptions, 2)
}

func (s *ReconcilerServiceSuite) TestStoppedSubscriptionIsNotReplaced() {
	stopped := s.activeSub(s.basic, "")
	stopped.Stop(s.GetNow().Add(-time.Hour))
	s.CreateAccount("acme", stopped)

	saved, sub, err := s.reconciler.Apply(s.GetContext(), ApplyRequest{
		Target: ForAccount("acme"),
		Plan:   "pro",
	})
	s.Require().NoError(err)
	s.Len(saved.Subscriptions, 2)
	s.NotEqual(stopped.ID, sub.ID)
}

func (s *ReconcilerServiceSuite) TestProviderFailureLeavesAccountUntouched() {
	acc := s.CreateAccount("acme", s.activeSub(s.basic, "si_basic"))
	s.GetProvider().CreateErr = ierr.NewError("card declined").
		WithHint("Your card was declined").
		Mark(ierr.ErrPaymentRequired)

	_, _, err := s.reconciler.Apply(s.GetContext(), ApplyRequest{
		Target: ForAccount("acme"),
		Plan:   "pro",
	})
	s.Require().Error(err)
	s.True(ierr.IsPaymentRequired(err))

	stored := s.ReloadAccount(acc)
	s.Equal(acc.Version, stored.Version)
	s.Equal("basic", stored.Subscriptions[0].PlanReference)
	s.Zero(s.GetStores().AccountRepo.Saves())
	s.reconciler.Notifier.Wait()
	s.Empty(s.GetPurger().Purged())
}

func (s *ReconcilerServiceSuite) TestIgnoreProviderSkipsBilling() {
	s.CreateAccount("acme")

	_, sub, err := s.reconciler.Apply(s.GetContext(), ApplyRequest{
		Target:         ForAccount("acme"),
		Plan:           "basic",
		IgnoreProvider: true,
	})
	s.Require().NoError(err)
	s.Empty(sub.ProviderSubscriptionID())
	s.Zero(s.GetProvider().CreateCalls())
}

func (s *ReconcilerServiceSuite) TestRetriesVersionConflictWithoutRecharging() {
	acc := s.CreateAccount("acme")
	store := s.GetStores().AccountRepo

	bumped := false
	store.BeforeSave = func(ctx context.Context, stored *account.Account) {
		if !bumped {
			bumped = true
			store.Bump(ctx, stored.ID)
		}
	}

	_, _, err := s.reconciler.Apply(s.GetContext(), ApplyRequest{
		Target: ForAccount("acme"),
		Plan:   "basic",
	})
	s.Require().NoError(err)
	s.Equal(1, s.GetProvider().CreateCalls())
	s.Len(s.ReloadAccount(acc).Subscriptions, 1)
	s.Equal(float64(1), promtestutil.ToFloat64(s.GetMetrics().VersionConflicts.WithLabelValues("apply")))
}

func (s *ReconcilerServiceSuite) TestPersistentConflictIsReturned() {
	s.CreateAccount("acme")
	store := s.GetStores().AccountRepo
	store.BeforeSave = func(ctx context.Context, stored *account.Account) {
		store.Bump(ctx, stored.ID)
	}

	_, _, err := s.reconciler.Apply(s.GetContext(), ApplyRequest{
		Target: ForAccount("acme"),
		Plan:   "basic",
	})
	s.Require().Error(err)
	s.True(ierr.IsVersionConflict(err))
	s.Equal(409, ierr.HTTPStatusFromErr(err))
	s.Equal(1, s.GetProvider().CreateCalls())
	s.Equal(float64(maxSaveAttempts), promtestutil.ToFloat64(s.GetMetrics().VersionConflicts.WithLabelValues("apply")))
}

func (s *ReconcilerServiceSuite) TestUpdateTargetsSubscription() {
	first := s.activeSub(s.addon, "si_a")
	second := s.activeSub(s.addon, "si_b")
	s.CreateAccount("acme", first, second)

	saved, sub, err := s.reconciler.Apply(s.GetContext(), ApplyRequest{
		Target:         ForAccount("acme"),
		SubscriptionID: second.ID,
		Billing:        types.BillingIntervalYear,
	})
	s.Require().NoError(err)

	s.Equal(second.ID, sub.ID)
	s.Equal("addon", sub.PlanReference)
	s.Equal(types.BillingIntervalYear, sub.Billing)
	s.Equal(first, saved.Subscriptions[0])
}

func (s *ReconcilerServiceSuite) TestUpdateStoppedSubscriptionIsRejected() {
	stopped := s.activeSub(s.basic, "si_basic")
	stopped.Stop(s.GetNow().Add(-time.Hour))
	acc := s.CreateAccount("acme", stopped)

	_, _, err := s.reconciler.Apply(s.GetContext(), ApplyRequest{
		Target:         ForAccount("acme"),
		SubscriptionID: stopped.ID,
		Plan:           "pro",
	})
	s.Require().Error(err)
	s.True(ierr.IsValidation(err))

	stored := s.ReloadAccount(acc)
	s.Equal(acc.Version, stored.Version)
	s.Equal("basic", stored.Subscriptions[0].PlanReference)
	s.Zero(s.GetProvider().CreateCalls())
	s.Zero(s.GetStores().AccountRepo.Saves())
}

func (s *ReconcilerServiceSuite) TestSubscriptionOnDeletedPlanDoesNotBlockCreate() {
	orphan := s.activeSub(s.basic, "si_orphan")
	orphan.PlanID = "plan_deleted"
	orphan.PlanReference = "deleted"
	acc := s.CreateAccount("acme", orphan)

	saved, sub, err := s.reconciler.Apply(s.GetContext(), ApplyRequest{
		Target: ForAccount("acme"),
		Plan:   "pro",
	})
	s.Require().NoError(err)
	s.Len(saved.Subscriptions, 2)
	s.NotEqual(orphan.ID, sub.ID)
	stored := s.ReloadAccount(acc).Subscriptions[0]
	s.Equal(orphan.ID, stored.ID)
	s.Equal("plan_deleted", stored.PlanID)
	s.True(stored.IsActive(s.GetNow()))
	s.Nil(s.GetProvider().Requests[0].Existing)
}

func (s *ReconcilerServiceSuite) TestUpdateUnknownSubscription() {
	s.CreateAccount("acme")

	_, _, err := s.reconciler.Apply(s.GetContext(), ApplyRequest{
		Target:         ForAccount("acme"),
		SubscriptionID: "sub_missing",
	})
	s.Require().Error(err)
	s.True(ierr.IsNotFound(err))
	s.Zero(s.GetProvider().CreateCalls())
}

func (s *ReconcilerServiceSuite) TestUserTargetPassesUserReference() {
	acc := s.CreateAccount("acme")
	acc.Email = ""
	s.Require().NoError(s.GetStores().AccountRepo.Save(s.GetContext(), acc))
	s.CreateUser("jane", acc)

	_, _, err := s.reconciler.Apply(s.GetContext(), ApplyRequest{
		Target: ForUser("jane"),
		Plan:   "basic",
		Email:  "jane@example.test",
	})
	s.Require().NoError(err)

	s.Equal("jane", s.GetProvider().Requests[0].UserRef)
	s.Equal("jane@example.test", s.ReloadAccount(acc).Email)
}

func (s *ReconcilerServiceSuite) TestValidation() {
	s.CreateAccount("acme")

	_, _, err := s.reconciler.Apply(s.GetContext(), ApplyRequest{Target: ForAccount("acme")})
	s.True(ierr.IsValidation(err))

	_, _, err = s.reconciler.Apply(s.GetContext(), ApplyRequest{
		Target:  ForAccount("acme"),
		Plan:    "basic",
		Billing: "weekly",
	})
	s.True(ierr.IsValidation(err))

	_, _, err = s.reconciler.Apply(s.GetContext(), ApplyRequest{Plan: "basic"})
	s.True(ierr.IsValidation(err))
}

func (s *ReconcilerServiceSuite) TestSlowPurgeDoesNotBlockWriters() {
	acc := s.CreateAccount("acme")
	hold := make(chan struct{})
	s.GetPurger().Hold = hold

	apply := func() <-chan error {
		done := make(chan error, 1)
		go func() {
			_, _, err := s.reconciler.Apply(s.GetContext(), ApplyRequest{
				Target:         ForAccount("acme"),
				Plan:           "addon",
				IgnoreProvider: true,
			})
			done <- err
		}()
		return done
	}

	for i := 0; i < 2; i++ {
		select {
		case err := <-apply():
			s.Require().NoError(err)
		case <-time.After(time.Second):
			s.FailNow("apply waited for the purge")
		}
	}
	s.Empty(s.GetPurger().Purged())
	s.Zero(s.reconciler.Locker.held(acc.ID))
	s.Len(s.ReloadAccount(acc).Subscriptions, 2)

	close(hold)
	s.reconciler.Notifier.Wait()
	s.Equal([]string{"acme", "acme"}, s.GetPurger().Purged())
}
