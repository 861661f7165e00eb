package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/flexprice/subscriptions/internal/domain/account"
	ierr "github.com/flexprice/subscriptions/internal/errors"
	"github.com/flexprice/subscriptions/internal/integration/base"
	"github.com/flexprice/subscriptions/internal/testutil"
	"github.com/flexprice/subscriptions/internal/types"
	"github.com/flexprice/subscriptions/internal/webhook/dto"
	"github.com/stretchr/testify/suite"
)

type RenewalServiceSuite struct {
	testutil.BaseServiceTestSuite
	service *renewalService
	acc     *account.Account
	sub     account.Subscription
}

func TestRenewalService(t *testing.T) {
	suite.Run(t, new(RenewalServiceSuite))
}

func (s *RenewalServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.service = NewRenewalService(newTestParams(&s.BaseServiceTestSuite)).(*renewalService)
	s.service.now = s.GetNow

	p := s.CreatePlan("pro", false)
	s.sub = account.NewSubscription(p.ID, p.Reference, types.BillingIntervalMonth, "", s.GetNow().Add(-30*24*time.Hour))
	s.sub.DateExpires = s.GetNow().Add(24 * time.Hour)
	s.sub.ProviderMetadata[types.MetadataKeyStripeSubscriptionID] = "si_pro"

	s.acc = s.CreateAccount("acme", s.sub)
	s.acc.SetProviderMetadata(types.MetadataKeyStripeCustomerID, "cus_acme")
	s.Require().NoError(s.GetStores().AccountRepo.Save(s.GetContext(), s.acc))
	s.CreateUser("jane", s.acc)

	s.GetProvider().Notification = &base.RenewalNotification{
		EventID:        "evt_1",
		CustomerID:     "cus_acme",
		SubscriptionID: "si_pro",
		Interval:       types.BillingIntervalMonth,
		IntervalCount:  1,
	}
}

func (s *RenewalServiceSuite) TestExtendsMatchingSubscription() {
	res, err := s.service.HandleNotification(s.GetContext(), base.RenewalNotificationInput{Payload: []byte(`{}`)})
	s.Require().NoError(err)
	s.Require().Len(res.Renewed, 1)

	want := s.sub.DateExpires.Add(types.MonthPeriod)
	s.Equal(want, res.Renewed[0].DateExpires)
	s.Equal(want, s.ReloadAccount(s.acc).Subscriptions[0].DateExpires)
	s.service.Notifier.Wait()
	s.Equal([]string{"acme"}, s.GetPurger().Purged())
}

func (s *RenewalServiceSuite) TestReplayExtendsTwice() {
	for i := 0; i < 2; i++ {
		_, err := s.service.HandleNotification(s.GetContext(), base.RenewalNotificationInput{Payload: []byte(`{}`)})
		s.Require().NoError(err)
	}

	want := s.sub.DateExpires.Add(2 * types.MonthPeriod)
	s.Equal(want, s.ReloadAccount(s.acc).Subscriptions[0].DateExpires)
}

func (s *RenewalServiceSuite) TestIntervalCount() {
	s.GetProvider().Notification.Interval = types.BillingIntervalYear
	s.GetProvider().Notification.IntervalCount = 2

	res, err := s.service.HandleNotification(s.GetContext(), base.RenewalNotificationInput{})
	s.Require().NoError(err)
	s.Equal(int64(2), res.IntervalCount)
	s.Equal(s.sub.DateExpires.Add(2*types.YearPeriod), res.Renewed[0].DateExpires)
}

func (s *RenewalServiceSuite) TestLapsedSubscriptionExtendsFromNow() {
	acc := s.ReloadAccount(s.acc)
	acc.Subscriptions[0].DateExpires = s.GetNow().Add(-72 * time.Hour)
	s.Require().NoError(s.GetStores().AccountRepo.Save(s.GetContext(), acc))

	res, err := s.service.HandleNotification(s.GetContext(), base.RenewalNotificationInput{})
	s.Require().NoError(err)
	s.Equal(s.GetNow().Add(types.MonthPeriod), res.Renewed[0].DateExpires)
}

func (s *RenewalServiceSuite) TestPublishesRenewalWebhook() {
	_, err := s.service.HandleNotification(s.GetContext(), base.RenewalNotificationInput{})
	s.Require().NoError(err)

	events := s.GetPubSub().WebhookEvents(s.GetConfig().Webhook.Topic)
	s.Require().Len(events, 1)
	s.Equal(types.WebhookEventSubscriptionRenewed, events[0].EventName)
	s.Equal("acme", events[0].AccountRef)

	var payload dto.RenewalPayload
	s.Require().NoError(json.Unmarshal(events[0].Payload, &payload))
	s.Equal(dto.RenewalPayloadType, payload.Type)
	s.Equal("acme", payload.Account.Reference)
	s.Require().Len(payload.Users, 1)
	s.Equal("jane", payload.Users[0].Reference)
	s.Len(payload.Subscriptions, 1)
	s.Equal(types.BillingIntervalMonth, payload.Interval)
	s.Equal(int64(1), payload.IntervalCount)
}

func (s *RenewalServiceSuite) TestNoMatchingSubscription() {
	s.GetProvider().Notification.SubscriptionID = "si_other"
	version := s.ReloadAccount(s.acc).Version

	res, err := s.service.HandleNotification(s.GetContext(), base.RenewalNotificationInput{})
	s.Require().NoError(err)
	s.Empty(res.Renewed)
	s.Equal(version, s.ReloadAccount(s.acc).Version)
	s.Empty(s.GetPubSub().WebhookEvents(s.GetConfig().Webhook.Topic))
}

func (s *RenewalServiceSuite) TestUnknownCustomer() {
	s.GetProvider().Notification.CustomerID = "cus_ghost"

	_, err := s.service.HandleNotification(s.GetContext(), base.RenewalNotificationInput{})
	s.Require().Error(err)
	s.True(ierr.IsNotFound(err))
}

func (s *RenewalServiceSuite) TestInvalidNotification() {
	s.GetProvider().ParseErr = ierr.NewError("bad signature").Mark(ierr.ErrInvalidNotification)

	_, err := s.service.HandleNotification(s.GetContext(), base.RenewalNotificationInput{})
	s.Require().Error(err)
	s.Equal(400, ierr.HTTPStatusFromErr(err))
}

func (s *RenewalServiceSuite) TestPersistentConflictIsServerError() {
	store := s.GetStores().AccountRepo
	store.BeforeSave = func(ctx context.Context, stored *account.Account) {
		store.Bump(ctx, stored.ID)
	}

	_, err := s.service.HandleNotification(s.GetContext(), base.RenewalNotificationInput{})
	s.Require().Error(err)
	s.True(ierr.Is(err, ierr.ErrSystem))
	s.Equal(500, ierr.HTTPStatusFromErr(err))
}
