package service

import (
	"context"
	"testing"
	"time"

	ierr "github.com/flexprice/subscriptions/internal/errors"
	"github.com/flexprice/subscriptions/internal/integration/stripe"
	"github.com/flexprice/subscriptions/internal/testutil"
	"github.com/flexprice/subscriptions/internal/types"
	"github.com/stretchr/testify/suite"
)

type fakeDirectory struct {
	customers  []stripe.StaleCustomer
	deleted    []string
	deleteErrs map[string]error
	cutoff     time.Time
}

func (d *fakeDirectory) ListCustomersCreatedBefore(_ context.Context, cutoff time.Time, fn func(stripe.StaleCustomer) error) error {
	d.cutoff = cutoff
	for _, c := range d.customers {
		if !c.Created.Before(cutoff) {
			continue
		}
		if err := fn(c); err != nil {
			return err
		}
	}
	return nil
}

func (d *fakeDirectory) DeleteCustomer(_ context.Context, id string) error {
	if err := d.deleteErrs[id]; err != nil {
		return err
	}
	d.deleted = append(d.deleted, id)
	return nil
}

type CustomerCleanupSuite struct {
	testutil.BaseServiceTestSuite
	directory *fakeDirectory
	cleanup   *CustomerCleanup
}

func TestCustomerCleanup(t *testing.T) {
	suite.Run(t, new(CustomerCleanupSuite))
}

func (s *CustomerCleanupSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()

	old := s.GetNow().Add(-60 * 24 * time.Hour)
	s.directory = &fakeDirectory{
		customers: []stripe.StaleCustomer{
			{ID: "cus_kept", Created: old},
			{ID: "cus_orphan", Created: old},
			{ID: "cus_recent", Created: s.GetNow().Add(-time.Hour)},
		},
		deleteErrs: map[string]error{},
	}

	acc := s.CreateAccount("acme")
	acc.SetProviderMetadata(types.MetadataKeyStripeCustomerID, "cus_kept")
	s.Require().NoError(s.GetStores().AccountRepo.Save(s.GetContext(), acc))

	s.cleanup = NewCustomerCleanup(s.GetStores().AccountRepo, s.directory, 1000, 30*24*time.Hour, s.GetLogger())
	s.cleanup.now = s.GetNow
}

func (s *CustomerCleanupSuite) TestDeletesOnlyUnreferencedOldCustomers() {
	res, err := s.cleanup.DeleteStale(s.GetContext(), false)
	s.Require().NoError(err)

	s.Equal(s.GetNow().Add(-30*24*time.Hour), s.directory.cutoff)
	s.Equal([]string{"cus_orphan"}, s.directory.deleted)
	s.Equal(&CleanupResult{Scanned: 2, Deleted: 1, Kept: 1}, res)
}

func (s *CustomerCleanupSuite) TestDryRunDeletesNothing() {
	res, err := s.cleanup.DeleteStale(s.GetContext(), true)
	s.Require().NoError(err)
	s.Empty(s.directory.deleted)
	s.Equal(1, res.Deleted)
}

func (s *CustomerCleanupSuite) TestDeleteFailureIsCounted() {
	s.directory.deleteErrs["cus_orphan"] = ierr.NewError("stripe down").Mark(ierr.ErrProviderUnavailable)

	res, err := s.cleanup.DeleteStale(s.GetContext(), false)
	s.Require().NoError(err)
	s.Equal(1, res.Failed)
	s.Equal(0, res.Deleted)
}

func (s *CustomerCleanupSuite) TestExplicitList() {
	res, err := s.cleanup.DeleteCustomers(s.GetContext(), []string{"cus_kept", "cus_gone"}, false)
	s.Require().NoError(err)
	s.Equal([]string{"cus_gone"}, s.directory.deleted)
	s.Equal(1, res.Kept)
}

func (s *CustomerCleanupSuite) TestCancelledContextStops() {
	ctx, cancel := context.WithCancel(s.GetContext())
	cancel()

	_, err := s.cleanup.DeleteStale(ctx, false)
	s.Error(err)
	s.Empty(s.directory.deleted)
}
