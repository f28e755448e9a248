package service

import (
	"context"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"golang.org/x/sync/errgroup"

	"gmarup/internal/donation"
	donstore "gmarup/internal/donation/store"
	storage "gmarup/internal/storage/sqlite"
	dErrors "gmarup/pkg/domain-errors"
	"gmarup/pkg/requestcontext"
)

const testPaymentTemplate = "https://pay.example.com/me/abc?amount=%s"

type DonationServiceSuite struct {
	suite.Suite
	db      *storage.Store
	store   *donstore.SQLite
	service *Service
	ctx     context.Context
}

func (s *DonationServiceSuite) SetupTest() {
	db, err := storage.Open(filepath.Join(s.T().TempDir(), "leads.db"))
	s.Require().NoError(err)
	s.db = db
	s.store = donstore.NewSQLite(db)
	s.service = NewService(s.store, db, testPaymentTemplate)
	s.ctx = requestcontext.WithClientMetadata(context.Background(), "203.0.113.7", "test-agent")
}

func (s *DonationServiceSuite) TearDownTest() {
	s.Require().NoError(s.db.Close())
}

func TestDonationServiceSuite(t *testing.T) {
	suite.Run(t, new(DonationServiceSuite))
}

func (s *DonationServiceSuite) validCreate() CreateDonation {
	return CreateDonation{
		Amount:     180,
		DonorName:  "Sara Levi",
		DonorEmail: "sara@example.com",
		DonorPhone: "052-7654321",
		Message:    "לעילוי נשמת",
		Source:     "memorial_page",
	}
}

var publicIDPattern = regexp.MustCompile(`^DON_\d{8}_\d{6}_[0-9a-f]{6,32}$`)

func (s *DonationServiceSuite) TestCreatePersistsRowAndTrail() {
	pledge, err := s.service.Create(s.ctx, s.validCreate())
	s.Require().NoError(err)
	s.Regexp(publicIDPattern, pledge.PublicID)
	s.Equal("https://pay.example.com/me/abc?amount=180&ref="+pledge.PublicID, pledge.PaymentURL)

	don, err := s.store.FindByPublicID(s.ctx, pledge.PublicID)
	s.Require().NoError(err)
	s.Equal(donation.StatusPending, don.Status)
	s.Equal(donation.DefaultPaymentMethod, don.PaymentMethod)
	s.Equal("memorial_page", don.Source)
	s.Equal("203.0.113.7", don.IPAddress)
	s.Equal("test-agent", don.UserAgent)
	s.Nil(don.CompletedAt)
	s.Nil(don.TransactionID)

	trail, err := s.store.ListActivity(s.ctx, don.ID)
	s.Require().NoError(err)
	s.Require().Len(trail, 1)
	s.Equal("created", trail[0].Action)
}

func (s *DonationServiceSuite) TestCreateFormatsFractionalAmounts() {
	req := s.validCreate()
	req.Amount = 18.5
	pledge, err := s.service.Create(s.ctx, req)
	s.Require().NoError(err)
	s.Equal("https://pay.example.com/me/abc?amount=18.5&ref="+pledge.PublicID, pledge.PaymentURL)
}

func (s *DonationServiceSuite) TestCreateRejectsNonPositiveAmount() {
	for _, amount := range []float64{0, -5} {
		req := s.validCreate()
		req.Amount = amount
		_, err := s.service.Create(s.ctx, req)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	}
}

func (s *DonationServiceSuite) TestCreateDefaultsDonorName() {
	// A nameless pledge is accepted even without the anonymity flag.
	req := s.validCreate()
	req.DonorName = "  "
	pledge, err := s.service.Create(s.ctx, req)
	s.Require().NoError(err)

	don, err := s.store.FindByPublicID(s.ctx, pledge.PublicID)
	s.Require().NoError(err)
	s.Equal(donation.DefaultDonorName, don.DonorName)
	s.False(don.IsAnonymous)
}

func (s *DonationServiceSuite) TestCreateAmountOnly() {
	pledge, err := s.service.Create(s.ctx, CreateDonation{Amount: 18})
	s.Require().NoError(err)
	s.NotEmpty(pledge.PublicID)

	don, err := s.store.FindByPublicID(s.ctx, pledge.PublicID)
	s.Require().NoError(err)
	s.Equal(donation.DefaultDonorName, don.DonorName)
	s.Equal(donation.DefaultSource, don.Source)
}

func (s *DonationServiceSuite) TestCreateDefaultsSource() {
	req := s.validCreate()
	req.Source = ""
	pledge, err := s.service.Create(s.ctx, req)
	s.Require().NoError(err)

	don, err := s.store.FindByPublicID(s.ctx, pledge.PublicID)
	s.Require().NoError(err)
	s.Equal(donation.DefaultSource, don.Source)
}

func (s *DonationServiceSuite) TestCreateConcurrent() {
	const workers = 50
	var g errgroup.Group
	ids := make(chan string, workers)
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			pledge, err := s.service.Create(s.ctx, s.validCreate())
			if err != nil {
				return err
			}
			ids <- pledge.PublicID
			return nil
		})
	}
	s.Require().NoError(g.Wait())
	close(ids)

	seen := make(map[string]bool, workers)
	for id := range ids {
		s.False(seen[id], id)
		seen[id] = true
	}
	s.Len(seen, workers)

	dons, err := s.service.List(s.ctx)
	s.Require().NoError(err)
	s.Len(dons, workers)
	for _, don := range dons {
		trail, err := s.store.ListActivity(s.ctx, don.ID)
		s.Require().NoError(err)
		s.Len(trail, 1)
	}
}

func (s *DonationServiceSuite) TestUpdateStatusCompletedStampsCompletedAt() {
	pledge, err := s.service.Create(s.ctx, s.validCreate())
	s.Require().NoError(err)
	don, err := s.store.FindByPublicID(s.ctx, pledge.PublicID)
	s.Require().NoError(err)

	first := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	ctx := requestcontext.WithTime(s.ctx, first)
	s.Require().NoError(s.service.UpdateStatus(ctx, don.ID, donation.StatusCompleted, "txn-1001"))

	don, err = s.store.FindByID(s.ctx, don.ID)
	s.Require().NoError(err)
	s.Equal(donation.StatusCompleted, don.Status)
	s.Require().NotNil(don.CompletedAt)
	s.True(don.CompletedAt.Equal(first))
	s.Require().NotNil(don.TransactionID)
	s.Equal("txn-1001", *don.TransactionID)

	// Re-completing refreshes the stamp.
	second := first.Add(time.Hour)
	ctx = requestcontext.WithTime(s.ctx, second)
	s.Require().NoError(s.service.UpdateStatus(ctx, don.ID, donation.StatusCompleted, ""))

	don, err = s.store.FindByID(s.ctx, don.ID)
	s.Require().NoError(err)
	s.Require().NotNil(don.CompletedAt)
	s.True(don.CompletedAt.Equal(second))
}

func (s *DonationServiceSuite) TestUpdateStatusPreservesCompletedAt() {
	pledge, err := s.service.Create(s.ctx, s.validCreate())
	s.Require().NoError(err)
	don, err := s.store.FindByPublicID(s.ctx, pledge.PublicID)
	s.Require().NoError(err)

	stamp := time.Now().UTC().Truncate(time.Second)
	ctx := requestcontext.WithTime(s.ctx, stamp)
	s.Require().NoError(s.service.UpdateStatus(ctx, don.ID, donation.StatusCompleted, ""))
	s.Require().NoError(s.service.UpdateStatus(s.ctx, don.ID, donation.StatusCancelled, ""))

	don, err = s.store.FindByID(s.ctx, don.ID)
	s.Require().NoError(err)
	s.Equal(donation.StatusCancelled, don.Status)
	s.Require().NotNil(don.CompletedAt)
	s.True(don.CompletedAt.Equal(stamp))
}

func (s *DonationServiceSuite) TestUpdateStatusAppendsTrail() {
	pledge, err := s.service.Create(s.ctx, s.validCreate())
	s.Require().NoError(err)
	don, err := s.store.FindByPublicID(s.ctx, pledge.PublicID)
	s.Require().NoError(err)

	s.Require().NoError(s.service.UpdateStatus(s.ctx, don.ID, donation.StatusCompleted, ""))

	trail, err := s.service.Activity(s.ctx, don.ID)
	s.Require().NoError(err)
	s.Require().Len(trail, 2)
	s.Equal("status_update", trail[1].Action)
	s.Equal("status changed to completed", trail[1].Details)
}

func (s *DonationServiceSuite) TestUpdateStatusRejectsEmptyStatus() {
	err := s.service.UpdateStatus(s.ctx, 1, "  ", "")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *DonationServiceSuite) TestUpdateStatusUnknownIDReturnsNotFound() {
	err := s.service.UpdateStatus(s.ctx, 9999, donation.StatusCompleted, "")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *DonationServiceSuite) TestDeleteCascadesTrail() {
	pledge, err := s.service.Create(s.ctx, s.validCreate())
	s.Require().NoError(err)
	don, err := s.store.FindByPublicID(s.ctx, pledge.PublicID)
	s.Require().NoError(err)
	s.Require().NoError(s.service.UpdateStatus(s.ctx, don.ID, donation.StatusCompleted, ""))

	s.Require().NoError(s.service.Delete(s.ctx, don.ID))

	_, err = s.service.FindByPublicID(s.ctx, pledge.PublicID)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	var orphans int
	row := s.db.DB().QueryRowContext(s.ctx, "SELECT COUNT(*) FROM donation_activity WHERE donation_id = ?", don.ID)
	s.Require().NoError(row.Scan(&orphans))
	s.Zero(orphans)
}

func (s *DonationServiceSuite) TestDeleteUnknownIDReturnsNotFound() {
	err := s.service.Delete(s.ctx, 4242)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *DonationServiceSuite) TestListNewestFirst() {
	base := time.Now().UTC().Truncate(time.Second)
	for i := 0; i < 3; i++ {
		ctx := requestcontext.WithTime(s.ctx, base.Add(time.Duration(i)*time.Second))
		_, err := s.service.Create(ctx, s.validCreate())
		s.Require().NoError(err)
	}

	dons, err := s.service.List(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(dons, 3)
	s.True(dons[0].CreatedAt.After(dons[2].CreatedAt))
}
