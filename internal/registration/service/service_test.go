package service

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"gmarup/internal/registration"
	regstore "gmarup/internal/registration/store"
	storage "gmarup/internal/storage/sqlite"
	dErrors "gmarup/pkg/domain-errors"
	"gmarup/pkg/platform/sentinel"
	"gmarup/pkg/requestcontext"
)

type RegistrationServiceSuite struct {
	suite.Suite
	db      *storage.Store
	store   *regstore.SQLite
	service *Service
	ctx     context.Context
}

func (s *RegistrationServiceSuite) SetupTest() {
	db, err := storage.Open(filepath.Join(s.T().TempDir(), "leads.db"))
	s.Require().NoError(err)
	s.db = db
	s.store = regstore.NewSQLite(db)
	s.service = NewService(s.store, db)
	s.ctx = requestcontext.WithClientMetadata(context.Background(), "203.0.113.7", "test-agent")
}

func (s *RegistrationServiceSuite) TearDownTest() {
	s.Require().NoError(s.db.Close())
}

func TestRegistrationServiceSuite(t *testing.T) {
	suite.Run(t, new(RegistrationServiceSuite))
}

func (s *RegistrationServiceSuite) validCreate() CreateRegistration {
	return CreateRegistration{
		Name:       "David Cohen",
		Email:      "david@example.com",
		Phone:      "050-1234567",
		Newsletter: true,
		Source:     "beta_landing",
		Notes:      "study level: beginner",
	}
}

func (s *RegistrationServiceSuite) TestCreatePersistsRowAndTrail() {
	id, err := s.service.Create(s.ctx, s.validCreate())
	s.Require().NoError(err)
	s.Require().Positive(id)

	reg, err := s.store.FindByID(s.ctx, id)
	s.Require().NoError(err)
	s.Equal(registration.StatusNew, reg.Status)
	s.Equal("beta_landing", reg.Source)
	s.Equal("203.0.113.7", reg.IPAddress)
	s.Equal("test-agent", reg.UserAgent)
	s.Equal(registration.DefaultLeadScore, reg.LeadScore)
	s.Equal(1, reg.AttemptCount)
	s.Equal(reg.CreatedAt, reg.UpdatedAt)
	s.Nil(reg.LastContacted)

	trail, err := s.store.ListActivity(s.ctx, id)
	s.Require().NoError(err)
	s.Require().Len(trail, 1)
	s.Equal("registration", trail[0].Action)
}

func (s *RegistrationServiceSuite) TestCreateRejectsMissingFields() {
	cases := map[string]CreateRegistration{
		"missing name":  {Email: "a@b.c", Phone: "1", Newsletter: true},
		"missing email": {Name: "a", Phone: "1", Newsletter: true},
		"missing phone": {Name: "a", Email: "a@b.c", Newsletter: true},
		"blank name":    {Name: "   ", Email: "a@b.c", Phone: "1", Newsletter: true},
	}
	for name, req := range cases {
		_, err := s.service.Create(s.ctx, req)
		s.Require().Error(err, name)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation), name)
	}
}

func (s *RegistrationServiceSuite) TestCreateEnforcesConsentPolicy() {
	req := s.validCreate()
	req.Newsletter = false
	_, err := s.service.Create(s.ctx, req)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))

	// A service configured without the policy accepts the same submission.
	relaxed := NewService(s.store, s.db, WithoutConsentRequirement())
	_, err = relaxed.Create(s.ctx, req)
	s.Require().NoError(err)
}

func (s *RegistrationServiceSuite) TestCreateDefaultsSource() {
	req := s.validCreate()
	req.Source = ""
	id, err := s.service.Create(s.ctx, req)
	s.Require().NoError(err)

	reg, err := s.store.FindByID(s.ctx, id)
	s.Require().NoError(err)
	s.Equal(registration.DefaultSource, reg.Source)
}

func (s *RegistrationServiceSuite) TestUpdateStatusContactedStampsLastContacted() {
	id, err := s.service.Create(s.ctx, s.validCreate())
	s.Require().NoError(err)

	callTime := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	ctx := requestcontext.WithTime(s.ctx, callTime)
	s.Require().NoError(s.service.UpdateStatus(ctx, id, registration.StatusContacted, "called back"))

	reg, err := s.store.FindByID(s.ctx, id)
	s.Require().NoError(err)
	s.Equal(registration.StatusContacted, reg.Status)
	s.Equal("called back", reg.Notes)
	s.Require().NotNil(reg.LastContacted)
	s.Equal(callTime, reg.LastContacted.UTC())
	s.Equal(callTime, reg.UpdatedAt.UTC())
}

func (s *RegistrationServiceSuite) TestUpdateStatusLeavesLastContactedOnOtherTransitions() {
	id, err := s.service.Create(s.ctx, s.validCreate())
	s.Require().NoError(err)

	s.Require().NoError(s.service.UpdateStatus(s.ctx, id, registration.StatusContacted, ""))
	contacted, err := s.store.FindByID(s.ctx, id)
	s.Require().NoError(err)
	s.Require().NotNil(contacted.LastContacted)

	s.Require().NoError(s.service.UpdateStatus(s.ctx, id, registration.StatusDiscarded, "no answer"))
	discarded, err := s.store.FindByID(s.ctx, id)
	s.Require().NoError(err)
	s.Require().NotNil(discarded.LastContacted)
	s.Equal(contacted.LastContacted.UTC(), discarded.LastContacted.UTC())
}

func (s *RegistrationServiceSuite) TestUpdateStatusAcceptsUnrecognizedLabels() {
	id, err := s.service.Create(s.ctx, s.validCreate())
	s.Require().NoError(err)

	s.Require().NoError(s.service.UpdateStatus(s.ctx, id, "pending_beta", ""))
	reg, err := s.store.FindByID(s.ctx, id)
	s.Require().NoError(err)
	s.Equal("pending_beta", reg.Status)
}

func (s *RegistrationServiceSuite) TestUpdateStatusAppendsTrail() {
	id, err := s.service.Create(s.ctx, s.validCreate())
	s.Require().NoError(err)
	s.Require().NoError(s.service.UpdateStatus(s.ctx, id, registration.StatusContacted, ""))

	trail, err := s.store.ListActivity(s.ctx, id)
	s.Require().NoError(err)
	s.Require().Len(trail, 2)
	s.Equal("status_update", trail[1].Action)
}

func (s *RegistrationServiceSuite) TestUpdateStatusUnknownID() {
	err := s.service.UpdateStatus(s.ctx, 9999, registration.StatusContacted, "")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *RegistrationServiceSuite) TestDeleteCascadesTrail() {
	id, err := s.service.Create(s.ctx, s.validCreate())
	s.Require().NoError(err)
	s.Require().NoError(s.service.UpdateStatus(s.ctx, id, registration.StatusContacted, ""))

	s.Require().NoError(s.service.Delete(s.ctx, id))

	regs, err := s.service.List(s.ctx)
	s.Require().NoError(err)
	s.Empty(regs)

	var orphaned int
	s.Require().NoError(s.db.DB().QueryRow(
		"SELECT COUNT(*) FROM activity_log WHERE lead_id = ?", id,
	).Scan(&orphaned))
	s.Zero(orphaned)
}

func (s *RegistrationServiceSuite) TestDeleteUnknownIDChangesNothing() {
	id, err := s.service.Create(s.ctx, s.validCreate())
	s.Require().NoError(err)

	err = s.service.Delete(s.ctx, 9999)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	// The existing registration and its trail are intact.
	trail, err := s.store.ListActivity(s.ctx, id)
	s.Require().NoError(err)
	s.Len(trail, 1)
}

func (s *RegistrationServiceSuite) TestListNewestFirst() {
	base := time.Now().UTC().Truncate(time.Second)
	for i, email := range []string{"first@x.c", "second@x.c", "third@x.c"} {
		req := s.validCreate()
		req.Email = email
		ctx := requestcontext.WithTime(s.ctx, base.Add(time.Duration(i)*time.Minute))
		_, err := s.service.Create(ctx, req)
		s.Require().NoError(err)
	}

	regs, err := s.service.List(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(regs, 3)
	s.Equal("third@x.c", regs[0].Email)
	s.Equal("second@x.c", regs[1].Email)
	s.Equal("first@x.c", regs[2].Email)
}

func (s *RegistrationServiceSuite) TestActivityForUnknownID() {
	_, err := s.service.Activity(s.ctx, 404)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *RegistrationServiceSuite) TestLockedStoreSurfacesAsUnavailable() {
	err := translateStoreErr(
		fmt.Errorf("insert registration: %w", sentinel.ErrUnavailable),
		"failed to save registration",
	)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
}
