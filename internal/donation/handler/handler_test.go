package handler

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"gmarup/internal/donation"
	"gmarup/internal/donation/handler/mocks"
	"gmarup/internal/donation/service"
	dErrors "gmarup/pkg/domain-errors"
)

type DonationHandlerSuite struct {
	suite.Suite
}

func TestDonationHandlerSuite(t *testing.T) {
	suite.Run(t, new(DonationHandlerSuite))
}

func (s *DonationHandlerSuite) newRouter() (chi.Router, *mocks.MockService) {
	ctrl := gomock.NewController(s.T())
	s.T().Cleanup(ctrl.Finish)
	mockService := mocks.NewMockService(ctrl)

	h := New(mockService, slog.New(slog.NewTextHandler(io.Discard, nil)))
	r := chi.NewRouter()
	h.Register(r)
	h.RegisterAdmin(r)
	return r, mockService
}

func (s *DonationHandlerSuite) postJSON(r chi.Router, path string, body any) *httptest.ResponseRecorder {
	raw, err := json.Marshal(body)
	s.Require().NoError(err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func (s *DonationHandlerSuite) decode(w *httptest.ResponseRecorder) map[string]any {
	var resp map[string]any
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func (s *DonationHandlerSuite) TestCreateReturnsPublicIDAndPaymentURL() {
	r, mockService := s.newRouter()
	mockService.EXPECT().Create(gomock.Any(), service.CreateDonation{
		Amount:    180,
		DonorName: "Sara Levi",
		Source:    "memorial_page",
	}).Return(&service.Pledge{
		PublicID:   "DON_20250314_092653_a1b2c3",
		PaymentURL: "https://pay.example.com/me/abc?amount=180&ref=DON_20250314_092653_a1b2c3",
	}, nil)

	w := s.postJSON(r, "/api/donate", map[string]any{
		"amount":     180,
		"donor_name": "Sara Levi",
		"source":     "memorial_page",
	})

	s.Equal(http.StatusOK, w.Code)
	resp := s.decode(w)
	s.Equal(true, resp["success"])
	s.Equal("DON_20250314_092653_a1b2c3", resp["donation_id"])
	s.Contains(resp["payment_url"], "amount=180")
	// The numeric row id never appears on the public surface.
	s.NotContains(resp, "id")
}

func (s *DonationHandlerSuite) TestCreateValidationErrorReturns400() {
	r, mockService := s.newRouter()
	mockService.EXPECT().Create(gomock.Any(), gomock.Any()).
		Return(nil, dErrors.New(dErrors.CodeValidation, "amount must be positive"))

	w := s.postJSON(r, "/api/donate", map[string]any{"donor_name": "Sara"})

	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal("amount must be positive", s.decode(w)["error"])
}

func (s *DonationHandlerSuite) TestStatusLookup() {
	r, mockService := s.newRouter()
	completed := time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)
	mockService.EXPECT().FindByPublicID(gomock.Any(), "DON_20250314_092653_a1b2c3").
		Return(&donation.Donation{
			PublicID:    "DON_20250314_092653_a1b2c3",
			Amount:      180,
			DonorEmail:  "sara@example.com",
			Status:      donation.StatusCompleted,
			CreatedAt:   completed.Add(-time.Hour),
			CompletedAt: &completed,
		}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/donate/DON_20250314_092653_a1b2c3", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	s.Equal(http.StatusOK, w.Code)
	resp := s.decode(w)
	s.Equal("completed", resp["status"])
	s.NotContains(resp, "donor_email")
}

func (s *DonationHandlerSuite) TestStatusLookupUnknownIDReturns404() {
	r, mockService := s.newRouter()
	mockService.EXPECT().FindByPublicID(gomock.Any(), "DON_missing").
		Return(nil, dErrors.New(dErrors.CodeNotFound, "donation not found"))

	req := httptest.NewRequest(http.MethodGet, "/api/donate/DON_missing", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	s.Equal(http.StatusNotFound, w.Code)
}

func (s *DonationHandlerSuite) TestAdminUpdateDispatchesOnAction() {
	r, mockService := s.newRouter()
	mockService.EXPECT().UpdateStatus(gomock.Any(), int64(5), "completed", "txn-1001").Return(nil)

	w := s.postJSON(r, "/api/admin/donation", map[string]any{
		"id":             5,
		"action":         "update",
		"status":         "completed",
		"transaction_id": "txn-1001",
	})

	s.Equal(http.StatusOK, w.Code)
}

func (s *DonationHandlerSuite) TestAdminDeleteDispatchesOnAction() {
	r, mockService := s.newRouter()
	mockService.EXPECT().Delete(gomock.Any(), int64(5)).Return(nil)

	w := s.postJSON(r, "/api/admin/donation", map[string]any{"id": 5, "action": "delete"})

	s.Equal(http.StatusOK, w.Code)
}

func (s *DonationHandlerSuite) TestAdminActionRequiresID() {
	r, _ := s.newRouter()

	w := s.postJSON(r, "/api/admin/donation", map[string]any{"action": "update"})

	s.Equal(http.StatusBadRequest, w.Code)
}
