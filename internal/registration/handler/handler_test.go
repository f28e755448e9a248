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

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"gmarup/internal/registration/handler/mocks"
	"gmarup/internal/registration/service"
	dErrors "gmarup/pkg/domain-errors"
)

type RegistrationHandlerSuite struct {
	suite.Suite
}

func TestRegistrationHandlerSuite(t *testing.T) {
	suite.Run(t, new(RegistrationHandlerSuite))
}

func (s *RegistrationHandlerSuite) newRouter() (chi.Router, *mocks.MockService) {
	ctrl := gomock.NewController(s.T())
	s.T().Cleanup(ctrl.Finish)
	mockService := mocks.NewMockService(ctrl)

	h := New(mockService, slog.New(slog.NewTextHandler(io.Discard, nil)))
	r := chi.NewRouter()
	h.Register(r)
	h.RegisterAdmin(r)
	return r, mockService
}

func (s *RegistrationHandlerSuite) postJSON(r chi.Router, path string, body any) *httptest.ResponseRecorder {
	raw, err := json.Marshal(body)
	s.Require().NoError(err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func (s *RegistrationHandlerSuite) decode(w *httptest.ResponseRecorder) map[string]any {
	var resp map[string]any
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func (s *RegistrationHandlerSuite) TestCreateMapsFormFields() {
	r, mockService := s.newRouter()
	mockService.EXPECT().Create(gomock.Any(), service.CreateRegistration{
		Name:       "David Cohen",
		Email:      "david@example.com",
		Phone:      "050-1234567",
		Newsletter: true,
		Source:     "landing",
		Notes:      "study level: beginner",
	}).Return(int64(7), nil)

	w := s.postJSON(r, "/api/register", map[string]any{
		"fullName":     "David Cohen",
		"email":        "david@example.com",
		"phone":        "050-1234567",
		"emailConsent": true,
		"source":       "landing",
		"studyLevel":   "beginner",
	})

	s.Equal(http.StatusOK, w.Code)
	resp := s.decode(w)
	s.Equal(true, resp["success"])
	s.Equal(float64(7), resp["registration_id"])
}

func (s *RegistrationHandlerSuite) TestCreateValidationErrorReturns400() {
	r, mockService := s.newRouter()
	mockService.EXPECT().Create(gomock.Any(), gomock.Any()).
		Return(int64(0), dErrors.New(dErrors.CodeValidation, "email is required"))

	w := s.postJSON(r, "/api/register", map[string]any{"fullName": "David"})

	s.Equal(http.StatusBadRequest, w.Code)
	resp := s.decode(w)
	s.Equal(false, resp["success"])
	s.Equal("email is required", resp["error"])
}

func (s *RegistrationHandlerSuite) TestCreateRejectsMalformedBody() {
	r, _ := s.newRouter()

	req := httptest.NewRequest(http.MethodPost, "/api/register", bytes.NewReader([]byte("{broken")))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *RegistrationHandlerSuite) TestAdminUpdateDispatchesOnAction() {
	r, mockService := s.newRouter()
	mockService.EXPECT().UpdateStatus(gomock.Any(), int64(3), "contacted", "called back").Return(nil)

	w := s.postJSON(r, "/api/admin/registration", map[string]any{
		"id":     3,
		"action": "update",
		"status": "contacted",
		"notes":  "called back",
	})

	s.Equal(http.StatusOK, w.Code)
}

func (s *RegistrationHandlerSuite) TestAdminDeleteDispatchesOnAction() {
	r, mockService := s.newRouter()
	mockService.EXPECT().Delete(gomock.Any(), int64(3)).Return(nil)

	w := s.postJSON(r, "/api/admin/registration", map[string]any{"id": 3, "action": "delete"})

	s.Equal(http.StatusOK, w.Code)
}

func (s *RegistrationHandlerSuite) TestAdminActionRequiresID() {
	r, _ := s.newRouter()

	w := s.postJSON(r, "/api/admin/registration", map[string]any{"action": "delete"})

	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *RegistrationHandlerSuite) TestAdminUpdateNotFoundReturns404() {
	r, mockService := s.newRouter()
	mockService.EXPECT().UpdateStatus(gomock.Any(), int64(99), "contacted", "").
		Return(dErrors.New(dErrors.CodeNotFound, "registration not found"))

	w := s.postJSON(r, "/api/admin/registration", map[string]any{
		"id":     99,
		"status": "contacted",
	})

	s.Equal(http.StatusNotFound, w.Code)
}
