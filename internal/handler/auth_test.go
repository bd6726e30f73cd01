package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/event-ticket-booking/internal/config"
	"github.com/iliyamo/event-ticket-booking/internal/repository"
)

// newAuthHandler wires the handler without a database.  The cases below
// only exercise the validation branches that answer before any
// repository call, so nil connections are never touched.
func newAuthHandler() *AuthHandler {
	return NewAuthHandler(
		config.Config{JWTSecret: "auth-test-secret", AccessTTLMin: 5, RefreshTTLDays: 7, BcryptCost: 4},
		repository.NewUserRepo(nil),
		repository.NewTokenRepo(nil),
	)
}

func postJSON(t *testing.T, h echo.HandlerFunc, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	assert.NoError(t, h(e.NewContext(req, rec)))
	return rec
}

func TestRegisterRequiresEmailAndPassword(t *testing.T) {
	h := newAuthHandler()

	for _, body := range []string{
		`{}`,
		`{"email":"a@b.c"}`,
		`{"password":"secret"}`,
		`{"email":"   ","password":"secret"}`,
	} {
		rec := postJSON(t, h.Register, body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "body %s", body)
		assert.Contains(t, rec.Body.String(), "email/password required")
	}
}

func TestLoginRequiresEmailAndPassword(t *testing.T) {
	h := newAuthHandler()

	rec := postJSON(t, h.Login, `{"email":"a@b.c"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "email/password required")
}

func TestRefreshRequiresToken(t *testing.T) {
	h := newAuthHandler()

	for name, fn := range map[string]echo.HandlerFunc{
		"rotate":      h.Refresh,
		"access-only": h.RefreshAccess,
	} {
		for _, body := range []string{`{}`, `{"refresh_token":"  "}`} {
			rec := postJSON(t, fn, body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, "%s body %s", name, body)
			assert.Contains(t, rec.Body.String(), "refresh_token required")
		}
	}
}

// Logout with neither a bearer token nor a refresh_token has nothing to
// revoke and is rejected outright.
func TestLogoutWithoutCredentials(t *testing.T) {
	h := newAuthHandler()

	rec := postJSON(t, h.Logout, `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "provide Authorization header or refresh_token")
}
