package validate

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type signup struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Kind     string `json:"kind" validate:"omitempty,oneof=A B"`
}

type consentItem struct {
	Purpose string `json:"purpose" validate:"required,oneof=ESSENTIAL ANALYTICS"`
}

type consentBody struct {
	Consents []consentItem `json:"consents" validate:"required,min=1,dive"`
}

func TestValidateFieldErrors(t *testing.T) {
	v := New()
	err := v.Validate(&signup{Email: "nope", Password: "short", Kind: "C"})
	ve, ok := As(err)
	require.True(t, ok)
	assert.Equal(t, "must be a valid email address", ve.Fields["email"])
	assert.Equal(t, "must be at least 8 characters", ve.Fields["password"])
	assert.Equal(t, "must be one of: A, B", ve.Fields["kind"])

	assert.NoError(t, v.Validate(&signup{Email: "a@b.com", Password: "Secret123!"}))
}

func TestValidateNested(t *testing.T) {
	err := New().Validate(&consentBody{Consents: []consentItem{{Purpose: "BOGUS"}}})
	ve, ok := As(err)
	require.True(t, ok)
	assert.Contains(t, ve.Fields, "consents[0].purpose")
}

func TestBind(t *testing.T) {
	e := echo.New()
	e.Validator = New()

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"a@b.com"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	c := e.NewContext(req, httptest.NewRecorder())
	var s signup
	ve, ok := As(Bind(c, &s))
	require.True(t, ok)
	assert.Equal(t, "is required", ve.Fields["password"])

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{bad json`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	c = e.NewContext(req, httptest.NewRecorder())
	ve, ok = As(Bind(c, &s))
	require.True(t, ok)
	assert.Equal(t, "invalid request body", ve.Message)
}
