package controllers

import (
	"net/http"
	"testing"

	"guestlist/internal/delivery/http/helpers"
	"guestlist/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserController_UpdateMe(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		svcErr     error
		wantStatus int
		wantCode   string
	}{
		{"profile and preferences", `{"full_name":"Pia Park","notification_sms":true}`, nil, http.StatusOK, ""},
		{"empty body", `{}`, nil, http.StatusBadRequest, helpers.ErrCodeBadRequest},
		{"blank name", `{"full_name":"  "}`, nil, http.StatusBadRequest, helpers.ErrCodeBadRequest},
		{"plain http avatar", `{"avatar_url":"http://img.test/a.png"}`, nil, http.StatusBadRequest, helpers.ErrCodeBadRequest},
		{"email is not editable", `{"email":"new@example.com"}`, nil, http.StatusBadRequest, helpers.ErrCodeBadRequest},
		{"user gone", `{"phone":"555"}`, domain.ErrNotFound, http.StatusNotFound, helpers.ErrCodeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeUserService{err: tt.svcErr}
			c := NewUserController(testLogger, svc)

			rr := doRequest(t, c.UpdateMe, http.MethodPatch, "/users/me", "/users/me", promoter, tt.body)

			require.Equal(t, tt.wantStatus, rr.Code)
			var got domain.User
			apiErr := decodeEnvelope(t, rr, &got)
			if tt.wantCode != "" {
				require.NotNil(t, apiErr)
				assert.Equal(t, tt.wantCode, apiErr.Code)
				return
			}
			require.Nil(t, apiErr)
			assert.Equal(t, "pr-1", svc.lastUserID)
			assert.Equal(t, "Pia Park", got.Profile.FullName)
			assert.True(t, got.Preferences.NotificationSMS)
			assert.Nil(t, svc.lastInput.Phone)
		})
	}
}

func TestUserController_UpdateMeRequiresSession(t *testing.T) {
	c := NewUserController(testLogger, &fakeUserService{})
	rr := doRequest(t, c.UpdateMe, http.MethodPatch, "/users/me", "/users/me", nil, `{"phone":"1"}`)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}
