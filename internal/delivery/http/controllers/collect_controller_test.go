package controllers

import (
	"net/http"
	"testing"

	"guestlist/internal/delivery/http/helpers"
	"guestlist/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectController_GetGuestlist(t *testing.T) {
	svc := newFakeEventService()
	svc.tokenList = &domain.TokenGuestlist{
		Event:      domain.EventSummary{ID: "evt_1", BasicInfo: domain.EventBasicInfo{Name: "Launch Night"}},
		Assignment: domain.CollectorAssignment{ID: "asg_1", UniqueToken: "tok"},
		Guests:     []domain.GuestlistEntry{},
	}
	c := NewCollectController(testLogger, svc)

	rr := doRequest(t, c.GetGuestlist, http.MethodGet, "/collect/tok", "/collect/{token}", nil, "")

	require.Equal(t, http.StatusOK, rr.Code)
	var got domain.TokenGuestlist
	require.Nil(t, decodeEnvelope(t, rr, &got))
	assert.Equal(t, "Launch Night", got.Event.BasicInfo.Name)
	assert.Equal(t, "tok", svc.lastToken)
}

func TestCollectController_InvalidToken(t *testing.T) {
	svc := newFakeEventService()
	svc.err = domain.ErrInvalidToken
	c := NewCollectController(testLogger, svc)

	tests := []struct {
		name    string
		handler http.HandlerFunc
		method  string
		target  string
		pattern string
		body    string
	}{
		{"fetch", c.GetGuestlist, http.MethodGet, "/collect/gone", "/collect/{token}", ""},
		{"add guest", c.AddGuest, http.MethodPost, "/collect/gone/guests", "/collect/{token}/guests", `{"name":"Ada"}`},
		{"status", c.UpdateGuestStatus, http.MethodPatch, "/collect/gone/guests/gst_1/status", "/collect/{token}/guests/{guestID}/status", `{"status":"confirmed"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doRequest(t, tt.handler, tt.method, tt.target, tt.pattern, nil, tt.body)
			require.Equal(t, http.StatusNotFound, rr.Code)
			apiErr := decodeEnvelope(t, rr, nil)
			require.NotNil(t, apiErr)
			assert.Equal(t, helpers.ErrCodeInvalidToken, apiErr.Code)
		})
	}
}

func TestCollectController_AddGuest(t *testing.T) {
	svc := newFakeEventService()
	c := NewCollectController(testLogger, svc)

	rr := doRequest(t, c.AddGuest, http.MethodPost, "/collect/tok/guests", "/collect/{token}/guests", nil,
		`{"name":"Ada","email":"ada@example.com","plus_ones":1}`)

	require.Equal(t, http.StatusCreated, rr.Code)
	var got domain.GuestlistEntry
	require.Nil(t, decodeEnvelope(t, rr, &got))
	assert.Equal(t, "Ada", got.PersonalInfo.Name)
	assert.Equal(t, domain.RSVPPending, got.BookingDetails.RSVPStatus)
	assert.Equal(t, "tok", svc.lastToken)

	rr = doRequest(t, c.AddGuest, http.MethodPost, "/collect/tok/guests", "/collect/{token}/guests", nil, `{"email":"ada@example.com"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestCollectController_UpdateGuestStatus(t *testing.T) {
	svc := newFakeEventService()
	c := NewCollectController(testLogger, svc)

	rr := doRequest(t, c.UpdateGuestStatus, http.MethodPatch, "/collect/tok/guests/gst_1/status",
		"/collect/{token}/guests/{guestID}/status", nil, `{"status":"declined"}`)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "gst_1", svc.lastGuestID)
	assert.Equal(t, domain.RSVPDeclined, svc.lastStatus)

	svc.err = domain.ErrNotFound
	rr = doRequest(t, c.UpdateGuestStatus, http.MethodPatch, "/collect/tok/guests/gst_other/status",
		"/collect/{token}/guests/{guestID}/status", nil, `{"status":"declined"}`)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
