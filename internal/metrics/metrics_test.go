package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizePath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"/events", "/events"},
		{"/events/evt_01HZX/guests", "/events/:id/guests"},
		{"/collect/abc123def456/guests", "/collect/:id/guests"},
		{"/templates/tpl_01HZX/preview", "/templates/:id/preview"},
		{"/events/evt_1/guests/gst_2/checkin", "/events/:id/guests/..."},
		{"", "/"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SanitizePath(tt.in), tt.in)
	}
}

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.MutationAttempt("add_guest")
		m.MutationConflict("add_guest")
		m.GuestAdded("collector")
		m.TokenResolved(false)
		m.Notification("sent")
		m.ChangePublished("guest_added")
		m.StreamOpened()()
	})
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	assert.NotNil(t, m.Instrument(h))
}

func TestInstrument_countsRequests(t *testing.T) {
	m := New()
	h := m.Instrument(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))
	req := httptest.NewRequest(http.MethodPost, "/events/evt_1/guests", nil)
	h.ServeHTTP(httptest.NewRecorder(), req)

	got := testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues(http.MethodPost, "/events/:id/guests", "201"))
	assert.Equal(t, float64(1), got)
}

func TestHandler_exposesCounters(t *testing.T) {
	m := New()
	m.GuestAdded("collector")
	m.TokenResolved(true)

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.True(t, strings.Contains(body, `guestlist_guests_added_total{source="collector"} 1`))
	assert.True(t, strings.Contains(body, `guestlist_token_resolutions_total{result="ok"} 1`))
}
