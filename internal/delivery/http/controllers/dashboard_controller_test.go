package controllers

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"guestlist/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDashboard struct {
	promoterID string
	err        error
}

func (f *fakeDashboard) Dashboard(_ context.Context, promoterID string) (*domain.DashboardStats, error) {
	f.promoterID = promoterID
	if f.err != nil {
		return nil, f.err
	}
	return &domain.DashboardStats{TotalEvents: 2, ActiveGuests: 5, ConfirmedGuests: 3, PendingRSVPs: 2, ActiveCollectors: 1}, nil
}

type fakeUserService struct {
	search     string
	err        error
	lastUserID string
	lastInput  domain.ProfileInput
}

func (f *fakeUserService) GetByID(context.Context, string) (*domain.User, error) {
	return nil, domain.ErrNotFound
}

func (f *fakeUserService) UpdateProfile(_ context.Context, userID string, in domain.ProfileInput) (*domain.User, error) {
	f.lastUserID, f.lastInput = userID, in
	if f.err != nil {
		return nil, f.err
	}
	u := &domain.User{ID: userID, Role: domain.RolePromoter}
	if err := in.Apply(u); err != nil {
		return nil, err
	}
	return u, nil
}

func (f *fakeUserService) ListCollectors(_ context.Context, search string) ([]*domain.User, error) {
	f.search = search
	return []*domain.User{{ID: "col-1", Role: domain.RoleCollector}}, nil
}

func TestDashboardController(t *testing.T) {
	dash := &fakeDashboard{}
	users := &fakeUserService{}
	c := NewDashboardController(testLogger, dash, users)

	rr := doRequest(t, c.GetDashboard, http.MethodGet, "/dashboard", "/dashboard", promoter, "")
	require.Equal(t, http.StatusOK, rr.Code)
	var stats domain.DashboardStats
	require.Nil(t, decodeEnvelope(t, rr, &stats))
	assert.Equal(t, 2, stats.TotalEvents)
	assert.Equal(t, "pr-1", dash.promoterID)

	rr = doRequest(t, c.ListCollectors, http.MethodGet, "/collectors?search=cole", "/collectors", promoter, "")
	require.Equal(t, http.StatusOK, rr.Code)
	var list []domain.User
	require.Nil(t, decodeEnvelope(t, rr, &list))
	require.Len(t, list, 1)
	assert.Equal(t, "cole", users.search)

	dash.err = domain.WrapBackend("list events", errors.New("timeout"))
	rr = doRequest(t, c.GetDashboard, http.MethodGet, "/dashboard", "/dashboard", promoter, "")
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}
