package dashboard

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"directory-console/internal/api"
	"directory-console/internal/apperr"
	"directory-console/internal/fakeapi"
	"directory-console/internal/logging"
	"directory-console/internal/models"
	"directory-console/internal/session"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeSource struct {
	stats    *models.DashboardStats
	page     *models.NotificationPage
	statsErr error
	limit    int
}

func (f *fakeSource) DashboardStats(context.Context) (*models.DashboardStats, error) {
	return f.stats, f.statsErr
}

func (f *fakeSource) ListNotifications(_ context.Context, filter models.NotificationFilter) (*models.NotificationPage, error) {
	f.limit = filter.Limit
	return f.page, nil
}

func TestLoadAggregatesReadRates(t *testing.T) {
	src := &fakeSource{
		stats: &models.DashboardStats{MemberStats: models.MemberStats{TotalMembers: 10}},
		page: &models.NotificationPage{Notifications: []models.Notification{
			{RecCode: "a", RecipientCount: 4, ReadCount: 1},
			{RecCode: "b", RecipientCount: 0},
			{RecCode: "c", RecipientCount: 2, ReadCount: 2},
			{RecCode: "d", RecipientCount: 10, ReadCount: 5},
		}},
	}

	s, err := NewLoader(src, logging.Discard()).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, RecentLimit, src.limit)
	assert.Equal(t, 10, s.Stats.MemberStats.TotalMembers)
	assert.Len(t, s.Recent, 4)
	assert.InDelta(t, (0.25+1+0.5)/3, s.MeanReadRate, 1e-9)
	assert.InDelta(t, 0.5, s.MedianReadRate, 1e-9)
}

func TestLoadWithoutNotifications(t *testing.T) {
	src := &fakeSource{stats: &models.DashboardStats{}, page: &models.NotificationPage{}}

	s, err := NewLoader(src, logging.Discard()).Load(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, s.Recent)
	assert.Zero(t, s.MeanReadRate)
	assert.Zero(t, s.MedianReadRate)
}

func TestLoadFailsWhenStatsFail(t *testing.T) {
	src := &fakeSource{statsErr: errors.New("down"), page: &models.NotificationPage{}}

	_, err := NewLoader(src, logging.Discard()).Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dashboard stats")
}

func TestLoginThenDashboard(t *testing.T) {
	fake := fakeapi.New(fakeapi.Options{})
	srv := httptest.NewServer(fake.Handler())
	defer srv.Close()

	client := api.New(api.Options{BaseURL: srv.URL + "/api", Timeout: 5 * time.Second, Logger: logging.Discard()})
	store := session.NewMemoryStore()
	mgr := session.NewManager(store, client, logging.Discard())
	client.UseTokens(mgr)
	ctx := context.Background()

	_, err := mgr.Login(ctx, fakeapi.AdminUsername, fakeapi.AdminPassword)
	require.NoError(t, err)
	token, _ := store.Get(session.KeyToken)
	require.NotEmpty(t, token)

	me, err := client.Me(ctx)
	require.NoError(t, err)
	mgr.SetUser(*me)
	u, ok := mgr.User()
	require.True(t, ok)
	assert.Equal(t, fakeapi.AdminUsername, u.Username)

	s, err := NewLoader(client, logging.Discard()).Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 7, s.Stats.MemberStats.TotalMembers)
	assert.Len(t, s.Recent, 2)
	assert.InDelta(t, (2.0/4+3.0/7)/2, s.MeanReadRate, 1e-9)

	assert.Equal(t, 1, fake.Calls(http.MethodPost, "/auth/admin/login"))
	assert.Zero(t, fake.Calls(http.MethodPost, "/auth/refresh"))
}

func TestDashboardSurfacesServerError(t *testing.T) {
	fake := fakeapi.New(fakeapi.Options{})
	srv := httptest.NewServer(fake.Handler())
	defer srv.Close()

	client := api.New(api.Options{BaseURL: srv.URL + "/api", Timeout: 5 * time.Second, Logger: logging.Discard()})
	mgr := session.NewManager(session.NewMemoryStore(), client, logging.Discard())
	client.UseTokens(mgr)
	_, err := mgr.Login(context.Background(), fakeapi.AdminUsername, fakeapi.AdminPassword)
	require.NoError(t, err)

	fake.FailNext(http.MethodGet, "/dashboard/stats", http.StatusInternalServerError)
	_, err = NewLoader(client, logging.Discard()).Load(context.Background())
	assert.ErrorIs(t, err, apperr.ErrServer)
	assert.True(t, apperr.Retryable(err))
}
