package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"directory-console/internal/apperr"
	"directory-console/internal/config"
	"directory-console/internal/fakeapi"
	"directory-console/internal/logging"
	"directory-console/internal/models"
	"directory-console/internal/session"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newApp(t *testing.T) (*App, *fakeapi.Server) {
	t.Helper()
	fake := fakeapi.New(fakeapi.Options{})
	srv := httptest.NewServer(fake.Handler())
	t.Cleanup(srv.Close)

	cfg := config.Defaults()
	cfg.APIURL = srv.URL + "/api"
	cfg.MasterDataWaitMS = 1
	cfg.UnreadPollInterval = 1

	a := Build(cfg, logging.Discard(), session.NewMemoryStore())
	t.Cleanup(func() { _ = a.Close() })
	return a, fake
}

func TestRestoreWithoutSession(t *testing.T) {
	a, _ := newApp(t)
	ok, err := a.Restore(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = a.RequireAdmin(context.Background())
	assert.ErrorIs(t, err, ErrSignedOut)
}

func TestRestoreLoadsUser(t *testing.T) {
	a, _ := newApp(t)
	ctx := context.Background()
	_, err := a.Session.Login(ctx, fakeapi.AdminUsername, fakeapi.AdminPassword)
	require.NoError(t, err)

	// A fresh process only has the stored tokens.
	b := Build(a.Config, logging.Discard(), a.Session.Store())
	defer b.Close()
	ok, err := b.Restore(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	u, err := b.RequireAdmin(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, u.Role)
}

func TestModeratorIsNotAdmin(t *testing.T) {
	a, _ := newApp(t)
	_, err := a.Session.Login(context.Background(), fakeapi.ModeratorUsername, fakeapi.ModeratorPassword)
	require.NoError(t, err)

	_, err = a.RequireAdmin(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MODERATOR")
}

func TestExpiryResetsCaches(t *testing.T) {
	a, fake := newApp(t)
	ctx := context.Background()
	_, err := a.Session.Login(ctx, fakeapi.AdminUsername, fakeapi.AdminPassword)
	require.NoError(t, err)

	_, err = a.MasterData.Fetch(ctx, models.CategoryAreas)
	require.NoError(t, err)
	a.Unread.SetCount(3)

	fake.ExpireAccessTokens()
	fake.FailRefresh(true)
	_, err = a.API.Me(ctx)
	require.ErrorIs(t, err, apperr.ErrSessionExpired)

	assert.False(t, a.MasterData.Resident(models.CategoryAreas))
	assert.Zero(t, a.Unread.Count())
}

func TestMarkReadAfterReloginReachesServer(t *testing.T) {
	a, fake := newApp(t)
	ctx := context.Background()
	_, err := a.Session.Login(ctx, fakeapi.AdminUsername, fakeapi.AdminPassword)
	require.NoError(t, err)
	id, ok := fake.InboxNotification()
	require.True(t, ok)

	require.NoError(t, a.Unread.MarkRead(ctx, id))

	fake.ExpireAccessTokens()
	fake.FailRefresh(true)
	_, err = a.API.Me(ctx)
	require.ErrorIs(t, err, apperr.ErrSessionExpired)

	fake.FailRefresh(false)
	_, err = a.Session.Login(ctx, fakeapi.AdminUsername, fakeapi.AdminPassword)
	require.NoError(t, err)
	require.NoError(t, a.Unread.MarkRead(ctx, id))
	assert.Equal(t, 2, fake.Calls(http.MethodPost, "/notifications/:id/read"))
}

func TestComposeThroughApp(t *testing.T) {
	a, _ := newApp(t)
	ctx := context.Background()
	_, err := a.Session.Login(ctx, fakeapi.AdminUsername, fakeapi.AdminPassword)
	require.NoError(t, err)

	w := a.NewCompose()
	require.NoError(t, w.SetTitle("Road works"))
	require.NoError(t, w.SetMessage("Main street closed"))
	require.NoError(t, w.SetType("3"))
	require.NoError(t, w.AddMembers("m5", "m6"))
	n, err := w.EstimateRecipients(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	for i := 0; i < 3; i++ {
		_, err := w.Next()
		require.NoError(t, err)
	}
	created, err := w.Submit(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, created.RecipientCount)
	assert.Equal(t, "Urgent", created.TypeName())
}

func TestCloseStopsPollers(t *testing.T) {
	a, fake := newApp(t)
	ctx := context.Background()
	_, err := a.Session.Login(ctx, fakeapi.AdminUsername, fakeapi.AdminPassword)
	require.NoError(t, err)

	a.WatchUnread(ctx)
	require.Eventually(t, func() bool { return a.Unread.Count() == fake.UnreadCount() && a.Unread.Count() > 0 }, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, a.Close())
	require.NoError(t, a.Close())

	// The poller is gone: server-side changes no longer reach the tracker.
	id, ok := fake.InboxNotification()
	require.True(t, ok)
	before := a.Unread.Count()
	require.NoError(t, a.API.MarkNotificationRead(ctx, id))
	time.Sleep(a.Config.PollInterval() + 200*time.Millisecond)
	assert.Equal(t, before, a.Unread.Count())
}
