// Package app holds the console's long-lived state. One App is created at
// start-up and closed at exit; every command reaches its collaborators
// through it.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"directory-console/internal/api"
	"directory-console/internal/audience"
	"directory-console/internal/compose"
	"directory-console/internal/config"
	"directory-console/internal/dashboard"
	"directory-console/internal/directory"
	"directory-console/internal/logging"
	"directory-console/internal/masterdata"
	"directory-console/internal/models"
	"directory-console/internal/session"
	"directory-console/internal/status"
)

type App struct {
	Config     *config.Config
	Log        *logrus.Logger
	API        *api.Client
	Session    *session.Manager
	MasterData *masterdata.Cache
	Estimator  *audience.Estimator
	Unread     *status.UnreadTracker
	Status     *status.Viewer
	Dashboard  *dashboard.Loader
	Members    *directory.Editor

	logger *logging.Logger

	mu      sync.Mutex
	cleanup []func()
	closed  bool
}

// New builds the application from configuration, logging through the
// configured logger and keeping the session in the token file.
func New(cfg *config.Config) (*App, error) {
	logger, err := logging.New(cfg)
	if err != nil {
		return nil, err
	}
	a := Build(cfg, logger.Logger, session.NewFileStore(cfg.TokenFile))
	a.logger = logger
	return a, nil
}

// Build wires the application around an existing logger and token store.
func Build(cfg *config.Config, log *logrus.Logger, store session.TokenStore) *App {
	client := api.New(api.Options{
		BaseURL: cfg.APIURL,
		Timeout: cfg.Timeout(),
		Logger:  log,
	})
	mgr := session.NewManager(store, client, log)
	client.UseTokens(mgr)

	a := &App{
		Config:     cfg,
		Log:        log,
		API:        client,
		Session:    mgr,
		MasterData: masterdata.New(client, log, cfg.MasterDataWait()),
		Estimator:  audience.NewEstimator(client, log),
		Unread:     status.NewUnreadTracker(client, log),
		Status:     status.NewViewer(client, log),
		Dashboard:  dashboard.NewLoader(client, log),
		Members:    directory.NewEditor(client, log),
	}

	// Master data and counters belong to the signed-in admin.
	a.Defer(mgr.OnExpired(func() {
		a.MasterData.InvalidateAll()
		a.Unread.Reset()
	}))
	return a
}

// Defer registers fn to run on Close, in reverse order of registration.
func (a *App) Defer(fn func()) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		fn()
		return
	}
	a.cleanup = append(a.cleanup, fn)
}

// Restore loads the signed-in user for a stored session. It reports false
// when no session is stored.
func (a *App) Restore(ctx context.Context) (bool, error) {
	if _, ok := a.Session.AccessToken(); !ok {
		return false, nil
	}
	me, err := a.API.Me(ctx)
	if err != nil {
		return true, fmt.Errorf("restore session: %w", err)
	}
	a.Session.SetUser(*me)
	return true, nil
}

// RequireAdmin restores the session and checks that the user may send
// notifications.
func (a *App) RequireAdmin(ctx context.Context) (models.User, error) {
	ok, err := a.Restore(ctx)
	if err != nil {
		return models.User{}, err
	}
	if !ok {
		return models.User{}, ErrSignedOut
	}
	u, _ := a.Session.User()
	if !u.Role.CanSendNotifications() {
		return u, fmt.Errorf("%s may not send notifications", u.Role)
	}
	return u, nil
}

var ErrSignedOut = errors.New("not signed in, run `console login` first")

// NewCompose starts a compose workflow bound to the app's collaborators.
func (a *App) NewCompose() *compose.Workflow {
	w := compose.New(compose.Options{
		Submitter: a.API,
		Catalog:   a.MasterData,
		Estimator: a.Estimator,
		Logger:    a.Log,
	})
	a.Defer(w.Close)
	return w
}

// WatchUnread polls the unread count until ctx is done or Close is called.
func (a *App) WatchUnread(ctx context.Context) (stop func()) {
	stop = status.UnreadPoller(a.Unread, a.Config.PollInterval()).Start(ctx)
	a.Defer(stop)
	return stop
}

func (a *App) Theme() session.Theme {
	return session.LoadTheme(a.Session.Store())
}

// Close releases everything the app acquired. It is safe to call twice.
func (a *App) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	fns := a.cleanup
	a.cleanup = nil
	a.mu.Unlock()

	for i := len(fns) - 1; i >= 0; i-- {
		fns[i]()
	}
	a.Estimator.Close()
	if a.logger != nil {
		return a.logger.Close()
	}
	return nil
}
