package compose

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"directory-console/internal/api"
	"directory-console/internal/apperr"
	"directory-console/internal/audience"
	"directory-console/internal/fakeapi"
	"directory-console/internal/logging"
	"directory-console/internal/masterdata"
	"directory-console/internal/models"
	"directory-console/internal/session"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var fixedNow = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

type fakeSubmitter struct {
	mu    sync.Mutex
	reqs  []models.CreateNotificationRequest
	err   error
	delay chan struct{}
}

func (f *fakeSubmitter) CreateNotification(ctx context.Context, req models.CreateNotificationRequest) (*models.Notification, error) {
	f.mu.Lock()
	f.reqs = append(f.reqs, req)
	err, delay := f.err, f.delay
	f.mu.Unlock()
	if delay != nil {
		<-delay
	}
	if err != nil {
		return nil, err
	}
	return &models.Notification{RecCode: "n-1", Title: req.Title, RecipientCount: 4}, nil
}

func (f *fakeSubmitter) requests() []models.CreateNotificationRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.CreateNotificationRequest(nil), f.reqs...)
}

type staticCatalog map[string][]models.Entity

func (c staticCatalog) Fetch(_ context.Context, categories ...string) (map[string][]models.Entity, error) {
	out := make(map[string][]models.Entity)
	for _, cat := range categories {
		out[cat] = c[cat]
	}
	return out, nil
}

func (c staticCatalog) Find(category, recCode string) (models.Entity, bool) {
	for _, e := range c[category] {
		if e.RecCode == recCode {
			return e, true
		}
	}
	return models.Entity{}, false
}

var types = staticCatalog{
	models.CategoryNotificationTypes: {{RecCode: "1", Name: "General"}, {RecCode: "2", Name: "Event"}},
}

func newWorkflow(sub Submitter) *Workflow {
	return New(Options{
		Submitter: sub,
		Catalog:   types,
		Logger:    logging.Discard(),
		Now:       func() time.Time { return fixedNow },
	})
}

func fill(t *testing.T, w *Workflow) {
	t.Helper()
	require.NoError(t, w.SetTitle("Test"))
	require.NoError(t, w.SetMessage("Hello"))
	require.NoError(t, w.SetType("1"))
	require.NoError(t, w.SetDimension(audience.DimAreas, []string{"Area1"}))
}

func toPreview(t *testing.T, w *Workflow) {
	t.Helper()
	for w.Stage() != StagePreview {
		_, err := w.Next()
		require.NoError(t, err)
	}
}

func TestStagesRoundTripKeepsDraft(t *testing.T) {
	w := newWorkflow(&fakeSubmitter{})
	fill(t, w)
	require.NoError(t, w.SetScheduledAt(fixedNow.Add(time.Hour)))
	want := w.Draft()

	var seen []Stage
	for i := 0; i < 5; i++ {
		s, err := w.Next()
		require.NoError(t, err)
		seen = append(seen, s)
	}
	assert.Equal(t, []Stage{StageRecipients, StageSchedule, StagePreview, StagePreview, StagePreview}, seen)
	assert.Equal(t, want, w.Draft())

	for i := 0; i < 5; i++ {
		_, err := w.Previous()
		require.NoError(t, err)
	}
	assert.Equal(t, StageCompose, w.Stage())
	assert.Equal(t, want, w.Draft())
}

func TestNextNeverBlocksOnEmptyDraft(t *testing.T) {
	w := newWorkflow(&fakeSubmitter{})
	toPreview(t, w)
	assert.Equal(t, StagePreview, w.Stage())
}

func TestSubmitOnlyFromPreview(t *testing.T) {
	sub := &fakeSubmitter{}
	w := newWorkflow(sub)
	fill(t, w)

	_, err := w.Submit(context.Background())
	assert.ErrorIs(t, err, ErrNotInPreview)
	assert.Empty(t, sub.requests())
}

func TestValidationOrderAndFocus(t *testing.T) {
	sub := &fakeSubmitter{}
	w := newWorkflow(sub)
	require.NoError(t, w.SetScheduleLater(true))
	toPreview(t, w)

	_, err := w.Submit(context.Background())
	var verr *apperr.ValidationError
	require.ErrorAs(t, err, &verr)

	var fields []string
	for _, f := range verr.Fields {
		fields = append(fields, f.Field)
	}
	assert.Equal(t, []string{FieldNotificationType, FieldTitle, FieldMessage, FieldFilterCriteria, FieldScheduledAt}, fields)
	assert.Equal(t, FieldNotificationType, w.FocusField())
	assert.Equal(t, "At least one filter must be set to target recipients", verr.Field(FieldFilterCriteria))
	assert.Equal(t, StagePreview, w.Stage())
	assert.Empty(t, sub.requests())
}

func TestValidationRules(t *testing.T) {
	w := newWorkflow(&fakeSubmitter{})
	fill(t, w)
	require.NoError(t, w.SetTitle(strings.Repeat("é", MaxTitleLength+1)))
	require.NoError(t, w.SetMessage("   "))
	require.NoError(t, w.SetType("9"))
	require.NoError(t, w.SetScheduledAt(fixedNow))
	toPreview(t, w)

	_, err := w.Submit(context.Background())
	var verr *apperr.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Selected notification type does not exist", verr.Field(FieldNotificationType))
	assert.Equal(t, "Title must be at most 200 characters", verr.Field(FieldTitle))
	assert.Equal(t, "Message is required", verr.Field(FieldMessage))
	assert.Empty(t, verr.Field(FieldFilterCriteria))
	assert.Equal(t, "Scheduled time must be in the future", verr.Field(FieldScheduledAt))
	assert.Equal(t, FieldNotificationType, w.FocusField())
}

func TestTitleAtLimitIsAccepted(t *testing.T) {
	sub := &fakeSubmitter{}
	w := newWorkflow(sub)
	fill(t, w)
	require.NoError(t, w.SetTitle(strings.Repeat("é", MaxTitleLength)))
	toPreview(t, w)

	_, err := w.Submit(context.Background())
	require.NoError(t, err)
}

func TestSubmitSendsTrimmedText(t *testing.T) {
	sub := &fakeSubmitter{}
	w := newWorkflow(sub)
	fill(t, w)
	require.NoError(t, w.SetTitle("   "+strings.Repeat("a", MaxTitleLength)+"   "))
	require.NoError(t, w.SetMessage("  Hello  "))
	require.NoError(t, w.SetType(" 1 "))
	toPreview(t, w)

	_, err := w.Submit(context.Background())
	require.NoError(t, err)
	reqs := sub.requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, strings.Repeat("a", MaxTitleLength), reqs[0].Title)
	assert.Equal(t, "Hello", reqs[0].Message)
	assert.Equal(t, "1", reqs[0].NotificationTypeID)
}

func TestScheduleToggleOffSendsNull(t *testing.T) {
	sub := &fakeSubmitter{}
	w := newWorkflow(sub)
	fill(t, w)
	require.NoError(t, w.SetScheduledAt(fixedNow.Add(2*time.Hour)))
	require.NoError(t, w.SetScheduleLater(false))
	toPreview(t, w)

	_, err := w.Submit(context.Background())
	require.NoError(t, err)
	reqs := sub.requests()
	require.Len(t, reqs, 1)
	assert.Nil(t, reqs[0].ScheduledDateTime)
}

func TestScheduledSubmitCarriesTime(t *testing.T) {
	sub := &fakeSubmitter{}
	w := newWorkflow(sub)
	fill(t, w)
	at := fixedNow.Add(2 * time.Hour)
	require.NoError(t, w.SetScheduledAt(at))
	toPreview(t, w)

	assert.Contains(t, w.Preview().Schedule, "Scheduled for")

	_, err := w.Submit(context.Background())
	require.NoError(t, err)
	require.NotNil(t, sub.requests()[0].ScheduledDateTime)
	assert.True(t, at.Equal(*sub.requests()[0].ScheduledDateTime))
}

func TestSuccessDiscardsDraftAndLocks(t *testing.T) {
	w := newWorkflow(&fakeSubmitter{})
	fill(t, w)
	toPreview(t, w)

	n, err := w.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "n-1", n.RecCode)
	assert.Equal(t, StageSubmitted, w.Stage())
	assert.Equal(t, Draft{}, w.Draft())

	res, ok := w.Result()
	require.True(t, ok)
	assert.Equal(t, "Test", res.Title)

	assert.ErrorIs(t, w.SetTitle("again"), ErrSubmitted)
	_, err = w.Next()
	assert.ErrorIs(t, err, ErrSubmitted)
	_, err = w.Submit(context.Background())
	assert.ErrorIs(t, err, ErrSubmitted)
}

func TestServerFailureKeepsDraftInPreview(t *testing.T) {
	sub := &fakeSubmitter{err: apperr.New(apperr.KindServer, "create notification", http.StatusInternalServerError, "boom")}
	w := newWorkflow(sub)
	fill(t, w)
	toPreview(t, w)
	want := w.Draft()

	_, err := w.Submit(context.Background())
	assert.ErrorIs(t, err, apperr.ErrServer)
	assert.Equal(t, StagePreview, w.Stage())
	assert.Equal(t, want, w.Draft())
	assert.ErrorIs(t, w.LastError(), apperr.ErrServer)

	sub.mu.Lock()
	sub.err = nil
	sub.mu.Unlock()
	_, err = w.Submit(context.Background())
	require.NoError(t, err)
	assert.Len(t, sub.requests(), 2)
}

func TestSessionExpiryFailsWorkflow(t *testing.T) {
	sub := &fakeSubmitter{err: apperr.SessionExpired("create notification", nil)}
	w := newWorkflow(sub)
	fill(t, w)
	toPreview(t, w)

	_, err := w.Submit(context.Background())
	assert.ErrorIs(t, err, apperr.ErrSessionExpired)
	assert.Equal(t, StageFailed, w.Stage())
	assert.ErrorIs(t, w.SetTitle("x"), ErrFailed)
}

func TestConcurrentSubmitSendsOnce(t *testing.T) {
	sub := &fakeSubmitter{delay: make(chan struct{})}
	w := newWorkflow(sub)
	fill(t, w)
	toPreview(t, w)

	done := make(chan error, 1)
	go func() {
		_, err := w.Submit(context.Background())
		done <- err
	}()
	require.Eventually(t, func() bool { return len(sub.requests()) == 1 }, time.Second, time.Millisecond)

	_, err := w.Submit(context.Background())
	assert.ErrorIs(t, err, ErrSubmitting)

	close(sub.delay)
	require.NoError(t, <-done)
	assert.Len(t, sub.requests(), 1)
}

func TestCloseIgnoresLateResult(t *testing.T) {
	sub := &fakeSubmitter{delay: make(chan struct{})}
	w := newWorkflow(sub)
	fill(t, w)
	toPreview(t, w)

	done := make(chan error, 1)
	go func() {
		_, err := w.Submit(context.Background())
		done <- err
	}()
	require.Eventually(t, func() bool { return len(sub.requests()) == 1 }, time.Second, time.Millisecond)

	w.Close()
	close(sub.delay)
	require.NoError(t, <-done)
	assert.Equal(t, StagePreview, w.Stage())
	_, ok := w.Result()
	assert.False(t, ok)
}

type fixedCounter int

func (c fixedCounter) CountRecipients(context.Context, models.FilterCriteria) (int, error) {
	return int(c), nil
}

func TestPreviewShowsTypeNameAndEstimate(t *testing.T) {
	est := audience.NewEstimator(fixedCounter(4), logging.Discard())
	w := New(Options{Submitter: &fakeSubmitter{}, Catalog: types, Estimator: est, Logger: logging.Discard()})
	fill(t, w)

	p := w.Preview()
	assert.Equal(t, "General", p.TypeName)
	assert.Equal(t, "Send immediately", p.Schedule)
	assert.False(t, p.RecipientsKnown)

	n, err := w.EstimateRecipients(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	p = w.Preview()
	assert.True(t, p.RecipientsKnown)
	assert.Equal(t, 4, p.Recipients)

	require.NoError(t, w.SetDimension(audience.DimGenders, []string{"1"}))
	assert.False(t, w.Preview().RecipientsKnown)
}

func TestComposeEndToEnd(t *testing.T) {
	fake := fakeapi.New(fakeapi.Options{})
	srv := httptest.NewServer(fake.Handler())
	defer srv.Close()

	client := api.New(api.Options{BaseURL: srv.URL + "/api", Timeout: 5 * time.Second, Logger: logging.Discard()})
	mgr := session.NewManager(session.NewMemoryStore(), client, logging.Discard())
	client.UseTokens(mgr)
	ctx := context.Background()
	_, err := mgr.Login(ctx, fakeapi.AdminUsername, fakeapi.AdminPassword)
	require.NoError(t, err)

	cache := masterdata.New(client, logging.Discard(), time.Millisecond)
	got, err := cache.Fetch(ctx, models.CategoryNotificationTypes)
	require.NoError(t, err)
	var general string
	for _, e := range got[models.CategoryNotificationTypes] {
		if e.Name == "General" {
			general = e.RecCode
		}
	}
	require.NotEmpty(t, general)

	w := New(Options{Submitter: client, Catalog: cache, Logger: logging.Discard()})
	require.NoError(t, w.SetTitle("Test"))
	require.NoError(t, w.SetMessage("Hello"))
	require.NoError(t, w.SetType(general))
	require.NoError(t, w.SetDimension(audience.DimAreas, []string{"Area1"}))
	toPreview(t, w)

	n, err := w.Submit(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, n.RecipientCount)
	assert.Equal(t, StageSubmitted, w.Stage())

	assert.Equal(t, 1, fake.Calls(http.MethodPost, "/notifications"))
	body := fake.LastCreateBody()
	require.Contains(t, body, "ScheduledDateTime")
	assert.Nil(t, body["ScheduledDateTime"])
	criteria, ok := body["FilterCriteria"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, []any{"Area1"}, criteria["areaIds"])
}
