// Package compose drives the notification compose wizard: four editing
// stages, validation at submission and a single creation request.
package compose

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"directory-console/internal/apperr"
	"directory-console/internal/audience"
	"directory-console/internal/models"
)

type Stage string

const (
	StageCompose    Stage = "compose"
	StageRecipients Stage = "recipients"
	StageSchedule   Stage = "schedule"
	StagePreview    Stage = "preview"
	StageSubmitted  Stage = "submitted"
	StageFailed     Stage = "failed"
)

// Terminal reports whether no further events are accepted.
func (s Stage) Terminal() bool {
	return s == StageSubmitted || s == StageFailed
}

type Event string

const (
	EventNext     Event = "next"
	EventPrevious Event = "previous"
	EventSubmit   Event = "submit"
)

var transitions = map[Stage]map[Event]Stage{
	StageCompose:    {EventNext: StageRecipients},
	StageRecipients: {EventNext: StageSchedule, EventPrevious: StageCompose},
	StageSchedule:   {EventNext: StagePreview, EventPrevious: StageRecipients},
	StagePreview:    {EventPrevious: StageSchedule, EventSubmit: StageSubmitted},
}

// Stages lists the editing stages in wizard order.
var Stages = []Stage{StageCompose, StageRecipients, StageSchedule, StagePreview}

var (
	ErrSubmitted    = errors.New("notification already submitted")
	ErrFailed       = errors.New("compose aborted, the session has ended")
	ErrNotInPreview = errors.New("notification can only be submitted from the preview")
	ErrSubmitting   = errors.New("submission already in progress")
	ErrClosed       = errors.New("compose workflow closed")
)

// Submitter sends the creation request.
type Submitter interface {
	CreateNotification(ctx context.Context, req models.CreateNotificationRequest) (*models.Notification, error)
}

// Catalog resolves master data; satisfied by *masterdata.Cache.
type Catalog interface {
	Fetch(ctx context.Context, categories ...string) (map[string][]models.Entity, error)
	Find(category, recCode string) (models.Entity, bool)
}

type Options struct {
	Submitter Submitter
	Catalog   Catalog
	Estimator *audience.Estimator
	Logger    logrus.FieldLogger
	Now       func() time.Time
}

// Workflow is one compose session. It is safe for concurrent use.
type Workflow struct {
	submitter Submitter
	catalog   Catalog
	estimator *audience.Estimator
	log       logrus.FieldLogger
	now       func() time.Time

	mu         sync.Mutex
	stage      Stage
	draft      Draft
	fieldErrs  *apperr.ValidationError
	lastErr    error
	result     *models.Notification
	submitting bool
	closed     bool
}

func New(opts Options) *Workflow {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	return &Workflow{
		submitter: opts.Submitter,
		catalog:   opts.Catalog,
		estimator: opts.Estimator,
		log:       opts.Logger.WithField("component", "compose"),
		now:       opts.Now,
		stage:     StageCompose,
	}
}

func (w *Workflow) Stage() Stage {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stage
}

// Next advances one stage. It never blocks on incomplete data; at the last
// editing stage it is a no-op.
func (w *Workflow) Next() (Stage, error) {
	return w.fire(EventNext)
}

// Previous goes back one stage; at the first stage it is a no-op.
func (w *Workflow) Previous() (Stage, error) {
	return w.fire(EventPrevious)
}

func (w *Workflow) fire(ev Event) (Stage, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.editableLocked(); err != nil {
		return w.stage, err
	}
	if next, ok := transitions[w.stage][ev]; ok {
		w.stage = next
	}
	return w.stage, nil
}

func (w *Workflow) editableLocked() error {
	switch {
	case w.closed:
		return ErrClosed
	case w.stage == StageSubmitted:
		return ErrSubmitted
	case w.stage == StageFailed:
		return ErrFailed
	}
	return nil
}

// Draft returns a copy of the current draft.
func (w *Workflow) Draft() Draft {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.draft.clone()
}

func (w *Workflow) mutate(fn func(d *Draft) error) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.editableLocked(); err != nil {
		return err
	}
	return fn(&w.draft)
}

func (w *Workflow) SetTitle(title string) error {
	return w.mutate(func(d *Draft) error { d.Title = title; return nil })
}

func (w *Workflow) SetMessage(message string) error {
	return w.mutate(func(d *Draft) error { d.Message = message; return nil })
}

func (w *Workflow) SetType(typeID string) error {
	return w.mutate(func(d *Draft) error { d.NotificationTypeID = typeID; return nil })
}

// SetDimension replaces one audience dimension, see audience.SetDimension.
func (w *Workflow) SetDimension(name string, value any) error {
	return w.mutate(func(d *Draft) error {
		next, err := audience.SetDimension(d.Filter, name, value)
		if err != nil {
			return err
		}
		d.Filter = next
		return nil
	})
}

func (w *Workflow) AddMembers(ids ...string) error {
	return w.mutate(func(d *Draft) error { d.Filter = audience.AddMembers(d.Filter, ids...); return nil })
}

func (w *Workflow) RemoveMember(id string) error {
	return w.mutate(func(d *Draft) error { d.Filter = audience.RemoveMember(d.Filter, id); return nil })
}

// SetScheduleLater toggles scheduling. Switching it off discards the
// scheduled time.
func (w *Workflow) SetScheduleLater(on bool) error {
	return w.mutate(func(d *Draft) error {
		d.ScheduleLater = on
		if !on {
			d.ScheduledAt = nil
		}
		return nil
	})
}

func (w *Workflow) SetScheduledAt(at time.Time) error {
	return w.mutate(func(d *Draft) error {
		d.ScheduleLater = true
		d.ScheduledAt = &at
		return nil
	})
}

// FieldErrors returns the errors of the last failed validation.
func (w *Workflow) FieldErrors() *apperr.ValidationError {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.fieldErrs
}

// FocusField names the first invalid field of the last validation, or "".
func (w *Workflow) FocusField() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	if f, ok := w.fieldErrs.First(); ok {
		return f.Field
	}
	return ""
}

// LastError returns the error of the last failed submission.
func (w *Workflow) LastError() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastErr
}

// Result returns the notification confirmed by the backend.
func (w *Workflow) Result() (*models.Notification, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.result, w.result != nil
}

// Submit validates the draft and sends it. Validation and backend failures
// leave the workflow in Preview with the draft untouched; an expired session
// ends it in Failed.
func (w *Workflow) Submit(ctx context.Context) (*models.Notification, error) {
	w.mu.Lock()
	if err := w.editableLocked(); err != nil {
		w.mu.Unlock()
		return nil, err
	}
	if w.stage != StagePreview {
		w.mu.Unlock()
		return nil, ErrNotInPreview
	}
	if w.submitting {
		w.mu.Unlock()
		return nil, ErrSubmitting
	}
	w.submitting = true
	draft := w.draft.clone()
	w.mu.Unlock()

	n, err := w.submit(ctx, draft)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.submitting = false
	if w.closed {
		return n, err
	}

	var verr *apperr.ValidationError
	switch {
	case err == nil:
		w.stage = transitions[StagePreview][EventSubmit]
		w.result = n
		w.draft = Draft{}
		w.fieldErrs = nil
		w.lastErr = nil
	case errors.As(err, &verr):
		w.fieldErrs = verr
		w.lastErr = err
	case apperr.KindOf(err) == apperr.KindSessionExpired:
		w.stage = StageFailed
		w.lastErr = err
	default:
		w.fieldErrs = nil
		w.lastErr = err
	}
	return n, err
}

func (w *Workflow) submit(ctx context.Context, draft Draft) (*models.Notification, error) {
	if err := w.validateDraft(ctx, draft); err != nil {
		return nil, err
	}

	req := draft.Request()
	n, err := w.submitter.CreateNotification(ctx, req)
	if err != nil {
		w.log.WithError(err).Warn("Notification submit failed")
		return nil, err
	}
	w.log.WithFields(logrus.Fields{
		"notification_id": n.RecCode,
		"recipients":      n.RecipientCount,
		"scheduled":       req.ScheduledDateTime != nil,
	}).Info("Notification submitted")
	return n, nil
}

// Close detaches the workflow; results arriving afterwards change nothing.
func (w *Workflow) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
}

// PreviewModel is what the preview stage shows.
type PreviewModel struct {
	Title           string
	Message         string
	TypeName        string
	Schedule        string
	Filter          models.FilterCriteria
	Recipients      int
	RecipientsKnown bool
}

// Preview summarises the draft. The recipient count is filled in when the
// estimator holds a result for the current filter.
func (w *Workflow) Preview() PreviewModel {
	d := w.Draft()
	p := PreviewModel{
		Title:    d.Title,
		Message:  d.Message,
		TypeName: d.NotificationTypeID,
		Schedule: scheduleText(d),
		Filter:   d.Filter,
	}
	if w.catalog != nil {
		if e, ok := w.catalog.Find(models.CategoryNotificationTypes, d.NotificationTypeID); ok {
			p.TypeName = e.Name
		}
	}
	if w.estimator != nil {
		if est, ok := w.estimator.Current(); ok && sameCriteria(est.Criteria, d.Filter) {
			p.Recipients, p.RecipientsKnown = est.Count, true
		}
	}
	return p
}

// EstimateRecipients refreshes the recipient estimate for the current filter.
func (w *Workflow) EstimateRecipients(ctx context.Context) (int, error) {
	if w.estimator == nil {
		return 0, errors.New("no recipient estimator configured")
	}
	return w.estimator.Estimate(ctx, w.Draft().Filter)
}

func sameCriteria(a, b models.FilterCriteria) bool {
	ja, errA := json.Marshal(a)
	jb, errB := json.Marshal(b)
	return errA == nil && errB == nil && string(ja) == string(jb)
}
