package compose

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"directory-console/internal/apperr"
	"directory-console/internal/audience"
	"directory-console/internal/models"
)

// Field names used in validation errors, in the order they are checked.
const (
	FieldNotificationType = "notificationTypeId"
	FieldTitle            = "title"
	FieldMessage          = "message"
	FieldFilterCriteria   = audience.FilterCriteriaName
	FieldScheduledAt      = "scheduledDateTime"
)

const (
	MaxTitleLength   = 200
	MaxMessageLength = 1000
)

// draftRules declares the plain field rules; its field order is the check order.
type draftRules struct {
	NotificationTypeID string `json:"notificationTypeId" validate:"required"`
	Title              string `json:"title" validate:"required,max=200"`
	Message            string `json:"message" validate:"required,max=1000"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

var ruleMessages = map[string]map[string]string{
	FieldNotificationType: {"required": "Please select a notification type"},
	FieldTitle: {
		"required": "Title is required",
		"max":      "Title must be at most 200 characters",
	},
	FieldMessage: {
		"required": "Message is required",
		"max":      "Message must be at most 1000 characters",
	},
}

// validateDraft checks d and returns a ValidationError listing every
// failing field, or nil.
func (w *Workflow) validateDraft(ctx context.Context, d Draft) error {
	verr := &apperr.ValidationError{}

	req := d.Request()
	rules := draftRules{
		NotificationTypeID: req.NotificationTypeID,
		Title:              req.Title,
		Message:            req.Message,
	}
	if err := validate.Struct(rules); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return err
		}
		for _, fe := range fieldErrs {
			verr.Add(fe.Field(), ruleMessages[fe.Field()][fe.Tag()])
		}
	}

	if rules.NotificationTypeID != "" && verr.Field(FieldNotificationType) == "" {
		if msg := w.checkType(ctx, rules.NotificationTypeID); msg != "" {
			verr.Fields = append([]apperr.FieldError{{Field: FieldNotificationType, Message: msg}}, verr.Fields...)
		}
	}

	if err := audience.Validate(d.Filter); err != nil {
		var v *apperr.ValidationError
		if errors.As(err, &v) {
			verr.Fields = append(verr.Fields, v.Fields...)
		}
	}

	if d.ScheduleLater {
		switch {
		case d.ScheduledAt == nil:
			verr.Add(FieldScheduledAt, "Please select a scheduled time")
		case !d.ScheduledAt.After(w.now()):
			verr.Add(FieldScheduledAt, "Scheduled time must be in the future")
		}
	}

	if verr.Empty() {
		return nil
	}
	return verr
}

// checkType confirms the type exists in master data. When the catalog cannot
// be loaded the check is left to the backend.
func (w *Workflow) checkType(ctx context.Context, id string) string {
	if w.catalog == nil {
		return ""
	}
	if _, err := w.catalog.Fetch(ctx, models.CategoryNotificationTypes); err != nil {
		w.log.WithError(err).Warn("Notification types unavailable, skipping type check")
		return ""
	}
	if _, ok := w.catalog.Find(models.CategoryNotificationTypes, id); !ok {
		return "Selected notification type does not exist"
	}
	return ""
}

func scheduleText(d Draft) string {
	if !d.ScheduleLater || d.ScheduledAt == nil {
		return "Send immediately"
	}
	return "Scheduled for " + d.ScheduledAt.Local().Format(time.DateTime)
}
