package models

import (
	"encoding/json"
	"time"
)

type NotificationStatus string

const (
	NotificationStatusSent      NotificationStatus = "Sent"
	NotificationStatusScheduled NotificationStatus = "Scheduled"
)

// NotificationType is the embedded type reference on a notification.
type NotificationType struct {
	RecCode  string `json:"RecCode"`
	TypeName string `json:"TypeName"`
}

func (t *NotificationType) UnmarshalJSON(data []byte) error {
	var raw struct {
		RecCode  json.RawMessage `json:"RecCode"`
		TypeName string          `json:"TypeName"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	t.RecCode = rawCode(raw.RecCode)
	t.TypeName = raw.TypeName
	return nil
}

type Creator struct {
	MemberName string `json:"MemberName"`
}

type Notification struct {
	RecCode            string            `json:"RecCode"`
	Title              string            `json:"Title"`
	Message            string            `json:"Message"`
	NotificationTypeID string            `json:"NotificationTypeID"`
	Type               *NotificationType `json:"type,omitempty"`
	ScheduledDateTime  *time.Time        `json:"ScheduledDateTime"`
	CreationDateTime   time.Time         `json:"CreationDateTime"`
	Creator            *Creator          `json:"creator,omitempty"`
	FilterCriteria     *FilterCriteria   `json:"FilterCriteria,omitempty"`

	RecipientCount int  `json:"recipientCount"`
	SentCount      int  `json:"sentCount"`
	DeliveredCount *int `json:"deliveredCount,omitempty"`
	ReadCount      int  `json:"readCount"`
	FailedCount    int  `json:"failedCount"`

	// ReadStatus is only meaningful for items in the caller's own inbox.
	ReadStatus bool `json:"ReadStatus,omitempty"`
}

func (n *Notification) UnmarshalJSON(data []byte) error {
	type plain Notification
	var raw struct {
		plain
		RecCode            json.RawMessage `json:"RecCode"`
		NotificationTypeID json.RawMessage `json:"NotificationTypeID"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*n = Notification(raw.plain)
	n.RecCode = rawCode(raw.RecCode)
	n.NotificationTypeID = rawCode(raw.NotificationTypeID)
	if n.NotificationTypeID == "" && n.Type != nil {
		n.NotificationTypeID = n.Type.RecCode
	}
	return nil
}

// Status derives the delivery status: a notification whose scheduled time is
// still ahead of now is Scheduled, everything else has been sent.
func (n Notification) Status(now time.Time) NotificationStatus {
	if n.ScheduledDateTime != nil && n.ScheduledDateTime.After(now) {
		return NotificationStatusScheduled
	}
	return NotificationStatusSent
}

// TypeName returns the embedded type name or "".
func (n Notification) TypeName() string {
	if n.Type == nil {
		return ""
	}
	return n.Type.TypeName
}

// CreatorName returns the sender's member name or "System".
func (n Notification) CreatorName() string {
	if n.Creator == nil || n.Creator.MemberName == "" {
		return "System"
	}
	return n.Creator.MemberName
}

type RecipientMember struct {
	MemberName   string `json:"MemberName"`
	MobileNumber string `json:"MobileNumber"`
}

type Recipient struct {
	RecCode        string           `json:"RecCode"`
	NotificationID string           `json:"NotificationID"`
	MemberID       string           `json:"MemberID"`
	Member         *RecipientMember `json:"member,omitempty"`
	SentDateTime   *time.Time       `json:"SentDateTime"`
	ReadDateTime   *time.Time       `json:"ReadDateTime"`
	ReadStatus     bool             `json:"ReadStatus"`
}

func (r *Recipient) UnmarshalJSON(data []byte) error {
	type plain Recipient
	var raw struct {
		plain
		RecCode        json.RawMessage `json:"RecCode"`
		NotificationID json.RawMessage `json:"NotificationID"`
		MemberID       json.RawMessage `json:"MemberID"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*r = Recipient(raw.plain)
	r.RecCode = rawCode(raw.RecCode)
	r.NotificationID = rawCode(raw.NotificationID)
	r.MemberID = rawCode(raw.MemberID)
	return nil
}

// NotificationDetail is the payload of GET /notifications/{id}.
type NotificationDetail struct {
	Notification Notification `json:"notification"`
	Recipients   []Recipient  `json:"recipients"`
}

// CreateNotificationRequest is the POST /notifications body. ScheduledDateTime
// is always present and null for immediate delivery.
type CreateNotificationRequest struct {
	Title              string         `json:"Title"`
	Message            string         `json:"Message"`
	NotificationTypeID string         `json:"NotificationTypeID"`
	FilterCriteria     FilterCriteria `json:"FilterCriteria"`
	ScheduledDateTime  *time.Time     `json:"ScheduledDateTime"`
}

// NotificationFilter holds the list query parameters of GET /notifications.
type NotificationFilter struct {
	Search    string
	TypeID    string
	Status    NotificationStatus
	StartDate *time.Time
	EndDate   *time.Time
	Page      int
	Limit     int
}

// Query renders the filter as query parameters, skipping unset fields.
func (f NotificationFilter) Query() map[string]string {
	q := make(map[string]string)
	if f.Search != "" {
		q["search"] = f.Search
	}
	if f.TypeID != "" {
		q["typeId"] = f.TypeID
	}
	if f.Status != "" {
		q["status"] = string(f.Status)
	}
	if f.StartDate != nil {
		q["startDate"] = f.StartDate.Format("2006-01-02")
	}
	if f.EndDate != nil {
		q["endDate"] = f.EndDate.Format("2006-01-02")
	}
	setPaging(q, f.Page, f.Limit)
	return q
}

// NotificationPage is one page of the notification list.
type NotificationPage struct {
	Notifications []Notification `json:"notifications"`
	TotalCount    int            `json:"totalCount"`
	Page          int            `json:"page"`
}
