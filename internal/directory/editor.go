// Package directory edits member records. Families are created through a
// member joining a new family, as the member form does.
package directory

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"directory-console/internal/models"
)

// Backend is the member slice of the API client.
type Backend interface {
	GetMember(ctx context.Context, id string) (*models.Member, error)
	CreateMember(ctx context.Context, in models.MemberInput) (*models.Member, error)
	UpdateMember(ctx context.Context, id string, in models.MemberInput) (*models.Member, error)
}

type Editor struct {
	backend Backend
	log     logrus.FieldLogger
	now     func() time.Time
}

func NewEditor(backend Backend, log logrus.FieldLogger) *Editor {
	return &Editor{
		backend: backend,
		log:     log.WithField("component", "directory"),
		now:     time.Now,
	}
}

// Load returns the stored member as an update payload.
func (e *Editor) Load(ctx context.Context, id string) (models.MemberInput, error) {
	m, err := e.backend.GetMember(ctx, id)
	if err != nil {
		return models.MemberInput{}, err
	}
	return m.Input(), nil
}

// Create validates in and adds the member. Nothing is sent when validation
// fails.
func (e *Editor) Create(ctx context.Context, in models.MemberInput) (*models.Member, error) {
	in, err := e.prepare(in)
	if err != nil {
		return nil, err
	}
	m, err := e.backend.CreateMember(ctx, in)
	if err != nil {
		return nil, err
	}
	e.log.WithField("member_id", m.RecCode).Info("Member created")
	return m, nil
}

// Update validates in and replaces the member's record.
func (e *Editor) Update(ctx context.Context, id string, in models.MemberInput) (*models.Member, error) {
	in, err := e.prepare(in)
	if err != nil {
		return nil, err
	}
	m, err := e.backend.UpdateMember(ctx, id, in)
	if err != nil {
		return nil, err
	}
	e.log.WithField("member_id", id).Info("Member updated")
	return m, nil
}

func (e *Editor) prepare(in models.MemberInput) (models.MemberInput, error) {
	in = in.Trimmed()
	if in.NewFamily {
		in.FamilyID = ""
	}
	if err := Validate(in, e.now().Year()); err != nil {
		return in, err
	}
	return in, nil
}
