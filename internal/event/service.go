// Package event implements event creation, browsing and attendance.
package event

import (
	"context"
	"io"
	"time"

	"github.com/tazhibayda/event-service/internal/apperr"
	"github.com/tazhibayda/event-service/internal/domain"
	"github.com/tazhibayda/event-service/internal/repo"
	"github.com/tazhibayda/event-service/internal/sanitize"
	"github.com/tazhibayda/event-service/internal/storage"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type Store interface {
	CreateEvent(ctx context.Context, e *domain.Event) error
	ListEvents(ctx context.Context) ([]domain.Event, error)
	FindEventByID(ctx context.Context, id primitive.ObjectID) (*domain.Event, error)
	AddAttendee(ctx context.Context, eventID, userID primitive.ObjectID) (*domain.Event, error)
	RemoveAttendee(ctx context.Context, eventID, userID primitive.ObjectID) (*domain.Event, error)
	UpdateEventByOrganizer(ctx context.Context, eventID, organizer primitive.ObjectID, ch repo.EventChanges) (*domain.Event, error)
	DeleteEventByOrganizer(ctx context.Context, eventID, organizer primitive.ObjectID) (bool, error)
	FindUsersByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]domain.PublicUser, error)
}

type Service struct {
	store  Store
	images storage.Store
	log    *zap.Logger
}

func NewService(store Store, images storage.Store, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: store, images: images, log: log}
}

type Input struct {
	Name        string
	Description string
	Date        time.Time
	Time        string
	Category    string
	Location    string
}

// Image is an uploaded file. A nil *Image means no upload.
type Image struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

const errNotFound = "Event not found"

// clean strips markup from the text fields. A field left empty by stripping is rejected.
func clean(in Input) (Input, error) {
	fields := []struct {
		label string
		val   *string
	}{
		{"Name", &in.Name},
		{"Description", &in.Description},
		{"Time", &in.Time},
		{"Category", &in.Category},
		{"Location", &in.Location},
	}
	for _, f := range fields {
		*f.val = sanitize.Text(*f.val)
		if *f.val == "" {
			return in, apperr.New(apperr.Validation, f.label+" is required")
		}
	}
	return in, nil
}

func (s *Service) Create(ctx context.Context, organizerID string, in Input, img *Image) (*domain.Event, error) {
	organizer, err := primitive.ObjectIDFromHex(organizerID)
	if err != nil {
		return nil, apperr.New(apperr.Auth, "Unauthorized: Invalid token")
	}
	in, err = clean(in)
	if err != nil {
		return nil, err
	}
	name, err := s.saveImage(ctx, img, "Event creation failed")
	if err != nil {
		return nil, err
	}
	e := &domain.Event{
		Name:        in.Name,
		Description: in.Description,
		Date:        in.Date,
		Time:        in.Time,
		Category:    in.Category,
		Location:    in.Location,
		Image:       name,
		Organizer:   organizer,
	}
	if err := s.store.CreateEvent(ctx, e); err != nil {
		return nil, apperr.Wrap(apperr.Upstream, err, "Event creation failed")
	}
	s.log.Info("event created", zap.String("event_id", e.ID.Hex()), zap.String("organizer", organizerID))
	return e, nil
}

func (s *Service) List(ctx context.Context) ([]domain.Event, error) {
	out, err := s.store.ListEvents(ctx)
	if err != nil {
		return nil, apperr.Wrap(apperr.Upstream, err, "Failed to fetch events")
	}
	return out, nil
}

// Get returns the event with its organizer (name, email) and attendees (name) resolved.
func (s *Service) Get(ctx context.Context, id string) (*domain.EventDetail, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperr.New(apperr.NotFound, errNotFound)
	}
	e, err := s.store.FindEventByID(ctx, oid)
	if err != nil {
		return nil, apperr.Wrap(apperr.Upstream, err, "Failed to fetch event")
	}
	if e == nil {
		return nil, apperr.New(apperr.NotFound, errNotFound)
	}

	ids := append([]primitive.ObjectID{e.Organizer}, e.Attendees...)
	users, err := s.store.FindUsersByIDs(ctx, ids)
	if err != nil {
		return nil, apperr.Wrap(apperr.Upstream, err, "Failed to fetch event")
	}

	d := &domain.EventDetail{
		ID:          e.ID,
		Name:        e.Name,
		Description: e.Description,
		Date:        e.Date,
		Time:        e.Time,
		Category:    e.Category,
		Location:    e.Location,
		Image:       e.Image,
		Attendees:   []domain.AttendeeRef{},
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
	if u, ok := users[e.Organizer]; ok {
		d.Organizer = &domain.OrganizerRef{ID: u.ID, Name: u.Name, Email: u.Email}
	}
	for _, a := range e.Attendees {
		if u, ok := users[a]; ok {
			d.Attendees = append(d.Attendees, domain.AttendeeRef{ID: u.ID, Name: u.Name})
		}
	}
	return d, nil
}

func (s *Service) Join(ctx context.Context, eventID, userID string) (*domain.Event, error) {
	eid, uid, err := parseIDs(eventID, userID)
	if err != nil {
		return nil, err
	}
	e, err := s.store.FindEventByID(ctx, eid)
	if err != nil {
		return nil, apperr.Wrap(apperr.Upstream, err, "Failed to join event")
	}
	if e == nil {
		return nil, apperr.New(apperr.NotFound, errNotFound)
	}
	if e.HasAttendee(uid) {
		return nil, apperr.New(apperr.Conflict, "You have already joined this event")
	}
	updated, err := s.store.AddAttendee(ctx, eid, uid)
	if err != nil {
		return nil, apperr.Wrap(apperr.Upstream, err, "Failed to join event")
	}
	if updated == nil {
		// lost a race with a concurrent join or delete
		return nil, apperr.New(apperr.Conflict, "You have already joined this event")
	}
	return updated, nil
}

func (s *Service) Leave(ctx context.Context, eventID, userID string) (*domain.Event, error) {
	eid, uid, err := parseIDs(eventID, userID)
	if err != nil {
		return nil, err
	}
	e, err := s.store.FindEventByID(ctx, eid)
	if err != nil {
		return nil, apperr.Wrap(apperr.Upstream, err, "Failed to leave event")
	}
	if e == nil {
		return nil, apperr.New(apperr.NotFound, errNotFound)
	}
	if !e.HasAttendee(uid) {
		return nil, apperr.New(apperr.Validation, "You have not joined this event")
	}
	updated, err := s.store.RemoveAttendee(ctx, eid, uid)
	if err != nil {
		return nil, apperr.Wrap(apperr.Upstream, err, "Failed to leave event")
	}
	if updated == nil {
		return nil, apperr.New(apperr.Validation, "You have not joined this event")
	}
	return updated, nil
}

// Update rewrites the editable fields. Only the organizer may update; others get NotFound.
func (s *Service) Update(ctx context.Context, eventID, organizerID string, in Input, img *Image) (*domain.Event, error) {
	eid, uid, err := parseIDs(eventID, organizerID)
	if err != nil {
		return nil, err
	}
	if in, err = clean(in); err != nil {
		return nil, err
	}
	name, err := s.saveImage(ctx, img, "Failed to update event")
	if err != nil {
		return nil, err
	}
	updated, err := s.store.UpdateEventByOrganizer(ctx, eid, uid, repo.EventChanges{
		Name:        in.Name,
		Description: in.Description,
		Date:        in.Date,
		Time:        in.Time,
		Category:    in.Category,
		Location:    in.Location,
		Image:       name,
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.Upstream, err, "Failed to update event")
	}
	if updated == nil {
		return nil, apperr.New(apperr.NotFound, errNotFound)
	}
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, eventID, organizerID string) error {
	eid, uid, err := parseIDs(eventID, organizerID)
	if err != nil {
		return err
	}
	ok, err := s.store.DeleteEventByOrganizer(ctx, eid, uid)
	if err != nil {
		return apperr.Wrap(apperr.Upstream, err, "Failed to delete event")
	}
	if !ok {
		return apperr.New(apperr.NotFound, errNotFound)
	}
	s.log.Info("event deleted", zap.String("event_id", eventID), zap.String("organizer", organizerID))
	return nil
}

func (s *Service) saveImage(ctx context.Context, img *Image, failMsg string) (string, error) {
	if img == nil || s.images == nil {
		return "", nil
	}
	name, err := s.images.Save(ctx, img.Filename, img.Body, img.Size, img.ContentType)
	if err != nil {
		return "", apperr.Wrap(apperr.Upstream, err, failMsg)
	}
	return name, nil
}

func parseIDs(eventID, userID string) (primitive.ObjectID, primitive.ObjectID, error) {
	eid, err := primitive.ObjectIDFromHex(eventID)
	if err != nil {
		return primitive.NilObjectID, primitive.NilObjectID, apperr.New(apperr.NotFound, errNotFound)
	}
	uid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return primitive.NilObjectID, primitive.NilObjectID, apperr.New(apperr.Auth, "Unauthorized: Invalid token")
	}
	return eid, uid, nil
}
