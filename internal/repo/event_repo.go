package repo

import (
	"context"
	"errors"
	"time"

	"github.com/tazhibayda/event-service/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"
)

// EventChanges holds the organizer-editable fields. Image is only replaced when non-empty.
type EventChanges struct {
	Name        string
	Description string
	Date        time.Time
	Time        string
	Category    string
	Location    string
	Image       string
}

func (s *Store) CreateEvent(ctx context.Context, e *domain.Event) error {
	sp, ctx := startSpan(ctx, "mongo.event.insert", tracer.Tag("organizer", e.Organizer.Hex()))
	now := time.Now().UTC()
	e.CreatedAt, e.UpdatedAt = now, now
	if e.Attendees == nil {
		e.Attendees = []primitive.ObjectID{}
	}
	res, err := s.colEvents.InsertOne(ctx, e)
	finish(sp, err)
	if err != nil {
		return err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		e.ID = oid
	}
	return nil
}

func (s *Store) ListEvents(ctx context.Context) ([]domain.Event, error) {
	sp, ctx := startSpan(ctx, "mongo.event.list")
	cur, err := s.colEvents.Find(ctx, bson.M{},
		options.Find().SetSort(bson.D{{Key: "date", Value: 1}, {Key: "created_at", Value: 1}}),
	)
	if err != nil {
		finish(sp, err)
		return nil, err
	}
	defer cur.Close(ctx)

	out := []domain.Event{}
	for cur.Next(ctx) {
		var e domain.Event
		if err := cur.Decode(&e); err != nil {
			finish(sp, err)
			return nil, err
		}
		out = append(out, e)
	}
	finish(sp, cur.Err())
	return out, cur.Err()
}

// FindEventByID returns nil, nil when the event does not exist.
func (s *Store) FindEventByID(ctx context.Context, id primitive.ObjectID) (*domain.Event, error) {
	sp, ctx := startSpan(ctx, "mongo.event.find_by_id", tracer.Tag("event_id", id.Hex()))
	var e domain.Event
	err := s.colEvents.FindOne(ctx, bson.M{"_id": id}).Decode(&e)
	finish(sp, err)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *Store) findOneAndUpdate(ctx context.Context, op string, filter, update bson.M) (*domain.Event, error) {
	sp, ctx := startSpan(ctx, op)
	var e domain.Event
	err := s.colEvents.FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&e)
	finish(sp, err)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// AddAttendee appends userID unless already present. It returns nil, nil when the event
// is missing or the user is already an attendee.
func (s *Store) AddAttendee(ctx context.Context, eventID, userID primitive.ObjectID) (*domain.Event, error) {
	return s.findOneAndUpdate(ctx, "mongo.event.add_attendee",
		bson.M{"_id": eventID, "attendees": bson.M{"$ne": userID}},
		bson.M{
			"$push": bson.M{"attendees": userID},
			"$set":  bson.M{"updated_at": time.Now().UTC()},
		},
	)
}

// RemoveAttendee pulls userID. It returns nil, nil when the event is missing or the
// user is not an attendee.
func (s *Store) RemoveAttendee(ctx context.Context, eventID, userID primitive.ObjectID) (*domain.Event, error) {
	return s.findOneAndUpdate(ctx, "mongo.event.remove_attendee",
		bson.M{"_id": eventID, "attendees": userID},
		bson.M{
			"$pull": bson.M{"attendees": userID},
			"$set":  bson.M{"updated_at": time.Now().UTC()},
		},
	)
}

// UpdateEventByOrganizer applies ch when organizer owns the event. The organizer field
// itself is never written.
func (s *Store) UpdateEventByOrganizer(ctx context.Context, eventID, organizer primitive.ObjectID, ch EventChanges) (*domain.Event, error) {
	set := bson.M{
		"name":        ch.Name,
		"description": ch.Description,
		"date":        ch.Date,
		"time":        ch.Time,
		"category":    ch.Category,
		"location":    ch.Location,
		"updated_at":  time.Now().UTC(),
	}
	if ch.Image != "" {
		set["image"] = ch.Image
	}
	return s.findOneAndUpdate(ctx, "mongo.event.update",
		bson.M{"_id": eventID, "organizer": organizer},
		bson.M{"$set": set},
	)
}

func (s *Store) DeleteEventByOrganizer(ctx context.Context, eventID, organizer primitive.ObjectID) (bool, error) {
	sp, ctx := startSpan(ctx, "mongo.event.delete", tracer.Tag("event_id", eventID.Hex()))
	res, err := s.colEvents.DeleteOne(ctx, bson.M{"_id": eventID, "organizer": organizer})
	finish(sp, err)
	if err != nil {
		return false, err
	}
	return res.DeletedCount == 1, nil
}
