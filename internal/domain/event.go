package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Event struct {
	ID          primitive.ObjectID   `bson:"_id,omitempty"   json:"id"`
	Name        string               `bson:"name"            json:"name"`
	Description string               `bson:"description"     json:"description"`
	Date        time.Time            `bson:"date"            json:"date"`
	Time        string               `bson:"time"            json:"time"`
	Category    string               `bson:"category"        json:"category"`
	Location    string               `bson:"location"        json:"location"`
	Image       string               `bson:"image,omitempty" json:"image,omitempty"`
	Organizer   primitive.ObjectID   `bson:"organizer"       json:"organizer"` // immutable after creation
	Attendees   []primitive.ObjectID `bson:"attendees"       json:"attendees"`
	CreatedAt   time.Time            `bson:"created_at"      json:"createdAt"`
	UpdatedAt   time.Time            `bson:"updated_at"      json:"updatedAt"`
}

func (e *Event) HasAttendee(id primitive.ObjectID) bool {
	for _, a := range e.Attendees {
		if a == id {
			return true
		}
	}
	return false
}

type OrganizerRef struct {
	ID    primitive.ObjectID `bson:"_id"             json:"id"`
	Name  string             `bson:"name"            json:"name"`
	Email string             `bson:"email,omitempty" json:"email,omitempty"`
}

type AttendeeRef struct {
	ID   primitive.ObjectID `bson:"_id"  json:"id"`
	Name string             `bson:"name" json:"name"`
}

// EventDetail is an event with organizer and attendees resolved to user references.
type EventDetail struct {
	ID          primitive.ObjectID `bson:"_id"             json:"id"`
	Name        string             `bson:"name"            json:"name"`
	Description string             `bson:"description"     json:"description"`
	Date        time.Time          `bson:"date"            json:"date"`
	Time        string             `bson:"time"            json:"time"`
	Category    string             `bson:"category"        json:"category"`
	Location    string             `bson:"location"        json:"location"`
	Image       string             `bson:"image,omitempty" json:"image,omitempty"`
	Organizer   *OrganizerRef      `bson:"organizer"       json:"organizer"`
	Attendees   []AttendeeRef      `bson:"attendees"       json:"attendees"`
	CreatedAt   time.Time          `bson:"created_at"      json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updated_at"      json:"updatedAt"`
}
