package queue

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	AuthExchange = "auth.events"

	KeyMailSend       = "mail.send"
	KeyUserRegistered = "user.registered"
	KeyUserVerified   = "user.verified"
	KeyUserLoggedIn   = "user.loggedin"
)

type Publisher interface {
	Publish(ctx context.Context, exchange, key string, event any, reqID string) error
	Close() error
}

type NoopPub struct{}

func NewNoop() Publisher { return NoopPub{} }

func (NoopPub) Publish(ctx context.Context, exchange, key string, event any, reqID string) error {
	return nil
}
func (NoopPub) Close() error { return nil }

type UserRegistered struct {
	UserID primitive.ObjectID `json:"user_id"`
	Email  string             `json:"email"`
	Name   string             `json:"name"`
}

type UserVerified struct {
	UserID primitive.ObjectID `json:"user_id"`
	Email  string             `json:"email"`
}

type UserLoggedIn struct {
	UserID primitive.ObjectID `json:"user_id"`
	Email  string             `json:"email,omitempty"`
	Guest  bool               `json:"guest"`
}
