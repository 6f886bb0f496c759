package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// OTP is the pending email verification code of a user. Only one is live at a time.
type OTP struct {
	Code      int       `bson:"id"         json:"-"`
	ExpiredAt time.Time `bson:"expired_at" json:"-"`
}

type IssuedToken struct {
	Token string `bson:"token" json:"-"`
}

type User struct {
	ID            primitive.ObjectID `bson:"_id,omitempty"         json:"id"`
	Name          string             `bson:"name"                  json:"name"`
	Email         string             `bson:"email,omitempty"       json:"email,omitempty"`
	EmailVerified bool               `bson:"email_verified"        json:"emailVerified"`
	PasswordHash  string             `bson:"password,omitempty"    json:"-"`
	BrowserID     string             `bson:"browser_id,omitempty"  json:"browserId,omitempty"`
	IsGuest       bool               `bson:"is_guest"              json:"isGuest"`
	OTP           *OTP               `bson:"otp,omitempty"         json:"-"`
	Tokens        []IssuedToken      `bson:"tokens"                json:"-"`
	CreatedAt     time.Time          `bson:"created_at"            json:"createdAt"`
	UpdatedAt     time.Time          `bson:"updated_at"            json:"updatedAt"`
}

// PublicUser is the sanitized user record returned to clients.
type PublicUser struct {
	ID            primitive.ObjectID `bson:"_id"                  json:"id"`
	Name          string             `bson:"name"                 json:"name"`
	Email         string             `bson:"email,omitempty"      json:"email,omitempty"`
	EmailVerified bool               `bson:"email_verified"       json:"emailVerified"`
	BrowserID     string             `bson:"browser_id,omitempty" json:"browserId,omitempty"`
	IsGuest       bool               `bson:"is_guest"             json:"isGuest"`
	CreatedAt     time.Time          `bson:"created_at"           json:"createdAt"`
	UpdatedAt     time.Time          `bson:"updated_at"           json:"updatedAt"`
}

func (u *User) Sanitized() PublicUser {
	return PublicUser{
		ID:            u.ID,
		Name:          u.Name,
		Email:         u.Email,
		EmailVerified: u.EmailVerified,
		BrowserID:     u.BrowserID,
		IsGuest:       u.IsGuest,
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	}
}
