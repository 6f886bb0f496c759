package repo

import (
	"context"
	"errors"
	"time"

	"github.com/tazhibayda/event-service/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"
)

func (s *Store) findUser(ctx context.Context, op string, filter bson.M) (*domain.User, error) {
	sp, ctx := startSpan(ctx, op)
	var u domain.User
	err := s.colUsers.FindOne(ctx, filter).Decode(&u)
	finish(sp, err)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// FindUserByEmail returns nil, nil when no user has the email.
func (s *Store) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.findUser(ctx, "mongo.user.find_by_email", bson.M{"email": email})
}

func (s *Store) FindUserByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error) {
	return s.findUser(ctx, "mongo.user.find_by_id", bson.M{"_id": id})
}

func (s *Store) FindUserByBrowserID(ctx context.Context, browserID string) (*domain.User, error) {
	return s.findUser(ctx, "mongo.user.find_by_browser_id", bson.M{"browser_id": browserID})
}

func (s *Store) CreateUser(ctx context.Context, u *domain.User) error {
	sp, ctx := startSpan(ctx, "mongo.user.insert", tracer.Tag("guest", u.IsGuest))
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now
	if u.Tokens == nil {
		u.Tokens = []domain.IssuedToken{}
	}
	res, err := s.colUsers.InsertOne(ctx, u)
	finish(sp, err)
	if IsDup(err) {
		return ErrDuplicate
	}
	if err != nil {
		return err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		u.ID = oid
	}
	return nil
}

func (s *Store) updateUser(ctx context.Context, op string, id primitive.ObjectID, set bson.M) error {
	sp, ctx := startSpan(ctx, op, tracer.Tag("user_id", id.Hex()))
	set["updated_at"] = time.Now().UTC()
	res, err := s.colUsers.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	finish(sp, err)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// SetOTP overwrites the pending verification code wholesale.
func (s *Store) SetOTP(ctx context.Context, id primitive.ObjectID, otp domain.OTP) error {
	return s.updateUser(ctx, "mongo.user.set_otp", id, bson.M{"otp": otp})
}

func (s *Store) MarkEmailVerified(ctx context.Context, id primitive.ObjectID) error {
	return s.updateUser(ctx, "mongo.user.verify_email", id, bson.M{"email_verified": true})
}

func (s *Store) SetPassword(ctx context.Context, id primitive.ObjectID, hash string) error {
	return s.updateUser(ctx, "mongo.user.set_password", id, bson.M{"password": hash})
}

// FindUsersByIDs returns name and email for the given ids, keyed by id.
func (s *Store) FindUsersByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]domain.PublicUser, error) {
	out := make(map[primitive.ObjectID]domain.PublicUser, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	sp, ctx := startSpan(ctx, "mongo.user.find_many")
	cur, err := s.colUsers.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		finish(sp, err)
		return nil, err
	}
	defer cur.Close(ctx)
	for cur.Next(ctx) {
		var u domain.PublicUser
		if err := cur.Decode(&u); err != nil {
			finish(sp, err)
			return nil, err
		}
		out[u.ID] = u
	}
	finish(sp, cur.Err())
	return out, cur.Err()
}
