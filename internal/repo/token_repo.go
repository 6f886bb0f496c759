package repo

import (
	"context"
	"time"

	"github.com/tazhibayda/event-service/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"
)

// AppendToken pushes an issued session token onto the user's token list.
// When TokenHistoryLimit is set only the most recent tokens are kept.
func (s *Store) AppendToken(ctx context.Context, userID primitive.ObjectID, token string) error {
	sp, ctx := startSpan(ctx, "mongo.user.append_token", tracer.Tag("user_id", userID.Hex()))

	push := bson.M{"$each": []domain.IssuedToken{{Token: token}}}
	if s.TokenHistoryLimit > 0 {
		push["$slice"] = -s.TokenHistoryLimit
	}
	res, err := s.colUsers.UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{
			"$push": bson.M{"tokens": push},
			"$set":  bson.M{"updated_at": time.Now().UTC()},
		},
	)
	finish(sp, err)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}
