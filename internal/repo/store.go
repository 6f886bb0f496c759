package repo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"
)

var ErrDuplicate = errors.New("duplicate key")

type Store struct {
	Client *mongo.Client
	DB     *mongo.Database

	colUsers  *mongo.Collection
	colEvents *mongo.Collection

	// TokenHistoryLimit caps the per-user token list; 0 keeps every token.
	TokenHistoryLimit int
}

func NewStore(ctx context.Context, uri, dbname string) (*Store, error) {
	cli, err := mongo.Connect(ctx, options.Client().
		ApplyURI(uri).
		SetRetryWrites(true).
		SetMaxPoolSize(50),
	)
	if err != nil {
		return nil, err
	}
	if err := cli.Ping(ctx, nil); err != nil {
		return nil, err
	}
	db := cli.Database(dbname)
	return &Store{
		Client:    cli,
		DB:        db,
		colUsers:  db.Collection("users"),
		colEvents: db.Collection("events"),
	}, nil
}

func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.Client.Ping(ctx, nil)
}

func (s *Store) Close(ctx context.Context) error {
	return s.Client.Disconnect(ctx)
}

// EnsureIndexes creates the uniqueness and lookup indexes for users and events.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.colUsers.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			// guests have no email, so uniqueness only applies when it is set
			Keys: bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_email").
				SetPartialFilterExpression(bson.M{"email": bson.M{"$type": "string"}}),
		},
		{
			Keys: bson.D{{Key: "browser_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_browser_id").
				SetPartialFilterExpression(bson.M{"browser_id": bson.M{"$type": "string"}}),
		},
	})
	if err != nil {
		return err
	}

	_, err = s.colEvents.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "organizer", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("organizer_created_desc"),
		},
		{
			Keys:    bson.D{{Key: "date", Value: 1}},
			Options: options.Index().SetName("date_asc"),
		},
	})
	return err
}

func IsDup(err error) bool {
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code == 11000 {
				return true
			}
		}
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.Code == 11000 {
		return true
	}
	return false
}

func startSpan(ctx context.Context, op string, opts ...ddtrace.StartSpanOption) (ddtrace.Span, context.Context) {
	opts = append(opts, tracer.SpanType("mongodb"), tracer.ServiceName("mongo"))
	return tracer.StartSpanFromContext(ctx, op, opts...)
}

func finish(sp ddtrace.Span, err error) {
	if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
		sp.Finish(tracer.WithError(err))
		return
	}
	sp.Finish()
}
