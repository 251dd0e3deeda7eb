package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/siddhantsaxena45/AI-Interviewer/internal/models"
	"github.com/siddhantsaxena45/AI-Interviewer/internal/repositories"
)

const SessionsCollection = "sessions"

// heavy answer fields are left out of the list view
var listProjection = bson.D{
	{Key: "questions.userAnswerText", Value: 0},
	{Key: "questions.userSubmittedCode", Value: 0},
}

// SessionRepo wraps the sessions collection
type SessionRepo struct{ col *mongo.Collection }

var _ repositories.SessionRepository = (*SessionRepo)(nil)

func NewSessionRepo(db *mongo.Database) *SessionRepo {
	return &SessionRepo{col: db.Collection(SessionsCollection)}
}

// EnsureIndexes creates the owner lookup indexes
func (r *SessionRepo) EnsureIndexes(ctx context.Context) error {
	_, err := r.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "user", Value: 1}}},
		{Keys: bson.D{{Key: "user", Value: 1}, {Key: "createdAt", Value: -1}}},
	})
	return err
}

func (r *SessionRepo) Create(ctx context.Context, s *models.Session) error {
	if s.ID.IsZero() {
		s.ID = primitive.NewObjectID()
	}
	now := time.Now().UTC()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.UpdatedAt = now

	if _, err := r.col.InsertOne(ctx, s); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repositories.ErrDuplicateKey
		}
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (r *SessionRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Session, error) {
	var s models.Session
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&s); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repositories.ErrNotFound
		}
		return nil, fmt.Errorf("find session %s: %w", id.Hex(), err)
	}
	return &s, nil
}

// ListByUser returns the user's sessions, newest first
func (r *SessionRepo) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Session, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetProjection(listProjection)

	cur, err := r.col.Find(ctx, bson.M{"user": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer cur.Close(ctx)

	out := []models.Session{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode sessions: %w", err)
	}
	return out, nil
}

// Update replaces the document only if its stored version still matches
// s.Version. On success s.Version is advanced.
func (r *SessionRepo) Update(ctx context.Context, s *models.Session) error {
	next := *s
	next.Version = s.Version + 1
	next.UpdatedAt = time.Now().UTC()

	res, err := r.col.ReplaceOne(ctx, bson.M{"_id": s.ID, "version": s.Version}, &next)
	if err != nil {
		return fmt.Errorf("update session %s: %w", s.ID.Hex(), err)
	}
	if res.MatchedCount == 0 {
		n, err := r.col.CountDocuments(ctx, bson.M{"_id": s.ID})
		if err != nil {
			return fmt.Errorf("check session %s: %w", s.ID.Hex(), err)
		}
		if n == 0 {
			return repositories.ErrNotFound
		}
		return repositories.ErrVersionConflict
	}

	s.Version = next.Version
	s.UpdatedAt = next.UpdatedAt
	return nil
}

func (r *SessionRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete session %s: %w", id.Hex(), err)
	}
	if res.DeletedCount == 0 {
		return repositories.ErrNotFound
	}
	return nil
}
