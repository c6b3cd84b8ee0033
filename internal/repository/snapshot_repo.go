package repository

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"

	"nodosml-recsys/internal/db"
	"nodosml-recsys/internal/recommend"
)

// SnapshotRepository lee users, movies y ratings como una sola vista
// consistente para un request de recomendación.
type SnapshotRepository struct {
	client *mongo.Client
	db     *mongo.Database
	// true: sesión con snapshot read concern (requiere replica set).
	// false: las tres lecturas con read concern majority, sin sesión.
	snapshotReads bool
}

func NewSnapshotRepository(snapshotReads bool) *SnapshotRepository {
	return &SnapshotRepository{
		client:        db.Client(),
		db:            db.DB(),
		snapshotReads: snapshotReads,
	}
}

func (r *SnapshotRepository) Load(ctx context.Context) (*recommend.Snapshot, error) {
	if !r.snapshotReads {
		return r.load(ctx, options.Collection().SetReadConcern(readconcern.Majority()))
	}

	sess, err := r.client.StartSession(options.Session().SetSnapshot(true))
	if err != nil {
		return nil, fmt.Errorf("snapshot session: %w", err)
	}
	defer sess.EndSession(ctx)

	var snap *recommend.Snapshot
	err = mongo.WithSession(ctx, sess, func(sc mongo.SessionContext) error {
		var err error
		snap, err = r.load(sc)
		return err
	})
	return snap, err
}

func (r *SnapshotRepository) load(ctx context.Context, opts ...*options.CollectionOptions) (*recommend.Snapshot, error) {
	users, err := allUsers(ctx, r.db.Collection("users", opts...))
	if err != nil {
		return nil, fmt.Errorf("snapshot users: %w", err)
	}
	movies, err := allMovies(ctx, r.db.Collection("movies", opts...))
	if err != nil {
		return nil, fmt.Errorf("snapshot movies: %w", err)
	}
	ratings, err := allRatings(ctx, r.db.Collection("ratings", opts...))
	if err != nil {
		return nil, fmt.Errorf("snapshot ratings: %w", err)
	}
	return &recommend.Snapshot{Users: users, Movies: movies, Ratings: ratings}, nil
}
