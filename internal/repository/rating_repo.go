package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"nodosml-recsys/internal/db"
	"nodosml-recsys/internal/models"
)

type RatingRepository struct {
	col *mongo.Collection
}

func NewRatingRepository() *RatingRepository {
	return &RatingRepository{col: db.DB().Collection("ratings")}
}

// UpsertRating pisa el rating anterior del par (userId, movieId) y devuelve
// el timestamp (epoch) guardado.
func (r *RatingRepository) UpsertRating(ctx context.Context, userID, movieID int, rating float64) (int64, error) {
	ts := time.Now().Unix()
	_, err := r.col.UpdateOne(ctx,
		bson.M{"userId": userID, "movieId": movieID},
		bson.M{"$set": bson.M{
			"rating":    rating,
			"timestamp": ts,
		}},
		options.Update().SetUpsert(true),
	)
	return ts, err
}

// helpers de casteo seguro (el import NDJSON mezcla int32/int64/double)
func asInt(v any) int {
	switch x := v.(type) {
	case int32:
		return int(x)
	case int64:
		return int(x)
	case float64:
		return int(x)
	default:
		return 0
	}
}

func asInt64(v any) int64 {
	switch x := v.(type) {
	case int32:
		return int64(x)
	case int64:
		return x
	case float64:
		return int64(x)
	default:
		return 0
	}
}

func asFloat64(v any) float64 {
	switch x := v.(type) {
	case int32:
		return float64(x)
	case int64:
		return float64(x)
	case float64:
		return x
	default:
		return 0
	}
}

func decodeRating(raw bson.M) models.RatingDoc {
	return models.RatingDoc{
		UserID:    asInt(raw["userId"]),
		MovieID:   asInt(raw["movieId"]),
		Rating:    asFloat64(raw["rating"]),
		Timestamp: asInt64(raw["timestamp"]),
	}
}

func decodeRatings(ctx context.Context, cur *mongo.Cursor) ([]models.RatingDoc, error) {
	defer cur.Close(ctx)

	var out []models.RatingDoc
	for cur.Next(ctx) {
		var raw bson.M
		if err := cur.Decode(&raw); err != nil {
			return nil, err
		}
		out = append(out, decodeRating(raw))
	}
	return out, cur.Err()
}

// GetOne devuelve nil, nil si el usuario no calificó la película.
func (r *RatingRepository) GetOne(ctx context.Context, userID, movieID int) (*models.RatingDoc, error) {
	var raw bson.M
	err := r.col.FindOne(ctx, bson.M{"userId": userID, "movieId": movieID}).Decode(&raw)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	rd := decodeRating(raw)
	return &rd, nil
}

func (r *RatingRepository) GetByUser(ctx context.Context, userID, limit, offset int) ([]models.RatingDoc, error) {
	cur, err := r.col.Find(ctx,
		bson.M{"userId": userID},
		options.Find().
			SetSort(bson.D{{Key: "timestamp", Value: -1}, {Key: "movieId", Value: 1}}).
			SetLimit(int64(limit)).
			SetSkip(int64(offset)),
	)
	if err != nil {
		return nil, err
	}
	return decodeRatings(ctx, cur)
}

// All lee la tabla completa; ctx puede ser un mongo.SessionContext.
func (r *RatingRepository) All(ctx context.Context) ([]models.RatingDoc, error) {
	return allRatings(ctx, r.col)
}

func allRatings(ctx context.Context, col *mongo.Collection) ([]models.RatingDoc, error) {
	cur, err := col.Find(ctx, bson.M{}, options.Find().SetBatchSize(5000))
	if err != nil {
		return nil, err
	}
	return decodeRatings(ctx, cur)
}

// StatsForMovie agrega promedio, cantidad y último timestamp de una película
// directamente sobre la colección ratings.
func (r *RatingRepository) StatsForMovie(ctx context.Context, movieID int) (*models.RatingStats, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"movieId": movieID}}},
		{{Key: "$group", Value: bson.M{
			"_id":     nil,
			"average": bson.M{"$avg": "$rating"},
			"count":   bson.M{"$sum": 1},
			"last":    bson.M{"$max": "$timestamp"},
		}}},
	}
	cur, err := r.col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	stats := &models.RatingStats{}
	if cur.Next(ctx) {
		var raw bson.M
		if err := cur.Decode(&raw); err != nil {
			return nil, err
		}
		stats = statsFromAggregate(raw)
	}
	return stats, cur.Err()
}

func statsFromAggregate(raw bson.M) *models.RatingStats {
	stats := &models.RatingStats{
		Average: asFloat64(raw["average"]),
		Count:   asInt(raw["count"]),
	}
	if last := asInt64(raw["last"]); last > 0 {
		stats.LastRatedAt = time.Unix(last, 0).UTC().Format(time.RFC3339)
	}
	return stats
}

// AllMovieStats agrega ratingStats para todas las películas con al menos un rating.
func (r *RatingRepository) AllMovieStats(ctx context.Context) (map[int]*models.RatingStats, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.M{
			"_id":     "$movieId",
			"average": bson.M{"$avg": "$rating"},
			"count":   bson.M{"$sum": 1},
			"last":    bson.M{"$max": "$timestamp"},
		}}},
	}
	cur, err := r.col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := make(map[int]*models.RatingStats)
	for cur.Next(ctx) {
		var raw bson.M
		if err := cur.Decode(&raw); err != nil {
			return nil, err
		}
		out[asInt(raw["_id"])] = statsFromAggregate(raw)
	}
	return out, cur.Err()
}

// CountSummary devuelve total de ratings, usuarios distintos que calificaron y
// cuántos de ellos tienen al menos minPerUser ratings.
func (r *RatingRepository) CountSummary(ctx context.Context, minPerUser int) (total, raters, eligible int, err error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.M{"_id": "$userId", "n": bson.M{"$sum": 1}}}},
		{{Key: "$group", Value: bson.M{
			"_id":    nil,
			"total":  bson.M{"$sum": "$n"},
			"raters": bson.M{"$sum": 1},
			"eligible": bson.M{"$sum": bson.M{
				"$cond": bson.A{bson.M{"$gte": bson.A{"$n", minPerUser}}, 1, 0},
			}},
		}}},
	}
	cur, err := r.col.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, 0, 0, err
	}
	defer cur.Close(ctx)

	if cur.Next(ctx) {
		var raw bson.M
		if err := cur.Decode(&raw); err != nil {
			return 0, 0, 0, err
		}
		total, raters, eligible = asInt(raw["total"]), asInt(raw["raters"]), asInt(raw["eligible"])
	}
	return total, raters, eligible, cur.Err()
}
