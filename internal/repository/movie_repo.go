// internal/repository/movie_repo.go
package repository

import (
	"context"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"nodosml-recsys/internal/db"
	"nodosml-recsys/internal/models"
)

type MovieRepository struct {
	col *mongo.Collection
}

func NewMovieRepository() *MovieRepository {
	return &MovieRepository{col: db.DB().Collection("movies")}
}

func (r *MovieRepository) GetByID(ctx context.Context, movieID int) (*models.MovieDoc, error) {
	var m models.MovieDoc
	err := r.col.FindOne(ctx, bson.M{"movieId": movieID}).Decode(&m)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	return &m, err
}

// searchFilter arma el filtro de /movies/search. q se escapa: es texto
// libre del usuario, no una regex.
func searchFilter(q, genre string, yearFrom, yearTo int) bson.M {
	filter := bson.M{}

	if q != "" {
		filter["title"] = bson.M{"$regex": regexp.QuoteMeta(q), "$options": "i"}
	}
	if genre != "" {
		// géneros es un array, esto busca que contenga ese género
		filter["genres"] = genre
	}
	if yearFrom > 0 || yearTo > 0 {
		yearCond := bson.M{}
		if yearFrom > 0 {
			yearCond["$gte"] = yearFrom
		}
		if yearTo > 0 {
			yearCond["$lte"] = yearTo
		}
		filter["year"] = yearCond
	}
	return filter
}

func (r *MovieRepository) Search(
	ctx context.Context,
	q string,
	genre string,
	yearFrom, yearTo int,
	limit, offset int,
) ([]models.MovieDoc, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "movieId", Value: 1}}).
		SetLimit(int64(limit)).
		SetSkip(int64(offset))

	cur, err := r.col.Find(ctx, searchFilter(q, genre, yearFrom, yearTo), opts)
	if err != nil {
		return nil, err
	}
	return decodeMovies(ctx, cur)
}

// Top por popularidad (count) o rating promedio
func (r *MovieRepository) Top(ctx context.Context, metric string, limit int) ([]models.MovieDoc, error) {
	sortField := "ratingStats.count" // popular
	if metric == "rating" {
		sortField = "ratingStats.average"
	}

	opts := options.Find().
		SetSort(bson.D{{Key: sortField, Value: -1}, {Key: "movieId", Value: 1}}).
		SetLimit(int64(limit))

	cur, err := r.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	return decodeMovies(ctx, cur)
}

// All devuelve el catálogo completo; ctx puede ser un mongo.SessionContext.
func (r *MovieRepository) All(ctx context.Context) ([]models.MovieDoc, error) {
	return allMovies(ctx, r.col)
}

func allMovies(ctx context.Context, col *mongo.Collection) ([]models.MovieDoc, error) {
	cur, err := col.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	return decodeMovies(ctx, cur)
}

// UpdateStats guarda la copia desnormalizada de ratingStats.
func (r *MovieRepository) UpdateStats(ctx context.Context, movieID int, stats *models.RatingStats) error {
	res, err := r.col.UpdateOne(ctx,
		bson.M{"movieId": movieID},
		bson.M{"$set": bson.M{
			"ratingStats": stats,
			"updatedAt":   time.Now().UTC().Format(time.RFC3339),
		}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

func decodeMovies(ctx context.Context, cur *mongo.Cursor) ([]models.MovieDoc, error) {
	defer cur.Close(ctx)

	var out []models.MovieDoc
	for cur.Next(ctx) {
		var m models.MovieDoc
		if err := cur.Decode(&m); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, cur.Err()
}

// BulkUpdateStats reescribe ratingStats en lote. Devuelve cuántas películas se modificaron.
func (r *MovieRepository) BulkUpdateStats(ctx context.Context, stats map[int]*models.RatingStats) (int, error) {
	if len(stats) == 0 {
		return 0, nil
	}
	now := time.Now().UTC().Format(time.RFC3339)
	writes := make([]mongo.WriteModel, 0, len(stats))
	for movieID, s := range stats {
		writes = append(writes, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"movieId": movieID}).
			SetUpdate(bson.M{"$set": bson.M{"ratingStats": s, "updatedAt": now}}))
	}
	res, err := r.col.BulkWrite(ctx, writes, options.BulkWrite().SetOrdered(false))
	if err != nil {
		return 0, err
	}
	return int(res.ModifiedCount), nil
}

// CountPopular cuenta películas totales y las que llegan a minRatings según ratingStats.
func (r *MovieRepository) CountPopular(ctx context.Context, minRatings int) (total, popular int, err error) {
	t, err := r.col.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, 0, err
	}
	p, err := r.col.CountDocuments(ctx, bson.M{"ratingStats.count": bson.M{"$gte": minRatings}})
	if err != nil {
		return 0, 0, err
	}
	return int(t), int(p), nil
}
