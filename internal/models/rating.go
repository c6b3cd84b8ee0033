package models

// Lo que está en Mongo (igual al NDJSON de MovieLens).
// (userId, movieId) es único: un upsert posterior pisa al anterior.
type RatingDoc struct {
	UserID    int     `json:"userId" bson:"userId"`
	MovieID   int     `json:"movieId" bson:"movieId"`
	Rating    float64 `json:"rating" bson:"rating"`
	Timestamp int64   `json:"timestamp" bson:"timestamp"`
}
