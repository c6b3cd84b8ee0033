package models

type Links struct {
	Movielens string `json:"movielens,omitempty" bson:"movielens,omitempty"`
	IMDB      string `json:"imdb,omitempty" bson:"imdb,omitempty"`
	TMDB      string `json:"tmdb,omitempty" bson:"tmdb,omitempty"`
}

// RatingStats es una copia desnormalizada para listados (/movies/top).
// Se recalcula desde la colección ratings en cada upsert; el recomendador
// nunca la lee, siempre agrega sobre los ratings crudos.
type RatingStats struct {
	Average     float64 `json:"average" bson:"average"`
	Count       int     `json:"count" bson:"count"`
	LastRatedAt string  `json:"lastRatedAt,omitempty" bson:"lastRatedAt,omitempty"`
}

type MovieDoc struct {
	MovieID     int          `json:"movieId" bson:"movieId"`
	Title       string       `json:"title" bson:"title"`
	Year        *int         `json:"year,omitempty" bson:"year,omitempty"`
	Genres      []string     `json:"genres" bson:"genres"`
	Links       *Links       `json:"links,omitempty" bson:"links,omitempty"`
	RatingStats *RatingStats `json:"ratingStats,omitempty" bson:"ratingStats,omitempty"`
	// contador opcional de vistas / clicks
	Popularity *int   `json:"popularity,omitempty" bson:"popularity,omitempty"`
	CreatedAt  string `json:"createdAt" bson:"createdAt"`
	UpdatedAt  string `json:"updatedAt" bson:"updatedAt"`
}
