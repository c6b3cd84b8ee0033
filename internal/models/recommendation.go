package models

import "time"

type RecItem struct {
	MovieID int      `bson:"movieId" json:"movieId"`
	Title   string   `bson:"title"   json:"title"`
	Genres  []string `bson:"genres"  json:"genres"`
	Score   float64  `bson:"score"   json:"score"`
}

// Historial de recomendaciones servidas (solo informativo).
type Recommendation struct {
	ID        string    `bson:"_id,omitempty" json:"id"`
	UserID    int       `bson:"userId"        json:"userId"`
	Mode      string    `bson:"mode"          json:"mode"` // tiered | profile
	Tier      string    `bson:"tier"          json:"tier"`
	Cluster   int       `bson:"cluster"       json:"cluster"`
	Params    any       `bson:"params"        json:"params"`
	Items     []RecItem `bson:"items"         json:"items"`
	CreatedAt time.Time `bson:"createdAt"     json:"createdAt"`
}

// RecResponse es lo que devuelve la API para /recommendations.
type RecResponse struct {
	UserID  int       `json:"userId"`
	Mode    string    `json:"mode"`
	Tier    string    `json:"tier"`
	Cluster int       `json:"cluster"`
	Peers   []PeerRef `json:"peers,omitempty"`
	Items   []RecItem `json:"items"`
}

type PeerRef struct {
	UserID int     `json:"userId"`
	Weight float64 `json:"weight"`
}
