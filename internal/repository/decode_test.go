package repository

import (
	"reflect"
	"testing"

	"go.mongodb.org/mongo-driver/bson"

	"nodosml-recsys/internal/models"
)

func TestDecodeRating_MixedNumericTypes(t *testing.T) {
	tests := []struct {
		name string
		raw  bson.M
		want models.RatingDoc
	}{
		{
			name: "int32 import",
			raw:  bson.M{"userId": int32(7), "movieId": int32(50), "rating": int32(4), "timestamp": int32(881250949)},
			want: models.RatingDoc{UserID: 7, MovieID: 50, Rating: 4, Timestamp: 881250949},
		},
		{
			name: "api upsert",
			raw:  bson.M{"userId": int64(7), "movieId": int64(50), "rating": 3.5, "timestamp": int64(1700000000)},
			want: models.RatingDoc{UserID: 7, MovieID: 50, Rating: 3.5, Timestamp: 1700000000},
		},
		{
			name: "missing fields are zero",
			raw:  bson.M{"userId": 1.0, "rating": "bad"},
			want: models.RatingDoc{UserID: 1},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := decodeRating(tt.raw); got != tt.want {
				t.Errorf("decodeRating() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestStatsFromAggregate(t *testing.T) {
	got := statsFromAggregate(bson.M{"average": 3.5, "count": int32(4), "last": int64(0)})
	want := &models.RatingStats{Average: 3.5, Count: 4}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("statsFromAggregate() = %+v, want %+v", got, want)
	}

	got = statsFromAggregate(bson.M{"average": 4.0, "count": int32(1), "last": int64(86400)})
	if got.LastRatedAt != "1970-01-02T00:00:00Z" {
		t.Errorf("LastRatedAt = %q, want 1970-01-02T00:00:00Z", got.LastRatedAt)
	}
}

func TestSearchFilter(t *testing.T) {
	tests := []struct {
		name             string
		q, genre         string
		yearFrom, yearTo int
		want             bson.M
	}{
		{name: "empty", want: bson.M{}},
		{
			name: "title is escaped",
			q:    "Star Wars (1977)",
			want: bson.M{"title": bson.M{"$regex": `Star Wars \(1977\)`, "$options": "i"}},
		},
		{
			name:     "genre and open year range",
			genre:    "Drama",
			yearFrom: 1990,
			want:     bson.M{"genres": "Drama", "year": bson.M{"$gte": 1990}},
		},
		{
			name:     "closed year range",
			yearFrom: 1990,
			yearTo:   1995,
			want:     bson.M{"year": bson.M{"$gte": 1990, "$lte": 1995}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := searchFilter(tt.q, tt.genre, tt.yearFrom, tt.yearTo)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("searchFilter() = %v, want %v", got, tt.want)
			}
		})
	}
}
