package models

// AdminDataSummary resume cuánta data tiene el recomendador para trabajar.
type AdminDataSummary struct {
	TotalMovies       int `json:"totalMovies"`
	PopularMovies     int `json:"popularMovies"` // ratingStats.count >= minRatings
	MinRatings        int `json:"minRatings"`
	TotalRatings      int `json:"totalRatings"`
	RatedUsers        int `json:"ratedUsers"`
	PeerEligibleUsers int `json:"peerEligibleUsers"` // usuarios con >= 3 ratings
}

// RebuildStatsResult es la respuesta de POST /admin/maintenance/stats/rebuild.
type RebuildStatsResult struct {
	MoviesWithRatings int `json:"moviesWithRatings"`
	Modified          int `json:"modified"`
}

// FlushCacheResult es la respuesta de POST /admin/maintenance/cache/flush.
type FlushCacheResult struct {
	Prefix  string `json:"prefix"`
	Deleted int    `json:"deleted"`
}
