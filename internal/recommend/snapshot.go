package recommend

import (
	"sort"

	"nodosml-recsys/internal/models"
)

// Snapshot es la foto de solo lectura que recibe el motor en cada request.
// Ratings puede venir en cualquier orden; si hay duplicados para el mismo
// (userId, movieId) gana el de timestamp mayor.
type Snapshot struct {
	Users   []models.UserDoc
	Movies  []models.MovieDoc
	Ratings []models.RatingDoc
}

// userHistory guarda los ratings de un usuario ordenados por movieId, para
// que las sumas en punto flotante sean reproducibles entre requests.
type userHistory struct {
	ids  []int
	vals []float64
	byID map[int]float64
}

func (h *userHistory) len() int {
	if h == nil {
		return 0
	}
	return len(h.ids)
}

// index son las vistas derivadas del snapshot que usa un request.
type index struct {
	users     map[int]*models.UserDoc
	movies    []models.MovieDoc // ordenadas por movieId
	movieByID map[int]*models.MovieDoc

	history      map[int]*userHistory
	ratedUsers   []int               // usuarios con >=1 rating, ordenados
	movieRatings map[int][]float64   // movieId -> ratings (orden por userId)
	totalRatings int
	globalMean   float64

	occupationMean map[int]float64
	ageBucketMean  map[int]float64
}

func newIndex(s *Snapshot) *index {
	idx := &index{
		users:        make(map[int]*models.UserDoc, len(s.Users)),
		movieByID:    make(map[int]*models.MovieDoc, len(s.Movies)),
		history:      make(map[int]*userHistory),
		movieRatings: make(map[int][]float64),
	}

	for i := range s.Users {
		idx.users[s.Users[i].UserID] = &s.Users[i]
	}

	idx.movies = make([]models.MovieDoc, len(s.Movies))
	copy(idx.movies, s.Movies)
	sort.Slice(idx.movies, func(i, j int) bool { return idx.movies[i].MovieID < idx.movies[j].MovieID })
	for i := range idx.movies {
		idx.movieByID[idx.movies[i].MovieID] = &idx.movies[i]
	}

	// dedupe (userId, movieId): último timestamp gana
	type key struct{ u, m int }
	latest := make(map[key]models.RatingDoc, len(s.Ratings))
	for _, r := range s.Ratings {
		k := key{r.UserID, r.MovieID}
		if prev, ok := latest[k]; ok && prev.Timestamp > r.Timestamp {
			continue
		}
		latest[k] = r
	}

	rows := make([]models.RatingDoc, 0, len(latest))
	for _, r := range latest {
		rows = append(rows, r)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].UserID != rows[j].UserID {
			return rows[i].UserID < rows[j].UserID
		}
		return rows[i].MovieID < rows[j].MovieID
	})

	var sum float64
	for _, r := range rows {
		h := idx.history[r.UserID]
		if h == nil {
			h = &userHistory{byID: make(map[int]float64)}
			idx.history[r.UserID] = h
			idx.ratedUsers = append(idx.ratedUsers, r.UserID)
		}
		h.ids = append(h.ids, r.MovieID)
		h.vals = append(h.vals, r.Rating)
		h.byID[r.MovieID] = r.Rating

		idx.movieRatings[r.MovieID] = append(idx.movieRatings[r.MovieID], r.Rating)
		sum += r.Rating
	}
	idx.totalRatings = len(rows)
	if idx.totalRatings > 0 {
		idx.globalMean = sum / float64(idx.totalRatings)
	}

	idx.occupationMean, idx.ageBucketMean = groupMeans(idx)
	return idx
}

// knownUser: existe documento de usuario o al menos un rating.
func (idx *index) knownUser(userID int) bool {
	if _, ok := idx.users[userID]; ok {
		return true
	}
	_, ok := idx.history[userID]
	return ok
}

// ratedSet devuelve el set de películas ya valoradas por el usuario (nunca nil).
func (idx *index) ratedSet(userID int) map[int]float64 {
	if h := idx.history[userID]; h != nil {
		return h.byID
	}
	return map[int]float64{}
}

func (idx *index) ratingsByUser() map[int]map[int]float64 {
	out := make(map[int]map[int]float64, len(idx.history))
	for u, h := range idx.history {
		out[u] = h.byID
	}
	return out
}

// groupMeans agrega el rating medio por ocupación y por tramo de edad,
// usando los valores efectivos (con defaults) de cada usuario.
func groupMeans(idx *index) (map[int]float64, map[int]float64) {
	type acc struct {
		sum float64
		n   int
	}
	occ := make(map[int]*acc)
	age := make(map[int]*acc)

	// recorrido por userId ordenado para sumas reproducibles
	for _, uid := range idx.ratedUsers {
		u, ok := idx.users[uid]
		if !ok {
			continue
		}
		d := demographicsOf(u)
		h := idx.history[uid]
		for _, v := range h.vals {
			if occ[d.occupation] == nil {
				occ[d.occupation] = &acc{}
			}
			occ[d.occupation].sum += v
			occ[d.occupation].n++

			b := ageBucket(d.age)
			if age[b] == nil {
				age[b] = &acc{}
			}
			age[b].sum += v
			age[b].n++
		}
	}

	occMean := make(map[int]float64, len(occ))
	for k, a := range occ {
		occMean[k] = a.sum / float64(a.n)
	}
	ageMean := make(map[int]float64, len(age))
	for k, a := range age {
		ageMean[k] = a.sum / float64(a.n)
	}
	return occMean, ageMean
}
