package recommend

import (
	"math"
	"strings"

	"nodosml-recsys/internal/models"
)

// Contrato congelado con los modelos entrenados: no reordenar.
const (
	HighRatingThreshold = 4.0

	// Defaults documentados cuando falta un campo (MalformedFeature).
	DefaultAge        = 30
	DefaultOccupation = 0
	DefaultGender     = 0 // F / desconocido
	DefaultZipRegion  = 0
	DefaultYear       = 1995
)

// GenreVocabulary en el orden de MovieLens 100k, el que usó el entrenamiento.
var GenreVocabulary = []string{
	"unknown", "Action", "Adventure", "Animation", "Children's", "Comedy",
	"Crime", "Documentary", "Drama", "Fantasy", "Film-Noir", "Horror",
	"Musical", "Mystery", "Romance", "Sci-Fi", "Thriller", "War", "Western",
}

// etiquetas de MovieLens "latest" que mapean al vocabulario de 100k
var genreAliases = map[string]string{
	"children":           "Children's",
	"(no genres listed)": "unknown",
	"childrens":          "Children's",
}

var genrePos = func() map[string]int {
	m := make(map[string]int, len(GenreVocabulary))
	for i, g := range GenreVocabulary {
		m[strings.ToLower(g)] = i
	}
	return m
}()

// ClusterFeatureNames: vector de clustering por comportamiento.
var ClusterFeatureNames = []string{"rating_count", "mean_rating", "std_rating", "high_fraction"}

// ClassifierFeatureNames: vector (usuario, película) del xgboost.
var ClassifierFeatureNames = func() []string {
	names := []string{
		"age", "gender", "occupation", "zip_region",
		"user_rating_count", "user_mean_rating", "user_std_rating",
		"occupation_mean_rating", "age_group_mean_rating",
		"movie_mean_rating", "movie_year", "genre_count",
	}
	for _, g := range GenreVocabulary {
		names = append(names, "genre_"+g)
	}
	return names
}()

type ratingSummary struct {
	count     int
	mean      float64
	std       float64 // muestral (n-1); 0 si count < 2
	highCount int
}

func summarize(vals []float64) ratingSummary {
	s := ratingSummary{count: len(vals)}
	if s.count == 0 {
		return s
	}
	var sum float64
	for _, v := range vals {
		sum += v
		if v >= HighRatingThreshold {
			s.highCount++
		}
	}
	s.mean = sum / float64(s.count)
	if s.count > 1 {
		var sq float64
		for _, v := range vals {
			d := v - s.mean
			sq += d * d
		}
		s.std = math.Sqrt(sq / float64(s.count-1))
	}
	return s
}

// ClusterFeatures arma [count, mean, std, high_fraction] sobre los ratings
// del usuario. ok=false cuando no hay ratings: el vector no existe y el
// usuario se trata como "cold" (no se imputan ceros).
func ClusterFeatures(vals []float64) ([]float64, bool) {
	if len(vals) == 0 {
		return nil, false
	}
	s := summarize(vals)
	return []float64{
		float64(s.count),
		s.mean,
		s.std,
		float64(s.highCount) / float64(s.count),
	}, true
}

// NormalizeGenre devuelve la etiqueta del vocabulario o "" si no existe.
func NormalizeGenre(label string) string {
	l := strings.ToLower(strings.TrimSpace(label))
	if a, ok := genreAliases[l]; ok {
		return a
	}
	if i, ok := genrePos[l]; ok {
		return GenreVocabulary[i]
	}
	return ""
}

// GenreFlags: one-hot de géneros en el orden del vocabulario.
// unknown lista las etiquetas que no pertenecen al vocabulario.
func GenreFlags(genres []string) (flags []float64, unknown []string) {
	flags = make([]float64, len(GenreVocabulary))
	for _, g := range genres {
		n := NormalizeGenre(g)
		if n == "" {
			unknown = append(unknown, g)
			continue
		}
		flags[genrePos[strings.ToLower(n)]] = 1
	}
	return flags, unknown
}

type demographics struct {
	age        int
	gender     int
	occupation int
	zipRegion  int
	malformed  []string
}

// demographicsOf aplica los defaults documentados; u puede ser nil
// (usuario que solo existe por sus ratings importados).
func demographicsOf(u *models.UserDoc) demographics {
	d := demographics{
		age:        DefaultAge,
		gender:     DefaultGender,
		occupation: DefaultOccupation,
		zipRegion:  DefaultZipRegion,
	}
	if u == nil {
		d.malformed = []string{"age", "gender", "occupation", "zip"}
		return d
	}

	if u.Age != nil && *u.Age > 0 {
		d.age = *u.Age
	} else {
		d.malformed = append(d.malformed, "age")
	}

	switch strings.ToUpper(strings.TrimSpace(u.Gender)) {
	case "M":
		d.gender = 1
	case "F":
		d.gender = 0
	default:
		d.malformed = append(d.malformed, "gender")
	}

	if u.Occupation != nil && *u.Occupation >= 0 {
		d.occupation = *u.Occupation
	} else {
		d.malformed = append(d.malformed, "occupation")
	}

	// región = primer dígito del zip (zips canadienses / vacíos -> default)
	z := strings.TrimSpace(u.Zip)
	if z != "" && z[0] >= '0' && z[0] <= '9' {
		d.zipRegion = int(z[0] - '0')
	} else {
		d.malformed = append(d.malformed, "zip")
	}
	return d
}

// ageBucket devuelve el límite inferior del tramo de edad de MovieLens.
func ageBucket(age int) int {
	switch {
	case age < 18:
		return 1
	case age < 25:
		return 18
	case age < 35:
		return 25
	case age < 45:
		return 35
	case age < 50:
		return 45
	case age < 56:
		return 50
	default:
		return 56
	}
}

// classifierFeatures arma el vector de ClassifierFeatureNames para
// (userID, movie). malformed lista los campos reemplazados por su default.
func (idx *index) classifierFeatures(userID int, movie *models.MovieDoc) (vec []float64, malformed []string) {
	d := demographicsOf(idx.users[userID])
	malformed = append(malformed, d.malformed...)

	var us ratingSummary
	if h := idx.history[userID]; h != nil {
		us = summarize(h.vals)
	}

	occMean, ok := idx.occupationMean[d.occupation]
	if !ok {
		occMean = idx.globalMean
	}
	ageMean, ok := idx.ageBucketMean[ageBucket(d.age)]
	if !ok {
		ageMean = idx.globalMean
	}

	movieMean := idx.globalMean
	if vals := idx.movieRatings[movie.MovieID]; len(vals) > 0 {
		movieMean = summarize(vals).mean
	}

	year := DefaultYear
	if movie.Year != nil && *movie.Year > 0 {
		year = *movie.Year
	} else {
		malformed = append(malformed, "year")
	}

	flags, unknown := GenreFlags(movie.Genres)
	if len(unknown) > 0 {
		malformed = append(malformed, "genre")
	}
	var genreCount float64
	for _, f := range flags {
		genreCount += f
	}

	vec = make([]float64, 0, len(ClassifierFeatureNames))
	vec = append(vec,
		float64(d.age), float64(d.gender), float64(d.occupation), float64(d.zipRegion),
		float64(us.count), us.mean, us.std,
		occMean, ageMean,
		movieMean, float64(year), genreCount,
	)
	vec = append(vec, flags...)
	return vec, malformed
}

// genreOverlap cuenta géneros en común entre preferencias y película.
func genreOverlap(preferred, movieGenres []string) int {
	pref := make(map[string]struct{}, len(preferred))
	for _, g := range preferred {
		if n := NormalizeGenre(g); n != "" {
			pref[n] = struct{}{}
		}
	}
	seen := make(map[string]struct{}, len(movieGenres))
	count := 0
	for _, g := range movieGenres {
		n := NormalizeGenre(g)
		if n == "" {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		if _, ok := pref[n]; ok {
			count++
		}
	}
	return count
}
