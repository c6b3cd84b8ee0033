package models

type UserDoc struct {
	UserID       int    `json:"userId" bson:"userId"`
	Email        string `json:"email" bson:"email"`
	Username     string `json:"username,omitempty" bson:"username,omitempty"`
	PasswordHash string `json:"passwordHash" bson:"passwordHash"`
	Role         string `json:"role" bson:"role"`

	FirstName string `json:"firstName,omitempty" bson:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty" bson:"lastName,omitempty"`
	About     string `json:"about,omitempty" bson:"about,omitempty"`

	// Demografía (formato MovieLens 100k). Age y Occupation son punteros
	// porque los usuarios registrados por la API pueden no tenerlos.
	Age        *int   `json:"age,omitempty" bson:"age,omitempty"`
	Gender     string `json:"gender,omitempty" bson:"gender,omitempty"` // "M" | "F"
	Occupation *int   `json:"occupation,omitempty" bson:"occupation,omitempty"`
	Zip        string `json:"zip,omitempty" bson:"zip,omitempty"`

	PreferredGenres []string `json:"preferredGenres,omitempty" bson:"preferredGenres,omitempty"`

	CreatedAt string `json:"createdAt" bson:"createdAt"`
	UpdatedAt string `json:"updatedAt" bson:"updatedAt"`
}
