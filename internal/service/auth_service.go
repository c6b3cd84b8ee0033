package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"nodosml-recsys/internal/models"
	"nodosml-recsys/internal/recommend"
	"nodosml-recsys/internal/repository"
)

const tokenTTL = 24 * time.Hour

type AuthService struct {
	users     *repository.UserRepository
	jwtSecret []byte
}

// Demographics sigue el formato de MovieLens 100k; todo opcional.
type Demographics struct {
	Age        *int
	Gender     string
	Occupation *int
	Zip        string
}

type RegisterUserData struct {
	Email    string
	Password string
	Role     string

	FirstName string
	LastName  string
	Username  string
	About     string

	PreferredGenres []string
	Demographics
}

type UpdateUserData struct {
	Email    *string
	Role     *string
	Password *string

	FirstName       *string
	LastName        *string
	Username        *string
	About           *string
	PreferredGenres *[]string

	Age        *int
	Gender     *string
	Occupation *int
	Zip        *string
}

func NewAuthService(users *repository.UserRepository, secret string) *AuthService {
	return &AuthService{users: users, jwtSecret: []byte(secret)}
}

// normalizeGenres lleva las preferencias al vocabulario congelado; un
// género desconocido es un error de entrada, no se descarta en silencio.
func normalizeGenres(in []string) ([]string, error) {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, g := range in {
		n := recommend.NormalizeGenre(g)
		if n == "" {
			return nil, fmt.Errorf("%w: unknown genre %q", ErrInvalidInput, g)
		}
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	return out, nil
}

func normalizeGender(g string) (string, error) {
	switch strings.ToUpper(strings.TrimSpace(g)) {
	case "":
		return "", nil
	case "M":
		return "M", nil
	case "F":
		return "F", nil
	default:
		return "", fmt.Errorf("%w: gender must be M|F", ErrInvalidInput)
	}
}

func validRole(role string) bool {
	return role == "user" || role == "admin"
}

// ================== REGISTER & LOGIN ==================

// Register crea un usuario nuevo. El role viene del body, pero solo se permite "user" o "admin".
func (s *AuthService) Register(ctx context.Context, data RegisterUserData) (*models.UserDoc, error) {
	role := data.Role
	if role == "" {
		role = "user"
	}
	if !validRole(role) {
		return nil, fmt.Errorf("%w: invalid role (must be user|admin)", ErrInvalidInput)
	}
	genres, err := normalizeGenres(data.PreferredGenres)
	if err != nil {
		return nil, err
	}
	gender, err := normalizeGender(data.Gender)
	if err != nil {
		return nil, err
	}

	existing, err := s.users.FindByEmail(ctx, data.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: email already registered", ErrConflict)
	}
	if data.Username != "" {
		existing, err := s.users.FindByUsername(ctx, data.Username)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return nil, fmt.Errorf("%w: username already taken", ErrConflict)
		}
	}

	nextID, err := s.users.GetNextUserID(ctx)
	if err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(data.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC().Format(time.RFC3339)

	u := &models.UserDoc{
		UserID:       nextID,
		Email:        data.Email,
		PasswordHash: string(hash),
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,

		FirstName:       data.FirstName,
		LastName:        data.LastName,
		Username:        data.Username,
		About:           data.About,
		PreferredGenres: genres,

		Age:        data.Age,
		Gender:     gender,
		Occupation: data.Occupation,
		Zip:        strings.TrimSpace(data.Zip),
	}

	if err := s.users.Insert(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (string, *models.UserDoc, error) {
	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return "", nil, err
	}
	if u == nil {
		return "", nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.IssueToken(u.UserID, u.Role, time.Now())
	if err != nil {
		return "", nil, err
	}
	return token, u, nil
}

// IssueToken firma un JWT HS256 con sub=userId y role.
func (s *AuthService) IssueToken(userID int, role string, now time.Time) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  userID,
		"role": role,
		"iat":  now.Unix(),
		"exp":  now.Add(tokenTTL).Unix(),
	})
	return token.SignedString(s.jwtSecret)
}

// ================== UPDATE USER ==================

// buildUserUpdate traduce los campos presentes a un $set; no toca la base.
func buildUserUpdate(data UpdateUserData) (map[string]any, error) {
	update := map[string]any{}

	if data.Email != nil {
		if *data.Email == "" {
			return nil, fmt.Errorf("%w: email cannot be empty", ErrInvalidInput)
		}
		update["email"] = *data.Email
	}
	if data.Role != nil {
		if !validRole(*data.Role) {
			return nil, fmt.Errorf("%w: invalid role (must be user|admin)", ErrInvalidInput)
		}
		update["role"] = *data.Role
	}
	if data.Password != nil {
		if *data.Password == "" {
			return nil, fmt.Errorf("%w: password cannot be empty", ErrInvalidInput)
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(*data.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		update["passwordHash"] = string(hash)
	}

	// Campos de perfil
	if data.FirstName != nil {
		update["firstName"] = *data.FirstName
	}
	if data.LastName != nil {
		update["lastName"] = *data.LastName
	}
	if data.Username != nil {
		update["username"] = *data.Username
	}
	if data.About != nil {
		update["about"] = *data.About
	}
	if data.PreferredGenres != nil {
		genres, err := normalizeGenres(*data.PreferredGenres)
		if err != nil {
			return nil, err
		}
		update["preferredGenres"] = genres
	}

	// Demografía
	if data.Age != nil {
		update["age"] = *data.Age
	}
	if data.Gender != nil {
		g, err := normalizeGender(*data.Gender)
		if err != nil {
			return nil, err
		}
		update["gender"] = g
	}
	if data.Occupation != nil {
		update["occupation"] = *data.Occupation
	}
	if data.Zip != nil {
		update["zip"] = strings.TrimSpace(*data.Zip)
	}

	if len(update) == 0 {
		return nil, fmt.Errorf("%w: no fields to update", ErrInvalidInput)
	}
	return update, nil
}

// UpdateUser actualiza campos opcionales de un usuario.
func (s *AuthService) UpdateUser(ctx context.Context, userID int, data UpdateUserData) error {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if u == nil {
		return fmt.Errorf("user %d: %w", userID, recommend.ErrNotFound)
	}

	update, err := buildUserUpdate(data)
	if err != nil {
		return err
	}

	if data.Email != nil {
		existing, err := s.users.FindByEmail(ctx, *data.Email)
		if err != nil {
			return err
		}
		if existing != nil && existing.UserID != userID {
			return fmt.Errorf("%w: email already in use", ErrConflict)
		}
	}

	update["updatedAt"] = time.Now().UTC().Format(time.RFC3339)

	return s.users.UpdateByID(ctx, userID, update)
}

func (s *AuthService) ListUsers(ctx context.Context, q string, limit, offset int) ([]models.UserDoc, error) {
	return s.users.Search(ctx, q, limit, offset)
}

func (s *AuthService) GetUserByID(ctx context.Context, userID int) (*models.UserDoc, error) {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, fmt.Errorf("user %d: %w", userID, recommend.ErrNotFound)
	}
	return u, nil
}
