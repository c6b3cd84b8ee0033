package service

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestNormalizeGenres(t *testing.T) {
	tests := []struct {
		name    string
		in      []string
		want    []string
		wantErr bool
	}{
		{name: "canonical labels", in: []string{"drama", "sci-fi"}, want: []string{"Drama", "Sci-Fi"}},
		{name: "aliases and duplicates", in: []string{"Children", "Children's", "Comedy"}, want: []string{"Children's", "Comedy"}},
		{name: "empty", in: nil, want: []string{}},
		{name: "unknown genre", in: []string{"Drama", "IMAX"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := normalizeGenres(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidInput) {
					t.Errorf("error = %v, want ErrInvalidInput", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("normalizeGenres() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("normalizeGenres() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNormalizeGender(t *testing.T) {
	for in, want := range map[string]string{"m": "M", " F ": "F", "": ""} {
		got, err := normalizeGender(in)
		if err != nil || got != want {
			t.Errorf("normalizeGender(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := normalizeGender("x"); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("normalizeGender(x) error = %v, want ErrInvalidInput", err)
	}
}

func strPtr(s string) *string { return &s }
func intPtr(v int) *int       { return &v }

func TestBuildUserUpdate(t *testing.T) {
	genres := []string{"comedy"}
	update, err := buildUserUpdate(UpdateUserData{
		About:           strPtr("hola"),
		PreferredGenres: &genres,
		Age:             intPtr(31),
		Gender:          strPtr("f"),
		Zip:             strPtr(" 55455 "),
	})
	if err != nil {
		t.Fatalf("buildUserUpdate() error = %v", err)
	}
	want := map[string]any{
		"about":           "hola",
		"preferredGenres": []string{"Comedy"},
		"age":             31,
		"gender":          "F",
		"zip":             "55455",
	}
	if !reflect.DeepEqual(update, want) {
		t.Errorf("update = %v, want %v", update, want)
	}

	bad := []UpdateUserData{
		{},
		{Role: strPtr("root")},
		{Email: strPtr("")},
		{Password: strPtr("")},
	}
	for i, data := range bad {
		if _, err := buildUserUpdate(data); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("case %d: error = %v, want ErrInvalidInput", i, err)
		}
	}
}

func TestIssueToken(t *testing.T) {
	s := NewAuthService(nil, "secret")
	now := time.Now()
	signed, err := s.IssueToken(42, "admin", now)
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}

	tok, err := jwt.Parse(signed, func(*jwt.Token) (interface{}, error) { return []byte("secret"), nil })
	if err != nil || !tok.Valid {
		t.Fatalf("token invalid: %v", err)
	}
	claims := tok.Claims.(jwt.MapClaims)
	if claims["sub"].(float64) != 42 || claims["role"] != "admin" {
		t.Errorf("claims = %v", claims)
	}
	if int64(claims["exp"].(float64)) != now.Add(tokenTTL).Unix() {
		t.Errorf("exp = %v, want %d", claims["exp"], now.Add(tokenTTL).Unix())
	}
}
