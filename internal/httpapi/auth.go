package httpapi

import (
	"errors"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"lpgpos/backend/internal/domain"
)

// AuthManager signs and verifies access tokens and hashes passwords. It
// implements service.Passwords.
type AuthManager struct {
	secret   []byte
	tokenTTL time.Duration
	cost     int
}

type posCustomClaims struct {
	jwtlib.RegisteredClaims
	Role       domain.Role `json:"role"`
	LocationID string      `json:"location_id,omitempty"`
}

func NewAuthManager(secret string, tokenTTL time.Duration) *AuthManager {
	if secret == "" {
		secret = "dev-change-me"
	}
	if tokenTTL <= 0 {
		tokenTTL = 8 * time.Hour
	}
	return &AuthManager{
		secret:   []byte(secret),
		tokenTTL: tokenTTL,
		cost:     bcrypt.DefaultCost,
	}
}

// IssueToken signs an access token carrying the user's role and location.
func (a *AuthManager) IssueToken(user domain.User) (domain.LoginResponse, error) {
	now := time.Now().UTC()
	expiresAt := now.Add(a.tokenTTL)
	claims := posCustomClaims{
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(expiresAt),
			Issuer:    "lpgpos",
		},
		Role:       user.Role,
		LocationID: user.LocationID,
	}
	token, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return domain.LoginResponse{}, err
	}

	user.Password = ""
	return domain.LoginResponse{
		AccessToken: token,
		ExpiresAt:   expiresAt.Format(time.RFC3339),
		User:        user,
	}, nil
}

func (a *AuthManager) ParseToken(tokenStr string) (domain.Actor, error) {
	claims := &posCustomClaims{}
	token, err := jwtlib.ParseWithClaims(tokenStr, claims, func(t *jwtlib.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return a.secret, nil
	}, jwtlib.WithValidMethods([]string{"HS256"}))
	if err != nil || !token.Valid {
		return domain.Actor{}, errors.New("invalid or expired token")
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return domain.Actor{}, errors.New("invalid token subject")
	}
	switch claims.Role {
	case domain.RoleSuperadmin, domain.RoleAdmin, domain.RoleStaff:
	default:
		return domain.Actor{}, errors.New("invalid token role")
	}
	return domain.Actor{UserID: sub, Role: claims.Role, LocationID: claims.LocationID}, nil
}

func (a *AuthManager) HashPassword(plain string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), a.cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// CheckPassword compares plain against a bcrypt hash. Values that are not
// bcrypt hashes are legacy plaintext and compared directly.
func (a *AuthManager) CheckPassword(stored string, plain string) (bool, bool) {
	if stored == "" || strings.TrimSpace(plain) == "" {
		return false, false
	}
	if !isPasswordHash(stored) {
		return stored == plain, true
	}
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(plain)) == nil, false
}

func isPasswordHash(value string) bool {
	return strings.HasPrefix(value, "$2a$") || strings.HasPrefix(value, "$2b$") || strings.HasPrefix(value, "$2y$")
}
