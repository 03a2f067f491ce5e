package shipping

import (
	"crypto/rand"
	"strings"

	"gateway-emulator/internal/apperr"
	"gateway-emulator/internal/idgen"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type tokenClaims struct {
	Email     string `json:"email"`
	CompanyID int    `json:"company_id"`
	jwt.RegisteredClaims
}

func newSigningKey() []byte {
	key := make([]byte, 32)
	// crypto/rand.Read never returns an error on supported platforms
	_, _ = rand.Read(key)
	return key
}

// GenerateToken issues a bearer token valid for the rest of the process lifetime.
// Credentials are only checked when an account email is configured.
func (e *Emulator) GenerateToken(email, password string) (Login, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return Login{}, apperr.Validation("email", "is required")
	}
	if password == "" {
		return Login{}, apperr.Validation("password", "is required")
	}
	if err := e.checkCredentials(email, password); err != nil {
		return Login{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.clock.Now()
	jti := uuid.NewString()
	claims := tokenClaims{
		Email:     email,
		CompanyID: e.cfg.CompanyID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:       jti,
			Subject:  email,
			Issuer:   issuer,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(e.signingKey)
	if err != nil {
		return Login{}, apperr.Internal("signing token: %v", err)
	}
	e.tokens[jti] = email

	return Login{
		ID:        idgen.NumericID(),
		Email:     email,
		CompanyID: e.cfg.CompanyID,
		CreatedAt: now,
		Token:     token,
	}, nil
}

func (e *Emulator) checkCredentials(email, password string) error {
	if e.cfg.Email == "" {
		return nil
	}
	if !strings.EqualFold(email, e.cfg.Email) {
		return apperr.Unauthorized("Invalid email and password combination")
	}
	if e.cfg.PasswordHash == "" {
		return nil
	}
	if err := bcrypt.CompareHashAndPassword([]byte(e.cfg.PasswordHash), []byte(password)); err != nil {
		return apperr.Unauthorized("Invalid email and password combination")
	}
	return nil
}

// ValidateToken accepts only tokens signed by and issued from this process.
func (e *Emulator) ValidateToken(token string) error {
	token = strings.TrimSpace(strings.TrimPrefix(token, "Bearer "))
	if token == "" {
		return apperr.Unauthorized("Token not found")
	}

	var claims tokenClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return e.signingKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(issuer))
	if err != nil {
		return apperr.Unauthorized("Wrong number of segments or invalid token")
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.tokens[claims.ID]; !ok {
		return apperr.Unauthorized("Token has been revoked")
	}
	return nil
}
