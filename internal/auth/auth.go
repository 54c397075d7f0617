// Package auth issues and verifies the bearer tokens of the API and hashes
// account passwords.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/MicahParks/keyfunc"
	"github.com/golang-jwt/jwt/v4"

	"taskzen/internal/models"
)

// Config holds the token settings.
type Config struct {
	Secret   string
	Issuer   string
	Audience string
	TokenTTL time.Duration
	JWKSURL  string
}

// Identity is the verified subject of a token. Name and Email are only
// filled for tokens of an external provider that carries them.
type Identity struct {
	UserID   string
	Name     string
	Email    string
	External bool
}

// Token is a signed access token.
type Token struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Auth signs HS256 tokens and verifies either HS256 tokens or, when a
// JWKS is configured, RS256 tokens of an external identity provider.
type Auth struct {
	secret   []byte
	issuer   string
	audience string
	ttl      time.Duration
	jwks     *keyfunc.JWKS
	parser   *jwt.Parser
	now      func() time.Time
}

// New builds an Auth from cfg. When cfg.JWKSURL is set the key set is
// fetched and refreshed in the background.
func New(cfg Config) (*Auth, error) {
	var jwks *keyfunc.JWKS
	if cfg.JWKSURL != "" {
		var err error
		jwks, err = keyfunc.Get(cfg.JWKSURL, keyfunc.Options{
			RefreshInterval:   time.Hour,
			RefreshUnknownKID: true,
		})
		if err != nil {
			return nil, fmt.Errorf("load jwks: %w", err)
		}
	}
	return NewWithJWKS(cfg, jwks)
}

// NewWithJWKS is New with an already loaded key set.
func NewWithJWKS(cfg Config, jwks *keyfunc.JWKS) (*Auth, error) {
	if jwks == nil && cfg.Secret == "" {
		return nil, errors.New("auth secret is required when no jwks url is configured")
	}
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	a := &Auth{
		secret:   []byte(cfg.Secret),
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		ttl:      ttl,
		jwks:     jwks,
		now:      time.Now,
	}
	if jwks != nil {
		a.parser = jwt.NewParser(jwt.WithValidMethods([]string{"RS256"}))
	} else {
		a.parser = jwt.NewParser(jwt.WithValidMethods([]string{"HS256"}))
	}
	return a, nil
}

// External reports whether tokens come from an external provider. In that
// mode the service cannot issue tokens itself.
func (a *Auth) External() bool {
	return a.jwks != nil
}

// Close stops the background key refresh.
func (a *Auth) Close() {
	if a.jwks != nil {
		a.jwks.EndBackground()
	}
}

// Issue signs a token for userID.
func (a *Auth) Issue(userID string) (Token, error) {
	if a.External() {
		return Token{}, errors.New("tokens are issued by the external identity provider")
	}
	now := a.now()
	exp := now.Add(a.ttl)
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		Issuer:    a.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	if a.audience != "" {
		claims.Audience = jwt.ClaimStrings{a.audience}
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return Token{}, fmt.Errorf("sign token: %w", err)
	}
	return Token{AccessToken: signed, TokenType: "Bearer", ExpiresAt: exp.UTC()}, nil
}

// VerifyHeader verifies the token of an Authorization header value.
func (a *Auth) VerifyHeader(header string) (Identity, error) {
	token, err := BearerFromString(header)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %w", models.ErrUnauthorized, err)
	}
	return a.Verify(token)
}

// Verify checks the signature and registered claims of token. Every
// failure wraps models.ErrUnauthorized.
func (a *Auth) Verify(token string) (Identity, error) {
	id, err := a.verify(token)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %w", models.ErrUnauthorized, err)
	}
	return id, nil
}

func (a *Auth) verify(token string) (Identity, error) {
	parsed, err := a.parser.Parse(token, a.keyFor)
	if err != nil {
		return Identity{}, err
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return Identity{}, errors.New("invalid claims")
	}

	now := a.now().Unix()
	if !claims.VerifyExpiresAt(now, true) {
		return Identity{}, errors.New("token expired")
	}
	if !claims.VerifyNotBefore(now, false) {
		return Identity{}, errors.New("token not valid yet")
	}
	if a.audience != "" && !claims.VerifyAudience(a.audience, true) {
		return Identity{}, errors.New("invalid audience")
	}
	if a.issuer != "" && !claims.VerifyIssuer(a.issuer, true) {
		return Identity{}, errors.New("invalid issuer")
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return Identity{}, errors.New("missing sub")
	}
	id := Identity{UserID: sub, External: a.External()}
	id.Name, _ = claims["name"].(string)
	id.Email, _ = claims["email"].(string)
	return id, nil
}

func (a *Auth) keyFor(t *jwt.Token) (any, error) {
	if a.jwks != nil {
		return a.jwks.Keyfunc(t)
	}
	if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, errors.New("invalid signing method")
	}
	return a.secret, nil
}
