package auth

import (
	"crypto/rsa"
	"strings"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// TokenPrefix precedes the token in the Authorization header.
const TokenPrefix = "Bearer "

var (
	ErrMissingToken = errors.New("missing or malformed token")
	ErrInvalidToken = errors.New("invalid token")

	signingMethod = jwt.SigningMethodRS256
)

// Claims represents the identity claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	IsSuperuser bool   `json:"is_superuser"`
	IsTeacher   bool   `json:"is_teacher"`
	IsStudent   bool   `json:"is_student"`
	Email       string `json:"email"`
}

// Valid requires an expiry and a UUID subject on top of the standard checks.
func (c Claims) Valid() error {
	if c.ExpiresAt == 0 {
		return errors.New("token has no expiry")
	}
	if err := c.StandardClaims.Valid(); err != nil {
		return err
	}
	if _, err := uuid.Parse(c.Subject); err != nil {
		return errors.Wrap(err, "parsing subject")
	}
	return nil
}

func (c Claims) principal() Principal {
	return Principal{
		UserID:      uuid.MustParse(c.Subject),
		IsSuperuser: c.IsSuperuser,
		IsTeacher:   c.IsTeacher,
		IsStudent:   c.IsStudent,
		Email:       c.Email,
		ExpiresAt:   time.Unix(c.ExpiresAt, 0).UTC(),
	}
}

// NewClaims builds the claims carrying p.
func NewClaims(p Principal) *Claims {
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Subject:   p.UserID.String(),
			ExpiresAt: p.ExpiresAt.Unix(),
		},
		IsSuperuser: p.IsSuperuser,
		IsTeacher:   p.IsTeacher,
		IsStudent:   p.IsStudent,
		Email:       p.Email,
	}
}

// Keys holds the RSA key pair loaded once at startup. It is never mutated.
// The private key is optional for processes that only verify.
type Keys struct {
	private *rsa.PrivateKey
	public  *rsa.PublicKey
}

// LoadKeys parses PEM encoded keys. An empty privatePEM yields verify-only keys.
func LoadKeys(privatePEM, publicPEM string) (*Keys, error) {
	pub, err := jwt.ParseRSAPublicKeyFromPEM([]byte(publicPEM))
	if err != nil {
		return nil, errors.Wrap(err, "parsing public key")
	}
	keys := &Keys{public: pub}
	if privatePEM != "" {
		if keys.private, err = jwt.ParseRSAPrivateKeyFromPEM([]byte(privatePEM)); err != nil {
			return nil, errors.Wrap(err, "parsing private key")
		}
	}
	return keys, nil
}

// NewKeys wraps already parsed keys.
func NewKeys(private *rsa.PrivateKey, public *rsa.PublicKey) *Keys {
	if public == nil && private != nil {
		public = &private.PublicKey
	}
	return &Keys{private: private, public: public}
}

// Authenticator verifies bearer tokens.
type Authenticator struct {
	keys *Keys
}

func NewAuthenticator(keys *Keys) *Authenticator {
	return &Authenticator{keys: keys}
}

// Authenticate turns an Authorization header value into a Principal.
func (a *Authenticator) Authenticate(header string) (Principal, error) {
	if !strings.HasPrefix(header, TokenPrefix) {
		return Principal{}, ErrMissingToken
	}
	raw := strings.TrimPrefix(header, TokenPrefix)
	if raw == "" {
		return Principal{}, ErrMissingToken
	}

	var claims Claims
	token, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != signingMethod.Alg() {
			return nil, errors.Errorf("unexpected signing method %q", t.Header["alg"])
		}
		return a.keys.public, nil
	})
	if err != nil || !token.Valid {
		return Principal{}, ErrInvalidToken
	}
	return claims.principal(), nil
}

// Signer mints tokens for a Principal.
type Signer struct {
	keys *Keys
}

func NewSigner(keys *Keys) *Signer {
	return &Signer{keys: keys}
}

// Sign returns a token carrying p's claims and expiry.
func (s *Signer) Sign(p Principal) (string, error) {
	if s.keys.private == nil {
		return "", errors.New("no private key loaded")
	}
	token := jwt.NewWithClaims(signingMethod, NewClaims(p))
	ss, err := token.SignedString(s.keys.private)
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}
