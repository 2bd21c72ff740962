package authservice

import (
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/ichigozero/todokit/authsvc"
	"github.com/twinj/uuid"
)

// DefaultTokenTTL is how long an access token stays valid.
const DefaultTokenTTL = 24 * time.Hour

type AccessToken struct {
	UUID      string
	Hash      string
	ExpiresAt time.Time
}

type Tokenizer interface {
	Generate(userID string) (*AccessToken, error)
}

type tokenizer struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenizer signs HS256 tokens with secret. A non-positive ttl falls
// back to DefaultTokenTTL.
func NewTokenizer(secret []byte, ttl time.Duration) Tokenizer {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &tokenizer{secret: secret, ttl: ttl}
}

var (
	uuidV4 = uuid.NewV4
	now    = time.Now
)

func (t *tokenizer) Generate(userID string) (*AccessToken, error) {
	id := uuidV4().String()
	expiry := now().Add(t.ttl)

	claims := jwt.MapClaims{
		authsvc.ClaimTokenID: id,
		authsvc.ClaimUserID:  userID,
		authsvc.ClaimExpiry:  expiry.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	hash, err := token.SignedString(t.secret)
	if err != nil {
		return nil, err
	}

	return &AccessToken{UUID: id, Hash: hash, ExpiresAt: expiry}, nil
}
