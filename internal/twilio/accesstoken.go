package twilio

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/lumina-live/backend/config"
)

// tokenContentType marks the JWT as a Twilio first-person access token.
const tokenContentType = "twilio-fpa;v=1"

// GrantKeyPlayer is the grant key audience tokens embed playback grants under.
const GrantKeyPlayer = "player"

// TokenSigner mints Twilio-format access tokens with the API key pair. Signing
// is purely local; no vendor call is involved.
type TokenSigner struct {
	accountSID string
	keySID     string
	secret     []byte
	ttl        time.Duration
}

// NewTokenSigner creates a signer from the configured credentials.
func NewTokenSigner(cfg config.TwilioConfig) *TokenSigner {
	ttl := time.Duration(cfg.TokenTTLSec) * time.Second
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &TokenSigner{
		accountSID: cfg.AccountSID,
		keySID:     cfg.APIKeySID,
		secret:     []byte(cfg.APIKeySecret),
		ttl:        ttl,
	}
}

// VideoToken returns a token authorizing identity to publish and subscribe in
// the named room.
func (s *TokenSigner) VideoToken(identity, room string) (string, error) {
	return s.sign(map[string]interface{}{
		"identity": identity,
		"video":    map[string]string{"room": room},
	})
}

// PlayerToken returns a token binding identity to an opaque playback grant.
// The grant payload is embedded unchanged under the player grant key.
func (s *TokenSigner) PlayerToken(identity string, grant json.RawMessage) (string, error) {
	return s.sign(map[string]interface{}{
		"identity":     identity,
		GrantKeyPlayer: grant,
	})
}

func (s *TokenSigner) sign(grants map[string]interface{}) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"jti":    fmt.Sprintf("%s-%d", s.keySID, now.Unix()),
		"iss":    s.keySID,
		"sub":    s.accountSID,
		"iat":    now.Unix(),
		"exp":    now.Add(s.ttl).Unix(),
		"grants": grants,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token.Header["cty"] = tokenContentType

	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("twilio: sign token: %w", err)
	}
	return signed, nil
}
