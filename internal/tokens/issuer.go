// Package tokens issues signed access tokens for streamer and audience
// clients.
package tokens

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/lumina-live/backend/internal/twilio"
)

const (
	// playbackGrantTTLSec is the requested lifetime of an audience playback
	// grant; the vendor controls it from there.
	playbackGrantTTLSec = 60

	// audienceIdentityBytes gives 160 bits of entropy per generated identity.
	audienceIdentityBytes = 20
)

var (
	// ErrMissingFields rejects a streamer token request lacking identity or
	// room, before any signing is attempted.
	ErrMissingFields = errors.New("identity and room are required")
	// ErrNoActiveStream is the non-error notice for an audience request when
	// no player streamer is live.
	ErrNoActiveStream = errors.New("no one is streaming")
	// ErrViewing covers vendor and signing failures in the audience flow.
	ErrViewing = errors.New("unable to view livestream")
	// ErrSigning covers local signing failures in the streamer flow.
	ErrSigning = errors.New("unable to issue token")
)

// Signer mints signed access tokens.
type Signer interface {
	VideoToken(identity, room string) (string, error)
	PlayerToken(identity string, grant json.RawMessage) (string, error)
}

// StreamDirectory is the slice of the vendor API the audience flow needs to
// discover the live stream and obtain a playback grant.
type StreamDirectory interface {
	ListPlayerStreamers(ctx context.Context, status string) ([]twilio.PlayerStreamer, error)
	CreatePlaybackGrant(ctx context.Context, sid string, ttlSec int) (json.RawMessage, error)
}

// Issuer mints streamer and audience tokens.
type Issuer struct {
	directory StreamDirectory
	signer    Signer
	logger    *zap.Logger
}

// NewIssuer creates a token issuer.
func NewIssuer(directory StreamDirectory, signer Signer, logger *zap.Logger) *Issuer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Issuer{directory: directory, signer: signer, logger: logger}
}

// StreamerToken signs a token authorizing identity to publish in room. Both
// fields are required; validation happens before any signing. No vendor call
// is made.
func (i *Issuer) StreamerToken(identity, room string) (string, error) {
	if identity == "" || room == "" {
		return "", ErrMissingFields
	}
	token, err := i.signer.VideoToken(identity, room)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSigning, err)
	}
	return token, nil
}

// AudienceToken generates a random viewer identity, finds the live player
// streamer, obtains a short-lived playback grant on it and signs a token
// embedding the grant. Returns ErrNoActiveStream when nothing is live; the
// flow stops there and no playback grant is requested.
func (i *Issuer) AudienceToken(ctx context.Context) (string, error) {
	identity, err := newAudienceIdentity()
	if err != nil {
		return "", fmt.Errorf("%w: generate identity: %v", ErrViewing, err)
	}

	streamers, err := i.directory.ListPlayerStreamers(ctx, twilio.StatusStarted)
	if err != nil {
		return "", fmt.Errorf("%w: list player streamers: %v", ErrViewing, err)
	}
	if len(streamers) == 0 {
		return "", ErrNoActiveStream
	}
	streamer := streamers[0]

	grant, err := i.directory.CreatePlaybackGrant(ctx, streamer.SID, playbackGrantTTLSec)
	if err != nil {
		return "", fmt.Errorf("%w: create playback grant: %v", ErrViewing, err)
	}

	token, err := i.signer.PlayerToken(identity, grant)
	if err != nil {
		return "", fmt.Errorf("%w: sign token: %v", ErrViewing, err)
	}

	i.logger.Debug("audience token issued",
		zap.String("identity", identity),
		zap.String("player_streamer_sid", streamer.SID),
	)
	return token, nil
}

func newAudienceIdentity() (string, error) {
	var buf [audienceIdentityBytes]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf[:]), nil
}
