// Package livestream sequences the vendor resources behind a named livestream
// session: a group room, a player streamer, and the media processor compositing
// the former into the latter.
package livestream

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/lumina-live/backend/internal/twilio"
)

var (
	// ErrStreamNameRequired rejects a start request with an empty stream name.
	ErrStreamNameRequired = errors.New("streamName is required")
	// ErrCreation covers any vendor failure during the start sequence.
	ErrCreation = errors.New("unable to create livestream")
	// ErrTeardown covers any vendor failure during the end sequence.
	ErrTeardown = errors.New("unable to end livestream")
)

// Session holds the vendor identifiers for one livestream. It is returned to
// the starting client, never stored server-side, and echoed back on end. The
// fields are consistent only when they originate from the same Start call;
// nothing here verifies that.
type Session struct {
	StreamName       string `json:"streamName"`
	RoomID           string `json:"roomId"`
	PlayerStreamerID string `json:"playerStreamerId"`
	MediaProcessorID string `json:"mediaProcessorId"`
}

// API is the slice of the vendor client the orchestrator needs.
type API interface {
	CreateRoom(ctx context.Context, uniqueName string) (*twilio.Room, error)
	CreatePlayerStreamer(ctx context.Context) (*twilio.PlayerStreamer, error)
	CreateMediaProcessor(ctx context.Context, roomSID, playerStreamerSID string) (*twilio.MediaProcessor, error)
	EndMediaProcessor(ctx context.Context, sid string) error
	EndPlayerStreamer(ctx context.Context, sid string) error
	CompleteRoom(ctx context.Context, sid string) error
}

// Service orchestrates session start and end against the vendor API.
type Service struct {
	api    API
	logger *zap.Logger
}

// NewService creates an orchestrator backed by the given vendor API.
func NewService(api API, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{api: api, logger: logger}
}

// compensation undoes one already-created resource when a later step fails.
type compensation struct {
	name string
	undo func(context.Context) error
}

// Start creates the room, player streamer and media processor for streamName,
// strictly in that order. On failure at any step the resources already created
// are torn down in reverse order before the error is returned; compensation
// failures are logged, never surfaced.
func (s *Service) Start(ctx context.Context, streamName string) (*Session, error) {
	if strings.TrimSpace(streamName) == "" {
		return nil, ErrStreamNameRequired
	}

	var compensations []compensation

	room, err := s.api.CreateRoom(ctx, streamName)
	if err != nil {
		return nil, s.abortStart(ctx, compensations, "create room", err)
	}
	compensations = append(compensations, compensation{
		name: "complete room",
		undo: func(ctx context.Context) error { return s.api.CompleteRoom(ctx, room.SID) },
	})

	streamer, err := s.api.CreatePlayerStreamer(ctx)
	if err != nil {
		return nil, s.abortStart(ctx, compensations, "create player streamer", err)
	}
	compensations = append(compensations, compensation{
		name: "end player streamer",
		undo: func(ctx context.Context) error { return s.api.EndPlayerStreamer(ctx, streamer.SID) },
	})

	processor, err := s.api.CreateMediaProcessor(ctx, room.SID, streamer.SID)
	if err != nil {
		return nil, s.abortStart(ctx, compensations, "create media processor", err)
	}

	s.logger.Info("livestream started",
		zap.String("stream_name", streamName),
		zap.String("room_sid", room.SID),
		zap.String("player_streamer_sid", streamer.SID),
		zap.String("media_processor_sid", processor.SID),
	)

	return &Session{
		StreamName:       streamName,
		RoomID:           room.SID,
		PlayerStreamerID: streamer.SID,
		MediaProcessorID: processor.SID,
	}, nil
}

// End transitions the media processor, then the player streamer, then the room
// out of service. The first failure aborts the sequence; earlier transitions
// are not undone, so the vendor resources may be left in a mixed state.
func (s *Service) End(ctx context.Context, session Session) error {
	if err := s.api.EndMediaProcessor(ctx, session.MediaProcessorID); err != nil {
		return s.abortEnd(session, "end media processor", err)
	}
	if err := s.api.EndPlayerStreamer(ctx, session.PlayerStreamerID); err != nil {
		return s.abortEnd(session, "end player streamer", err)
	}
	if err := s.api.CompleteRoom(ctx, session.RoomID); err != nil {
		return s.abortEnd(session, "complete room", err)
	}

	s.logger.Info("livestream ended",
		zap.String("stream_name", session.StreamName),
		zap.String("room_sid", session.RoomID),
	)
	return nil
}

func (s *Service) abortStart(ctx context.Context, compensations []compensation, step string, err error) error {
	s.logger.Error("livestream start failed",
		zap.String("step", step),
		zap.Error(err),
	)
	for i := len(compensations) - 1; i >= 0; i-- {
		comp := compensations[i]
		if undoErr := comp.undo(ctx); undoErr != nil {
			s.logger.Error("compensation failed, resource leaked",
				zap.String("compensation", comp.name),
				zap.Error(undoErr),
			)
		}
	}
	return fmt.Errorf("%w: %s: %v", ErrCreation, step, err)
}

func (s *Service) abortEnd(session Session, step string, err error) error {
	s.logger.Error("livestream end failed, resources may be in a mixed state",
		zap.String("step", step),
		zap.String("stream_name", session.StreamName),
		zap.Error(err),
	)
	return fmt.Errorf("%w: %s: %v", ErrTeardown, step, err)
}
