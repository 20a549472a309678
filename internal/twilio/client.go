// Package twilio is the boundary to the Twilio Video and Media APIs: a REST
// client for rooms, player streamers and media processors, and a local signer
// for Twilio-format access tokens.
package twilio

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/lumina-live/backend/config"
)

const (
	defaultVideoBaseURL = "https://video.twilio.com/v1"
	defaultMediaBaseURL = "https://media.twilio.com/v1"

	// Player streamer lifecycle statuses.
	StatusStarted = "started"
	StatusEnded   = "ended"

	// Completed rooms accept no further participants.
	RoomStatusCompleted = "completed"

	// Group rooms route media through Twilio so a composer can consume it.
	roomTypeGroup = "group"

	// Extension that composites a room into a single output stream.
	composerExtension = "video-composer-v1"
)

// Room is a Twilio Video room.
type Room struct {
	SID        string `json:"sid"`
	UniqueName string `json:"unique_name"`
	Status     string `json:"status"`
}

// PlayerStreamer ingests a composed stream and exposes it for playback.
type PlayerStreamer struct {
	SID    string `json:"sid"`
	Status string `json:"status"`
}

// MediaProcessor composites a room's media into a player streamer.
type MediaProcessor struct {
	SID    string `json:"sid"`
	Status string `json:"status"`
}

// APIError is a non-2xx response from Twilio.
type APIError struct {
	StatusCode int    `json:"status"`
	Code       int    `json:"code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("twilio: %d (code %d): %s", e.StatusCode, e.Code, e.Message)
}

// Client calls the Twilio REST APIs with API-key basic auth.
type Client struct {
	accountSID string
	keySID     string
	keySecret  string

	videoBaseURL string
	mediaBaseURL string

	httpClient *http.Client
	logger     *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURLs overrides the video and media API base URLs (tests).
func WithBaseURLs(video, media string) Option {
	return func(c *Client) {
		c.videoBaseURL = strings.TrimSuffix(video, "/")
		c.mediaBaseURL = strings.TrimSuffix(media, "/")
	}
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a Twilio REST client from the configured credentials.
func NewClient(cfg config.TwilioConfig, logger *zap.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Client{
		accountSID:   cfg.AccountSID,
		keySID:       cfg.APIKeySID,
		keySecret:    cfg.APIKeySecret,
		videoBaseURL: defaultVideoBaseURL,
		mediaBaseURL: defaultMediaBaseURL,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		logger:       logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CreateRoom creates a group room with the given unique name.
func (c *Client) CreateRoom(ctx context.Context, uniqueName string) (*Room, error) {
	form := url.Values{}
	form.Set("UniqueName", uniqueName)
	form.Set("Type", roomTypeGroup)

	var room Room
	if err := c.postForm(ctx, c.videoBaseURL+"/Rooms", form, &room); err != nil {
		return nil, err
	}
	return &room, nil
}

// CompleteRoom transitions a room to completed.
func (c *Client) CompleteRoom(ctx context.Context, sid string) error {
	form := url.Values{}
	form.Set("Status", RoomStatusCompleted)
	return c.postForm(ctx, c.videoBaseURL+"/Rooms/"+sid, form, &Room{})
}

// CreatePlayerStreamer creates a player streamer resource.
func (c *Client) CreatePlayerStreamer(ctx context.Context) (*PlayerStreamer, error) {
	var ps PlayerStreamer
	if err := c.postForm(ctx, c.mediaBaseURL+"/PlayerStreamers", url.Values{}, &ps); err != nil {
		return nil, err
	}
	return &ps, nil
}

// ListPlayerStreamers lists player streamers filtered by status, in the order
// the API returns them (newest first).
func (c *Client) ListPlayerStreamers(ctx context.Context, status string) ([]PlayerStreamer, error) {
	q := url.Values{}
	if status != "" {
		q.Set("Status", status)
	}
	var page struct {
		PlayerStreamers []PlayerStreamer `json:"player_streamers"`
	}
	if err := c.getJSON(ctx, c.mediaBaseURL+"/PlayerStreamers?"+q.Encode(), &page); err != nil {
		return nil, err
	}
	return page.PlayerStreamers, nil
}

// EndPlayerStreamer transitions a player streamer to ended.
func (c *Client) EndPlayerStreamer(ctx context.Context, sid string) error {
	form := url.Values{}
	form.Set("Status", StatusEnded)
	return c.postForm(ctx, c.mediaBaseURL+"/PlayerStreamers/"+sid, form, &PlayerStreamer{})
}

// CreatePlaybackGrant requests a playback grant on the player streamer, valid
// for ttlSec seconds. The grant payload is opaque and embedded verbatim into
// audience access tokens.
func (c *Client) CreatePlaybackGrant(ctx context.Context, sid string, ttlSec int) (json.RawMessage, error) {
	form := url.Values{}
	form.Set("Ttl", strconv.Itoa(ttlSec))

	var resp struct {
		Grant json.RawMessage `json:"grant"`
	}
	if err := c.postForm(ctx, c.mediaBaseURL+"/PlayerStreamers/"+sid+"/PlaybackGrant", form, &resp); err != nil {
		return nil, err
	}
	return resp.Grant, nil
}

// CreateMediaProcessor creates a composer processor reading from the room and
// writing to the player streamer.
func (c *Client) CreateMediaProcessor(ctx context.Context, roomSID, playerStreamerSID string) (*MediaProcessor, error) {
	extensionContext, err := json.Marshal(map[string]interface{}{
		"room":    map[string]string{"name": roomSID},
		"outputs": []string{playerStreamerSID},
	})
	if err != nil {
		return nil, fmt.Errorf("twilio: marshal extension context: %w", err)
	}

	form := url.Values{}
	form.Set("Extension", composerExtension)
	form.Set("ExtensionContext", string(extensionContext))

	var mp MediaProcessor
	if err := c.postForm(ctx, c.mediaBaseURL+"/MediaProcessors", form, &mp); err != nil {
		return nil, err
	}
	return &mp, nil
}

// EndMediaProcessor transitions a media processor to ended.
func (c *Client) EndMediaProcessor(ctx context.Context, sid string) error {
	form := url.Values{}
	form.Set("Status", StatusEnded)
	return c.postForm(ctx, c.mediaBaseURL+"/MediaProcessors/"+sid, form, &MediaProcessor{})
}

func (c *Client) postForm(ctx context.Context, rawURL string, form url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("twilio: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req, out)
}

func (c *Client) getJSON(ctx context.Context, rawURL string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("twilio: build request: %w", err)
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	req.SetBasicAuth(c.keySID, c.keySecret)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("twilio: %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("twilio request",
		zap.String("method", req.Method),
		zap.String("path", req.URL.Path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)),
	)

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("twilio: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if err := json.Unmarshal(body, apiErr); err != nil || apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		apiErr.StatusCode = resp.StatusCode
		return apiErr
	}

	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("twilio: decode response: %w", err)
		}
	}
	return nil
}
