package twilio

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/lumina-live/backend/config"
)

func testConfig() config.TwilioConfig {
	return config.TwilioConfig{
		AccountSID:   "ACxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxx",
		APIKeySID:    "SKxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxx",
		APIKeySecret: "topsecret",
		TokenTTLSec:  3600,
	}
}

// recordedRequest captures what the fake vendor server saw.
type recordedRequest struct {
	method string
	path   string
	query  url.Values
	form   url.Values
	user   string
	pass   string
}

func newVendorServer(t *testing.T, status int, body string) (*httptest.Server, *[]recordedRequest) {
	t.Helper()
	var recorded []recordedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		user, pass, _ := r.BasicAuth()
		recorded = append(recorded, recordedRequest{
			method: r.Method,
			path:   r.URL.Path,
			query:  r.URL.Query(),
			form:   r.PostForm,
			user:   user,
			pass:   pass,
		})
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &recorded
}

func TestCreateRoom(t *testing.T) {
	srv, recorded := newVendorServer(t, http.StatusCreated,
		`{"sid":"RM123","unique_name":"my-stream","status":"in-progress"}`)
	c := NewClient(testConfig(), nil, WithBaseURLs(srv.URL, srv.URL))

	room, err := c.CreateRoom(context.Background(), "my-stream")
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	if room.SID != "RM123" || room.UniqueName != "my-stream" {
		t.Errorf("room: got %+v", room)
	}

	req := (*recorded)[0]
	if req.method != http.MethodPost || req.path != "/Rooms" {
		t.Errorf("request: got %s %s", req.method, req.path)
	}
	if req.form.Get("UniqueName") != "my-stream" || req.form.Get("Type") != "group" {
		t.Errorf("form: got %v", req.form)
	}
	if req.user != "SKxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxx" || req.pass != "topsecret" {
		t.Errorf("basic auth: got %s/%s", req.user, req.pass)
	}
}

func TestCompleteRoom(t *testing.T) {
	srv, recorded := newVendorServer(t, http.StatusOK, `{"sid":"RM123","status":"completed"}`)
	c := NewClient(testConfig(), nil, WithBaseURLs(srv.URL, srv.URL))

	if err := c.CompleteRoom(context.Background(), "RM123"); err != nil {
		t.Fatalf("CompleteRoom: %v", err)
	}
	req := (*recorded)[0]
	if req.path != "/Rooms/RM123" || req.form.Get("Status") != "completed" {
		t.Errorf("request: %s form=%v", req.path, req.form)
	}
}

func TestListPlayerStreamers(t *testing.T) {
	srv, recorded := newVendorServer(t, http.StatusOK,
		`{"player_streamers":[{"sid":"VJ2","status":"started"},{"sid":"VJ1","status":"started"}]}`)
	c := NewClient(testConfig(), nil, WithBaseURLs(srv.URL, srv.URL))

	streamers, err := c.ListPlayerStreamers(context.Background(), StatusStarted)
	if err != nil {
		t.Fatalf("ListPlayerStreamers: %v", err)
	}
	if len(streamers) != 2 || streamers[0].SID != "VJ2" {
		t.Errorf("streamers: got %+v", streamers)
	}
	req := (*recorded)[0]
	if req.method != http.MethodGet || req.query.Get("Status") != "started" {
		t.Errorf("request: %s query=%v", req.method, req.query)
	}
}

func TestCreatePlaybackGrant(t *testing.T) {
	srv, recorded := newVendorServer(t, http.StatusCreated,
		`{"grant":{"playbackUrl":"https://example.test/live","requireFairPlay":false}}`)
	c := NewClient(testConfig(), nil, WithBaseURLs(srv.URL, srv.URL))

	grant, err := c.CreatePlaybackGrant(context.Background(), "VJ1", 60)
	if err != nil {
		t.Fatalf("CreatePlaybackGrant: %v", err)
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(grant, &decoded); err != nil {
		t.Fatalf("grant not valid JSON: %v", err)
	}
	if decoded["playbackUrl"] != "https://example.test/live" {
		t.Errorf("grant payload: got %s", grant)
	}

	req := (*recorded)[0]
	if req.path != "/PlayerStreamers/VJ1/PlaybackGrant" || req.form.Get("Ttl") != "60" {
		t.Errorf("request: %s form=%v", req.path, req.form)
	}
}

func TestCreateMediaProcessor_referencesRoomAndStreamer(t *testing.T) {
	srv, recorded := newVendorServer(t, http.StatusCreated, `{"sid":"ZX1","status":"started"}`)
	c := NewClient(testConfig(), nil, WithBaseURLs(srv.URL, srv.URL))

	mp, err := c.CreateMediaProcessor(context.Background(), "RM123", "VJ456")
	if err != nil {
		t.Fatalf("CreateMediaProcessor: %v", err)
	}
	if mp.SID != "ZX1" {
		t.Errorf("processor: got %+v", mp)
	}

	req := (*recorded)[0]
	if req.form.Get("Extension") != "video-composer-v1" {
		t.Errorf("extension: got %q", req.form.Get("Extension"))
	}
	var ctxPayload struct {
		Room    map[string]string `json:"room"`
		Outputs []string          `json:"outputs"`
	}
	if err := json.Unmarshal([]byte(req.form.Get("ExtensionContext")), &ctxPayload); err != nil {
		t.Fatalf("extension context not JSON: %v", err)
	}
	if ctxPayload.Room["name"] != "RM123" {
		t.Errorf("context room: got %v", ctxPayload.Room)
	}
	if len(ctxPayload.Outputs) != 1 || ctxPayload.Outputs[0] != "VJ456" {
		t.Errorf("context outputs: got %v", ctxPayload.Outputs)
	}
}

func TestAPIError_decoded(t *testing.T) {
	srv, _ := newVendorServer(t, http.StatusBadRequest,
		`{"code":53113,"message":"Room exists","status":400}`)
	c := NewClient(testConfig(), nil, WithBaseURLs(srv.URL, srv.URL))

	_, err := c.CreateRoom(context.Background(), "dup")
	apiErr, ok := err.(*APIError)
	if !ok {
		t.Fatalf("expected *APIError, got %T: %v", err, err)
	}
	if apiErr.StatusCode != http.StatusBadRequest || apiErr.Code != 53113 {
		t.Errorf("api error: got %+v", apiErr)
	}
}

func TestAPIError_nonJSONBody(t *testing.T) {
	srv, _ := newVendorServer(t, http.StatusBadGateway, "upstream blew up")
	c := NewClient(testConfig(), nil, WithBaseURLs(srv.URL, srv.URL))

	err := c.EndMediaProcessor(context.Background(), "ZX1")
	apiErr, ok := err.(*APIError)
	if !ok {
		t.Fatalf("expected *APIError, got %T: %v", err, err)
	}
	if apiErr.StatusCode != http.StatusBadGateway || apiErr.Message == "" {
		t.Errorf("api error: got %+v", apiErr)
	}
}
