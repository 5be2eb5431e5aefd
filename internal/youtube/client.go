// Package youtube queries the Data API v3 to classify a video as currently
// live and to pick a thumbnail for the notification.
package youtube

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/mattjoyce/livegate/internal/secrets"
)

const (
	defaultEndpoint = "https://www.googleapis.com/youtube/v3/videos"
	requestTimeout  = 10 * time.Second
)

// ErrVideoNotFound indicates the API returned no item for the video id.
var ErrVideoNotFound = errors.New("video not found")

// UpstreamError indicates the metadata API call failed or returned a
// non-success status.
type UpstreamError struct {
	StatusCode int
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("metadata API request failed: %v", e.Err)
	}
	return fmt.Sprintf("metadata API returned status %d", e.StatusCode)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// MalformedResponseError indicates a successful API response missing
// required fields.
type MalformedResponseError struct {
	Reason string
}

func (e *MalformedResponseError) Error() string {
	return "malformed metadata response: " + e.Reason
}

// LiveStatus classifies one video. ThumbnailURL is meaningful only when Live
// is true; an empty string means the video is live but no thumbnail could be
// extracted, which callers must not conflate with not-live.
type LiveStatus struct {
	Live         bool
	ThumbnailURL string
}

// thumbnailPriority orders extraction: higher resolution preferred.
var thumbnailPriority = []string{"high", "medium", "default"}

type thumbnail struct {
	URL string `json:"url"`
}

type snippet struct {
	LiveBroadcastContent *string              `json:"liveBroadcastContent"`
	Thumbnails           map[string]thumbnail `json:"thumbnails"`
}

type videoListResponse struct {
	Items []struct {
		Snippet *snippet `json:"snippet"`
	} `json:"items"`
}

// Client looks up video metadata with an API key from the parameter store.
type Client struct {
	endpoint string
	params   secrets.Store
	client   *http.Client
}

func NewClient(params secrets.Store) *Client {
	return &Client{
		endpoint: defaultEndpoint,
		params:   params,
		client:   &http.Client{Timeout: requestTimeout},
	}
}

// WithEndpoint overrides the API endpoint. Used by tests.
func (c *Client) WithEndpoint(endpoint string) *Client {
	c.endpoint = endpoint
	return c
}

// CheckLive classifies the video. "live" maps to a live status with the best
// available thumbnail; "upcoming", "none", and anything else map to not-live.
func (c *Client) CheckLive(ctx context.Context, videoID string) (LiveStatus, error) {
	apiKey, err := c.params.Get(ctx, secrets.ParamAPIKey)
	if err != nil {
		return LiveStatus{}, fmt.Errorf("read API key: %w", err)
	}

	query := url.Values{
		"part": {"snippet"},
		"id":   {videoID},
		"key":  {apiKey},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return LiveStatus{}, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return LiveStatus{}, &UpstreamError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return LiveStatus{}, &UpstreamError{StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return LiveStatus{}, &UpstreamError{Err: err}
	}

	var decoded videoListResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return LiveStatus{}, &MalformedResponseError{Reason: fmt.Sprintf("invalid JSON: %v", err)}
	}

	if len(decoded.Items) == 0 {
		return LiveStatus{}, ErrVideoNotFound
	}

	sn := decoded.Items[0].Snippet
	if sn == nil {
		return LiveStatus{}, &MalformedResponseError{Reason: "snippet not found"}
	}
	if sn.LiveBroadcastContent == nil {
		return LiveStatus{}, &MalformedResponseError{Reason: "liveBroadcastContent not found"}
	}

	if *sn.LiveBroadcastContent != "live" {
		return LiveStatus{Live: false}, nil
	}

	return LiveStatus{Live: true, ThumbnailURL: pickThumbnail(sn.Thumbnails)}, nil
}

// pickThumbnail returns the highest-resolution thumbnail URL available, or
// "" when the snippet carries none. The empty string is a valid live result.
func pickThumbnail(thumbnails map[string]thumbnail) string {
	for _, quality := range thumbnailPriority {
		if t, ok := thumbnails[quality]; ok && t.URL != "" {
			return t.URL
		}
	}
	return ""
}
