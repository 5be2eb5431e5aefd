package websub

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"testing"

	"github.com/mattjoyce/livegate/internal/secrets"
)

// fakeParams is an in-memory secrets.Store for tests.
type fakeParams struct {
	mu     sync.Mutex
	values map[string]string
	puts   []string // names in put order
}

func newFakeParams(values map[string]string) *fakeParams {
	if values == nil {
		values = map[string]string{}
	}
	return &fakeParams{values: values}
}

func (f *fakeParams) Get(_ context.Context, name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.values[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", secrets.ErrNotFound, name)
	}
	return v, nil
}

func (f *fakeParams) Put(_ context.Context, name, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values[name] = value
	f.puts = append(f.puts, name)
	return nil
}

func TestChallengeValidator(t *testing.T) {
	params := newFakeParams(map[string]string{
		secrets.ParamHMACSecret: "current-secret",
		secrets.ParamChannelID:  "UCxxxx",
	})
	validator := NewChallengeValidator(params)

	tests := []struct {
		name          string
		query         url.Values
		wantChallenge string
		wantReason    string
	}{
		{
			name:          "challenge only",
			query:         url.Values{"hub.challenge": {"abc"}},
			wantChallenge: "abc",
		},
		{
			name: "all parameters valid",
			query: url.Values{
				"hub.challenge":     {"xyz"},
				"hub.mode":          {"subscribe"},
				"hub.secret":        {"current-secret"},
				"hub.topic":         {"https://www.youtube.com/xml/feeds/videos.xml?channel_id=UCxxxx"},
				"hub.lease_seconds": {"828000"},
			},
			wantChallenge: "xyz",
		},
		{
			name:       "missing challenge",
			query:      url.Values{},
			wantReason: "Bad Request: Missing hub.challenge parameter",
		},
		{
			name: "invalid mode",
			query: url.Values{
				"hub.challenge": {"abc"},
				"hub.mode":      {"unsubscribe"},
			},
			wantReason: "Bad Request: Invalid hub.mode: unsubscribe",
		},
		{
			name: "wrong secret",
			query: url.Values{
				"hub.challenge": {"abc"},
				"hub.secret":    {"stale-secret"},
			},
			wantReason: "Bad Request: Invalid hub.secret: stale-secret",
		},
		{
			name: "unexpected topic",
			query: url.Values{
				"hub.challenge": {"abc"},
				"hub.topic":     {"https://example.com/other-feed"},
			},
			wantReason: "Bad Request: Unexpected topic URL: https://example.com/other-feed",
		},
		{
			name: "wrong lease",
			query: url.Values{
				"hub.challenge":     {"abc"},
				"hub.lease_seconds": {"3600"},
			},
			wantReason: "Bad Request: Invalid hub.lease_seconds: 3600",
		},
		{
			name: "non-numeric lease",
			query: url.Values{
				"hub.challenge":     {"abc"},
				"hub.lease_seconds": {"soon"},
			},
			wantReason: "Bad Request: Invalid hub.lease_seconds: soon",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			challenge, err := validator.Validate(context.Background(), tt.query)

			if tt.wantReason != "" {
				var ce *ChallengeError
				if !errors.As(err, &ce) {
					t.Fatalf("Validate() error = %v, want ChallengeError", err)
				}
				if ce.Reason != tt.wantReason {
					t.Errorf("reason = %q, want %q", ce.Reason, tt.wantReason)
				}
				return
			}

			if err != nil {
				t.Fatalf("Validate() error = %v, want nil", err)
			}
			if challenge != tt.wantChallenge {
				t.Errorf("challenge = %q, want %q", challenge, tt.wantChallenge)
			}
		})
	}
}

func TestChallengeValidator_StoreError(t *testing.T) {
	// Secret lookup fails: internal error, not a ChallengeError.
	validator := NewChallengeValidator(newFakeParams(nil))

	_, err := validator.Validate(context.Background(), url.Values{
		"hub.challenge": {"abc"},
		"hub.secret":    {"anything"},
	})
	if err == nil {
		t.Fatal("Validate() = nil, want error")
	}
	var ce *ChallengeError
	if errors.As(err, &ce) {
		t.Errorf("error = %v, want non-challenge internal error", err)
	}
}
