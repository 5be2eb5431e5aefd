package websub

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mattjoyce/livegate/internal/metrics"
	"github.com/mattjoyce/livegate/internal/secrets"
)

const (
	subscribeTimeout = 30 * time.Second
	userAgent        = "livegate-websub/1.0"
)

// SubscriptionError is a terminal renewal failure.
type SubscriptionError struct {
	Attempts   int
	StatusCode int
	Body       string
}

func (e *SubscriptionError) Error() string {
	return fmt.Sprintf("subscription failed after %d attempts: status code: %d, response: %s",
		e.Attempts, e.StatusCode, e.Body)
}

// RenewResult is the structured outcome of one renewal run.
type RenewResult struct {
	Attempts  int
	RenewedAt time.Time
}

// RenewerConfig holds renewal settings.
type RenewerConfig struct {
	// HubURL is the hub's subscription endpoint.
	HubURL string

	// SecretLength is the generated secret length in bytes (hex doubles it).
	SecretLength int
}

// Renewer re-registers the webhook subscription with the hub, rotating the
// shared HMAC secret. The new secret is persisted only after the hub accepts
// the registration; a persisted secret for a failed registration would
// desynchronize the verifier from the hub.
//
// Rotation has no grace window: deliveries signed with the old secret that
// are still in flight when renewal completes will fail verification and be
// redelivered by the hub.
type Renewer struct {
	cfg     RenewerConfig
	params  secrets.Store
	client  *http.Client
	backoff Backoff
	sink    metrics.Sink
	logger  *slog.Logger
}

func NewRenewer(cfg RenewerConfig, params secrets.Store, logger *slog.Logger) *Renewer {
	return &Renewer{
		cfg:     cfg,
		params:  params,
		client:  &http.Client{Timeout: subscribeTimeout},
		backoff: DefaultBackoff(),
		sink:    metrics.Noop{},
		logger:  logger.With("component", "renewer"),
	}
}

// WithMetrics attaches a metrics sink to the renewer.
func (r *Renewer) WithMetrics(sink metrics.Sink) *Renewer {
	r.sink = sink
	return r
}

// WithBackoff overrides the retry policy. Used by tests.
func (r *Renewer) WithBackoff(b Backoff) *Renewer {
	r.backoff = b
	return r
}

// WithHTTPClient overrides the HTTP client. Used by tests.
func (r *Renewer) WithHTTPClient(c *http.Client) *Renewer {
	r.client = c
	return r
}

// Run performs one renewal: generate a fresh secret, register with the hub,
// and persist the secret on acceptance. HTTP 429 is retried with exponential
// backoff; any other failure, including transport errors, is terminal on the
// first occurrence (the scheduler will try again on the next trigger).
func (r *Renewer) Run(ctx context.Context) (RenewResult, error) {
	channelID, err := r.params.Get(ctx, secrets.ParamChannelID)
	if err != nil {
		return RenewResult{}, fmt.Errorf("read channel id: %w", err)
	}
	callbackURL, err := r.params.Get(ctx, secrets.ParamCallbackURL)
	if err != nil {
		return RenewResult{}, fmt.Errorf("read callback url: %w", err)
	}

	secret, err := generateSecret(r.cfg.SecretLength)
	if err != nil {
		return RenewResult{}, fmt.Errorf("generate secret: %w", err)
	}

	form := url.Values{
		"hub.callback":      {callbackURL},
		"hub.topic":         {TopicURL(channelID)},
		"hub.verify":        {"async"},
		"hub.mode":          {"subscribe"},
		"hub.secret":        {secret},
		"hub.lease_seconds": {strconv.Itoa(LeaseSeconds)},
	}

	for attempt := 0; attempt < r.backoff.MaxAttempts; attempt++ {
		status, body, err := r.post(ctx, form)
		if err != nil {
			// Transport failures are not throttling; fail without retry.
			r.sink.RenewalAttempt("transport_error")
			return RenewResult{}, fmt.Errorf("hub registration request: %w", err)
		}
		r.sink.RenewalAttempt(strconv.Itoa(status))

		switch {
		case status == http.StatusAccepted:
			if err := r.params.Put(ctx, secrets.ParamHMACSecret, secret); err != nil {
				return RenewResult{}, fmt.Errorf("persist rotated secret: %w", err)
			}
			result := RenewResult{Attempts: attempt + 1, RenewedAt: time.Now().UTC()}
			r.logger.Info("subscription renewed", "attempts", result.Attempts)
			return result, nil

		case status == http.StatusTooManyRequests:
			if attempt == r.backoff.MaxAttempts-1 {
				return RenewResult{}, &SubscriptionError{
					Attempts:   r.backoff.MaxAttempts,
					StatusCode: status,
					Body:       body,
				}
			}
			r.logger.Warn("hub throttled subscription request",
				"attempt", attempt+1,
				"delay", r.backoff.Delay(attempt).String(),
			)
			if err := r.backoff.Wait(ctx, attempt); err != nil {
				return RenewResult{}, fmt.Errorf("backoff interrupted: %w", err)
			}

		default:
			return RenewResult{}, &SubscriptionError{
				Attempts:   attempt + 1,
				StatusCode: status,
				Body:       body,
			}
		}
	}

	// Unreachable: the loop always returns from its final iteration.
	return RenewResult{}, &SubscriptionError{Attempts: r.backoff.MaxAttempts}
}

func (r *Renewer) post(ctx context.Context, form url.Values) (int, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.cfg.HubURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return 0, "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", userAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return resp.StatusCode, "", nil
	}
	return resp.StatusCode, string(body), nil
}

func generateSecret(length int) (string, error) {
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
