// Package pipeline composes the per-delivery flow: verify the hub's HMAC
// signature, parse the feed payload, classify the video as live, consult the
// dedup record, dispatch the notification, and record the dispatch.
//
// The pipeline is the only place component failures are converted into
// external responses. Nothing here retries: redelivery on failure is the
// hub's responsibility.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/mattjoyce/livegate/internal/dedup"
	"github.com/mattjoyce/livegate/internal/feed"
	"github.com/mattjoyce/livegate/internal/metrics"
	"github.com/mattjoyce/livegate/internal/notify"
	"github.com/mattjoyce/livegate/internal/secrets"
	"github.com/mattjoyce/livegate/internal/websub"
	"github.com/mattjoyce/livegate/internal/youtube"
)

const internalErrorBody = "Internal Server Error"

// LiveChecker classifies a video id.
type LiveChecker interface {
	CheckLive(ctx context.Context, videoID string) (youtube.LiveStatus, error)
}

// DedupStore reads and conditionally creates notification records.
type DedupStore interface {
	IsNotified(ctx context.Context, videoID string) (bool, error)
	MarkNotified(ctx context.Context, r dedup.Record) (bool, error)
}

// Outcome is the external result of processing one delivery.
type Outcome struct {
	Status int
	Body   string

	// Disposition is the metrics outcome label.
	Disposition string
}

// Orchestrator drives one webhook delivery through the pipeline.
type Orchestrator struct {
	params  secrets.Store
	checker LiveChecker
	store   DedupStore
	sender  notify.Sender
	sink    metrics.Sink
	logger  *slog.Logger
}

func New(params secrets.Store, checker LiveChecker, store DedupStore, sender notify.Sender, sink metrics.Sink, logger *slog.Logger) *Orchestrator {
	if sink == nil {
		sink = metrics.Noop{}
	}
	return &Orchestrator{
		params:  params,
		checker: checker,
		store:   store,
		sender:  sender,
		sink:    sink,
		logger:  logger.With("component", "pipeline"),
	}
}

// Process runs the full verify → parse → classify → dedup → send → record
// flow for one delivery. Signature failures return 400 with the specific
// reason; everything else unexpected returns a generic 500 with full detail
// logged server-side only.
func (o *Orchestrator) Process(ctx context.Context, header http.Header, body []byte) Outcome {
	start := time.Now()
	logger := o.logger.With("delivery_id", uuid.NewString())

	outcome := o.process(ctx, logger, header, body)
	o.sink.DeliveryProcessed(outcome.Disposition, time.Since(start))
	return outcome
}

func (o *Orchestrator) process(ctx context.Context, logger *slog.Logger, header http.Header, body []byte) Outcome {
	// Received → Verified
	secret, err := o.params.Get(ctx, secrets.ParamHMACSecret)
	if err != nil {
		logger.Error("failed to read HMAC secret", "error", err)
		return Outcome{Status: http.StatusInternalServerError, Body: internalErrorBody, Disposition: metrics.OutcomeError}
	}
	if err := websub.VerifySignature(header, body, secret); err != nil {
		o.sink.VerificationFailure(verificationReason(err))
		logger.Warn("HMAC verification failed", "error", err)
		return Outcome{Status: http.StatusBadRequest, Body: err.Error(), Disposition: metrics.OutcomeRejected}
	}

	// Verified → Parsed. The sender is authenticated at this point, so a
	// malformed payload is an internal error, not a client error.
	video, err := feed.Parse(body)
	if err != nil {
		logger.Error("failed to parse feed payload", "error", err)
		return Outcome{Status: http.StatusInternalServerError, Body: internalErrorBody, Disposition: metrics.OutcomeError}
	}
	logger = logger.With("video_id", video.ID)

	// Parsed → Classified
	status, err := o.checker.CheckLive(ctx, video.ID)
	if err != nil {
		o.sink.LiveClassification(metrics.ResultError)
		logger.Error("live classification failed", "error", err)
		return Outcome{Status: http.StatusInternalServerError, Body: internalErrorBody, Disposition: metrics.OutcomeError}
	}
	if !status.Live {
		o.sink.LiveClassification(metrics.ResultNotLive)
		logger.Info("video is not a live stream, skipping")
		return Outcome{Status: http.StatusOK, Body: "OK", Disposition: metrics.OutcomeSkippedNotLive}
	}
	o.sink.LiveClassification(metrics.ResultLive)

	// Classified → dedup short-circuit
	notified, err := o.store.IsNotified(ctx, video.ID)
	if err != nil {
		logger.Error("dedup lookup failed", "error", err)
		return Outcome{Status: http.StatusInternalServerError, Body: internalErrorBody, Disposition: metrics.OutcomeError}
	}
	if notified {
		logger.Info("video already notified, skipping")
		return Outcome{Status: http.StatusOK, Body: "OK", Disposition: metrics.OutcomeSkippedDup}
	}

	// Dispatched. Send and record are not atomic: a crash between them
	// re-delivers on the hub's next retry (accepted failure mode).
	if err := o.sender.Send(ctx, notify.Notification{
		Title:        video.Title,
		URL:          video.URL,
		ThumbnailURL: status.ThumbnailURL,
	}); err != nil {
		logger.Error("notification dispatch failed", "error", err)
		return Outcome{Status: http.StatusInternalServerError, Body: internalErrorBody, Disposition: metrics.OutcomeError}
	}
	logger.Info("notification dispatched", "title", video.Title)

	// Dispatched → Recorded
	created, err := o.store.MarkNotified(ctx, dedup.Record{
		VideoID:      video.ID,
		Title:        video.Title,
		URL:          video.URL,
		ThumbnailURL: status.ThumbnailURL,
	})
	if err != nil {
		logger.Error("failed to record notification", "error", err)
		return Outcome{Status: http.StatusInternalServerError, Body: internalErrorBody, Disposition: metrics.OutcomeError}
	}
	if !created {
		// A concurrent delivery recorded first; ours was a duplicate send.
		logger.Warn("notification record already existed")
	}

	return Outcome{Status: http.StatusOK, Body: "OK", Disposition: metrics.OutcomeDispatched}
}

func verificationReason(err error) string {
	var unsupported *websub.UnsupportedAlgorithmError
	switch {
	case errors.Is(err, websub.ErrMissingSignature):
		return metrics.ReasonMissingSignature
	case errors.As(err, &unsupported):
		return metrics.ReasonUnsupportedAlgorithm
	default:
		return metrics.ReasonSignatureMismatch
	}
}
