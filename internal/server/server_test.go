package server

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"

	"github.com/mattjoyce/livegate/internal/pipeline"
	"github.com/mattjoyce/livegate/internal/websub"
)

type fakeProcessor struct {
	outcome  pipeline.Outcome
	gotBody  []byte
	gotCalls int
}

func (f *fakeProcessor) Process(_ context.Context, _ http.Header, body []byte) pipeline.Outcome {
	f.gotCalls++
	f.gotBody = append([]byte(nil), body...)
	return f.outcome
}

type fakeValidator struct {
	challenge string
	err       error
}

func (f *fakeValidator) Validate(_ context.Context, _ url.Values) (string, error) {
	return f.challenge, f.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestServer(processor Processor, validator ChallengeValidator) *Server {
	return New(Config{Listen: "127.0.0.1:0"}, processor, validator, nil, testLogger())
}

func TestHandleChallenge_EchoesChallenge(t *testing.T) {
	srv := newTestServer(&fakeProcessor{}, &fakeValidator{challenge: "abc"})

	req := httptest.NewRequest("GET", "/notify?hub.challenge=abc", nil)
	rec := httptest.NewRecorder()
	srv.setupRoutes().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if got := rec.Body.String(); got != "abc" {
		t.Errorf("body = %q, want abc", got)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("Content-Type = %q, want text/plain", ct)
	}
}

func TestHandleChallenge_ValidationFailure(t *testing.T) {
	srv := newTestServer(&fakeProcessor{}, &fakeValidator{
		err: &websub.ChallengeError{Reason: "Bad Request: Missing hub.challenge parameter"},
	})

	req := httptest.NewRequest("GET", "/notify", nil)
	rec := httptest.NewRecorder()
	srv.setupRoutes().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if got := rec.Body.String(); got != "Bad Request: Missing hub.challenge parameter" {
		t.Errorf("body = %q", got)
	}
}

func TestHandleChallenge_InternalError(t *testing.T) {
	srv := newTestServer(&fakeProcessor{}, &fakeValidator{err: io.ErrUnexpectedEOF})

	req := httptest.NewRequest("GET", "/notify?hub.challenge=abc", nil)
	rec := httptest.NewRecorder()
	srv.setupRoutes().ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	if got := rec.Body.String(); got != "Internal Server Error" {
		t.Errorf("body = %q, want generic message", got)
	}
}

func TestHandleNotification_DelegatesToPipeline(t *testing.T) {
	processor := &fakeProcessor{
		outcome: pipeline.Outcome{Status: http.StatusOK, Body: "OK"},
	}
	srv := newTestServer(processor, &fakeValidator{})

	body := []byte("<feed/>")
	req := httptest.NewRequest("POST", "/notify", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.setupRoutes().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if rec.Body.String() != "OK" {
		t.Errorf("body = %q, want OK", rec.Body.String())
	}
	if processor.gotCalls != 1 {
		t.Errorf("pipeline called %d times, want 1", processor.gotCalls)
	}
	if string(processor.gotBody) != "<feed/>" {
		t.Errorf("pipeline body = %q", processor.gotBody)
	}
}

func TestHandleNotification_PropagatesRejection(t *testing.T) {
	processor := &fakeProcessor{
		outcome: pipeline.Outcome{Status: http.StatusBadRequest, Body: "missing X-Hub-Signature header"},
	}
	srv := newTestServer(processor, &fakeValidator{})

	req := httptest.NewRequest("POST", "/notify", strings.NewReader("<feed/>"))
	rec := httptest.NewRecorder()
	srv.setupRoutes().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if rec.Body.String() != "missing X-Hub-Signature header" {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestHandleNotification_BodyTooLarge(t *testing.T) {
	processor := &fakeProcessor{}
	srv := New(Config{Listen: "127.0.0.1:0", MaxBodySize: 16}, processor, &fakeValidator{}, nil, testLogger())

	req := httptest.NewRequest("POST", "/notify", strings.NewReader(strings.Repeat("x", 64)))
	rec := httptest.NewRecorder()
	srv.setupRoutes().ServeHTTP(rec, req)

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", rec.Code)
	}
	if processor.gotCalls != 0 {
		t.Error("pipeline called for oversized body")
	}
}

func TestHandleHealth(t *testing.T) {
	srv := newTestServer(&fakeProcessor{}, &fakeValidator{})

	req := httptest.NewRequest("GET", "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.setupRoutes().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestMetricsRouteDisabledWithoutRegistry(t *testing.T) {
	srv := newTestServer(&fakeProcessor{}, &fakeValidator{})

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	srv.setupRoutes().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}
