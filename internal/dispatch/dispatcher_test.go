package dispatch_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"

	"github.com/meridian-lending/underwriter/internal/applications"
	"github.com/meridian-lending/underwriter/internal/config"
	"github.com/meridian-lending/underwriter/internal/dispatch"
	"github.com/meridian-lending/underwriter/pkg/lifecycle"
	"github.com/meridian-lending/underwriter/pkg/storage"
)

type captureStorage struct {
	keys     []string
	payloads []string
}

func (s *captureStorage) Start(lc *lifecycle.Coordinator) error { return nil }

func (s *captureStorage) Upload(ctx context.Context, key string, reader io.Reader, contentType string) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	s.keys = append(s.keys, key)
	s.payloads = append(s.payloads, string(data))
	return nil
}

func (s *captureStorage) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	return nil, storage.ErrNotFound
}

func (s *captureStorage) Exists(ctx context.Context, key string) (bool, error) { return false, nil }

func newClient(t *testing.T, baseURL string, archive storage.System) dispatch.Dispatcher {
	t.Helper()
	cfg := &config.WorkerConfig{
		BaseURL:      baseURL,
		Timeout:      "5s",
		MaxAttempts:  3,
		RetryBackoff: "1ms",
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return dispatch.NewClient(cfg, archive, logger)
}

func startRequest() dispatch.StartRequest {
	return dispatch.StartRequest{
		WorkflowID:    uuid.MustParse("66666666-6666-6666-6666-666666666666"),
		ApplicationID: uuid.New(),
		CaseID:        "UW-2024-0042",
		ApplicationData: dispatch.BuildSnapshot(&applications.Source{
			Application: applications.LoanApplication{CaseID: "UW-2024-0042"},
			Borrowers: []applications.Borrower{
				{FirstName: "Dana", LastName: "Whitfield", SSNLastFour: "1234"},
			},
		}),
	}
}

func TestDispatchSuccess(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Path != "/api/workflows/start" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %s", ct)
		}
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"status":"accepted"}`))
	}))
	defer srv.Close()

	archive := &captureStorage{}
	client := newClient(t, srv.URL, archive)

	ack, err := client.Dispatch(context.Background(), startRequest())
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if string(ack) != `{"status":"accepted"}` {
		t.Errorf("ack = %s", ack)
	}
	if hits.Load() != 1 {
		t.Errorf("worker hits = %d, want 1", hits.Load())
	}

	if len(archive.keys) != 1 ||
		archive.keys[0] != "workflows/66666666-6666-6666-6666-666666666666/snapshot.json" {
		t.Errorf("archive keys = %v", archive.keys)
	}
	if strings.Contains(archive.payloads[0], "Dana") {
		t.Error("archived snapshot must not contain raw PII")
	}
}

func TestDispatchRejectionIsNotRetried(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "unknown case", http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	client := newClient(t, srv.URL, &captureStorage{})

	_, err := client.Dispatch(context.Background(), startRequest())
	if !errors.Is(err, dispatch.ErrRejected) {
		t.Fatalf("err = %v, want ErrRejected", err)
	}
	if hits.Load() != 1 {
		t.Errorf("worker hits = %d, rejections must fail immediately", hits.Load())
	}
}

func TestDispatchRetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := newClient(t, srv.URL, &captureStorage{})

	if _, err := client.Dispatch(context.Background(), startRequest()); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if hits.Load() != 3 {
		t.Errorf("worker hits = %d, want 3", hits.Load())
	}
}

func TestDispatchExhaustsAttempts(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := newClient(t, srv.URL, &captureStorage{})

	_, err := client.Dispatch(context.Background(), startRequest())
	if !errors.Is(err, dispatch.ErrUnreachable) {
		t.Fatalf("err = %v, want ErrUnreachable", err)
	}
	if hits.Load() != 3 {
		t.Errorf("worker hits = %d, want all attempts", hits.Load())
	}
}

func TestDispatchArchiveFailureIsNonFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := newClient(t, srv.URL, failingStorage{})

	if _, err := client.Dispatch(context.Background(), startRequest()); err != nil {
		t.Fatalf("archive failure must not fail dispatch: %v", err)
	}
}

type failingStorage struct{}

func (failingStorage) Start(lc *lifecycle.Coordinator) error { return nil }

func (failingStorage) Upload(ctx context.Context, key string, reader io.Reader, contentType string) error {
	return errors.New("container offline")
}

func (failingStorage) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	return nil, storage.ErrNotFound
}

func (failingStorage) Exists(ctx context.Context, key string) (bool, error) { return false, nil }
