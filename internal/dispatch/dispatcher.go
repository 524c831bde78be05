package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/meridian-lending/underwriter/internal/config"
	"github.com/meridian-lending/underwriter/pkg/storage"
)

// StartRequest is the payload posted to the external worker's start endpoint.
type StartRequest struct {
	WorkflowID      uuid.UUID `json:"workflow_id"`
	ApplicationID   uuid.UUID `json:"application_id"`
	CaseID          string    `json:"case_id"`
	ApplicationData Snapshot  `json:"application_data"`
}

// Dispatcher hands a workflow start request to the external worker and
// returns its opaque acknowledgement.
type Dispatcher interface {
	Dispatch(ctx context.Context, req StartRequest) (json.RawMessage, error)
}

type client struct {
	http        *http.Client
	baseURL     string
	maxAttempts int
	backoff     time.Duration
	archive     storage.System
	logger      *slog.Logger
}

// NewClient creates a Dispatcher backed by the configured worker endpoint.
// The HTTP timeout is generous because the worker performs multi-stage
// reasoning before acknowledging.
func NewClient(cfg *config.WorkerConfig, archive storage.System, logger *slog.Logger) Dispatcher {
	return &client{
		http:        &http.Client{Timeout: cfg.TimeoutDuration()},
		baseURL:     cfg.BaseURL,
		maxAttempts: cfg.MaxAttempts,
		backoff:     cfg.RetryBackoffDuration(),
		archive:     archive,
		logger:      logger.With("system", "dispatch"),
	}
}

// Dispatch archives the sanitized snapshot, then posts the start request.
// Connectivity and server-side failures are retried with linear backoff
// (backoff * attempt); application-layer rejections fail immediately.
func (c *client) Dispatch(ctx context.Context, req StartRequest) (json.RawMessage, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal start request: %w", err)
	}

	c.archiveSnapshot(ctx, req.WorkflowID, req.ApplicationData)

	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		ack, err := c.post(ctx, body)
		if err == nil {
			return ack, nil
		}
		if !isRetryable(err) {
			return nil, err
		}

		lastErr = err
		c.logger.Warn(
			"dispatch attempt failed",
			"workflow_id", req.WorkflowID,
			"attempt", attempt,
			"error", err,
		)

		if attempt < c.maxAttempts {
			if err := wait(ctx, c.backoff*time.Duration(attempt)); err != nil {
				return nil, err
			}
		}
	}

	return nil, fmt.Errorf("dispatch exhausted %d attempts: %w", c.maxAttempts, lastErr)
}

func (c *client) post(ctx context.Context, body []byte) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost,
		c.baseURL+"/api/workflows/start",
		bytes.NewReader(body),
	)
	if err != nil {
		return nil, fmt.Errorf("build start request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %w", ErrUnreachable, err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return payload, nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return nil, fmt.Errorf("%w: status %d: %s", ErrRejected, resp.StatusCode, payload)
	default:
		return nil, fmt.Errorf("%w: status %d", ErrUnreachable, resp.StatusCode)
	}
}

// archiveSnapshot persists the worker-bound snapshot so the exact input can
// be reconstructed later. Archive failures are logged, not fatal: the
// dispatch itself must not depend on blob storage availability.
func (c *client) archiveSnapshot(ctx context.Context, workflowID uuid.UUID, snap Snapshot) {
	data, err := json.Marshal(snap)
	if err != nil {
		c.logger.Warn("snapshot archive marshal failed", "workflow_id", workflowID, "error", err)
		return
	}

	key := ArchiveKey(workflowID)
	if err := c.archive.Upload(ctx, key, bytes.NewReader(data), "application/json"); err != nil {
		c.logger.Warn("snapshot archive upload failed", "key", key, "error", err)
	}
}

// ArchiveKey returns the blob storage key for a workflow's archived snapshot.
func ArchiveKey(workflowID uuid.UUID) string {
	return fmt.Sprintf("workflows/%s/snapshot.json", workflowID)
}

func isRetryable(err error) bool {
	return !errors.Is(err, ErrRejected)
}

func wait(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
