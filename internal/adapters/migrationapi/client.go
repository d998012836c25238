// Package migrationapi implements secondary.MigrationClient over the migration
// service's JSON HTTP endpoints.
package migrationapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/example/migreview/internal/ctxutil"
	"github.com/example/migreview/internal/models"
	"github.com/example/migreview/internal/ports/secondary"
)

const (
	pathGet         = "/get"
	pathPut         = "/put"
	pathFixSequence = "/fix_sequence"

	getRetryMaxElapsed = 10 * time.Second
	maxErrorBody       = 4 << 10
)

// StatusError is returned for a non-2xx response.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("%s %s: %d %s: %s", e.Method, e.Path, e.StatusCode, http.StatusText(e.StatusCode), e.Body)
}

// Client talks to the migration service.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	logger  *logrus.Logger
	tracer  trace.Tracer
}

// NewClient creates a client for the service at baseURL.
func NewClient(baseURL string, timeout time.Duration, logger *logrus.Logger) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid service URL %q", baseURL)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, errors.Errorf("invalid service URL %q: scheme and host required", baseURL)
	}
	return &Client{
		baseURL: u,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
		tracer:  otel.Tracer("github.com/example/migreview/migrationapi"),
	}, nil
}

// GetBatch fetches a batch. Transient failures are retried with exponential
// backoff since the call has no side effects. Each attempt decodes into a
// fresh value, so nothing from a failed attempt reaches the result.
func (c *Client) GetBatch(ctx context.Context, id string) (*models.Batch, error) {
	var batch models.Batch
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = getRetryMaxElapsed

	err := backoff.Retry(func() error {
		var attempt models.Batch
		err := c.do(ctx, http.MethodGet, pathGet, url.Values{"id": {id}}, nil, &attempt)
		if err != nil && isRetryable(err) {
			c.logger.WithFields(logrus.Fields{"batch": id, "error": err}).Warn("retrying batch fetch")
			return err
		}
		if err != nil {
			return backoff.Permanent(err)
		}
		batch = attempt
		return nil
	}, backoff.WithContext(bo, ctx))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to fetch batch %s", id)
	}
	batch.Normalize()
	return &batch, nil
}

// PutBatch saves a batch and returns the service's re-validated copy.
func (c *Client) PutBatch(ctx context.Context, batch *models.Batch) (*models.Batch, error) {
	var saved models.Batch
	if err := c.do(ctx, http.MethodPost, pathPut, nil, batch, &saved); err != nil {
		return nil, errors.Wrapf(err, "failed to save batch %s", batch.ID)
	}
	saved.Normalize()
	return &saved, nil
}

// FixSequence requests a corrected statement for one sequence issue.
func (c *Client) FixSequence(ctx context.Context, req models.FixSequenceRequest) (*models.Statement, error) {
	var fixed models.Statement
	if err := c.do(ctx, http.MethodPost, pathFixSequence, nil, req, &fixed); err != nil {
		return nil, errors.Wrapf(err, "failed to fix sequence %s", req.ID)
	}
	fixed.Normalize()
	return &fixed, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) (retErr error) {
	ctx, span := c.tracer.Start(ctx, "migrationapi"+path,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("http.path", path),
		),
	)
	defer func() {
		if retErr != nil {
			span.RecordError(retErr)
			span.SetStatus(codes.Error, retErr.Error())
		}
		span.End()
	}()

	u := c.baseURL.ResolveReference(&url.URL{Path: strings.TrimSuffix(c.baseURL.Path, "/") + path})
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "failed to encode request")
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return errors.Wrap(err, "failed to build request")
	}
	req.Header.Set("Accept", "application/json")
	requestID := ctxutil.RequestIDFromContext(ctx)
	if requestID != "" {
		req.Header.Set("X-Request-Id", requestID)
		span.SetAttributes(attribute.String("request.id", requestID))
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, path)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	c.logger.WithFields(logrus.Fields{
		"method":     method,
		"path":       path,
		"status":     resp.StatusCode,
		"duration":   time.Since(start),
		"request_id": requestID,
	}).Debug("migration service call")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(msg)),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrapf(err, "failed to decode %s response", path)
	}
	return nil
}

// isRetryable reports whether err is worth another attempt: network
// failures and 5xx/429 responses.
func isRetryable(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode >= 500 || se.StatusCode == http.StatusTooManyRequests
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return true
	}
	return false
}

var _ secondary.MigrationClient = (*Client)(nil)
