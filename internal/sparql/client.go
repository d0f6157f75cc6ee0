// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package sparql is a small SPARQL 1.1 protocol client. Queries are POSTed
// as application/sparql-query with optional HTTP Basic credentials, and
// transport failures are retried a bounded number of times with a fixed
// delay between attempts.
package sparql

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/sethvargo/go-retry"
)

// Defaults used when Options leaves a field zero.
const (
	DefaultTimeout    = 60 * time.Second
	DefaultMaxRetries = 2
	DefaultRetrySleep = 10 * time.Second
)

// Accept headers for CONSTRUCT/DESCRIBE responses.
const (
	AcceptJSON     = "application/sparql-results+json, application/json;q=0.9"
	AcceptRDFXML   = "application/rdf+xml"
	AcceptTurtle   = "text/turtle, application/turtle;q=0.9"
	AcceptNTriples = "application/n-triples"
)

// Credentials are applied as HTTP Basic auth when both fields are set.
type Credentials struct {
	Username string
	Password string
}

func (c Credentials) usable() bool {
	return c.Username != "" && c.Password != ""
}

// Options configures a Client.
type Options struct {
	Timeout    time.Duration // per attempt
	MaxRetries int           // retries after the first attempt; negative means none
	RetrySleep time.Duration // fixed delay between attempts
	HTTPClient *http.Client  // optional; Timeout is ignored when set
}

// Client runs SPARQL queries. It holds no per-query state and is safe for
// concurrent use.
type Client struct {
	http       *http.Client
	maxRetries int
	retrySleep time.Duration
}

// NewClient creates a client, filling unset options with defaults.
func NewClient(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.RetrySleep <= 0 {
		// go-retry rejects a zero constant backoff.
		opts.RetrySleep = time.Millisecond
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: opts.Timeout}
	}
	return &Client{http: hc, maxRetries: opts.MaxRetries, retrySleep: opts.RetrySleep}
}

// Query runs a SELECT query and returns its solutions in endpoint order.
func (c *Client) Query(ctx context.Context, endpoint, query string, creds Credentials) ([]Row, error) {
	body, err := c.do(ctx, endpoint, query, AcceptJSON, creds)
	if err != nil {
		return nil, err
	}
	rows, err := decodeResults(body)
	if err != nil {
		slog.Debug("sparql result not decodable", "endpoint", endpoint, "error", err)
		return nil, err
	}
	return rows, nil
}

// Construct runs a CONSTRUCT or DESCRIBE query and returns the raw RDF
// document in the requested serialization.
func (c *Client) Construct(ctx context.Context, endpoint, query, accept string, creds Credentials) ([]byte, error) {
	if accept == "" {
		accept = AcceptTurtle
	}
	return c.do(ctx, endpoint, query, accept, creds)
}

// do POSTs the query, retrying transport errors and non-200 responses.
func (c *Client) do(ctx context.Context, endpoint, query, accept string, creds Credentials) ([]byte, error) {
	var (
		attempts int
		lastErr  error
		body     []byte
	)

	backoff := retry.WithMaxRetries(uint64(c.maxRetries), retry.NewConstant(c.retrySleep))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempts++
		b, err := c.post(ctx, endpoint, query, accept, creds)
		if err != nil {
			lastErr = err
			slog.Warn("sparql query failed",
				"endpoint", endpoint,
				"attempt", attempts,
				"error", err,
			)
			return retry.RetryableError(err)
		}
		body = b
		return nil
	})
	if err == nil {
		return body, nil
	}

	if lastErr == nil {
		lastErr = err
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		lastErr = fmt.Errorf("%w (last error: %v)", ctxErr, lastErr)
	}
	return nil, &QueryFailure{
		Endpoint: endpoint,
		Query:    truncate(query, maxQueryInError),
		Attempts: attempts,
		Err:      lastErr,
	}
}

// post performs a single HTTP exchange.
func (c *Client) post(ctx context.Context, endpoint, query, accept string, creds Credentials) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader([]byte(query)))
	if err != nil {
		return nil, fmt.Errorf("sparql request: %w", err)
	}
	req.Header.Set("Content-Type", "application/sparql-query")
	req.Header.Set("Accept", accept)
	if creds.usable() {
		req.SetBasicAuth(creds.Username, creds.Password)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sparql http: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("sparql read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: truncate(string(body), 200)}
	}
	return body, nil
}
