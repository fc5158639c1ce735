// Package metadata retrieves instance metadata from the Vultr metadata API.
package metadata

import (
	"context"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-logr/logr"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/tinkerbell/vultrds/internal/build"
	"github.com/tinkerbell/vultrds/internal/dserror"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	// TokenHeader is sent with every request. The API rejects requests without it.
	TokenHeader = "Metadata-Token"
	tokenValue  = "vultr"
)

// Config configures the metadata API requests.
type Config struct {
	// URL is the API base URL.
	URL string `mapstructure:"url"`

	// Timeout bounds each individual request.
	Timeout time.Duration `mapstructure:"timeout"`

	// Retries is the number of additional attempts made after a failed request.
	Retries int `mapstructure:"retries"`

	// Wait is the fixed delay between attempts.
	Wait time.Duration `mapstructure:"wait"`
}

// DefaultConfig returns the settings used when booting on Vultr.
func DefaultConfig() Config {
	return Config{
		URL:     "http://169.254.169.254",
		Timeout: 2 * time.Second,
		Retries: 30,
		Wait:    2 * time.Second,
	}
}

// Client fetches metadata. A Client memoizes the first complete Bundle it assembles and serves it
// to every later caller without network I/O.
type Client struct {
	log     logr.Logger
	cfg     Config
	http    *http.Client
	metrics *collectors

	mu     sync.Mutex
	bundle atomic.Pointer[Bundle]
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client used for requests.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.http = c
	}
}

// WithRegisterer registers the client's request metrics with r.
func WithRegisterer(r prometheus.Registerer) Option {
	return func(cl *Client) {
		cl.metrics.register(r)
	}
}

// NewClient creates a Client for cfg.
func NewClient(logger logr.Logger, cfg Config, opts ...Option) *Client {
	c := &Client{
		log:     logger,
		cfg:     cfg,
		http:    &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
		metrics: newCollectors(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Get returns the memoized Bundle, assembling it on first use. Fields are fetched sequentially;
// any failure aborts the cycle and nothing is cached, so a later call starts over.
func (c *Client) Get(ctx context.Context) (*Bundle, error) {
	if b := c.bundle.Load(); b != nil {
		return b, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if b := c.bundle.Load(); b != nil {
		return b, nil
	}

	b, err := c.assemble(ctx)
	if err != nil {
		return nil, err
	}

	c.bundle.Store(b)
	return b, nil
}

func (c *Client) assemble(ctx context.Context) (*Bundle, error) {
	values := make(map[Field]string, len(bundleFields))
	for _, f := range bundleFields {
		v, err := c.Fetch(ctx, f)
		if err != nil {
			return nil, err
		}
		values[f] = v
	}

	doc, err := ParseInstanceDocument([]byte(values[FieldV1]))
	if err != nil {
		return nil, dserror.Wrap(dserror.KindFetch, "decode v1.json", err)
	}

	c.log.Info("Fetched instance metadata", "instance_id", doc.InstanceID, "interfaces", len(doc.Interfaces))

	return &Bundle{
		StartupScript: values[FieldStartupScript],
		Hostname:      values[FieldHostname],
		UserData:      values[FieldUserData],
		MDiskMode:     values[FieldMDiskMode],
		RootPassword:  values[FieldRootPassword],
		SSHKeys:       values[FieldSSHKeys],
		IPv6DNS1:      values[FieldIPv6DNS1],
		IPv6Addr:      values[FieldIPv6Addr],
		Instance:      doc,
	}, nil
}

// Fetch retrieves a single field. Unknown fields fail before any request is made.
func (c *Client) Fetch(ctx context.Context, field Field) (string, error) {
	url, err := Endpoint(c.cfg.URL, field)
	if err != nil {
		return "", err
	}

	op := "fetch " + string(field)

	var (
		body    string
		attempt int
	)
	read := func() error {
		attempt++
		start := time.Now()

		b, err := c.read(ctx, op, url)
		c.metrics.observe(field, err, time.Since(start))
		if err != nil {
			c.log.V(1).Info("Metadata request failed", "field", field, "attempt", attempt, "err", err)
			return err
		}

		body = b
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(c.cfg.Wait), uint64(max(c.cfg.Retries, 0))),
		ctx,
	)

	if err := backoff.Retry(read, policy); err != nil {
		if dserror.KindOf(err) == dserror.KindUnknown {
			err = dserror.Wrap(dserror.KindFetch, op, err)
		}
		return "", errors.Wrapf(err, "after %d attempts", attempt)
	}

	return body, nil
}

func (c *Client) read(ctx context.Context, op, url string) (string, error) {
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", backoff.Permanent(dserror.Wrap(dserror.KindConfiguration, op, err))
	}
	req.Header.Set(TokenHeader, tokenValue)
	req.Header.Set("User-Agent", build.UserAgent())

	resp, err := c.http.Do(req)
	if err != nil {
		return "", dserror.Wrap(dserror.KindFetch, op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", dserror.HTTPStatus(op, resp.StatusCode)
	}

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", dserror.Wrap(dserror.KindFetch, op, err)
	}

	return string(b), nil
}
