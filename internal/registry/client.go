// Package registry is the client for the plugin registry service, which maps
// pull requests to announcement message ids and plugin versions to pull requests.
package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/fyrsmithlabs/pluginbuild/internal/config"
	"github.com/fyrsmithlabs/pluginbuild/internal/logging"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// DefaultBaseURL is the production registry service.
const DefaultBaseURL = "https://kamori.goats.dev"

// maxBodyBytes caps how much of a response is read.
const maxBodyBytes = 1 << 20

// ErrStatus is matched by every non-2xx response error.
var ErrStatus = errors.New("unexpected status")

// StatusError is returned when the registry answers with a non-2xx status.
type StatusError struct {
	Op         string
	StatusCode int
	Body       string
}

// Error implements the error interface
func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: %s %d", e.Op, ErrStatus, e.StatusCode)
	}
	return fmt.Sprintf("%s: %s %d: %s", e.Op, ErrStatus, e.StatusCode, e.Body)
}

// Unwrap allows errors.Is(err, ErrStatus).
func (e *StatusError) Unwrap() error {
	return ErrStatus
}

// Options configures the client.
type Options struct {
	BaseURL           string
	Key               config.Secret // Required by the Register* calls
	RequestsPerSecond float64
	Timeout           time.Duration
	HTTPClient        *http.Client
}

// Client talks to the registry service.
type Client struct {
	baseURL string
	key     config.Secret
	client  *http.Client
	limiter *rate.Limiter
	logger  *logging.Logger
}

// NewClient creates a registry client.
func NewClient(opts Options, logger *logging.Logger) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = 5
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: opts.Timeout}
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	c := &Client{
		baseURL: strings.TrimSuffix(opts.BaseURL, "/"),
		key:     opts.Key,
		client:  opts.HTTPClient,
		limiter: rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1),
		logger:  logger.Named("registry"),
	}
	c.logger.Debug(context.Background(), "registry client configured",
		zap.String("base_url", c.baseURL),
		logging.Secret("key", opts.Key),
	)
	return c
}

// RegisterMessageID records an announcement message id posted for a pull request.
func (c *Client) RegisterMessageID(ctx context.Context, prNumber int, messageID uint64) error {
	q := url.Values{}
	q.Set("key", c.key.Value())
	q.Set("prNumber", strconv.Itoa(prNumber))
	q.Set("messageId", strconv.FormatUint(messageID, 10))

	_, err := c.do(ctx, "register message id", http.MethodPost, "/Plogon/RegisterMessageId", q)
	return err
}

// GetMessageIDs returns the message ids registered for a pull request.
func (c *Client) GetMessageIDs(ctx context.Context, prNumber int) ([]string, error) {
	q := url.Values{}
	q.Set("prNumber", strconv.Itoa(prNumber))

	body, err := c.do(ctx, "get message ids", http.MethodGet, "/Plogon/GetMessageIds", q)
	if err != nil {
		return nil, err
	}

	var ids []string
	if err := json.Unmarshal(body, &ids); err != nil {
		return nil, fmt.Errorf("get message ids: failed to decode response: %w", err)
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}

// RegisterPRNumber records which pull request produced a plugin version.
func (c *Client) RegisterPRNumber(ctx context.Context, internalName, version string, prNumber int) error {
	q := url.Values{}
	q.Set("key", c.key.Value())
	q.Set("prNumber", strconv.Itoa(prNumber))
	q.Set("internalName", internalName)
	q.Set("version", version)

	body, err := c.do(ctx, "register pr number", http.MethodPost, "/Plogon/RegisterVersionPrNumber", q)
	if err != nil {
		return err
	}
	c.logger.Info(ctx, "registered pr number",
		zap.String("internal_name", internalName),
		zap.String("version", version),
		zap.Int("pr", prNumber),
		zap.String("response", string(body)),
	)
	return nil
}

// GetPRNumber returns the pull request that produced a plugin version.
// ok is false when the registry does not know the version.
func (c *Client) GetPRNumber(ctx context.Context, internalName, version string) (pr string, ok bool, err error) {
	q := url.Values{}
	q.Set("internalName", internalName)
	q.Set("version", version)

	body, err := c.do(ctx, "get pr number", http.MethodGet, "/Plogon/GetVersionChangelog", q)
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) && se.StatusCode == http.StatusNotFound {
			return "", false, nil
		}
		return "", false, err
	}

	c.logger.Info(ctx, "pr number", zap.String("internal_name", internalName), zap.String("text", string(body)))
	return string(body), true, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, q url.Values) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	u := c.baseURL + path + "?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, method, u, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create request: %w", op, err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		// url.Error carries the full URL, including the key.
		var ue *url.Error
		if errors.As(err, &ue) {
			err = ue.Err
		}
		return nil, fmt.Errorf("%s: request failed: %w", op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read response: %w", op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Op: op, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	return body, nil
}
