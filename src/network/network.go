package network

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"market-flipper/src/helpers"
	"market-flipper/src/logger"
	"market-flipper/src/models"
)

// DefaultUserAgent identifies the client to the price API, which rejects
// generic agents.
const DefaultUserAgent = "market-flipper/1.0 (GE price analytics; contact via repository issues)"

// -----------------------------------------------------------------------------

// statusError is returned for non-200 responses.
type statusError struct {
	Status int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("bad status: %d", e.Status)
}

// -----------------------------------------------------------------------------

type AsyncNetworkManager struct {
	Config    *models.MConfig
	Client    *http.Client
	Logger    *logger.Logger
	UserAgent string
	BaseDelay time.Duration
}

// -----------------------------------------------------------------------------

func NewAsyncNetworkManager(cfg *models.MConfig, log *logger.Logger) *AsyncNetworkManager {
	ua := cfg.Network.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}

	timeout := cfg.Network.RequestTimeout
	if timeout <= 0 {
		timeout = 30
	}

	return &AsyncNetworkManager{
		Config:    cfg,
		Client:    &http.Client{Timeout: time.Duration(timeout) * time.Second},
		Logger:    log,
		UserAgent: ua,
		BaseDelay: time.Second,
	}
}

// -----------------------------------------------------------------------------

// Get performs a GET request with retries and exponential backoff.
func (nm *AsyncNetworkManager) Get(ctx context.Context, urlStr string, params map[string]string) ([]byte, error) {
	reqURL, err := url.Parse(urlStr)
	if err != nil {
		return nil, err
	}

	q := reqURL.Query()
	for k, v := range params {
		q.Add(k, v)
	}
	reqURL.RawQuery = q.Encode()
	finalURL := reqURL.String()

	body, err := helpers.RetryWithBackoff(nm.Logger, "GET "+finalURL, nm.Config.Network.MaxRetries+1, nm.BaseDelay, func() ([]byte, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nm.fetch(ctx, finalURL)
	})
	if err != nil {
		return nil, helpers.NewNetworkError(fmt.Sprintf("GET %s failed", finalURL), err)
	}
	return body, nil
}

// -----------------------------------------------------------------------------

func (nm *AsyncNetworkManager) fetch(ctx context.Context, finalURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, finalURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", nm.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := nm.Client.Do(req)
	if err != nil {
		nm.Logger.Info("Request failed: %v", err)
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusForbidden {
			nm.Logger.Warning("Request blocked (%d) for %s", resp.StatusCode, finalURL)
		}
		return nil, &statusError{Status: resp.StatusCode}
	}

	return io.ReadAll(resp.Body)
}
