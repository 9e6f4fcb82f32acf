package resolver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/arivven/ddns-sync/internal/metrics"
)

// Resolver discovers the host's current public IP address.
// The result is re-derived on every call; nothing is cached between ticks.
type Resolver interface {
	Resolve(ctx context.Context) (string, error)
}

type Httper interface {
	Do(req *http.Request) (*http.Response, error)
}

type webResolver struct {
	serviceURL string
	http       Httper
	metrics    *metrics.Metrics
}

func NewWeb(serviceURL string, metrics *metrics.Metrics) Resolver {
	return &webResolver{
		serviceURL: serviceURL,
		http:       &http.Client{Timeout: 15 * time.Second},
		metrics:    metrics,
	}
}

type ipResponse struct {
	IP string `json:"ip"`
}

// Resolve calls the configured ip-echo service and returns the reported
// address. The string is not checked for being a well-formed IP; the provider's
// stored content is compared against it verbatim.
func (r *webResolver) Resolve(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.serviceURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := r.http.Do(req)
	if err != nil {
		r.metrics.IncResolverRequest(false)
		return "", fmt.Errorf("ip lookup request, err=%w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		r.metrics.IncResolverRequest(false)
		return "", fmt.Errorf("ip lookup request, status=%d", resp.StatusCode)
	}

	var echo ipResponse
	if err := json.NewDecoder(resp.Body).Decode(&echo); err != nil {
		r.metrics.IncResolverRequest(false)
		return "", fmt.Errorf("parse ip lookup response, err=%w", err)
	}
	if echo.IP == "" {
		r.metrics.IncResolverRequest(false)
		return "", errors.New("ip lookup response missing ip field")
	}

	r.metrics.IncResolverRequest(true)
	slog.Debug("Resolved public IP", "ip", echo.IP, "service", r.serviceURL)
	return echo.IP, nil
}
