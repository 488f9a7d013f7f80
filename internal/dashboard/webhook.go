package dashboard

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/oicur0t/hal/pkg/models"
	"go.uber.org/zap"
)

// Webhook posts updates as JSON to an HTTP endpoint, optionally over mTLS
type Webhook struct {
	url        string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewWebhook creates a webhook publisher. tlsConfig may be nil.
func NewWebhook(url string, tlsConfig *tls.Config, timeout time.Duration, logger *zap.Logger) *Webhook {
	httpClient := &http.Client{
		Transport: &http.Transport{
			TLSClientConfig:     tlsConfig,
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 2,
			IdleConnTimeout:     90 * time.Second,
		},
		Timeout: timeout,
	}

	return &Webhook{
		url:        url,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Publish sends one update. Every non-2xx status is an error so the
// dispatcher keeps the update until the endpoint takes it.
func (w *Webhook) Publish(ctx context.Context, u models.Update) error {
	jsonData, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("failed to marshal update: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return fmt.Errorf("server error: %d", resp.StatusCode)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		w.logger.Error("Webhook refused update",
			zap.Int("status_code", resp.StatusCode),
			zap.String("parameter", u.Parameter),
			zap.String("body", strings.TrimSpace(string(body))))
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	w.logger.Debug("Update sent",
		zap.Int("status_code", resp.StatusCode),
		zap.String("parameter", u.Parameter))
	return nil
}

// Close drops idle connections
func (w *Webhook) Close(ctx context.Context) error {
	w.httpClient.CloseIdleConnections()
	return nil
}
