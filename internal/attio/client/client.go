// Package client implements the Attio-compatible REST client used by the
// reconciliation run.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	attiodomain "github.com/paylinelabs/payline/internal/attio/domain"
	"github.com/paylinelabs/payline/internal/config"
	"go.uber.org/zap"
)

const (
	pageSize = 200
	// maxPages caps a runaway workspace at 20k records per entity.
	maxPages = 100
)

type Client struct {
	cfg  config.AttioConfig
	http *http.Client
	log  *zap.Logger
}

func New(cfg config.Config, log *zap.Logger) attiodomain.Client {
	return &Client{
		cfg: cfg.Attio,
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: log.Named("attio.client"),
	}
}

func (c *Client) ListWorkspaceMembers(ctx context.Context) ([]map[string]any, error) {
	if c.cfg.APIKey == "" {
		return nil, attiodomain.ErrMissingAPIKey
	}

	status, body, err := c.do(ctx, http.MethodGet, c.cfg.BaseURL+c.cfg.WorkspaceMembersPath, nil)
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, fmt.Errorf("attio members request failed: status %d: %s", status, truncate(body))
	}
	return decodeRecords(body)
}

// QueryDeals pages through the deal query endpoint. When a filtered query is
// rejected with 400 or 422 the whole pagination restarts once without the
// filter; any further non-2xx aborts the sync.
func (c *Client) QueryDeals(ctx context.Context) ([]map[string]any, error) {
	if c.cfg.APIKey == "" {
		return nil, attiodomain.ErrMissingAPIKey
	}

	filter := c.wonFilter()
	records, retriable, err := c.queryDealPages(ctx, filter)
	if err != nil && retriable && filter != nil {
		c.log.Warn("filtered deal query rejected, retrying unfiltered", zap.Error(err))
		records, _, err = c.queryDealPages(ctx, nil)
	}
	return records, err
}

func (c *Client) queryDealPages(ctx context.Context, filter map[string]any) ([]map[string]any, bool, error) {
	var all []map[string]any
	for page := 0; page < maxPages; page++ {
		payload := map[string]any{
			"limit":  pageSize,
			"offset": page * pageSize,
		}
		if filter != nil {
			payload["filter"] = filter
		}
		if len(c.cfg.DealsQueryInclude) > 0 {
			payload["include"] = c.cfg.DealsQueryInclude
		}

		status, body, err := c.do(ctx, http.MethodPost, c.cfg.BaseURL+c.cfg.DealsPath, payload)
		if err != nil {
			return nil, false, err
		}
		if status == http.StatusBadRequest || status == http.StatusUnprocessableEntity {
			return nil, true, fmt.Errorf("attio deal query rejected: status %d: %s", status, truncate(body))
		}
		if status < 200 || status >= 300 {
			return nil, false, fmt.Errorf("attio deal query failed: status %d: %s", status, truncate(body))
		}

		batch, err := decodeRecords(body)
		if err != nil {
			return nil, false, err
		}
		all = append(all, batch...)
		if len(batch) < pageSize {
			break
		}
	}
	return all, false, nil
}

// wonFilter narrows the query to won deals when a forecast option id is
// configured; without one the status filtering happens after parsing.
func (c *Client) wonFilter() map[string]any {
	if !c.cfg.OnlyWon || c.cfg.WonForecastOptionID == "" {
		return nil
	}
	return map[string]any{
		"deal_forecast": map[string]any{
			"option": c.cfg.WonForecastOptionID,
		},
	}
}

func (c *Client) do(ctx context.Context, method, url string, payload any) (int, []byte, error) {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, err
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, raw, nil
}

func decodeRecords(body []byte) ([]map[string]any, error) {
	var envelope struct {
		Data []map[string]any `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decode attio response: %w", err)
	}
	return envelope.Data, nil
}

func truncate(body []byte) string {
	const max = 512
	if len(body) > max {
		return string(body[:max]) + "..."
	}
	return string(body)
}
