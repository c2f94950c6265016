// Package adapter contains clients for external data providers.
package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/nft-inventory/internal/apperr"
	"github.com/nft-inventory/internal/cardano"
	"github.com/nft-inventory/internal/types"
)

// BlockfrostClient queries the Blockfrost ledger indexer for address holdings
// and per-unit metadata. It performs no retries: a failed call surfaces
// immediately and retrying is the caller's decision.
type BlockfrostClient struct {
	baseURL   string
	projectID string
	client    *http.Client
}

// NewBlockfrostClient creates a client for the given deployment credential.
// An empty project id is a configuration error; the service refuses to start
// without it rather than failing on the first sync.
func NewBlockfrostClient(baseURL, projectID string, timeout time.Duration) (*BlockfrostClient, error) {
	if projectID == "" {
		return nil, apperr.Configuration("BLOCKFROST_PROJECT_ID")
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &BlockfrostClient{
		baseURL:   baseURL,
		projectID: projectID,
		client:    &http.Client{Timeout: timeout},
	}, nil
}

// addressResponse mirrors GET /addresses/{address}.
type addressResponse struct {
	Address string           `json:"address"`
	Amount  []types.HeldUnit `json:"amount"`
}

// assetResponse mirrors GET /assets/{unit}.
type assetResponse struct {
	Asset           types.AssetUnit        `json:"asset"`
	PolicyID        types.PolicyID         `json:"policy_id"`
	AssetName       string                 `json:"asset_name"`
	Quantity        string                 `json:"quantity"`
	OnchainMetadata *cardano.AssetMetadata `json:"onchain_metadata"`
}

// ListHeldUnits returns everything the address currently holds. A 404 from
// the indexer means the address has never appeared on chain and is treated
// as an empty holding set, not a failure.
func (c *BlockfrostClient) ListHeldUnits(ctx context.Context, address string) ([]types.HeldUnit, error) {
	endpoint := fmt.Sprintf("%s/addresses/%s", c.baseURL, url.PathEscape(address))

	body, status, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, apperr.UpstreamUnavailable("address listing", err)
	}
	if status == http.StatusNotFound {
		return nil, nil
	}
	if status != http.StatusOK {
		return nil, apperr.UpstreamUnavailable("address listing",
			fmt.Errorf("indexer returned status %d", status))
	}

	var resp addressResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, apperr.UpstreamUnavailable("address listing", err)
	}

	return resp.Amount, nil
}

// FetchMetadata returns the on-chain metadata for one unit. A unit without
// recorded metadata yields an empty blob rather than an error.
func (c *BlockfrostClient) FetchMetadata(ctx context.Context, unit types.AssetUnit) (cardano.AssetMetadata, error) {
	endpoint := fmt.Sprintf("%s/assets/%s", c.baseURL, url.PathEscape(string(unit)))

	body, status, err := c.get(ctx, endpoint)
	if err != nil {
		return cardano.AssetMetadata{}, apperr.UpstreamUnavailable("metadata fetch", err)
	}
	if status != http.StatusOK {
		return cardano.AssetMetadata{}, apperr.UpstreamUnavailable("metadata fetch",
			fmt.Errorf("indexer returned status %d for unit %s", status, unit))
	}

	var resp assetResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return cardano.AssetMetadata{}, apperr.UpstreamUnavailable("metadata fetch", err)
	}

	if resp.OnchainMetadata == nil {
		return cardano.AssetMetadata{}, nil
	}
	return *resp.OnchainMetadata, nil
}

func (c *BlockfrostClient) get(ctx context.Context, endpoint string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("project_id", c.projectID)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}

	return body, resp.StatusCode, nil
}
