package tui

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dealsuite/modtrack/internal/models"
)

// DefaultClientTimeout is the default timeout for API requests.
const DefaultClientTimeout = 10 * time.Second

// Client wraps HTTP calls to the Modtrack API. It satisfies
// tracking.ModuleReplacer so an edit session can commit through it.
type Client struct {
	baseURL    string
	role       models.Role
	httpClient *http.Client
}

// NewClient creates a new API client acting as the given role.
func NewClient(baseURL string, role models.Role) *Client {
	return &Client{
		baseURL: baseURL,
		role:    role,
		httpClient: &http.Client{
			Timeout: DefaultClientTimeout,
		},
	}
}

// GetDeal fetches a deal summary.
func (c *Client) GetDeal(dealID string) (*DealView, error) {
	resp, err := c.httpClient.Get(c.baseURL + "/deals/" + dealID)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API error: %s", string(body))
	}

	var deal struct {
		ID    string `json:"id"`
		Title string `json:"title"`
		Stage string `json:"stage"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&deal); err != nil {
		return nil, err
	}
	return &DealView{ID: deal.ID, Title: deal.Title, Stage: deal.Stage}, nil
}

// ResolveModules fetches the reconciled module list for a deal.
func (c *Client) ResolveModules(dealID string) (*ResolvedView, error) {
	resp, err := c.httpClient.Get(c.baseURL + "/deals/" + dealID + "/modules")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API error: %s", string(body))
	}

	var resolved struct {
		Modules      []models.ModuleInstance `json:"modules"`
		ProductName  string                  `json:"product_name"`
		NeedsProduct bool                    `json:"needs_product"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&resolved); err != nil {
		return nil, err
	}
	return &ResolvedView{
		Modules:      resolved.Modules,
		ProductName:  resolved.ProductName,
		NeedsProduct: resolved.NeedsProduct,
	}, nil
}

// ReplaceModules sends the full module list as a wholesale replacement.
// The payload is the clean wire form: name and the two statuses, nothing
// else.
func (c *Client) ReplaceModules(ctx context.Context, dealID string, modules []models.ModuleInstance) (*models.Deal, error) {
	body, err := json.Marshal(map[string]interface{}{"modules": modules})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut,
		c.baseURL+"/deals/"+dealID+"/modules", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Role", string(c.role))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API error (%d): %s", resp.StatusCode, string(respBody))
	}

	var deal models.Deal
	if err := json.NewDecoder(resp.Body).Decode(&deal); err != nil {
		return nil, err
	}
	return &deal, nil
}
