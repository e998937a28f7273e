package premier

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"partsync/internal/logger"
	"partsync/internal/services/apierr"
)

type Client struct {
	baseURL    string
	apiKey     string
	token      string
	httpClient *http.Client
	logger     *logger.Logger
}

func NewClient(baseURL, apiKey string, logger *logger.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

// InventoryRecord is one part's per-warehouse availability.
type InventoryRecord struct {
	ItemNumber  string               `json:"itemNumber"`
	Inventories []WarehouseInventory `json:"inventory"`
}

type WarehouseInventory struct {
	WarehouseCode     string `json:"warehouseCode"`
	QuantityAvailable int    `json:"quantityAvailable"`
}

// PricingRecord is one part's per-currency price points.
type PricingRecord struct {
	ItemNumber string          `json:"itemNumber"`
	Pricing    []CurrencyPrice `json:"pricing"`
}

type CurrencyPrice struct {
	Currency string  `json:"currency"`
	Cost     float64 `json:"cost"`
	Jobber   float64 `json:"jobber"`
	MSRP     float64 `json:"retail"`
	MAP      float64 `json:"mapPrice"`
}

// RefreshToken exchanges the api key for a fresh session token.
func (c *Client) RefreshToken() error {
	url := fmt.Sprintf("%s/authenticate?apiKey=%s", c.baseURL, c.apiKey)

	resp, err := c.httpClient.Get(url)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return &apierr.APIError{System: "premier", Message: fmt.Sprintf("%d - %s", resp.StatusCode, string(body))}
	}

	var tokenResp struct {
		SessionToken string `json:"sessionToken"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	c.token = tokenResp.SessionToken
	return nil
}

// GetInventory fetches availability for the given part numbers. Callers
// chunk the list; a single call joins the numbers into one query parameter.
func (c *Client) GetInventory(partNumbers []string) ([]InventoryRecord, error) {
	var records []InventoryRecord
	err := apierr.Do(func() error {
		return c.getJSON("inventory", partNumbers, &records)
	}, c.RefreshToken)
	if err != nil {
		return nil, err
	}
	return records, nil
}

// GetPricing fetches price points for the given part numbers.
func (c *Client) GetPricing(partNumbers []string) ([]PricingRecord, error) {
	var records []PricingRecord
	err := apierr.Do(func() error {
		return c.getJSON("pricing", partNumbers, &records)
	}, c.RefreshToken)
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (c *Client) getJSON(path string, partNumbers []string, out interface{}) error {
	if c.token == "" {
		if err := c.RefreshToken(); err != nil {
			return err
		}
	}

	url := fmt.Sprintf("%s/%s", c.baseURL, path)
	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	q := req.URL.Query()
	q.Set("itemNumbers", strings.Join(partNumbers, ","))
	req.URL.RawQuery = q.Encode()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return apierr.ErrInvalidToken
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return &apierr.APIError{System: "premier", Message: fmt.Sprintf("%d - %s", resp.StatusCode, string(body))}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
