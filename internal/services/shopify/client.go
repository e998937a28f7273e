package shopify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"partsync/internal/logger"
	"partsync/internal/services/apierr"
)

type Client struct {
	shopDomain  string
	accessToken string
	httpClient  *http.Client
	logger      *logger.Logger
}

func NewClient(shopDomain, accessToken string, logger *logger.Logger) *Client {
	return &Client{
		shopDomain:  shopDomain,
		accessToken: accessToken,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

// GetProduct fetches a single product by ID
func (c *Client) GetProduct(productID int64) (*Product, error) {
	var resp struct {
		Product Product `json:"product"`
	}
	err := apierr.Do(func() error {
		return c.do("GET", fmt.Sprintf("products/%d.json", productID), nil, &resp)
	}, nil)
	if err != nil {
		return nil, err
	}
	return &resp.Product, nil
}

// CreateProduct creates a product in Shopify and returns the canonical
// payload the platform stored.
func (c *Client) CreateProduct(product *Product) (*Product, error) {
	payload := struct {
		Product Product `json:"product"`
	}{Product: *product}

	var resp struct {
		Product Product `json:"product"`
	}
	err := apierr.Do(func() error {
		return c.do("POST", "products.json", payload, &resp)
	}, nil)
	if err != nil {
		return nil, err
	}
	return &resp.Product, nil
}

// UpdateProduct updates a product in Shopify and returns the canonical
// payload.
func (c *Client) UpdateProduct(product *Product) (*Product, error) {
	payload := struct {
		Product Product `json:"product"`
	}{Product: *product}

	var resp struct {
		Product Product `json:"product"`
	}
	err := apierr.Do(func() error {
		return c.do("PUT", fmt.Sprintf("products/%d.json", product.ID), payload, &resp)
	}, nil)
	if err != nil {
		return nil, err
	}
	return &resp.Product, nil
}

// DeleteProduct deletes a product in Shopify
func (c *Client) DeleteProduct(productID int64) error {
	return apierr.Do(func() error {
		return c.do("DELETE", fmt.Sprintf("products/%d.json", productID), nil, nil)
	}, nil)
}

// GetMetafields fetches the metafields of a product
func (c *Client) GetMetafields(productID int64) ([]Metafield, error) {
	var resp struct {
		Metafields []Metafield `json:"metafields"`
	}
	err := apierr.Do(func() error {
		return c.do("GET", fmt.Sprintf("products/%d/metafields.json", productID), nil, &resp)
	}, nil)
	if err != nil {
		return nil, err
	}
	return resp.Metafields, nil
}

// CreateMetafield creates a metafield on a product
func (c *Client) CreateMetafield(productID int64, metafield *Metafield) (*Metafield, error) {
	payload := struct {
		Metafield Metafield `json:"metafield"`
	}{Metafield: *metafield}

	var resp struct {
		Metafield Metafield `json:"metafield"`
	}
	err := apierr.Do(func() error {
		return c.do("POST", fmt.Sprintf("products/%d/metafields.json", productID), payload, &resp)
	}, nil)
	if err != nil {
		return nil, err
	}
	return &resp.Metafield, nil
}

// GetSmartCollection fetches a smart collection by ID
func (c *Client) GetSmartCollection(collectionID int64) (*SmartCollection, error) {
	var resp struct {
		SmartCollection SmartCollection `json:"smart_collection"`
	}
	err := apierr.Do(func() error {
		return c.do("GET", fmt.Sprintf("smart_collections/%d.json", collectionID), nil, &resp)
	}, nil)
	if err != nil {
		return nil, err
	}
	return &resp.SmartCollection, nil
}

// CreateSmartCollection creates a smart collection
func (c *Client) CreateSmartCollection(collection *SmartCollection) (*SmartCollection, error) {
	payload := struct {
		SmartCollection SmartCollection `json:"smart_collection"`
	}{SmartCollection: *collection}

	var resp struct {
		SmartCollection SmartCollection `json:"smart_collection"`
	}
	err := apierr.Do(func() error {
		return c.do("POST", "smart_collections.json", payload, &resp)
	}, nil)
	if err != nil {
		return nil, err
	}
	return &resp.SmartCollection, nil
}

// UpdateSmartCollection updates a smart collection
func (c *Client) UpdateSmartCollection(collection *SmartCollection) (*SmartCollection, error) {
	payload := struct {
		SmartCollection SmartCollection `json:"smart_collection"`
	}{SmartCollection: *collection}

	var resp struct {
		SmartCollection SmartCollection `json:"smart_collection"`
	}
	err := apierr.Do(func() error {
		return c.do("PUT", fmt.Sprintf("smart_collections/%d.json", collection.ID), payload, &resp)
	}, nil)
	if err != nil {
		return nil, err
	}
	return &resp.SmartCollection, nil
}

func (c *Client) do(method, path string, payload, out interface{}) error {
	url := fmt.Sprintf("https://%s.myshopify.com/admin/api/2023-10/%s", c.shopDomain, path)

	var body io.Reader
	if payload != nil {
		jsonData, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal payload: %w", err)
		}
		body = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequest(method, url, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("X-Shopify-Access-Token", c.accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		c.logger.Debug("Waiting on Shopify API (rate exceeded)")
		return apierr.ErrRateLimit
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(resp.Body)

		var errResp struct {
			Errors json.RawMessage `json:"errors"`
		}
		if json.Unmarshal(respBody, &errResp) == nil && len(errResp.Errors) > 0 {
			return &apierr.APIError{System: "shopify", Message: string(errResp.Errors)}
		}
		return &apierr.APIError{System: "shopify", Message: fmt.Sprintf("%d - %s", resp.StatusCode, string(respBody))}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
