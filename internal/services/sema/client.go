package sema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"partsync/internal/logger"
	"partsync/internal/services/apierr"
)

const invalidTokenSentinel = "Invalid token"

type Client struct {
	baseURL      string
	username     string
	password     string
	token        string
	contentToken string
	httpClient   *http.Client
	logger       *logger.Logger
}

func NewClient(baseURL, username, password string, logger *logger.Logger) *Client {
	return &Client{
		baseURL:  baseURL,
		username: username,
		password: password,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		logger: logger,
	}
}

type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// RefreshToken exchanges the credentials for a fresh session token.
func (c *Client) RefreshToken() error {
	params := url.Values{}
	params.Set("userName", c.username)
	params.Set("password", c.password)

	var resp struct {
		envelope
		Token string `json:"token"`
	}
	err := apierr.Do(func() error {
		return c.get("token/get", params, &resp)
	}, nil)
	if err != nil {
		return err
	}

	c.token = resp.Token
	return nil
}

// RefreshContentToken exchanges the session token for a content token used
// by the HTML endpoints.
func (c *Client) RefreshContentToken() error {
	if err := c.ensureToken(); err != nil {
		return err
	}

	params := url.Values{}
	params.Set("token", c.token)

	var resp struct {
		envelope
		ContentToken string `json:"contenttoken"`
	}
	err := apierr.Do(func() error {
		return c.get("token/getcontenttoken", params, &resp)
	}, c.RefreshToken)
	if err != nil {
		return err
	}

	c.contentToken = resp.ContentToken
	return nil
}

// GetBrandDatasets fetches the licensed brand/dataset pairs.
func (c *Client) GetBrandDatasets() ([]BrandDataset, error) {
	var resp struct {
		envelope
		BrandDatasets []BrandDataset `json:"BrandDatasets"`
	}
	err := c.doGet("export/branddatasets", url.Values{}, &resp)
	if err != nil {
		return nil, err
	}
	return resp.BrandDatasets, nil
}

// GetYears fetches the valid model years, optionally scoped to brands or
// datasets (at most one of the two).
func (c *Client) GetYears(brandIDs []string, datasetIDs []int) ([]int, error) {
	if err := oneOfBrandsDatasets(brandIDs, datasetIDs, false); err != nil {
		return nil, err
	}

	params := url.Values{}
	addBrandParams(params, brandIDs, datasetIDs)

	var resp struct {
		envelope
		Years []int `json:"Years"`
	}
	if err := c.doGet("lookup/years", params, &resp); err != nil {
		return nil, err
	}
	return resp.Years, nil
}

// GetMakes fetches makes, optionally scoped by year.
func (c *Client) GetMakes(brandIDs []string, datasetIDs []int, year int) ([]Make, error) {
	if err := oneOfBrandsDatasets(brandIDs, datasetIDs, false); err != nil {
		return nil, err
	}

	params := url.Values{}
	addBrandParams(params, brandIDs, datasetIDs)
	if year != 0 {
		params.Set("year", strconv.Itoa(year))
	}

	var resp struct {
		envelope
		Makes []Make `json:"Makes"`
	}
	if err := c.doGet("lookup/makes", params, &resp); err != nil {
		return nil, err
	}
	return resp.Makes, nil
}

// GetModels fetches models, optionally scoped by year and make.
func (c *Client) GetModels(brandIDs []string, datasetIDs []int, year, makeID int) ([]Model, error) {
	if err := oneOfBrandsDatasets(brandIDs, datasetIDs, false); err != nil {
		return nil, err
	}

	params := url.Values{}
	addBrandParams(params, brandIDs, datasetIDs)
	if year != 0 {
		params.Set("year", strconv.Itoa(year))
	}
	if makeID != 0 {
		params.Set("makeid", strconv.Itoa(makeID))
	}

	var resp struct {
		envelope
		Models []Model `json:"Models"`
	}
	if err := c.doGet("lookup/models", params, &resp); err != nil {
		return nil, err
	}
	return resp.Models, nil
}

// GetSubmodels fetches submodels, optionally scoped by year, make and model.
func (c *Client) GetSubmodels(brandIDs []string, datasetIDs []int, year, makeID, modelID int) ([]Submodel, error) {
	if err := oneOfBrandsDatasets(brandIDs, datasetIDs, false); err != nil {
		return nil, err
	}

	params := url.Values{}
	addBrandParams(params, brandIDs, datasetIDs)
	if year != 0 {
		params.Set("year", strconv.Itoa(year))
	}
	if makeID != 0 {
		params.Set("makeid", strconv.Itoa(makeID))
	}
	if modelID != 0 {
		params.Set("modelid", strconv.Itoa(modelID))
	}

	var resp struct {
		envelope
		Submodels []Submodel `json:"Submodels"`
	}
	if err := c.doGet("lookup/submodels", params, &resp); err != nil {
		return nil, err
	}
	return resp.Submodels, nil
}

// GetEngines fetches engine configurations, optionally scoped by year, make
// and model.
func (c *Client) GetEngines(brandIDs []string, datasetIDs []int, year, makeID, modelID int) ([]Engine, error) {
	if err := oneOfBrandsDatasets(brandIDs, datasetIDs, false); err != nil {
		return nil, err
	}

	params := url.Values{}
	addBrandParams(params, brandIDs, datasetIDs)
	if year != 0 {
		params.Set("year", strconv.Itoa(year))
	}
	if makeID != 0 {
		params.Set("makeid", strconv.Itoa(makeID))
	}
	if modelID != 0 {
		params.Set("modelid", strconv.Itoa(modelID))
	}

	var resp struct {
		envelope
		Engines []Engine `json:"Engines"`
	}
	if err := c.doGet("lookup/engines", params, &resp); err != nil {
		return nil, err
	}
	return resp.Engines, nil
}

// GetCategories fetches the nested category tree for the filtered scope.
func (c *Client) GetCategories(f LookupFilter) ([]CategoryNode, error) {
	if err := f.validate(true); err != nil {
		return nil, err
	}

	body := map[string]interface{}{
		"aaia_brandids":   f.BrandIDs,
		"branddatasetids": f.DatasetIDs,
		"baseVehicleIds":  f.BaseVehicleIDs,
		"vehicleIds":      f.VehicleIDs,
	}
	f.addVehicleGroup(body)

	var resp struct {
		envelope
		Categories []CategoryNode `json:"Categories"`
	}
	if err := c.doPost("lookup/categories", body, &resp); err != nil {
		return nil, err
	}
	return resp.Categories, nil
}

// GetProducts fetches product records with their PIES attributes.
func (c *Client) GetProducts(f LookupFilter) ([]ProductRecord, error) {
	if err := f.validate(true); err != nil {
		return nil, err
	}

	body := map[string]interface{}{
		"aaia_brandids":   f.BrandIDs,
		"branddatasetids": f.DatasetIDs,
		"baseVehicleIds":  f.BaseVehicleIDs,
		"vehicleIds":      f.VehicleIDs,
		"partNumbers":     f.PartNumbers,
		"piesSegments":    f.PiesSegments,
	}
	f.addVehicleGroup(body)

	var resp struct {
		envelope
		Products []ProductRecord `json:"Products"`
	}
	if err := c.doPost("lookup/products", body, &resp); err != nil {
		return nil, err
	}
	return resp.Products, nil
}

// GetProductsByCategory fetches product records under one category,
// optionally including child category parts.
func (c *Client) GetProductsByCategory(categoryID int, includeChildren bool, f LookupFilter) ([]ProductRecord, error) {
	if err := f.validate(true); err != nil {
		return nil, err
	}

	body := map[string]interface{}{
		"CategoryId":      categoryID,
		"aaia_brandids":   f.BrandIDs,
		"branddatasetids": f.DatasetIDs,
		"baseVehicleIds":  f.BaseVehicleIDs,
		"vehicleIds":      f.VehicleIDs,
		"partNumbers":     f.PartNumbers,
		"piesSegments":    f.PiesSegments,
	}
	if includeChildren {
		body["includeChildCategoryParts"] = "true"
	}
	f.addVehicleGroup(body)

	var resp struct {
		envelope
		Products []ProductRecord `json:"Products"`
	}
	if err := c.doPost("lookup/productsbycategory", body, &resp); err != nil {
		return nil, err
	}
	return resp.Products, nil
}

// GetProductHTML fetches the raw HTML body for one product. The endpoint
// reports a bad content token with an in-body sentinel rather than an HTTP
// status.
func (c *Client) GetProductHTML(productID int) (string, error) {
	var html string
	err := apierr.Do(func() error {
		if c.contentToken == "" {
			if err := c.RefreshContentToken(); err != nil {
				return err
			}
		}

		endpoint := fmt.Sprintf("%s/content/product?contenttoken=%s&productid=%d&stripHeaderFooter=true",
			c.baseURL, url.QueryEscape(c.contentToken), productID)

		resp, err := c.httpClient.Get(endpoint)
		if err != nil {
			return fmt.Errorf("failed to make request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusConflict {
			return apierr.ErrRateLimit
		}
		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			return &apierr.APIError{System: "sema", Message: fmt.Sprintf("%d - %s", resp.StatusCode, string(body))}
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to read response: %w", err)
		}

		text := strings.TrimSpace(string(body))
		if strings.Contains(text, invalidTokenSentinel) {
			c.contentToken = ""
			return apierr.ErrInvalidContentToken
		}

		html = text
		return nil
	}, c.RefreshContentToken)
	if err != nil {
		return "", err
	}
	return html, nil
}

// GetVehiclesByProduct fetches fitment rows grouped per part number for one
// brand or one dataset.
func (c *Client) GetVehiclesByProduct(brandID string, datasetID int, partNumbers []string) ([]PartVehicles, error) {
	if brandID == "" && datasetID == 0 {
		return nil, errors.New("brand ID or dataset ID required")
	}
	if brandID != "" && datasetID != 0 {
		return nil, errors.New("only one of brand ID or dataset ID allowed")
	}

	body := map[string]interface{}{
		"partNumbers": partNumbers,
		"groupByPart": "true",
	}
	if brandID != "" {
		body["aaia_brandid"] = brandID
	}
	if datasetID != 0 {
		body["branddatasetid"] = datasetID
	}

	var resp struct {
		envelope
		Parts []PartVehicles `json:"Parts"`
	}
	if err := c.doPost("lookup/vehiclesbyproduct", body, &resp); err != nil {
		return nil, err
	}
	return resp.Parts, nil
}

// GetVehiclesByBrand fetches every fitment row covered by the given brands
// or datasets.
func (c *Client) GetVehiclesByBrand(brandIDs []string, datasetIDs []int) ([]BrandVehicle, error) {
	if err := oneOfBrandsDatasets(brandIDs, datasetIDs, true); err != nil {
		return nil, err
	}

	body := map[string]interface{}{
		"aaia_brandids":   brandIDs,
		"branddatasetids": datasetIDs,
	}

	var resp struct {
		envelope
		BrandVehicles []BrandVehicle `json:"BrandVehicles"`
	}
	if err := c.doPost("lookup/vehiclesbybrand", body, &resp); err != nil {
		return nil, err
	}
	return resp.BrandVehicles, nil
}

func (c *Client) ensureToken() error {
	if c.token == "" {
		return c.RefreshToken()
	}
	return nil
}

// doGet wraps a token-authenticated GET in the shared retry policy.
func (c *Client) doGet(path string, params url.Values, out interface{}) error {
	return apierr.Do(func() error {
		if err := c.ensureToken(); err != nil {
			return err
		}
		params.Set("token", c.token)
		return c.get(path, params, out)
	}, c.RefreshToken)
}

// doPost wraps a token-authenticated POST in the shared retry policy.
func (c *Client) doPost(path string, body map[string]interface{}, out interface{}) error {
	return apierr.Do(func() error {
		if err := c.ensureToken(); err != nil {
			return err
		}
		body["token"] = c.token

		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}

		req, err := http.NewRequest("POST", fmt.Sprintf("%s/%s", c.baseURL, path), bytes.NewBuffer(payload))
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		return c.send(req, out)
	}, c.RefreshToken)
}

func (c *Client) get(path string, params url.Values, out interface{}) error {
	req, err := http.NewRequest("GET", fmt.Sprintf("%s/%s", c.baseURL, path), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.URL.RawQuery = params.Encode()
	return c.send(req, out)
}

func (c *Client) send(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusConflict {
		c.logger.Debug("Waiting on SEMA API (rate exceeded)")
		return apierr.ErrRateLimit
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return &apierr.APIError{System: "sema", Message: fmt.Sprintf("%d - %s", resp.StatusCode, string(body))}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if !env.Success {
		if env.Message == "" {
			env.Message = "Bad request"
		}
		return &apierr.APIError{System: "sema", Message: env.Message}
	}
	if env.Message == invalidTokenSentinel {
		c.token = ""
		return apierr.ErrInvalidToken
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func oneOfBrandsDatasets(brandIDs []string, datasetIDs []int, required bool) error {
	if required && len(brandIDs) == 0 && len(datasetIDs) == 0 {
		return errors.New("brand IDs or dataset IDs required")
	}
	if len(brandIDs) > 0 && len(datasetIDs) > 0 {
		return errors.New("only one of brand IDs or dataset IDs allowed")
	}
	return nil
}

func addBrandParams(params url.Values, brandIDs []string, datasetIDs []int) {
	for _, id := range brandIDs {
		params.Add("aaia_brandids", id)
	}
	for _, id := range datasetIDs {
		params.Add("branddatasetids", strconv.Itoa(id))
	}
}

func (f LookupFilter) validate(brandsRequired bool) error {
	if err := oneOfBrandsDatasets(f.BrandIDs, f.DatasetIDs, brandsRequired); err != nil {
		return err
	}
	if len(f.BaseVehicleIDs) > 0 && len(f.VehicleIDs) > 0 {
		return errors.New("only one of base vehicle IDs or vehicle IDs allowed")
	}

	named := f.Year != 0 || f.MakeName != "" || f.ModelName != "" || f.SubmodelName != ""
	if named && !(f.Year != 0 && f.MakeName != "" && f.ModelName != "") {
		return errors.New("year, make name, model name, and submodel name must be used in a year/make/model group")
	}
	if (len(f.BaseVehicleIDs) > 0 || len(f.VehicleIDs) > 0) && named {
		return errors.New("only one of base vehicle IDs, vehicle IDs, or named year/make/model group allowed")
	}
	return nil
}

func (f LookupFilter) addVehicleGroup(body map[string]interface{}) {
	if f.Year != 0 {
		body["Year"] = f.Year
	}
	if f.MakeName != "" {
		body["MakeName"] = f.MakeName
	}
	if f.ModelName != "" {
		body["ModelName"] = f.ModelName
	}
	if f.SubmodelName != "" {
		body["SubmodelName"] = f.SubmodelName
	}
}
