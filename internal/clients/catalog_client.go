package clients

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"comandero_backend/internal/models"
)

var (
	// ErrUnexpectedStatus is returned when a collaborator responds with a
	// non-2xx status code.
	ErrUnexpectedStatus = errors.New("unexpected status from collaborator API")

	// ErrUnsuccessful is returned when a collaborator responds 200 but with
	// success=false in the envelope.
	ErrUnsuccessful = errors.New("collaborator API reported failure")
)

// envelope is the {success, data} wrapper every collaborator endpoint uses.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
}

// CatalogAPI is the slice of the catalog service the fulfillment core
// consumes: the preparation-area directory and recipe lookups.
type CatalogAPI interface {
	GetOrderAreas(ctx context.Context) ([]models.OrderArea, error)
	GetRecipesByProduct(ctx context.Context, productID string) ([]models.Recipe, error)
	GetRecipeIngredients(ctx context.Context, recipeID string) ([]models.Ingredient, error)
}

// CatalogClient is the HTTP implementation of CatalogAPI.
type CatalogClient struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

// NewCatalogClient creates a client against the given base URL, attaching
// the bearer credential resolved by the (external) auth layer.
func NewCatalogClient(baseURL, token string) *CatalogClient {
	return &CatalogClient{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    baseURL,
		token:      token,
	}
}

func (c *CatalogClient) GetOrderAreas(ctx context.Context) ([]models.OrderArea, error) {
	var areas []models.OrderArea
	if err := getJSON(ctx, c.httpClient, c.baseURL+"/order-areas", c.token, &areas); err != nil {
		return nil, fmt.Errorf("fetching order areas: %w", err)
	}
	return areas, nil
}

func (c *CatalogClient) GetRecipesByProduct(ctx context.Context, productID string) ([]models.Recipe, error) {
	endpoint := c.baseURL + "/recipes?product_id=" + url.QueryEscape(productID)
	var recipes []models.Recipe
	if err := getJSON(ctx, c.httpClient, endpoint, c.token, &recipes); err != nil {
		return nil, fmt.Errorf("fetching recipes for product %s: %w", productID, err)
	}
	return recipes, nil
}

func (c *CatalogClient) GetRecipeIngredients(ctx context.Context, recipeID string) ([]models.Ingredient, error) {
	endpoint := fmt.Sprintf("%s/recipes/%s/ingredients", c.baseURL, url.PathEscape(recipeID))
	var ingredients []models.Ingredient
	if err := getJSON(ctx, c.httpClient, endpoint, c.token, &ingredients); err != nil {
		return nil, fmt.Errorf("fetching ingredients for recipe %s: %w", recipeID, err)
	}
	return ingredients, nil
}

// getJSON performs an authenticated GET, unwraps the {success, data}
// envelope, and decodes data into out.
func getJSON(ctx context.Context, client *http.Client, endpoint, token string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: %d %s", ErrUnexpectedStatus, resp.StatusCode, string(body))
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decoding response envelope: %w", err)
	}
	if !env.Success {
		return ErrUnsuccessful
	}
	if len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decoding response data: %w", err)
	}
	return nil
}
