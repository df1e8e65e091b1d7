package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"comandero_backend/internal/models"
)

// SalesAPI is the slice of the sales/transactions service the consumption
// pipeline consumes: unprocessed-sale batches, their line items, and the
// processing gate.
type SalesAPI interface {
	GetUnprocessedSales(ctx context.Context) ([]models.Sale, error)
	GetSaleProducts(ctx context.Context, saleID string) ([]models.SoldLineItem, error)
	MarkProcessed(ctx context.Context, saleIDs []string) (int64, error)
}

// SalesClient is the HTTP implementation of SalesAPI.
type SalesClient struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

// NewSalesClient creates a client against the given base URL.
func NewSalesClient(baseURL, token string) *SalesClient {
	return &SalesClient{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    baseURL,
		token:      token,
	}
}

func (c *SalesClient) GetUnprocessedSales(ctx context.Context) ([]models.Sale, error) {
	var sales []models.Sale
	if err := getJSON(ctx, c.httpClient, c.baseURL+"/transactions/unprocessed", c.token, &sales); err != nil {
		return nil, fmt.Errorf("fetching unprocessed sales: %w", err)
	}
	return sales, nil
}

func (c *SalesClient) GetSaleProducts(ctx context.Context, saleID string) ([]models.SoldLineItem, error) {
	endpoint := fmt.Sprintf("%s/transactions/%s/products", c.baseURL, url.PathEscape(saleID))
	var items []models.SoldLineItem
	if err := getJSON(ctx, c.httpClient, endpoint, c.token, &items); err != nil {
		return nil, fmt.Errorf("fetching products for sale %s: %w", saleID, err)
	}
	return items, nil
}

// MarkProcessed flags the given sales as consumed. Re-marking an already
// processed sale is a no-op on the sales service side; the returned count
// reflects only the rows actually affected.
func (c *SalesClient) MarkProcessed(ctx context.Context, saleIDs []string) (int64, error) {
	payload, err := json.Marshal(map[string][]string{"transactionIds": saleIDs})
	if err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+"/transactions/unprocessed", bytes.NewReader(payload))
	if err != nil {
		return 0, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return 0, fmt.Errorf("%w: %d %s", ErrUnexpectedStatus, resp.StatusCode, string(body))
	}

	var result struct {
		Success      bool  `json:"success"`
		AffectedRows int64 `json:"affectedRows"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return 0, fmt.Errorf("decoding response: %w", err)
	}
	if !result.Success {
		return 0, ErrUnsuccessful
	}
	return result.AffectedRows, nil
}
