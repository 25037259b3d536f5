package feishu

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"ozon-reports/pkg/logger"
)

const (
	// tokenSafetyMargin is shaved off the reported token lifetime so a
	// cached token never expires mid-request.
	tokenSafetyMargin = 2 * time.Minute

	searchPageSize  = 500
	fieldPageSize   = 100
	createBatchSize = 500
)

// Client talks to the collaboration-table open API.
type Client struct {
	domain    string
	appID     string
	appSecret string
	http      *http.Client
	tokens    TokenCache
}

// NewClient builds a client. cache may be nil, in which case tokens are
// cached in process only.
func NewClient(domain, appID, appSecret string, cache TokenCache) *Client {
	if cache == nil {
		cache = NewMemoryTokenCache()
	}
	return &Client{
		domain:    domain,
		appID:     appID,
		appSecret: appSecret,
		http:      &http.Client{Timeout: 30 * time.Second},
		tokens:    cache,
	}
}

type tokenResponse struct {
	Code              int    `json:"code"`
	Msg               string `json:"msg"`
	TenantAccessToken string `json:"tenant_access_token"`
	Expire            int    `json:"expire"`
}

// TenantToken returns a valid tenant access token, from the cache when one
// is still live.
func (c *Client) TenantToken(ctx context.Context) (string, error) {
	cacheKey := "feishu:tenant_token:" + c.appID
	if tok, err := c.tokens.Get(ctx, cacheKey); err == nil && tok != "" {
		return tok, nil
	} else if err != nil {
		logger.Log.Warn().Err(err).Msg("token cache read failed, fetching fresh token")
	}

	body, _ := json.Marshal(map[string]string{"app_id": c.appID, "app_secret": c.appSecret})
	var resp tokenResponse
	if err := c.doJSON(ctx, http.MethodPost, c.domain+"/open-apis/auth/v3/tenant_access_token/internal", "", body, &resp); err != nil {
		return "", fmt.Errorf("tenant token request: %w", err)
	}
	if resp.Code != 0 {
		return "", fmt.Errorf("tenant token refused: code=%d msg=%s", resp.Code, resp.Msg)
	}

	ttl := time.Duration(resp.Expire)*time.Second - tokenSafetyMargin
	if ttl > 0 {
		if err := c.tokens.Set(ctx, cacheKey, resp.TenantAccessToken, ttl); err != nil {
			logger.Log.Warn().Err(err).Msg("token cache write failed")
		}
	}
	return resp.TenantAccessToken, nil
}

type fieldListResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data struct {
		Items []struct {
			FieldID   string `json:"field_id"`
			FieldName string `json:"field_name"`
			Type      int    `json:"type"`
		} `json:"items"`
		PageToken string `json:"page_token"`
		HasMore   bool   `json:"has_more"`
	} `json:"data"`
}

// FetchSchema lists a table's fields and returns the name-keyed schema.
func (c *Client) FetchSchema(ctx context.Context, appToken, tableID string) (Schema, error) {
	token, err := c.TenantToken(ctx)
	if err != nil {
		return nil, err
	}

	schema := make(Schema)
	pageToken := ""
	seen := make(map[string]bool)
	for {
		u := fmt.Sprintf("%s/open-apis/bitable/v1/apps/%s/tables/%s/fields?page_size=%d",
			c.domain, appToken, tableID, fieldPageSize)
		if pageToken != "" {
			u += "&page_token=" + url.QueryEscape(pageToken)
		}

		var resp fieldListResponse
		if err := c.doJSON(ctx, http.MethodGet, u, token, nil, &resp); err != nil {
			return nil, fmt.Errorf("list fields: %w", err)
		}
		if resp.Code != 0 {
			return nil, fmt.Errorf("list fields refused: code=%d msg=%s", resp.Code, resp.Msg)
		}
		for _, item := range resp.Data.Items {
			schema[item.FieldName] = Field{
				ID:   item.FieldID,
				Name: item.FieldName,
				Type: TypeFromCode(item.Type),
			}
		}
		if !resp.Data.HasMore || resp.Data.PageToken == "" || seen[resp.Data.PageToken] {
			break
		}
		seen[resp.Data.PageToken] = true
		pageToken = resp.Data.PageToken
	}
	return schema, nil
}

// SearchFilter narrows a record search to rows whose field matches one of
// the given values. A zero filter matches everything.
type SearchFilter struct {
	Field  string
	Values []string
}

type searchResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data struct {
		Items []struct {
			RecordID string         `json:"record_id"`
			Fields   map[string]any `json:"fields"`
		} `json:"items"`
		PageToken string `json:"page_token"`
		HasMore   bool   `json:"has_more"`
	} `json:"data"`
}

// SearchRows fetches all records of a table (paginated) and flattens them
// against the given schema.
func (c *Client) SearchRows(ctx context.Context, appToken, tableID string, schema Schema, filter SearchFilter) ([]Row, error) {
	token, err := c.TenantToken(ctx)
	if err != nil {
		return nil, err
	}

	reqBody := map[string]any{}
	if filter.Field != "" && len(filter.Values) > 0 {
		conditions := make([]map[string]any, 0, len(filter.Values))
		for _, v := range filter.Values {
			conditions = append(conditions, map[string]any{
				"field_name": filter.Field,
				"operator":   "is",
				"value":      []string{v},
			})
		}
		reqBody["filter"] = map[string]any{
			"conjunction": "or",
			"conditions":  conditions,
		}
	}

	var rows []Row
	pageToken := ""
	seen := make(map[string]bool)
	for {
		u := fmt.Sprintf("%s/open-apis/bitable/v1/apps/%s/tables/%s/records/search?page_size=%d",
			c.domain, appToken, tableID, searchPageSize)
		if pageToken != "" {
			u += "&page_token=" + url.QueryEscape(pageToken)
		}
		body, _ := json.Marshal(reqBody)

		var resp searchResponse
		if err := c.doJSON(ctx, http.MethodPost, u, token, body, &resp); err != nil {
			return nil, fmt.Errorf("search records: %w", err)
		}
		if resp.Code != 0 {
			return nil, fmt.Errorf("search records refused: code=%d msg=%s", resp.Code, resp.Msg)
		}
		for _, item := range resp.Data.Items {
			rows = append(rows, FlattenRecord(item.Fields, schema))
		}
		if !resp.Data.HasMore || resp.Data.PageToken == "" || seen[resp.Data.PageToken] {
			break
		}
		seen[resp.Data.PageToken] = true
		pageToken = resp.Data.PageToken
	}
	logger.Log.Debug().Int("rows", len(rows)).Str("table", tableID).Msg("table search complete")
	return rows, nil
}

// SearchRowsByURL resolves a shared table link, fetches its schema and
// returns the flattened rows.
func (c *Client) SearchRowsByURL(ctx context.Context, tableURL string, filter SearchFilter) ([]Row, Schema, error) {
	appToken, tableID, err := ParseTableURL(tableURL)
	if err != nil {
		return nil, nil, err
	}
	schema, err := c.FetchSchema(ctx, appToken, tableID)
	if err != nil {
		return nil, nil, err
	}
	rows, err := c.SearchRows(ctx, appToken, tableID, schema, filter)
	if err != nil {
		return nil, nil, err
	}
	return rows, schema, nil
}

type batchCreateResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

// BatchCreate inserts records into a table in fixed-size batches.
func (c *Client) BatchCreate(ctx context.Context, appToken, tableID string, records []map[string]any) error {
	token, err := c.TenantToken(ctx)
	if err != nil {
		return err
	}

	u := fmt.Sprintf("%s/open-apis/bitable/v1/apps/%s/tables/%s/records/batch_create",
		c.domain, appToken, tableID)
	for start := 0; start < len(records); start += createBatchSize {
		end := start + createBatchSize
		if end > len(records) {
			end = len(records)
		}
		wrapped := make([]map[string]any, 0, end-start)
		for _, fields := range records[start:end] {
			wrapped = append(wrapped, map[string]any{"fields": fields})
		}
		body, _ := json.Marshal(map[string]any{"records": wrapped})

		var resp batchCreateResponse
		if err := c.doJSON(ctx, http.MethodPost, u, token, body, &resp); err != nil {
			return fmt.Errorf("batch create records: %w", err)
		}
		if resp.Code != 0 {
			return fmt.Errorf("batch create refused: code=%d msg=%s", resp.Code, resp.Msg)
		}
		logger.Log.Info().Int("count", end-start).Str("table", tableID).Msg("records created")
	}
	return nil
}

// BatchCreateByURL resolves a shared table link and inserts the records.
func (c *Client) BatchCreateByURL(ctx context.Context, tableURL string, records []map[string]any) error {
	appToken, tableID, err := ParseTableURL(tableURL)
	if err != nil {
		return err
	}
	return c.BatchCreate(ctx, appToken, tableID, records)
}

func (c *Client) doJSON(ctx context.Context, method, url, token string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("http %d: %s", resp.StatusCode, truncate(data, 200))
	}
	return json.Unmarshal(data, out)
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
