// Package ozon is the marketplace seller API boundary: FBO warehouse
// stock, product dimension attributes and the delivery cluster dictionary.
package ozon

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"ozon-reports/pkg/logger"
)

const (
	stockPageLimit     = 1000
	attributePageLimit = 200
)

// Client calls the seller API with Client-Id/Api-Key header auth.
type Client struct {
	baseURL  string
	clientID string
	apiKey   string
	http     *http.Client
}

// NewClient builds a seller API client.
func NewClient(baseURL, clientID, apiKey string) *Client {
	return &Client{
		baseURL:  baseURL,
		clientID: clientID,
		apiKey:   apiKey,
		http:     &http.Client{Timeout: 60 * time.Second},
	}
}

// StockRow is one (SKU, warehouse) row of the FBO stock report.
type StockRow struct {
	SKU              int64   `json:"sku"`
	ItemCode         string  `json:"item_code"`
	ItemName         string  `json:"item_name"`
	FreeToSellAmount float64 `json:"free_to_sell_amount"`
	PromisedAmount   float64 `json:"promised_amount"`
	ReservedAmount   float64 `json:"reserved_amount"`
	WarehouseName    string  `json:"warehouse_name"`
}

// StockOnWarehouses pages through the analytics stock report. The
// free-to-sell amounts are the FBO shelf tier, the promised amounts the
// cross-dock tier.
func (c *Client) StockOnWarehouses(ctx context.Context) ([]StockRow, error) {
	var all []StockRow
	offset := 0
	for {
		req := map[string]any{
			"limit":          stockPageLimit,
			"offset":         offset,
			"warehouse_type": "ALL",
		}
		var resp struct {
			Result struct {
				Rows []StockRow `json:"rows"`
			} `json:"result"`
		}
		if err := c.post(ctx, "/v2/analytics/stock_on_warehouses", req, &resp); err != nil {
			return nil, fmt.Errorf("stock on warehouses: %w", err)
		}
		all = append(all, resp.Result.Rows...)
		if len(resp.Result.Rows) < stockPageLimit {
			break
		}
		offset += stockPageLimit
	}
	logger.Log.Info().Int("rows", len(all)).Msg("fetched FBO stock report")
	return all, nil
}

// ProductVolume is one SKU's packed dimensions with the derived volume.
type ProductVolume struct {
	OfferID       string
	SKU           int64
	Depth         float64
	Width         float64
	Height        float64
	Weight        float64
	DimensionUnit string
	WeightUnit    string
	// VolumeLiters is depth*width*height converted from cubic
	// millimeters, rounded to 2 decimals.
	VolumeLiters float64
}

// VolumeLiters converts millimeter dimensions to liters, 2 decimals.
func VolumeLiters(depth, width, height float64) float64 {
	v := decimal.NewFromFloat(depth * width * height / 1e6).Round(2)
	f, _ := v.Float64()
	return f
}

// ProductVolumes pages through the product attribute report and derives
// each SKU's volume in liters.
func (c *Client) ProductVolumes(ctx context.Context) ([]ProductVolume, error) {
	var all []ProductVolume
	lastID := ""
	for {
		req := map[string]any{
			"filter":   map[string]any{"sku": []string{}, "visibility": "ALL"},
			"limit":    attributePageLimit,
			"sort_dir": "ASC",
		}
		if lastID != "" {
			req["last_id"] = lastID
		}
		var resp struct {
			Result []struct {
				OfferID       string  `json:"offer_id"`
				SKU           int64   `json:"sku"`
				Depth         float64 `json:"depth"`
				Width         float64 `json:"width"`
				Height        float64 `json:"height"`
				Weight        float64 `json:"weight"`
				DimensionUnit string  `json:"dimension_unit"`
				WeightUnit    string  `json:"weight_unit"`
			} `json:"result"`
			LastID string `json:"last_id"`
		}
		if err := c.post(ctx, "/v4/product/info/attributes", req, &resp); err != nil {
			return nil, fmt.Errorf("product attributes: %w", err)
		}
		for _, item := range resp.Result {
			all = append(all, ProductVolume{
				OfferID:       item.OfferID,
				SKU:           item.SKU,
				Depth:         item.Depth,
				Width:         item.Width,
				Height:        item.Height,
				Weight:        item.Weight,
				DimensionUnit: item.DimensionUnit,
				WeightUnit:    item.WeightUnit,
				VolumeLiters:  VolumeLiters(item.Depth, item.Width, item.Height),
			})
		}
		if len(resp.Result) < attributePageLimit || resp.LastID == "" {
			break
		}
		lastID = resp.LastID
	}
	logger.Log.Info().Int("products", len(all)).Msg("fetched product volumes")
	return all, nil
}

// Cluster is one delivery cluster with its member warehouse names.
type Cluster struct {
	ID         int64
	Name       string
	Warehouses []string
}

type clusterListResponse struct {
	Clusters []struct {
		ID               int64  `json:"id,string"`
		Name             string `json:"name"`
		LogisticClusters []struct {
			Warehouses []struct {
				Name string `json:"name"`
			} `json:"warehouses"`
		} `json:"logistic_clusters"`
	} `json:"clusters"`
}

// ClusterList fetches the delivery cluster dictionary: cluster name to the
// warehouse names it covers.
func (c *Client) ClusterList(ctx context.Context) ([]Cluster, error) {
	req := map[string]any{
		"cluster_ids":  []string{},
		"cluster_type": "CLUSTER_TYPE_OZON",
	}
	var resp clusterListResponse
	if err := c.post(ctx, "/v1/cluster/list", req, &resp); err != nil {
		return nil, fmt.Errorf("cluster list: %w", err)
	}

	out := make([]Cluster, 0, len(resp.Clusters))
	for _, cl := range resp.Clusters {
		cluster := Cluster{ID: cl.ID, Name: cl.Name}
		for _, lc := range cl.LogisticClusters {
			for _, w := range lc.Warehouses {
				cluster.Warehouses = append(cluster.Warehouses, w.Name)
			}
		}
		out = append(out, cluster)
	}
	return out, nil
}

// WarehouseClusterMap inverts the cluster dictionary into warehouse name
// to cluster name.
func WarehouseClusterMap(clusters []Cluster) map[string]string {
	out := make(map[string]string)
	for _, c := range clusters {
		for _, w := range c.Warehouses {
			out[w] = c.Name
		}
	}
	return out
}

// ClusterNames lists the cluster names in dictionary order.
func ClusterNames(clusters []Cluster) []string {
	out := make([]string, 0, len(clusters))
	for _, c := range clusters {
		out = append(out, c.Name)
	}
	return out
}

func (c *Client) post(ctx context.Context, path string, reqBody any, out any) error {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Client-Id", c.clientID)
	req.Header.Set("Api-Key", c.apiKey)

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
		return fmt.Errorf("http %d from %s: %s", resp.StatusCode, path, truncate(data, 200))
	}
	return json.Unmarshal(data, out)
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
