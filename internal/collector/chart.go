package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/BuyBio/BuyBio/internal/model"
)

// ChartFetcher implements Fetcher using the chart service REST API, which
// serves KIS-shaped daily rows for a stock code, newest first.
type ChartFetcher struct {
	BaseURL string
	Client  *http.Client
}

// NewChartFetcher creates a new fetcher with optional proxy support.
func NewChartFetcher(baseURL, proxyURL string) *ChartFetcher {
	return &ChartFetcher{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  newHTTPClient(proxyURL),
	}
}

func (f *ChartFetcher) Name() string { return "chart" }

// chartRow is the expected JSON shape from the chart service. Open, high and
// low are optional and fall back to the close.
type chartRow struct {
	Date   string `json:"stck_bsop_date"`
	Close  string `json:"stck_clpr"`
	Open   string `json:"stck_oprc"`
	High   string `json:"stck_hgpr"`
	Low    string `json:"stck_lwpr"`
	Volume string `json:"acml_vol"`
}

func (f *ChartFetcher) FetchDailyBars(ctx context.Context, code string, days int) ([]model.Bar, error) {
	endpoint := fmt.Sprintf("%s/api/v1/chart/%s", f.BaseURL, url.PathEscape(code))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("chart %s: %w", code, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("chart %s: %w", code, ErrNoData)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("chart %s: status %d, body: %s", code, resp.StatusCode, string(body))
	}

	var rows []chartRow
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("chart %s decode: %w", code, err)
	}

	bars := make([]model.Bar, 0, len(rows))
	for _, row := range rows {
		date, err := parseDate(row.Date)
		if err != nil {
			return nil, fmt.Errorf("chart %s: bad date %q", code, row.Date)
		}
		c, err := parsePrice(row.Close, 0)
		if err != nil {
			return nil, fmt.Errorf("chart %s %s: close: %w", code, row.Date, err)
		}
		b := model.Bar{Date: date, Close: c, Open: c, High: c, Low: c}
		if b.Open, err = parsePrice(row.Open, c); err != nil {
			return nil, fmt.Errorf("chart %s %s: open: %w", code, row.Date, err)
		}
		if b.High, err = parsePrice(row.High, c); err != nil {
			return nil, fmt.Errorf("chart %s %s: high: %w", code, row.Date, err)
		}
		if b.Low, err = parsePrice(row.Low, c); err != nil {
			return nil, fmt.Errorf("chart %s %s: low: %w", code, row.Date, err)
		}
		// Unparseable volume counts as no volume.
		b.Volume, _ = parseVolume(row.Volume)
		bars = append(bars, b)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("chart %s: %w", code, ErrNoData)
	}
	return normalize(bars, days), nil
}
