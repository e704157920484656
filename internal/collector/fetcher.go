package collector

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/BuyBio/BuyBio/internal/model"
)

// ErrNoData means the source returned no usable bars for the symbol.
var ErrNoData = errors.New("no data returned")

// Fetcher defines the interface for fetching market data.
type Fetcher interface {
	// FetchDailyBars returns up to days daily bars in ascending date order.
	FetchDailyBars(ctx context.Context, code string, days int) ([]model.Bar, error)
	Name() string
}

// kst is the exchange time zone; bar dates are midnight KST.
var kst = time.FixedZone("KST", 9*60*60)

func newHTTPClient(proxyURL string) *http.Client {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &http.Client{
		Timeout:   30 * time.Second,
		Transport: transport,
	}
}

// parseDate parses a YYYYMMDD trading date.
func parseDate(s string) (time.Time, error) {
	return time.ParseInLocation("20060102", s, kst)
}

// dayOf truncates t to midnight KST.
func dayOf(t time.Time) time.Time {
	t = t.In(kst)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, kst)
}

// normalize sorts bars ascending, keeps the last bar of any repeated date and
// trims the result to the most recent days bars.
func normalize(bars []model.Bar, days int) []model.Bar {
	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	out := bars[:0]
	for _, b := range bars {
		if n := len(out); n > 0 && out[n-1].Date.Equal(b.Date) {
			out[n-1] = b
			continue
		}
		out = append(out, b)
	}
	if days > 0 && len(out) > days {
		out = out[len(out)-days:]
	}
	return out
}
