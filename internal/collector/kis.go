package collector

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/BuyBio/BuyBio/internal/model"
)

// KISBaseURL is the production Korea Investment & Securities open API.
const KISBaseURL = "https://openapi.koreainvestment.com:9443"

const (
	kisDailyChartPath = "/uapi/domestic-stock/v1/quotations/inquire-daily-itemchartprice"
	kisDailyChartTrID = "FHKST03010100"
	// One daily chart call returns at most 100 rows; a 140 calendar day
	// window stays within that.
	kisPageSpan = 140
)

var errTokenRejected = errors.New("access token rejected")

// KISFetcher implements Fetcher using the KIS daily item chart API.
type KISFetcher struct {
	BaseURL   string
	AppKey    string
	AppSecret string
	Client    *http.Client
	Tokens    *TokenCache
	MaxPages  int
	now       func() time.Time
}

// NewKISFetcher creates a new fetcher with optional proxy support. Tokens may
// be shared between fetchers using the same credentials.
func NewKISFetcher(baseURL, appKey, appSecret string, tokens *TokenCache, proxyURL string) *KISFetcher {
	if baseURL == "" {
		baseURL = KISBaseURL
	}
	if tokens == nil {
		tokens = NewTokenCache(23 * time.Hour)
	}
	return &KISFetcher{
		BaseURL:   strings.TrimRight(baseURL, "/"),
		AppKey:    appKey,
		AppSecret: appSecret,
		Client:    newHTTPClient(proxyURL),
		Tokens:    tokens,
		MaxPages:  4,
		now:       time.Now,
	}
}

func (f *KISFetcher) Name() string { return "kis" }

type kisTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

func (f *KISFetcher) issueToken(ctx context.Context) (string, error) {
	payload, err := json.Marshal(map[string]string{
		"grant_type": "client_credentials",
		"appkey":     f.AppKey,
		"appsecret":  f.AppSecret,
	})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.BaseURL+"/oauth2/tokenP", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("kis token: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("kis token: status %d, body: %s", resp.StatusCode, string(body))
	}
	var tr kisTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("kis token decode: %w", err)
	}
	if tr.AccessToken == "" {
		return "", fmt.Errorf("kis token: empty access_token")
	}
	return tr.AccessToken, nil
}

// kisChartResponse is the daily item chart payload. All numbers are strings.
type kisChartResponse struct {
	RtCd   string `json:"rt_cd"`
	MsgCd  string `json:"msg_cd"`
	Msg1   string `json:"msg1"`
	Output []struct {
		Date   string `json:"stck_bsop_date"`
		Open   string `json:"stck_oprc"`
		High   string `json:"stck_hgpr"`
		Low    string `json:"stck_lwpr"`
		Close  string `json:"stck_clpr"`
		Volume string `json:"acml_vol"`
	} `json:"output2"`
}

// FetchDailyBars pages backwards through the chart API until days bars are
// collected, the source runs dry or MaxPages is reached.
func (f *KISFetcher) FetchDailyBars(ctx context.Context, code string, days int) ([]model.Bar, error) {
	bars, err := f.fetchAll(ctx, code, days)
	if errors.Is(err, errTokenRejected) {
		f.Tokens.Invalidate()
		bars, err = f.fetchAll(ctx, code, days)
	}
	if err != nil {
		return nil, err
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("kis %s: %w", code, ErrNoData)
	}
	return normalize(bars, days), nil
}

func (f *KISFetcher) fetchAll(ctx context.Context, code string, days int) ([]model.Bar, error) {
	token, err := f.Tokens.Get(ctx, f.issueToken)
	if err != nil {
		return nil, err
	}

	pages := f.MaxPages
	if pages < 1 {
		pages = 1
	}
	end := dayOf(f.now())
	var bars []model.Bar
	for page := 0; page < pages && len(bars) < days; page++ {
		start := end.AddDate(0, 0, -kisPageSpan)
		chunk, err := f.fetchPage(ctx, token, code, start, end)
		if err != nil {
			return nil, err
		}
		if len(chunk) == 0 {
			break
		}
		oldest := chunk[0].Date
		for _, b := range chunk {
			if b.Date.Before(oldest) {
				oldest = b.Date
			}
		}
		bars = append(bars, chunk...)
		end = oldest.AddDate(0, 0, -1)
	}
	return bars, nil
}

func (f *KISFetcher) fetchPage(ctx context.Context, token, code string, start, end time.Time) ([]model.Bar, error) {
	q := url.Values{}
	q.Set("FID_COND_MRKT_DIV_CODE", "J")
	q.Set("FID_INPUT_ISCD", code)
	q.Set("FID_INPUT_DATE_1", start.Format("20060102"))
	q.Set("FID_INPUT_DATE_2", end.Format("20060102"))
	q.Set("FID_PERIOD_DIV_CODE", "D")
	q.Set("FID_ORG_ADJ_PRC", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.BaseURL+kisDailyChartPath+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("authorization", "Bearer "+token)
	req.Header.Set("appkey", f.AppKey)
	req.Header.Set("appsecret", f.AppSecret)
	req.Header.Set("tr_id", kisDailyChartTrID)

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("kis %s: %w", code, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusUnauthorized {
		return nil, errTokenRejected
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("kis %s: status %d, body: %s", code, resp.StatusCode, string(body))
	}

	var cr kisChartResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return nil, fmt.Errorf("kis %s decode: %w", code, err)
	}
	if cr.MsgCd == "EGW00123" {
		return nil, errTokenRejected
	}
	if cr.RtCd != "0" {
		return nil, fmt.Errorf("kis %s: %s %s", code, cr.MsgCd, cr.Msg1)
	}

	bars := make([]model.Bar, 0, len(cr.Output))
	for _, row := range cr.Output {
		// Days without trading come back as empty rows.
		if row.Date == "" || row.Close == "" {
			continue
		}
		date, err := parseDate(row.Date)
		if err != nil {
			return nil, fmt.Errorf("kis %s: bad date %q", code, row.Date)
		}
		b := model.Bar{Date: date}
		var perr error
		b.Close, perr = parsePrice(row.Close, 0)
		if perr == nil {
			b.Open, perr = parsePrice(row.Open, b.Close)
		}
		if perr == nil {
			b.High, perr = parsePrice(row.High, b.Close)
		}
		if perr == nil {
			b.Low, perr = parsePrice(row.Low, b.Close)
		}
		if perr == nil {
			b.Volume, perr = parseVolume(row.Volume)
		}
		if perr != nil {
			return nil, fmt.Errorf("kis %s %s: %w", code, row.Date, perr)
		}
		bars = append(bars, b)
	}
	return bars, nil
}

// parsePrice parses a numeric string, returning fallback when it is empty.
func parsePrice(s string, fallback float64) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return fallback, nil
	}
	return strconv.ParseFloat(s, 64)
}

func parseVolume(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	return strconv.ParseInt(s, 10, 64)
}
