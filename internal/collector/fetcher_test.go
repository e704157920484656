package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/BuyBio/BuyBio/internal/model"
)

func TestTokenCache(t *testing.T) {
	now := time.Date(2024, 1, 5, 9, 0, 0, 0, kst)
	c := NewTokenCache(23 * time.Hour)
	c.now = func() time.Time { return now }

	issued := 0
	issue := func(context.Context) (string, error) {
		issued++
		return fmt.Sprintf("token-%d", issued), nil
	}

	for i := 0; i < 3; i++ {
		tok, err := c.Get(context.Background(), issue)
		if err != nil || tok != "token-1" {
			t.Fatalf("get %d: token=%q err=%v", i, tok, err)
		}
	}
	if !c.ExpiresAt().Equal(now.Add(23 * time.Hour)) {
		t.Errorf("unexpected expiry %s", c.ExpiresAt())
	}

	now = now.Add(23 * time.Hour)
	if tok, _ := c.Get(context.Background(), issue); tok != "token-2" {
		t.Errorf("expired token should be reissued, got %q", tok)
	}

	c.Invalidate()
	failing := func(context.Context) (string, error) { return "", errors.New("rate limited") }
	if _, err := c.Get(context.Background(), failing); err == nil {
		t.Fatal("expected issue error")
	}
	if tok, _ := c.Get(context.Background(), issue); tok != "token-3" {
		t.Errorf("errors must not be cached, got %q", tok)
	}
}

type kisRow struct {
	Date, Open, High, Low, Close, Volume string
}

func (r kisRow) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]string{
		"stck_bsop_date": r.Date,
		"stck_oprc":      r.Open,
		"stck_hgpr":      r.High,
		"stck_lwpr":      r.Low,
		"stck_clpr":      r.Close,
		"acml_vol":       r.Volume,
	})
}

type kisServer struct {
	*httptest.Server

	mu         sync.Mutex
	tokenCalls int
	chartCalls int
	ends       []string
	pages      [][]kisRow
	cycle      bool
	rejectOnce bool
}

func (ks *kisServer) counts() (token, chart int) {
	ks.mu.Lock()
	defer ks.mu.Unlock()
	return ks.tokenCalls, ks.chartCalls
}

func newKISServer(t *testing.T, pages [][]kisRow) *kisServer {
	t.Helper()
	ks := &kisServer{pages: pages}
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth2/tokenP", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		if r.Method != http.MethodPost || json.NewDecoder(r.Body).Decode(&body) != nil ||
			body["grant_type"] != "client_credentials" || body["appkey"] != "key" {
			http.Error(w, "bad token request", http.StatusBadRequest)
			return
		}
		ks.mu.Lock()
		ks.tokenCalls++
		n := ks.tokenCalls
		ks.mu.Unlock()
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": fmt.Sprintf("tok%d", n),
			"token_type":   "Bearer",
			"expires_in":   86400,
		})
	})
	mux.HandleFunc(kisDailyChartPath, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("tr_id") != kisDailyChartTrID || r.Header.Get("appsecret") != "secret" ||
			!strings.HasPrefix(r.Header.Get("authorization"), "Bearer tok") {
			http.Error(w, "bad headers", http.StatusBadRequest)
			return
		}
		ks.mu.Lock()
		if ks.rejectOnce {
			ks.rejectOnce = false
			ks.mu.Unlock()
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		ks.chartCalls++
		ks.ends = append(ks.ends, r.URL.Query().Get("FID_INPUT_DATE_2"))
		var rows []kisRow
		switch i := ks.chartCalls - 1; {
		case len(ks.pages) == 0:
		case ks.cycle:
			rows = ks.pages[i%len(ks.pages)]
		case i < len(ks.pages):
			rows = ks.pages[i]
		}
		ks.mu.Unlock()
		json.NewEncoder(w).Encode(map[string]any{
			"rt_cd":   "0",
			"msg_cd":  "MCA00000",
			"msg1":    "정상처리 되었습니다.",
			"output2": rows,
		})
	})
	ks.Server = httptest.NewServer(mux)
	t.Cleanup(ks.Close)
	return ks
}

func newTestKISFetcher(url string) *KISFetcher {
	f := NewKISFetcher(url, "key", "secret", NewTokenCache(time.Hour), "")
	f.now = func() time.Time { return time.Date(2024, 1, 5, 16, 0, 0, 0, kst) }
	return f
}

func TestKISFetcher_Pages(t *testing.T) {
	ks := newKISServer(t, [][]kisRow{
		{
			{"20240105", "103", "105", "101", "104", "1500"},
			{"20240104", "102", "104", "100", "103", "1400"},
			{"20240103", "101", "103", "99", "102", "1300"},
			{}, // empty trailing row
		},
		{
			{"20240102", "100", "102", "98", "101", "1200"},
			{"20231229", "99", "101", "97", "100", "1100"},
		},
	})
	f := newTestKISFetcher(ks.URL)

	bars, err := f.FetchDailyBars(context.Background(), "005930", 10)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(bars) != 5 {
		t.Fatalf("expected 5 bars, got %d", len(bars))
	}
	for i := 1; i < len(bars); i++ {
		if !bars[i].Date.After(bars[i-1].Date) {
			t.Fatalf("bars not ascending at %d", i)
		}
	}
	want := model.Bar{Date: time.Date(2024, 1, 5, 0, 0, 0, 0, kst), Open: 103, High: 105, Low: 101, Close: 104, Volume: 1500}
	if got := bars[4]; !got.Date.Equal(want.Date) || got.Open != want.Open || got.High != want.High ||
		got.Low != want.Low || got.Close != want.Close || got.Volume != want.Volume {
		t.Errorf("unexpected last bar %+v", got)
	}

	ks.mu.Lock()
	ends := append([]string(nil), ks.ends...)
	ks.mu.Unlock()
	if len(ends) != 3 || ends[0] != "20240105" || ends[1] != "20240102" || ends[2] != "20231228" {
		t.Errorf("unexpected paging end dates %v", ends)
	}
}

func TestKISFetcher_TrimsToDaysAndReusesToken(t *testing.T) {
	ks := newKISServer(t, [][]kisRow{{
		{"20240105", "103", "105", "101", "104", "1500"},
		{"20240104", "102", "104", "100", "103", "1400"},
		{"20240103", "101", "103", "99", "102", "1300"},
	}})
	ks.mu.Lock()
	ks.cycle = true
	ks.mu.Unlock()
	f := newTestKISFetcher(ks.URL)

	for i := 0; i < 2; i++ {
		bars, err := f.FetchDailyBars(context.Background(), "005930", 2)
		if err != nil {
			t.Fatalf("fetch %d: %v", i, err)
		}
		if len(bars) != 2 || bars[0].Close != 103 || bars[1].Close != 104 {
			t.Errorf("expected the two latest bars, got %+v", bars)
		}
	}
	token, chart := ks.counts()
	if chart != 2 {
		t.Errorf("a full first page should stop paging, got %d calls for 2 fetches", chart)
	}
	if token != 1 {
		t.Errorf("expected one token issuance, got %d", token)
	}
}

func TestKISFetcher_TokenRejected(t *testing.T) {
	ks := newKISServer(t, [][]kisRow{{{"20240105", "103", "105", "101", "104", "1500"}}})
	ks.mu.Lock()
	ks.rejectOnce = true
	ks.mu.Unlock()
	bars, err := newTestKISFetcher(ks.URL).FetchDailyBars(context.Background(), "005930", 1)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(bars) != 1 {
		t.Errorf("expected 1 bar, got %d", len(bars))
	}
	if token, _ := ks.counts(); token != 2 {
		t.Errorf("rejected token should be reissued once, got %d issuances", token)
	}
}

func TestKISFetcher_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/oauth2/tokenP" {
			fmt.Fprint(w, `{"access_token":"tok","token_type":"Bearer","expires_in":86400}`)
			return
		}
		fmt.Fprint(w, `{"rt_cd":"1","msg_cd":"EGW00201","msg1":"초당 거래건수를 초과하였습니다."}`)
	}))
	defer srv.Close()

	_, err := newTestKISFetcher(srv.URL).FetchDailyBars(context.Background(), "005930", 10)
	if err == nil || !strings.Contains(err.Error(), "EGW00201") {
		t.Errorf("expected API error, got %v", err)
	}
}

func TestKISFetcher_NoData(t *testing.T) {
	ks := newKISServer(t, nil)
	_, err := newTestKISFetcher(ks.URL).FetchDailyBars(context.Background(), "999999", 10)
	if !errors.Is(err, ErrNoData) {
		t.Errorf("expected ErrNoData, got %v", err)
	}
}

func TestChartFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/chart/005930":
			fmt.Fprint(w, `[
				{"stck_bsop_date":"20240105","stck_clpr":"104","stck_oprc":"103","stck_hgpr":"105","stck_lwpr":"101","acml_vol":"1500"},
				{"stck_bsop_date":"20240104","stck_clpr":"103","acml_vol":"n/a"},
				{"stck_bsop_date":"20240103","stck_clpr":"102","stck_oprc":"101","stck_hgpr":"103","stck_lwpr":"99","acml_vol":"1300"}
			]`)
		case "/api/v1/chart/000000":
			fmt.Fprint(w, `[]`)
		default:
			http.Error(w, "boom", http.StatusInternalServerError)
		}
	}))
	defer srv.Close()
	f := NewChartFetcher(srv.URL+"/", "")

	bars, err := f.FetchDailyBars(context.Background(), "005930", 10)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(bars) != 3 || bars[0].Close != 102 || bars[2].Close != 104 {
		t.Fatalf("expected ascending bars, got %+v", bars)
	}
	mid := bars[1]
	if mid.Open != 103 || mid.High != 103 || mid.Low != 103 || mid.Volume != 0 {
		t.Errorf("missing fields should fall back to close, got %+v", mid)
	}

	if bars, _ := f.FetchDailyBars(context.Background(), "005930", 2); len(bars) != 2 || bars[1].Close != 104 {
		t.Errorf("expected trimming to the 2 latest bars, got %+v", bars)
	}
	if _, err := f.FetchDailyBars(context.Background(), "000000", 10); !errors.Is(err, ErrNoData) {
		t.Errorf("expected ErrNoData, got %v", err)
	}
	if _, err := f.FetchDailyBars(context.Background(), "123456", 10); err == nil || !strings.Contains(err.Error(), "status 500") {
		t.Errorf("expected status error, got %v", err)
	}
}

func TestYahooFetcher(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		// 2024-01-03, 01-04 (null holiday), 01-05 09:00 KST
		fmt.Fprint(w, `{"chart":{"result":[{
			"timestamp":[1704240000,1704326400,1704412800],
			"indicators":{"quote":[{
				"open":[101,null,103],
				"high":[103,null,105],
				"low":[99,null,101],
				"close":[102,null,104],
				"volume":[1300,null,1500]
			}]}
		}],"error":null}}`)
	}))
	defer srv.Close()

	f := NewYahooFetcher(".KS", "")
	f.BaseURL = srv.URL
	bars, err := f.FetchDailyBars(context.Background(), "005930", 250)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if gotPath != "/v8/finance/chart/005930.KS" {
		t.Errorf("unexpected path %q", gotPath)
	}
	if len(bars) != 2 {
		t.Fatalf("null bars should be skipped, got %d bars", len(bars))
	}
	if !bars[1].Date.Equal(time.Date(2024, 1, 5, 0, 0, 0, 0, kst)) || bars[1].Volume != 1500 {
		t.Errorf("unexpected last bar %+v", bars[1])
	}
}

func TestYahooSymbol(t *testing.T) {
	f := &YahooFetcher{Suffix: ".KS"}
	tests := map[string]string{
		"005930":    "005930.KS",
		"035720.KQ": "035720.KQ",
		"AAPL":      "AAPL",
	}
	for in, want := range tests {
		if got := f.yahooSymbol(in); got != want {
			t.Errorf("yahooSymbol(%q): expected %q, got %q", in, want, got)
		}
	}
}
