package collector

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/taho/analytics/pkg/config"
	"github.com/taho/analytics/pkg/httputil"
	"github.com/taho/analytics/pkg/logger"
)

// Client handles communication with the Binance Futures REST API.
// All signed requests and the REST rate budget live here.
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	cfg        config.BinanceConfig
	limiter    *rate.Limiter

	// now is swappable for request-signing tests
	now func() time.Time
}

// NewClient creates a new Binance Futures API client
func NewClient(cfg config.BinanceConfig, httpClient *httputil.Client, log *logger.Logger) *Client {
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 5
	}

	return &Client{
		httpClient: httpClient,
		logger:     log,
		cfg:        cfg,
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
		now:        time.Now,
	}
}

// sign returns the hex HMAC-SHA256 of the query string under the API secret
func (c *Client) sign(query string) string {
	mac := hmac.New(sha256.New, []byte(c.cfg.APISecret))
	mac.Write([]byte(query))
	return hex.EncodeToString(mac.Sum(nil))
}

// signedRequest makes an authenticated request to a signed endpoint.
// Binance requires the timestamp inside the signed query and the API key
// in a header.
func (c *Client) signedRequest(ctx context.Context, method, path string, params url.Values) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	if params == nil {
		params = url.Values{}
	}
	params.Set("timestamp", strconv.FormatInt(c.now().UnixMilli(), 10))
	params.Set("recvWindow", "5000")

	query := params.Encode()
	full := fmt.Sprintf("%s%s?%s&signature=%s", c.cfg.BaseURL, path, query, c.sign(query))

	req, err := http.NewRequestWithContext(ctx, method, full, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("X-MBX-APIKEY", c.cfg.APIKey)

	return c.httpClient.Do(req)
}

// UserTrade is one fill from GET /fapi/v1/userTrades
type UserTrade struct {
	ID          int64   `json:"id"`
	Symbol      string  `json:"symbol"`
	Side        string  `json:"side"` // BUY or SELL
	Price       float64 `json:"price,string"`
	Quantity    float64 `json:"qty,string"`
	RealizedPnL float64 `json:"realizedPnl,string"`
	Commission  float64 `json:"commission,string"`
	Time        int64   `json:"time"` // epoch millis
}

// IncomeRecord is one row from GET /fapi/v1/income
type IncomeRecord struct {
	Symbol     string  `json:"symbol"`
	IncomeType string  `json:"incomeType"`
	Income     float64 `json:"income,string"` // positive = received
	Time       int64   `json:"time"`
	TranID     int64   `json:"tranId"`
}

const pageLimit = 1000

// GetUserTrades fetches fills for one symbol in [from, to], paging forward
// by fill time until the exchange returns a short page.
func (c *Client) GetUserTrades(ctx context.Context, symbol string, from, to time.Time) ([]UserTrade, error) {
	var all []UserTrade
	cursor := from.UnixMilli()
	end := to.UnixMilli()

	for {
		params := url.Values{}
		params.Set("symbol", symbol)
		params.Set("startTime", strconv.FormatInt(cursor, 10))
		params.Set("endTime", strconv.FormatInt(end, 10))
		params.Set("limit", strconv.Itoa(pageLimit))

		var page []UserTrade
		if err := c.getJSON(ctx, "/fapi/v1/userTrades", params, &page); err != nil {
			return nil, fmt.Errorf("user trades %s: %w", symbol, err)
		}

		all = append(all, page...)
		if len(page) < pageLimit {
			break
		}

		// Next page starts just after the last fill of this one
		cursor = page[len(page)-1].Time + 1
		if cursor > end {
			break
		}
	}

	return all, nil
}

// GetFundingIncome fetches funding fee cash flows in [from, to] across all
// symbols
func (c *Client) GetFundingIncome(ctx context.Context, from, to time.Time) ([]IncomeRecord, error) {
	var all []IncomeRecord
	cursor := from.UnixMilli()
	end := to.UnixMilli()

	for {
		params := url.Values{}
		params.Set("incomeType", "FUNDING_FEE")
		params.Set("startTime", strconv.FormatInt(cursor, 10))
		params.Set("endTime", strconv.FormatInt(end, 10))
		params.Set("limit", strconv.Itoa(pageLimit))

		var page []IncomeRecord
		if err := c.getJSON(ctx, "/fapi/v1/income", params, &page); err != nil {
			return nil, fmt.Errorf("funding income: %w", err)
		}

		all = append(all, page...)
		if len(page) < pageLimit {
			break
		}

		cursor = page[len(page)-1].Time + 1
		if cursor > end {
			break
		}
	}

	return all, nil
}

func (c *Client) getJSON(ctx context.Context, path string, params url.Values, out interface{}) error {
	resp, err := c.signedRequest(ctx, http.MethodGet, path, params)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API error status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}
