package coinmarketcap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"

	"cmcproxy/internal/provider"
)

const (
	baseURL          = "https://pro-api.coinmarketcap.com"
	quotesLatestPath = "/v1/cryptocurrency/quotes/latest"
	headerAPIKey     = "X-CMC_PRO_API_KEY"

	// maxBody caps how much of an upstream response is buffered.
	maxBody = 8 << 20
)

// ErrMissingKey is returned when a client is built without an API key.
var ErrMissingKey = errors.New("coinmarketcap: api key is required")

// QuotesLatest calls /v1/cryptocurrency/quotes/latest and returns the raw body.
//
// Errors are one of provider.NetworkError, provider.StatusError,
// provider.APIError or provider.PayloadError.
func (c *CoinMarketCapAPIClient) QuotesLatest(ctx context.Context, q provider.Query) ([]byte, error) {
	query := url.Values{}
	query.Set("convert", q.Convert)
	if q.Symbols != "" {
		query.Set("symbol", q.Symbols)
	}
	if q.Slug != "" {
		query.Set("slug", q.Slug)
	}

	u := strings.TrimRight(c.baseURL, "/") + quotesLatestPath + "?" + query.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header = c.header.Clone()

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &provider.NetworkError{Err: err}
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, maxBody))
	if err != nil {
		return nil, &provider.NetworkError{Err: fmt.Errorf("reading response: %w", err)}
	}

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		// CMC reports the reason in the status block even on 4xx.
		return nil, &provider.StatusError{
			StatusCode: res.StatusCode,
			Message:    gjson.GetBytes(body, "status.error_message").String(),
		}
	}

	if !gjson.ValidBytes(body) {
		return nil, &provider.PayloadError{Err: errors.New("invalid JSON body")}
	}
	parsed := gjson.ParseBytes(body)
	if !parsed.IsObject() {
		return nil, &provider.PayloadError{Err: fmt.Errorf("expected JSON object, got %s", parsed.Type)}
	}

	// {
	//   "status": {
	//     "error_code": 400,
	//     "error_message": "Invalid value for \"symbol\": \"???\"",
	//     ...
	//   },
	//   "data": { ... }
	// }
	status := parsed.Get("status")
	if code := status.Get("error_code").Int(); code != 0 {
		msg := status.Get("error_message").String()
		if msg == "" {
			msg = "CoinMarketCap returned an error"
		}
		return nil, &provider.APIError{Code: code, Message: msg}
	}

	return body, nil
}
