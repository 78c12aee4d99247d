package coinmarketcap

import (
	"net/http"
)

// HTTPClient describes an HTTP client.
//
//go:generate mockgen -package=coinmarketcap_test -destination=mock_http_client_test.go -source=client.go HTTPClient
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// CoinMarketCapAPIClient is a client for the CoinMarketCap Pro API.
type CoinMarketCapAPIClient struct {
	// baseURL is the base URL for the API.
	baseURL string
	// httpClient is the HTTP client.
	httpClient HTTPClient
	// header contains the headers sent with each request, including the key.
	header http.Header
}

// CoinMarketCapAPIClientOption is a configuration option for the CoinMarketCap API client.
type CoinMarketCapAPIClientOption func(*CoinMarketCapAPIClient)

// WithBaseURL sets the base URL for the API.
func WithBaseURL(baseURL string) CoinMarketCapAPIClientOption {
	return func(c *CoinMarketCapAPIClient) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient sets the HTTP client for the API.
func WithHTTPClient(httpClient HTTPClient) CoinMarketCapAPIClientOption {
	return func(c *CoinMarketCapAPIClient) {
		c.httpClient = httpClient
	}
}

// WithHeader sets additional headers to be sent with each request.
func WithHeader(header http.Header) CoinMarketCapAPIClientOption {
	return func(c *CoinMarketCapAPIClient) {
		for key, values := range header {
			for _, value := range values {
				c.header.Add(key, value)
			}
		}
	}
}

// NewCoinMarketCapAPIClient creates a new CoinMarketCap API client.
func NewCoinMarketCapAPIClient(key string, options ...CoinMarketCapAPIClientOption) (*CoinMarketCapAPIClient, error) {
	var client = &CoinMarketCapAPIClient{
		baseURL:    baseURL,
		httpClient: http.DefaultClient,
		header:     http.Header{},
	}
	if key == "" {
		return nil, ErrMissingKey
	}
	// https://coinmarketcap.com/api/documentation/v1/#section/Authentication
	client.header.Set(headerAPIKey, key)
	client.header.Set("Accept", "application/json")
	for _, option := range options {
		option(client)
	}
	return client, nil
}
