package coinmarketcap_test

import (
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"cmcproxy/internal/provider"
	coinmarketcap "cmcproxy/internal/provider/coinmarketcap"
)

func okResponse(body string) *http.Response {
	return &http.Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func TestNewCoinMarketCapAPIClient(t *testing.T) {
	t.Parallel()

	// Assert: a valid key should return a client.
	client, err := coinmarketcap.NewCoinMarketCapAPIClient("test")
	require.NoErrorf(t, err, "unexpected error: %v", err)
	require.NotNilf(t, client, "unexpected nil client")
}

func TestNewCoinMarketCapAPIClient_MissingKey(t *testing.T) {
	t.Parallel()

	client, err := coinmarketcap.NewCoinMarketCapAPIClient("")
	require.ErrorIs(t, err, coinmarketcap.ErrMissingKey)
	require.Nil(t, client)
}

func TestWithBaseURL(t *testing.T) {
	t.Parallel()

	// Arrange: create a mock controller
	ctrl := gomock.NewController(t)

	// Arrange: create a mock http client
	httpClient := NewMockHTTPClient(ctrl)

	// Arrange: define a base url
	baseURL := "http://localhost:8080"

	// Assert: stub the Do method
	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			require.Truef(t, strings.HasPrefix(req.URL.String(), baseURL), "expected url to start with base url, received: %s", req.URL.String())
			return okResponse(`{"status":{"error_code":0},"data":{}}`), nil
		}).
		Times(1)

	// Arrange: create a new client.
	client, err := coinmarketcap.NewCoinMarketCapAPIClient("test", coinmarketcap.WithHTTPClient(httpClient), coinmarketcap.WithBaseURL(baseURL))
	require.NoError(t, err)

	// Act: call QuotesLatest with the overridden base URL.
	_, err = client.QuotesLatest(t.Context(), provider.Query{Symbols: "BTC", Convert: "USD"})
	require.NoError(t, err)
}

func TestWithHeader(t *testing.T) {
	t.Parallel()

	// Arrange: create a mock controller
	ctrl := gomock.NewController(t)

	// Arrange: create a mock http client
	httpClient := NewMockHTTPClient(ctrl)

	// Assert: the custom header travels next to the key
	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			require.Equal(t, "bar", req.Header.Get("foo"))
			require.Equal(t, "test", req.Header.Get("X-CMC_PRO_API_KEY"))
			return okResponse(`{"data":{}}`), nil
		}).
		Times(1)

	// Arrange: create a new client with a custom header.
	client, err := coinmarketcap.NewCoinMarketCapAPIClient("test", coinmarketcap.WithHTTPClient(httpClient), coinmarketcap.WithHeader(http.Header{
		"foo": []string{"bar"},
	}))
	require.NoError(t, err)

	// Act: call QuotesLatest with the custom header.
	_, err = client.QuotesLatest(t.Context(), provider.Query{Slug: "bitcoin", Convert: "USD"})
	require.NoError(t, err)
}

func TestAdapter(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)
	httpClient.EXPECT().
		Do(gomock.Any()).
		Return(okResponse(`{"data":{"BTC":{}}}`), nil).
		Times(1)

	client, err := coinmarketcap.NewCoinMarketCapAPIClient("test", coinmarketcap.WithHTTPClient(httpClient))
	require.NoError(t, err)

	adapter := coinmarketcap.NewAdapter("", client)
	require.Equal(t, "CoinMarketCap", adapter.Name())

	body, err := adapter.Latest(t.Context(), provider.Query{Symbols: "BTC", Convert: "USD"})
	require.NoError(t, err)
	require.JSONEq(t, `{"data":{"BTC":{}}}`, string(body))
}
