package coinmarketcap

import (
	"context"

	"cmcproxy/internal/provider"
)

// Adapter exposes the API client as a provider.Provider.
type Adapter struct {
	name   string
	client *CoinMarketCapAPIClient
}

var _ provider.Provider = (*Adapter)(nil)

func NewAdapter(name string, client *CoinMarketCapAPIClient) *Adapter {
	if name == "" {
		name = "CoinMarketCap"
	}
	return &Adapter{name: name, client: client}
}

func (a *Adapter) Name() string { return a.name }

func (a *Adapter) Latest(ctx context.Context, q provider.Query) ([]byte, error) {
	return a.client.QuotesLatest(ctx, q)
}
