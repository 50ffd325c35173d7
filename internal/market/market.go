package market

import (
	"fmt"
	"strings"

	"buyer_agent/internal/logger"
	"buyer_agent/internal/models"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/shopspring/decimal"
)

// PriceProvider looks up a current reference price for a symbol.
// Any struct with this method satisfies it, so tests can pass a fake.
type PriceProvider interface {
	GetPrice(symbol string) (decimal.Decimal, error)
}

// AlpacaProvider reads the latest trade from Alpaca market data.
type AlpacaProvider struct {
	mdClient *marketdata.Client
}

// NewAlpacaProvider picks up APCA_API_KEY_ID / APCA_API_SECRET_KEY from the environment.
func NewAlpacaProvider() *AlpacaProvider {
	return &AlpacaProvider{
		mdClient: marketdata.NewClient(marketdata.ClientOpts{}),
	}
}

// GetPrice fetches the latest trade price for symbol.
func (a *AlpacaProvider) GetPrice(symbol string) (decimal.Decimal, error) {
	trade, err := a.mdClient.GetLatestTrade(strings.ToUpper(symbol), marketdata.GetLatestTradeRequest{})
	if err != nil {
		return decimal.Zero, err
	}
	if trade == nil {
		return decimal.Zero, fmt.Errorf("no trade found for %s", symbol)
	}
	return decimal.NewFromFloat(trade.Price), nil
}

// ApplyReferencePrice fills p.MarketPrice from provider when the product has a
// symbol and no explicit market price. Lookup failures are logged and leave the
// product unchanged, so the policy falls back to the budget.
func ApplyReferencePrice(provider PriceProvider, p *models.Product) bool {
	if provider == nil || p.Symbol == "" || p.MarketPrice != nil {
		return false
	}

	price, err := provider.GetPrice(p.Symbol)
	if err != nil {
		logger.Warnf("Reference price for %s (%s) unavailable: %v", p.Name, p.Symbol, err)
		return false
	}
	if !price.IsPositive() {
		logger.Warnf("Reference price for %s (%s) is not positive: %s", p.Name, p.Symbol, price)
		return false
	}

	p.MarketPrice = models.Price(price.Floor())
	logger.Infof("[%s] Reference price from market: ₹%s", p.Symbol, p.MarketPrice)
	return true
}
