package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/anteyko-labs/TradeShield-sub000/pkg/logger"

	assetv1 "github.com/anteyko-labs/TradeShield-sub000/internal/domain/asset/v1"
	oraclev1 "github.com/anteyko-labs/TradeShield-sub000/internal/domain/oracle/v1"
)

type priceResponse struct {
	Pair  string          `json:"pair"`
	Price decimal.Decimal `json:"price"`
}

type cachedPrice struct {
	price     decimal.Decimal
	fetchedAt time.Time
}

// HTTPOracle fetches reference prices from an external feed. Failed fetches
// fall back to the last known price while it is younger than maxAge.
type HTTPOracle struct {
	endpoint string
	client   *http.Client
	maxAge   time.Duration
	logger   logger.Interface

	mu    sync.RWMutex
	cache map[string]cachedPrice
}

var _ oraclev1.PriceOracle = (*HTTPOracle)(nil)

// NewHTTPOracle creates an oracle against the given endpoint. The endpoint
// is queried as GET {endpoint}?pair=BASE-QUOTE.
func NewHTTPOracle(endpoint string, timeout, maxAge time.Duration, log logger.Interface) *HTTPOracle {
	return &HTTPOracle{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
		maxAge:   maxAge,
		logger:   log,
		cache:    make(map[string]cachedPrice),
	}
}

// GetPrice returns the current reference price of the pair.
func (o *HTTPOracle) GetPrice(ctx context.Context, pair assetv1.Pair) (decimal.Decimal, error) {
	price, err := o.fetch(ctx, pair)
	if err == nil {
		o.mu.Lock()
		o.cache[pair.Symbol()] = cachedPrice{price: price, fetchedAt: time.Now()}
		o.mu.Unlock()
		return price, nil
	}

	o.logger.WarnContext(ctx, "oracle fetch failed, falling back to cache",
		logger.Field{Key: "pair", Value: pair.Symbol()},
		logger.Field{Key: "reason", Value: err.Error()},
	)

	o.mu.RLock()
	cached, ok := o.cache[pair.Symbol()]
	o.mu.RUnlock()

	if !ok || time.Since(cached.fetchedAt) > o.maxAge {
		return decimal.Zero, pkgerrors.Wrapf(oraclev1.ErrStalePrice, "pair %s: %v", pair.Symbol(), err)
	}

	return cached.price, nil
}

func (o *HTTPOracle) fetch(ctx context.Context, pair assetv1.Pair) (decimal.Decimal, error) {
	u, err := url.Parse(o.endpoint)
	if err != nil {
		return decimal.Zero, err
	}
	q := u.Query()
	q.Set("pair", pair.Symbol())
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return decimal.Zero, err
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return decimal.Zero, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("oracle returned status %d", resp.StatusCode)
	}

	var payload priceResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return decimal.Zero, err
	}
	if !payload.Price.IsPositive() {
		return decimal.Zero, fmt.Errorf("oracle returned non-positive price %s", payload.Price)
	}

	return payload.Price, nil
}
