package marketmaker

import (
	"context"
	"sync"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/anteyko-labs/TradeShield-sub000/pkg/logger"

	ammv1 "github.com/anteyko-labs/TradeShield-sub000/internal/domain/amm/v1"
	assetv1 "github.com/anteyko-labs/TradeShield-sub000/internal/domain/asset/v1"
	ledgerv1 "github.com/anteyko-labs/TradeShield-sub000/internal/domain/ledger/v1"
	marketmakerv1 "github.com/anteyko-labs/TradeShield-sub000/internal/domain/marketmaker/v1"
	oraclev1 "github.com/anteyko-labs/TradeShield-sub000/internal/domain/oracle/v1"
	orderbookv1 "github.com/anteyko-labs/TradeShield-sub000/internal/domain/orderbook/v1"
	tradev1 "github.com/anteyko-labs/TradeShield-sub000/internal/domain/trade/v1"
)

// DefaultInterval is the cadence at which the engine drives Tick.
const DefaultInterval = 5 * time.Second

var basisPoints = decimal.NewFromInt(10000)

type makerState struct {
	cfg        marketmakerv1.MakerConfig
	stats      marketmakerv1.Stats
	openQuotes []string
}

// Scheduler requotes registered makers around an external reference price.
// When the oracle cannot produce a price, the pool's last trade price is
// used instead; with neither available the maker skips the round.
type Scheduler struct {
	mu      sync.Mutex
	makers  map[string]*makerState
	byAccnt map[string]string // account -> maker ID

	book   orderbookv1.Orderbook
	ledger ledgerv1.Ledger
	oracle oraclev1.PriceOracle
	pool   ammv1.Pool // nil when the pair has no pool
	logger logger.Interface
}

var _ marketmakerv1.Scheduler = (*Scheduler)(nil)
var _ marketmakerv1.Registry = (*Scheduler)(nil)

// NewScheduler wires a scheduler for one book. pool may be nil.
func NewScheduler(book orderbookv1.Orderbook, ledger ledgerv1.Ledger, oracle oraclev1.PriceOracle, pool ammv1.Pool, log logger.Interface) *Scheduler {
	return &Scheduler{
		makers:  make(map[string]*makerState),
		byAccnt: make(map[string]string),
		book:    book,
		ledger:  ledger,
		oracle:  oracle,
		pool:    pool,
		logger:  log,
	}
}

// AddMaker registers a maker strategy.
func (s *Scheduler) AddMaker(cfg marketmakerv1.MakerConfig) error {
	if cfg.SpreadBps <= 0 {
		cfg.SpreadBps = marketmakerv1.DefaultSpreadBps
	}
	if !cfg.SizeFraction.IsPositive() || cfg.SizeFraction.GreaterThan(decimal.NewFromInt(1)) {
		return pkgerrors.Wrapf(assetv1.ErrInvalidAmount, "size fraction %s must be in (0, 1]", cfg.SizeFraction)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.makers[cfg.ID] = &makerState{cfg: cfg}
	s.byAccnt[cfg.Account] = cfg.ID

	return nil
}

// SetActive pauses or resumes a maker without discarding its state.
func (s *Scheduler) SetActive(id string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.makers[id]
	if !ok {
		return pkgerrors.Wrapf(marketmakerv1.ErrMakerNotFound, "maker %s", id)
	}
	state.cfg.Active = active

	return nil
}

// Stats returns a maker's cumulative activity.
func (s *Scheduler) Stats(id string) (marketmakerv1.Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.makers[id]
	if !ok {
		return marketmakerv1.Stats{}, pkgerrors.Wrapf(marketmakerv1.ErrMakerNotFound, "maker %s", id)
	}

	return state.stats, nil
}

// RecordFill updates the owning maker's stats for a settled trade. Accounts
// without a maker are ignored.
func (s *Scheduler) RecordFill(account string, trade tradev1.Trade) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byAccnt[account]
	if !ok {
		return
	}
	state := s.makers[id]

	state.stats.TradesExecuted++
	state.stats.BaseVolume = state.stats.BaseVolume.Add(trade.Amount)
	state.stats.QuoteVolume = state.stats.QuoteVolume.Add(trade.QuoteVolume())
	if trade.TakerAccount == account {
		state.stats.FeesPaid = state.stats.FeesPaid.Add(trade.Fee)
	}
}

// Tick requotes every active maker once. A failing maker is recorded and
// skipped; it never prevents the other makers from quoting.
func (s *Scheduler) Tick(ctx context.Context) {
	s.mu.Lock()
	ids := make([]string, 0, len(s.makers))
	for id, state := range s.makers {
		if state.cfg.Active {
			ids = append(ids, id)
		}
	}
	s.mu.Unlock()

	for _, id := range ids {
		if err := s.requote(ctx, id); err != nil {
			s.mu.Lock()
			if state, ok := s.makers[id]; ok {
				state.stats.QuotesFailed++
				state.stats.LastError = err.Error()
			}
			s.mu.Unlock()

			s.logger.WarnContext(ctx, "maker requote failed",
				logger.Field{Key: "makerID", Value: id},
				logger.Field{Key: "reason", Value: err.Error()},
			)
		}
	}
}

// requote runs one maker round: cancel open quotes, then place a fresh bid
// and ask around the reference price.
func (s *Scheduler) requote(ctx context.Context, id string) error {
	s.mu.Lock()
	state, ok := s.makers[id]
	if !ok {
		s.mu.Unlock()
		return pkgerrors.Wrapf(marketmakerv1.ErrMakerNotFound, "maker %s", id)
	}
	cfg := state.cfg
	open := append([]string(nil), state.openQuotes...)
	state.openQuotes = nil
	s.mu.Unlock()

	for _, orderID := range open {
		err := s.book.CancelOrder(ctx, orderID)
		if err != nil && !pkgerrors.Is(err, orderbookv1.ErrOrderNotFound) && !pkgerrors.Is(err, orderbookv1.ErrAlreadyTerminal) {
			s.logger.Error(err, logger.Field{Key: "orderID", Value: orderID})
		}
	}

	refPrice, err := s.referencePrice(ctx, cfg.Pair)
	if err != nil {
		return err
	}

	spread := decimal.NewFromInt(cfg.SpreadBps).Div(basisPoints)
	one := decimal.NewFromInt(1)
	quoteScale := assetv1.Decimals(cfg.Pair.Quote)
	bidPrice := refPrice.Mul(one.Sub(spread)).Truncate(quoteScale)
	askPrice := refPrice.Mul(one.Add(spread)).Truncate(quoteScale)

	var placed []string

	if bidPrice.IsPositive() {
		if orderID, err := s.placeQuote(ctx, cfg, true, bidPrice); err == nil && orderID != "" {
			placed = append(placed, orderID)
		}
	}
	if orderID, err := s.placeQuote(ctx, cfg, false, askPrice); err == nil && orderID != "" {
		placed = append(placed, orderID)
	}

	s.mu.Lock()
	if state, ok := s.makers[id]; ok {
		state.openQuotes = append(state.openQuotes, placed...)
		state.stats.QuotesPlaced += int64(len(placed))
		state.stats.LastQuoteAt = time.Now().UnixNano()
		if len(placed) > 0 {
			state.stats.LastError = ""
		}
	}
	s.mu.Unlock()

	return nil
}

// placeQuote sizes and places one side of the spread. A side the maker
// cannot afford is skipped silently.
func (s *Scheduler) placeQuote(ctx context.Context, cfg marketmakerv1.MakerConfig, bid bool, price decimal.Decimal) (string, error) {
	baseScale := assetv1.Decimals(cfg.Pair.Base)

	var amount decimal.Decimal
	if bid {
		balance, err := s.ledger.Balance(cfg.Account, cfg.Pair.Quote)
		if err != nil {
			return "", err
		}
		budget := balance.Available.Mul(cfg.SizeFraction)
		amount = budget.Div(price).Truncate(baseScale)
	} else {
		balance, err := s.ledger.Balance(cfg.Account, cfg.Pair.Base)
		if err != nil {
			return "", err
		}
		amount = balance.Available.Mul(cfg.SizeFraction).Truncate(baseScale)
	}

	if !amount.IsPositive() {
		return "", nil
	}

	order, err := s.book.PlaceOrder(ctx, orderbookv1.PlaceOrderRequest{
		Account: cfg.Account,
		Type:    orderbookv1.OrderTypeLimit,
		Bid:     bid,
		Amount:  amount,
		Price:   price,
	})
	if err != nil {
		s.logger.WarnContext(ctx, "maker quote rejected",
			logger.Field{Key: "makerID", Value: cfg.ID},
			logger.Field{Key: "bid", Value: bid},
			logger.Field{Key: "reason", Value: err.Error()},
		)
		return "", err
	}

	return order.ID, nil
}

// referencePrice resolves the quoting midpoint: the oracle first, then the
// pool's last trade price.
func (s *Scheduler) referencePrice(ctx context.Context, pair assetv1.Pair) (decimal.Decimal, error) {
	var price decimal.Decimal
	var err error
	if s.oracle != nil {
		price, err = s.oracle.GetPrice(ctx, pair)
		if err == nil && price.IsPositive() {
			return price, nil
		}
	}

	if s.pool != nil {
		if last, poolErr := s.pool.LastPrice(); poolErr == nil && last.IsPositive() {
			return last, nil
		}
	}

	if err == nil {
		err = pkgerrors.Wrapf(oraclev1.ErrStalePrice, "pair %s", pair.Symbol())
	}
	return decimal.Zero, err
}
