package exchange

import (
	"context"

	"github.com/bryanzk/MarketMakerDemo-sub001/internal/market"
)

// Shadow couples a live book feed with paper execution so the engine can
// quote against real markets without sending real orders.
type Shadow struct {
	feed  *BookFeed
	paper *Paper
}

// NewShadow wraps a running feed and a paper venue into one client.
func NewShadow(feed *BookFeed, paper *Paper) *Shadow {
	return &Shadow{feed: feed, paper: paper}
}

// Name implements Client.
func (s *Shadow) Name() string { return "binance-shadow" }

// Symbol implements Client.
func (s *Shadow) Symbol() string { return s.paper.Symbol() }

// SetSymbol always refuses: the feed is bound to one stream for its lifetime.
func (s *Shadow) SetSymbol(string) bool { return false }

// FetchMarketData returns the live book, mirroring it into the paper venue so
// both sides agree on the mark.
func (s *Shadow) FetchMarketData(_ context.Context) (market.Snapshot, error) {
	snap, ok := s.feed.Snapshot()
	if !ok {
		return market.Snapshot{}, NewExecutionError(KindNetwork, s.Symbol(), "book feed not warmed up")
	}
	s.paper.SetBook(snap)
	return snap, nil
}

// FetchFundingRate implements Client.
func (s *Shadow) FetchFundingRate(_ context.Context) (float64, error) {
	return s.feed.FundingRate(), nil
}

// FetchAccountData implements Client.
func (s *Shadow) FetchAccountData(ctx context.Context) (market.Account, error) {
	return s.paper.FetchAccountData(ctx)
}

// FetchOpenOrders implements Client.
func (s *Shadow) FetchOpenOrders(ctx context.Context) ([]market.LiveOrder, error) {
	return s.paper.FetchOpenOrders(ctx)
}

// PlaceOrders implements Client.
func (s *Shadow) PlaceOrders(ctx context.Context, quotes []market.Quote) ([]market.PlacedOrder, error) {
	return s.paper.PlaceOrders(ctx, quotes)
}

// CancelOrders implements Client.
func (s *Shadow) CancelOrders(ctx context.Context, ids []string) error {
	return s.paper.CancelOrders(ctx, ids)
}
