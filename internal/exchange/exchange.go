// Package exchange hosts venue connectors and the execution error taxonomy
// shared by them.
package exchange

import (
	"context"

	"github.com/bryanzk/MarketMakerDemo-sub001/internal/market"
)

// Client is the venue surface one execution unit drives. Every blocking call
// takes a context; a call either completes or returns an error, there is no
// in-band cancellation of in-flight exchange work.
type Client interface {
	// Name identifies the venue for logs and alerts.
	Name() string
	// Symbol returns the instrument this client currently trades.
	Symbol() string
	// SetSymbol switches the instrument; false when the venue refuses.
	SetSymbol(symbol string) bool

	// FetchMarketData returns the current top of book.
	FetchMarketData(ctx context.Context) (market.Snapshot, error)
	// FetchFundingRate returns the current funding rate, 0 when the venue
	// does not support funding.
	FetchFundingRate(ctx context.Context) (float64, error)
	// FetchAccountData returns position and balance state.
	FetchAccountData(ctx context.Context) (market.Account, error)
	// FetchOpenOrders lists all resting orders on the account, not just the
	// caller's; filtering to owned ids is the caller's job.
	FetchOpenOrders(ctx context.Context) ([]market.LiveOrder, error)

	// PlaceOrders submits quotes and returns the venue acknowledgements.
	// Partial success returns the placed subset alongside the error.
	PlaceOrders(ctx context.Context, quotes []market.Quote) ([]market.PlacedOrder, error)
	// CancelOrders removes the given order ids; unknown ids are ignored.
	CancelOrders(ctx context.Context, ids []string) error
}
