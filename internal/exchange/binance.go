package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/bryanzk/MarketMakerDemo-sub001/internal/market"
)

const defaultFuturesStreamBase = "wss://fstream.binance.com/stream"

type futuresEnvelope struct {
	Stream string          `json:"stream"`
	Data   json.RawMessage `json:"data"`
}

type bookTickerEvent struct {
	Symbol   string `json:"s"`
	BidPrice string `json:"b"`
	AskPrice string `json:"a"`
}

type markPriceEvent struct {
	FundingRate string `json:"r"`
}

// BookFeed maintains the latest top of book and funding rate for one
// perpetual symbol from the Binance futures combined stream.
type BookFeed struct {
	symbol  string
	base    string
	log     zerolog.Logger
	mu      sync.RWMutex
	snap    market.Snapshot
	haveTop bool
	funding float64
}

// NewBookFeed builds a feed bound to one symbol (e.g. "ETHUSDT").
func NewBookFeed(symbol string, log zerolog.Logger) *BookFeed {
	return &BookFeed{symbol: strings.ToUpper(symbol), base: defaultFuturesStreamBase, log: log}
}

// Snapshot returns the latest book view and whether one has arrived yet.
func (f *BookFeed) Snapshot() (market.Snapshot, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.snap, f.haveTop
}

// FundingRate returns the most recent funding rate, 0 until the first mark
// price event.
func (f *BookFeed) FundingRate() float64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.funding
}

// Run consumes the stream until the context is canceled, reconnecting with
// capped exponential backoff.
func (f *BookFeed) Run(ctx context.Context) error {
	sym := strings.ToLower(f.symbol)
	url := fmt.Sprintf("%s?streams=%s@bookTicker/%s@markPrice", f.base, sym, sym)
	backoff := time.Second
	const maxBackoff = 30 * time.Second

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := f.consumeStream(ctx, url); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			f.log.Warn().Err(err).Msg("book feed disconnected, retrying")
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
			backoff = time.Duration(math.Min(float64(maxBackoff), float64(backoff)*1.8))
			continue
		}
		return nil
	}
}

func (f *BookFeed) consumeStream(ctx context.Context, url string) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	f.log.Info().Str("symbol", f.symbol).Msg("connected book feed")

	conn.SetReadLimit(1 << 20)
	conn.SetReadDeadline(time.Now().Add(30 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(30 * time.Second))
		return nil
	})

	pingCtx, pingCancel := context.WithCancel(ctx)
	defer pingCancel()
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					f.log.Warn().Err(err).Msg("book feed ping failed")
					return
				}
			case <-pingCtx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		_, message, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var env futuresEnvelope
		if err := json.Unmarshal(message, &env); err != nil {
			f.log.Warn().Err(err).Msg("failed to decode stream message")
			continue
		}

		switch {
		case strings.HasSuffix(env.Stream, "@bookTicker"):
			f.applyBookTicker(env.Data)
		case strings.HasSuffix(env.Stream, "@markPrice"):
			f.applyMarkPrice(env.Data)
		}
	}
}

func (f *BookFeed) applyBookTicker(data json.RawMessage) {
	var ev bookTickerEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		f.log.Warn().Err(err).Msg("failed to decode book ticker")
		return
	}
	bid, err := strconv.ParseFloat(ev.BidPrice, 64)
	if err != nil {
		f.log.Warn().Err(err).Msg("invalid bid price")
		return
	}
	ask, err := strconv.ParseFloat(ev.AskPrice, 64)
	if err != nil {
		f.log.Warn().Err(err).Msg("invalid ask price")
		return
	}
	f.mu.Lock()
	f.snap = market.Snapshot{
		MidPrice:   (bid + ask) / 2,
		BestBid:    bid,
		BestAsk:    ask,
		ObservedAt: time.Now(),
	}
	f.haveTop = true
	f.mu.Unlock()
}

func (f *BookFeed) applyMarkPrice(data json.RawMessage) {
	var ev markPriceEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		f.log.Warn().Err(err).Msg("failed to decode mark price")
		return
	}
	rate, err := strconv.ParseFloat(ev.FundingRate, 64)
	if err != nil {
		return
	}
	f.mu.Lock()
	f.funding = rate
	f.mu.Unlock()
}
