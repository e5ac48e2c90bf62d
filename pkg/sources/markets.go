package sources

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"
	"golang.org/x/sync/errgroup"

	"github.com/sudorandom/georisk/pkg/utils"
)

// TroyOuncesPerKg converts a per-ounce gold quote into a per-kilogram price.
const TroyOuncesPerKg = 32.150746568627

// Stooq symbols for each market price.
const (
	SymbolGold  = "xauusd" // USD per troy ounce
	SymbolBTC   = "btcusd"
	SymbolWTI   = "cl.f" // USD per barrel
	SymbolBrent = "cb.f" // USD per barrel
)

var ErrBadQuote = errors.New("bad quote")

// Quoter returns the last close price of a symbol.
type Quoter interface {
	Last(ctx context.Context, symbol string) (float64, error)
}

// StooqClient reads the stooq current-quote CSV
// (symbol,date,time,open,high,low,close,volume).
type StooqClient struct {
	BaseURL   string
	Client    *http.Client
	UserAgent string
}

func NewStooqClient(baseURL string, timeout time.Duration) *StooqClient {
	if baseURL == "" {
		baseURL = StooqQuoteURL
	}
	return &StooqClient{BaseURL: baseURL, Client: &http.Client{Timeout: timeout}, UserAgent: "georisk/1.0"}
}

func (c *StooqClient) Last(ctx context.Context, symbol string) (float64, error) {
	loc := fmt.Sprintf("%s?s=%s&f=sd2t2ohlcv&h&e=csv", c.BaseURL, url.QueryEscape(symbol))
	h := http.Header{}
	h.Set("User-Agent", c.UserAgent)
	data, err := utils.ReadAll(ctx, c.Client, loc, h)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", symbol, err)
	}
	return parseStooqClose(symbol, string(data))
}

func parseStooqClose(symbol, body string) (float64, error) {
	records, err := csv.NewReader(strings.NewReader(strings.TrimSpace(body))).ReadAll()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", symbol, err)
	}
	if len(records) < 2 {
		return 0, fmt.Errorf("%s no data: %w", symbol, ErrBadQuote)
	}
	cols := records[1]
	if len(cols) < 7 {
		return 0, fmt.Errorf("%s short row: %w", symbol, ErrBadQuote)
	}
	last, err := strconv.ParseFloat(strings.TrimSpace(cols[6]), 64)
	if err != nil || math.IsNaN(last) || math.IsInf(last, 0) {
		return 0, fmt.Errorf("%s bad close %q: %w", symbol, cols[6], ErrBadQuote)
	}
	return last, nil
}

type MarketPrices struct {
	GoldUSD  float64 `json:"gold_usd"`
	BTCUSD   float64 `json:"btc_usd"`
	WTIUSD   float64 `json:"wti_usd"`
	BrentUSD float64 `json:"brent_usd"`
}

// FetchMarkets queries every symbol concurrently. Any failure aborts the
// whole run.
func FetchMarkets(ctx context.Context, q Quoter) (MarketPrices, error) {
	var goldPerOz, btc, wti, brent float64
	g, ctx := errgroup.WithContext(ctx)
	for _, job := range []struct {
		symbol string
		dst    *float64
	}{
		{SymbolGold, &goldPerOz},
		{SymbolBTC, &btc},
		{SymbolWTI, &wti},
		{SymbolBrent, &brent},
	} {
		g.Go(func() error {
			v, err := q.Last(ctx, job.symbol)
			if err != nil {
				return err
			}
			*job.dst = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return MarketPrices{}, err
	}
	return MarketPrices{
		GoldUSD:  goldPerOz * TroyOuncesPerKg,
		BTCUSD:   btc,
		WTIUSD:   wti,
		BrentUSD: brent,
	}, nil
}

// UpdateMarkets rewrites generated_at and markets in a snapshot document and
// leaves every other field as it was.
func UpdateMarkets(ctx context.Context, q Quoter, doc []byte, now time.Time) ([]byte, MarketPrices, error) {
	if !gjson.ValidBytes(doc) || !gjson.ParseBytes(doc).IsObject() {
		return nil, MarketPrices{}, errors.New("snapshot document is not a JSON object")
	}
	prices, err := FetchMarkets(ctx, q)
	if err != nil {
		return nil, MarketPrices{}, err
	}
	out, err := sjson.SetBytes(doc, "generated_at", now.UTC().Format("2006-01-02T15:04:05.000Z07:00"))
	if err != nil {
		return nil, MarketPrices{}, err
	}
	out, err = sjson.SetBytes(out, "markets", prices)
	if err != nil {
		return nil, MarketPrices{}, err
	}
	return pretty.PrettyOptions(out, &pretty.Options{Width: 80, Indent: "  "}), prices, nil
}
