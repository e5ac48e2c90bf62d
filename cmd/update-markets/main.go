package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog/log"

	"github.com/sudorandom/georisk/pkg/config"
	"github.com/sudorandom/georisk/pkg/logging"
	"github.com/sudorandom/georisk/pkg/sources"
)

var cli struct {
	Config   string        `help:"Path to a georisk.yaml config file." type:"path"`
	Snapshot string        `arg:"" optional:"" help:"Snapshot document to update in place." default:"public/snapshot.json" type:"path"`
	QuoteURL string        `help:"Stooq quote endpoint. Overrides markets.quote_url."`
	Timeout  time.Duration `help:"Timeout for each quote request." default:"15s"`
	DryRun   bool          `help:"Print the updated document instead of writing it."`
}

func main() {
	kctx := kong.Parse(&cli,
		kong.Name("update-markets"),
		kong.Description("Refresh the market prices and generated_at of a snapshot document."),
		kong.UsageOnError(),
	)

	cfg, err := config.Load(cli.Config)
	kctx.FatalIfErrorf(err)
	kctx.FatalIfErrorf(cfg.Validate())
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	quoteURL := cfg.Markets.QuoteURL
	if cli.QuoteURL != "" {
		quoteURL = cli.QuoteURL
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, sources.NewStooqClient(quoteURL, cli.Timeout), cli.Snapshot, cli.DryRun); err != nil {
		log.Error().Err(err).Str("snapshot", cli.Snapshot).Msg("update_markets failed")
		os.Exit(1)
	}
}

func run(ctx context.Context, q sources.Quoter, path string, dryRun bool) error {
	doc, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	out, prices, err := sources.UpdateMarkets(ctx, q, doc, time.Now())
	if err != nil {
		return err
	}

	if dryRun {
		_, err := os.Stdout.Write(out)
		return err
	}
	if err := writeFileAtomic(path, out); err != nil {
		return err
	}
	log.Info().
		Str("gold_usd_kg", humanize.Comma(int64(math.Round(prices.GoldUSD)))).
		Str("btc_usd", humanize.Comma(int64(math.Round(prices.BTCUSD)))).
		Str("wti_usd", humanize.Comma(int64(math.Round(prices.WTIUSD)))).
		Str("brent_usd", humanize.Comma(int64(math.Round(prices.BrentUSD)))).
		Msg("Updated markets")
	return nil
}

// writeFileAtomic replaces path so a concurrent reader never sees a
// partially written document.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
