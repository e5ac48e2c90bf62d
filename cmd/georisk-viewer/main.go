package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/rs/zerolog/log"
	_ "github.com/silbinarywolf/preferdiscretegpu"

	"github.com/sudorandom/georisk/pkg/config"
	"github.com/sudorandom/georisk/pkg/dashboard"
	"github.com/sudorandom/georisk/pkg/geomap"
	"github.com/sudorandom/georisk/pkg/logging"
	"github.com/sudorandom/georisk/pkg/metrics"
	"github.com/sudorandom/georisk/pkg/snapshot"
	"github.com/sudorandom/georisk/pkg/sources"
)

var cli struct {
	Config       string `help:"Path to a georisk.yaml config file." type:"path"`
	Headless     bool   `help:"Run without a local window (rendering stays active)."`
	Snapshot     string `help:"Snapshot location: http(s) URL, ws(s) feed or local file. Overrides snapshot.url."`
	World        string `help:"World GeoJSON location. Overrides world.url."`
	Width        int    `help:"Internal rendering width. Overrides render.width."`
	Height       int    `help:"Internal rendering height. Overrides render.height."`
	WindowWidth  int    `help:"Initial window width (windowed only)." default:"1280"`
	WindowHeight int    `help:"Initial window height (windowed only)." default:"720"`
	CaptureDir   string `help:"Write a PNG of the first frame after every applied snapshot into this directory." type:"path"`
	LogLevel     string `help:"Log level. Overrides log.level."`
}

func main() {
	kctx := kong.Parse(&cli,
		kong.Name("georisk-viewer"),
		kong.Description("Live geographic risk map: world outline, pulsing markers, headline ticker and market prices."),
		kong.UsageOnError(),
	)

	cfg, err := config.Load(cli.Config)
	kctx.FatalIfErrorf(err)
	applyFlags(cfg)
	kctx.FatalIfErrorf(cfg.Validate())

	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rings, err := sources.LoadWorld(ctx, cfg.World.URL)
	if err != nil {
		log.Fatal().Err(err).Str("location", cfg.World.URL).Msg("Failed to load world geometry")
	}
	boundary := geomap.BuildBoundary(rings)

	pool := geomap.NewPool(geomap.PoolOptions{Capacity: cfg.Pool.Capacities(), Seed: cfg.Pool.Seed})
	display := dashboard.NewDisplay()
	animator := dashboard.NewAnimator(pool, display, time.Now())

	engine := dashboard.NewEngine(cfg.Render.Width, cfg.Render.Height, pool, display, animator)
	engine.FrameCaptureDir = cfg.Render.CaptureDir
	engine.Done = ctx.Done()
	engine.LoadData(boundary)

	refresher := dashboard.NewRefresher(snapshot.NewSource(ctx, cfg.Snapshot.URL, cfg.Snapshot.Timeout), pool, display)
	refresher.Interval = cfg.Snapshot.RefreshInterval
	refresher.OnApplied = engine.RequestCapture
	if cfg.GeoIP.Enabled {
		geo, closeGeo := geoLabelSource(cfg)
		defer closeGeo()
		refresher.GeoLabel = geo
	}
	go refresher.Run(ctx)

	if cfg.Metrics.Addr != "" {
		go func() {
			if err := metrics.Serve(ctx, cfg.Metrics.Addr); err != nil {
				log.Error().Err(err).Str("component", "metrics").Msg("Metrics server stopped")
			}
		}()
	}

	log.Info().
		Str("snapshot", cfg.Snapshot.URL).
		Dur("refresh_interval", cfg.Snapshot.RefreshInterval).
		Int("width", cfg.Render.Width).
		Int("height", cfg.Render.Height).
		Msg("Starting viewer")

	ebiten.SetTPS(cfg.Render.TPS)
	if cli.Headless {
		log.Info().Msg("Running in HEADLESS mode (rendering active)")
	} else {
		ebiten.SetWindowSize(cli.WindowWidth, cli.WindowHeight)
		ebiten.SetWindowTitle("GeoRisk Live Map")
		ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	}
	if err := ebiten.RunGame(engine); err != nil {
		log.Fatal().Err(err).Msg("Game loop failed")
	}
}

func applyFlags(cfg *config.Config) {
	if cli.Snapshot != "" {
		cfg.Snapshot.URL = cli.Snapshot
	}
	if cli.World != "" {
		cfg.World.URL = cli.World
	}
	if cli.Width > 0 {
		cfg.Render.Width = cli.Width
	}
	if cli.Height > 0 {
		cfg.Render.Height = cli.Height
	}
	if cli.CaptureDir != "" {
		cfg.Render.CaptureDir = cli.CaptureDir
	}
	if cli.LogLevel != "" {
		cfg.Log.Level = cli.LogLevel
	}
}

// geoLabelSource uses the configured static location or ipapi.co and, when a
// MaxMind database is configured, fills missing city or country from it.
func geoLabelSource(cfg *config.Config) (sources.GeoLabelSource, func()) {
	static := sources.GeoIP{
		IP:          cfg.GeoIP.Static.IP,
		City:        cfg.GeoIP.Static.City,
		CountryName: cfg.GeoIP.Static.Country,
	}
	if cfg.GeoIP.MMDB == "" {
		return sources.NewLabelSource(static, cfg.GeoIP.URL, cfg.Snapshot.Timeout, nil), func() {}
	}
	db, err := sources.OpenMMDB(cfg.GeoIP.MMDB)
	if err != nil {
		log.Warn().Err(err).Str("component", "geoip").Msg("Local geolocation database unavailable")
		return sources.NewLabelSource(static, cfg.GeoIP.URL, cfg.Snapshot.Timeout, nil), func() {}
	}
	return sources.NewLabelSource(static, cfg.GeoIP.URL, cfg.Snapshot.Timeout, db), func() {
		if err := db.Close(); err != nil {
			log.Warn().Err(err).Str("component", "geoip").Msg("Error closing geolocation database")
		}
	}
}
