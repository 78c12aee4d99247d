package main

import (
    "context"
    "errors"
    "fmt"
    "net/http"
    "os"
    "os/signal"
    "syscall"
    "time"

    "github.com/joho/godotenv"
    "github.com/spf13/cobra"
    "go.uber.org/zap"

    "cmcproxy/internal/config"
    "cmcproxy/internal/credential"
    "cmcproxy/internal/httpx"
    "cmcproxy/internal/logging"
    "cmcproxy/internal/metrics"
    "cmcproxy/internal/provider"
    "cmcproxy/internal/provider/breaker"
    "cmcproxy/internal/provider/coinmarketcap"
    "cmcproxy/internal/server"
)

type flags struct {
    configPath string
    envFile    string
    host       string
    port       string
}

func main() {
    if err := newRootCmd().Execute(); err != nil {
        os.Exit(1)
    }
}

func newRootCmd() *cobra.Command {
    var f flags
    cmd := &cobra.Command{
        Use:   "cmcproxy",
        Short: "CoinMarketCap quotes proxy for browser clients",
        Long: `cmcproxy serves GET /api/quotes and forwards it to the CoinMarketCap
quotes/latest API with the server-side key attached.

The key is read from CMC_API_KEY or, when unset, from API_KEY in the
[DEFAULT] section of coinmarket.ini.`,
        SilenceUsage: true,
        Args:         cobra.NoArgs,
        RunE: func(cmd *cobra.Command, _ []string) error {
            return run(cmd.Context(), f)
        },
    }
    cmd.Flags().StringVar(&f.configPath, "config", os.Getenv("CONFIG_FILE"), "path to config.yaml (optional)")
    cmd.Flags().StringVar(&f.envFile, "env-file", "", "load environment variables from this .env file first")
    cmd.Flags().StringVar(&f.host, "host", "", "listen host (overrides config)")
    cmd.Flags().StringVar(&f.port, "port", "", "listen port (overrides config)")
    cmd.CompletionOptions.DisableDefaultCmd = true
    return cmd
}

func run(ctx context.Context, f flags) error {
    if f.envFile != "" {
        if err := godotenv.Load(f.envFile); err != nil {
            return fmt.Errorf("env file: %w", err)
        }
    }

    cfg, err := config.Load(f.configPath)
    if err != nil { return err }
    if f.host != "" { cfg.Server.Host = f.host }
    if f.port != "" { cfg.Server.Port = f.port }

    logger, err := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
    if err != nil { return err }
    defer func() { _ = logger.Sync() }()

    // No request can be served without a key: fail before binding.
    key, err := credential.Resolve(os.LookupEnv, cfg.Credentials.File)
    if err != nil {
        logger.Error("startup failed", zap.Error(err))
        return err
    }

    p, err := buildProvider(cfg, key, logger)
    if err != nil { return err }

    reg, m := metrics.NewRegistry()
    handler := server.New(server.Options{
        Provider:       p,
        Logger:         logger,
        Metrics:        m,
        DefaultConvert: cfg.Upstream.DefaultConvert,
        Timeout:        cfg.Upstream.Timeout(),
    })

    srv := newHTTPServer(cfg, handler)

    var admin *http.Server
    if cfg.Metrics.Addr != "" {
        admin = &http.Server{
            Addr:              cfg.Metrics.Addr,
            Handler:           metrics.AdminHandler(reg),
            ReadHeaderTimeout: 5 * time.Second,
        }
        go func() {
            logger.Info("admin listening", zap.String("addr", admin.Addr))
            if err := admin.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
                logger.Error("admin server", zap.Error(err))
            }
        }()
    }

    errCh := make(chan error, 1)
    go func() {
        logger.Info("CMC proxy listening",
            zap.String("url", "http://"+srv.Addr+server.QuotesPath),
            zap.String("provider", p.Name()),
        )
        if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
            errCh <- err
        }
        close(errCh)
    }()

    // graceful shutdown
    if ctx == nil { ctx = context.Background() }
    ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
    defer stop()
    select {
    case err, ok := <-errCh:
        if ok {
            logger.Error("server", zap.Error(err))
            return err
        }
        return nil
    case <-ctx.Done():
    }
    logger.Info("shutting down")
    shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
    defer cancel()
    if admin != nil { _ = admin.Shutdown(shutdownCtx) }
    return srv.Shutdown(shutdownCtx)
}

// newHTTPServer builds the public listener. "OPTIONS *" must reach handler
// so pre-flights without a path still get the CORS headers.
func newHTTPServer(cfg config.Config, handler http.Handler) *http.Server {
    return &http.Server{
        Addr:                         cfg.Server.Addr(),
        Handler:                      handler,
        DisableGeneralOptionsHandler: true,
        ReadHeaderTimeout:            5 * time.Second,
        ReadTimeout:                  15 * time.Second,
        WriteTimeout:                 cfg.Upstream.Timeout() + 10*time.Second,
        IdleTimeout:                  60 * time.Second,
    }
}

func buildProvider(cfg config.Config, key string, logger *zap.Logger) (provider.Provider, error) {
    httpClient := httpx.New(cfg.Upstream.Timeout())
    client, err := coinmarketcap.NewCoinMarketCapAPIClient(key,
        coinmarketcap.WithBaseURL(cfg.Upstream.BaseURL),
        coinmarketcap.WithHTTPClient(httpClient),
    )
    if err != nil { return nil, err }
    var p provider.Provider = coinmarketcap.NewAdapter(cfg.Upstream.Name, client)
    if cfg.Breaker.Enabled {
        p = breaker.New(p, breaker.Config{
            Failures:    cfg.Breaker.Failures,
            OpenTimeout: cfg.Breaker.OpenTimeout(),
        }, logger)
    }
    return p, nil
}
