package main

import (
    "bytes"
    "context"
    "encoding/json"
    "fmt"
    "io"
    "net/url"
    "os"
    "time"

    "github.com/spf13/cobra"

    "cmcproxy/internal/config"
    "cmcproxy/internal/credential"
    "cmcproxy/internal/httpx"
    "cmcproxy/internal/provider"
    "cmcproxy/internal/provider/coinmarketcap"
    "cmcproxy/internal/server"
)

type options struct {
    symbols    string
    slug       string
    convert    string
    configPath string
    pretty     bool
}

func main() {
    if err := newFetchCmd(os.Stdout).Execute(); err != nil {
        os.Exit(1)
    }
}

func newFetchCmd(out io.Writer) *cobra.Command {
    var o options
    cmd := &cobra.Command{
        Use:   "fetch",
        Short: "Fetch latest quotes once and print the CoinMarketCap JSON",
        Example: `  fetch --symbols btc,eth
  fetch --slug bitcoin --convert eur --pretty`,
        SilenceUsage: true,
        Args:         cobra.NoArgs,
        RunE: func(cmd *cobra.Command, _ []string) error {
            cfg, err := config.Load(o.configPath)
            if err != nil { return err }
            key, err := credential.Resolve(os.LookupEnv, cfg.Credentials.File)
            if err != nil { return err }
            client, err := coinmarketcap.NewCoinMarketCapAPIClient(key,
                coinmarketcap.WithBaseURL(cfg.Upstream.BaseURL),
                coinmarketcap.WithHTTPClient(httpx.New(cfg.Upstream.Timeout())),
            )
            if err != nil { return err }
            return fetch(cmd.Context(), coinmarketcap.NewAdapter(cfg.Upstream.Name, client), o, cfg.Upstream.DefaultConvert, out)
        },
    }
    cmd.Flags().StringVar(&o.symbols, "symbols", os.Getenv("SYMBOLS"), "comma-separated ticker symbols, e.g. btc,eth")
    cmd.Flags().StringVar(&o.slug, "slug", "", "comma-separated CoinMarketCap slugs, e.g. bitcoin")
    cmd.Flags().StringVar(&o.convert, "convert", "", "quote currency (default from config, USD)")
    cmd.Flags().StringVar(&o.configPath, "config", os.Getenv("CONFIG_FILE"), "path to config.yaml (optional)")
    cmd.Flags().BoolVar(&o.pretty, "pretty", false, "indent the JSON output")
    cmd.CompletionOptions.DisableDefaultCmd = true
    return cmd
}

// fetch normalizes the flags exactly like the HTTP endpoint and writes the
// upstream body to out.
func fetch(ctx context.Context, p provider.Provider, o options, defConvert string, out io.Writer) error {
    q := server.ParseQuery(url.Values{
        "symbols": {o.symbols},
        "slug":    {o.slug},
        "convert": {o.convert},
    }, defConvert)
    if q.Empty() {
        return fmt.Errorf("--symbols or --slug is required")
    }
    if ctx == nil { ctx = context.Background() }
    ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
    defer cancel()

    body, err := p.Latest(ctx, q)
    if err != nil {
        return fmt.Errorf("%s (%s): %w", p.Name(), provider.Kind(err), err)
    }
    if o.pretty {
        var buf bytes.Buffer
        if err := json.Indent(&buf, body, "", "  "); err == nil {
            body = buf.Bytes()
        }
    }
    _, err = fmt.Fprintln(out, string(body))
    return err
}
