package main

import (
    "bufio"
    "errors"
    "io"
    "net"
    "net/http"
    "path/filepath"
    "testing"
    "time"

    "github.com/stretchr/testify/require"
    "go.uber.org/zap"

    "cmcproxy/internal/config"
    "cmcproxy/internal/credential"
    "cmcproxy/internal/provider/breaker"
    "cmcproxy/internal/provider/coinmarketcap"
    "cmcproxy/internal/server"
)

func TestRun_MissingCredentialFailsBeforeListening(t *testing.T) {
    t.Setenv("CMC_API_KEY", "")
    t.Setenv("CMC_CONFIG_FILE", filepath.Join(t.TempDir(), "absent.ini"))
    t.Setenv("LOG_LEVEL", "error")

    err := run(t.Context(), flags{port: "0"})

    var cfgErr *credential.ConfigurationError
    require.ErrorAs(t, err, &cfgErr)
}

func TestRun_MissingEnvFile(t *testing.T) {
    err := run(t.Context(), flags{envFile: filepath.Join(t.TempDir(), "missing.env")})
    require.ErrorContains(t, err, "env file")
}

func TestBuildProvider(t *testing.T) {
    cfg := config.Default()

    p, err := buildProvider(cfg, "key", zap.NewNop())
    require.NoError(t, err)
    require.IsType(t, &coinmarketcap.Adapter{}, p)
    require.Equal(t, "CoinMarketCap", p.Name())

    cfg.Breaker.Enabled = true
    p, err = buildProvider(cfg, "key", zap.NewNop())
    require.NoError(t, err)
    require.IsType(t, &breaker.Provider{}, p)

    _, err = buildProvider(cfg, "", zap.NewNop())
    require.ErrorIs(t, err, coinmarketcap.ErrMissingKey)
}

func TestRootCmd_Flags(t *testing.T) {
    cmd := newRootCmd()
    for _, name := range []string{"config", "env-file", "host", "port"} {
        require.NotNilf(t, cmd.Flags().Lookup(name), "flag %s", name)
    }
}

func TestHTTPServer_AsteriskPreflight(t *testing.T) {
    // Arrange: the production listener on an ephemeral port
    p, err := buildProvider(config.Default(), "key", zap.NewNop())
    require.NoError(t, err)
    srv := newHTTPServer(config.Default(), server.New(server.Options{Provider: p}))
    ln, err := net.Listen("tcp", "127.0.0.1:0")
    require.NoError(t, err)
    go func() {
        if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
            t.Errorf("serve: %v", err)
        }
    }()
    t.Cleanup(func() { _ = srv.Close() })

    conn, err := net.Dial("tcp", ln.Addr().String())
    require.NoError(t, err)
    defer conn.Close()
    require.NoError(t, conn.SetDeadline(time.Now().Add(5*time.Second)))

    // Act: http.Client cannot send the asterisk form, so write it raw
    _, err = io.WriteString(conn, "OPTIONS * HTTP/1.1\r\nHost: localhost\r\nConnection: close\r\n\r\n")
    require.NoError(t, err)
    res, err := http.ReadResponse(bufio.NewReader(conn), nil)
    require.NoError(t, err)
    defer res.Body.Close()

    // Assert
    require.Equal(t, http.StatusOK, res.StatusCode)
    require.Equal(t, "*", res.Header.Get("Access-Control-Allow-Origin"))
    require.Equal(t, "GET, OPTIONS", res.Header.Get("Access-Control-Allow-Methods"))
    require.Equal(t, "Content-Type", res.Header.Get("Access-Control-Allow-Headers"))
    require.Equal(t, "application/json", res.Header.Get("Content-Type"))
    body, err := io.ReadAll(res.Body)
    require.NoError(t, err)
    require.Empty(t, body)
}
