package httpx

import (
    "net"
    "net/http"
    "time"
)

// Client wraps http.Client with transport limits suited to a single upstream.
// It satisfies coinmarketcap.HTTPClient.
type Client struct {
    HTTP      *http.Client
    UserAgent string
}

// New returns a client whose whole exchange, body included, is bounded by timeout.
func New(timeout time.Duration) *Client {
    transport := &http.Transport{
        Proxy:                 http.ProxyFromEnvironment,
        DialContext:           (&net.Dialer{Timeout: 3 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
        MaxIdleConns:          100,
        MaxIdleConnsPerHost:   50,
        ForceAttemptHTTP2:     true,
        IdleConnTimeout:       90 * time.Second,
        TLSHandshakeTimeout:   3 * time.Second,
        ExpectContinueTimeout: 1 * time.Second,
    }
    return &Client{HTTP: &http.Client{Timeout: timeout, Transport: transport}, UserAgent: "cmcproxy/1.1"}
}

func (c *Client) Do(req *http.Request) (*http.Response, error) {
    if c.UserAgent != "" && req.Header.Get("User-Agent") == "" {
        req.Header.Set("User-Agent", c.UserAgent)
    }
    return c.HTTP.Do(req)
}
