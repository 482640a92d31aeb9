package probe

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"golang.org/x/net/proxy"
)

// NewHTTPClient creates the HTTP client used for key checks.
// When proxyAddress is non-empty it must be a SOCKS5 proxy in
// "host:port" format, and all validation traffic is routed through it.
//
// Design decision: We build the client here rather than in the caller
// because proxy wiring is the only transport variation the tool has,
// and keeping it next to the Checker makes the request path auditable
// in one place.
func NewHTTPClient(timeout time.Duration, proxyAddress string) (*http.Client, error) {
	if proxyAddress == "" {
		return &http.Client{Timeout: timeout}, nil
	}

	if _, _, err := net.SplitHostPort(proxyAddress); err != nil {
		return nil, fmt.Errorf("invalid proxy address %q: %w", proxyAddress, err)
	}

	// nil auth: SOCKS5 proxies used for this purpose rarely require it,
	// and credentials in CLI flags would leak into shell history.
	dialer, err := proxy.SOCKS5("tcp", proxyAddress, nil, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
	}

	dialContext := func(ctx context.Context, network, addr string) (net.Conn, error) {
		if cd, ok := dialer.(proxy.ContextDialer); ok {
			return cd.DialContext(ctx, network, addr)
		}
		return dialer.Dial(network, addr)
	}

	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			DialContext:       dialContext,
			DisableKeepAlives: true,
		},
	}, nil
}
