package main

import (
	"context"
	"fmt"
	"net"

	"golang.ngrok.com/ngrok"
	ngrokconfig "golang.ngrok.com/ngrok/config"

	"SlackConnect/config"
)

// listen opens the public listener. With NGROK_AUTHTOKEN set the server is
// reachable through an ngrok tunnel, which the install flow needs as its
// redirect target during development.
func listen(ctx context.Context, cfg *config.Config) (net.Listener, error) {
	if !cfg.NgrokEnabled {
		return net.Listen("tcp", ":"+cfg.Port)
	}

	tun, err := ngrok.Listen(ctx, ngrokconfig.HTTPEndpoint(), ngrok.WithAuthtokenFromEnv())
	if err != nil {
		return nil, fmt.Errorf("ngrok listen: %w", err)
	}
	log.Info("ngrok tunnel established", "url", tun.URL())
	return tun, nil
}
