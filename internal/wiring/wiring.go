// Package wiring resolves the venue capability set (Client, Normalizer) for
// each configured venue at process startup, shared by cmd/run-discovery and
// cmd/run-logger so both binaries build an identical VenueRuntime from one
// Config. This is the concrete realization of the "small capability set
// resolved at startup" shape described for VenueRuntime.
package wiring

import (
	"fmt"

	"github.com/mdragan85/venuepoll/internal/auth"
	"github.com/mdragan85/venuepoll/internal/config"
	"github.com/mdragan85/venuepoll/internal/venue"
	"github.com/mdragan85/venuepoll/internal/venue/ksh"
	"github.com/mdragan85/venuepoll/internal/venue/novx"
)

// BuildRuntimes resolves one venue.Runtime per entry in cfg.Venues.
func BuildRuntimes(cfg *config.Config) (map[string]*venue.Runtime, error) {
	out := make(map[string]*venue.Runtime, len(cfg.Venues))
	for name, vc := range cfg.Venues {
		rt, err := buildRuntime(name, vc)
		if err != nil {
			return nil, fmt.Errorf("wiring: venue %s: %w", name, err)
		}
		out[name] = rt
	}
	return out, nil
}

func buildRuntime(name string, vc config.VenueConfig) (*venue.Runtime, error) {
	creds, err := loadCredentials(vc)
	if err != nil {
		return nil, err
	}

	switch vc.Kind {
	case "rest":
		var opts []novx.Option
		if creds != nil {
			opts = append(opts, novx.WithCredentials(creds))
		}
		client := novx.NewClient(vc.BaseURL, vc.RequestTimeout, opts...)
		return &venue.Runtime{
			Name:           name,
			Client:         client,
			Normalizer:     novx.Normalize,
			Rules:          novx.NewRules("open"),
			MaxWorkers:     vc.MaxWorkers,
			RequestTimeout: vc.RequestTimeout,
			NewWorkerClient: func() venue.Client {
				return client.NewWorkerClient(vc.RequestTimeout)
			},
		}, nil

	case "ws":
		return &venue.Runtime{
			Name:           name,
			Client:         ksh.NewClient(vc.WSURL, creds),
			Normalizer:     ksh.Normalize,
			Rules:          ksh.NewRules("open"),
			MaxWorkers:     vc.MaxWorkers,
			RequestTimeout: vc.RequestTimeout,
			NewWorkerClient: func() venue.Client {
				return ksh.NewClient(vc.WSURL, creds)
			},
		}, nil

	default:
		return nil, fmt.Errorf("unknown venue kind %q", vc.Kind)
	}
}

func loadCredentials(vc config.VenueConfig) (*auth.Credentials, error) {
	if vc.APIKey == "" || vc.PrivateKeyPath == "" {
		return nil, nil
	}
	return auth.LoadCredentials(vc.APIKey, vc.PrivateKeyPath)
}
