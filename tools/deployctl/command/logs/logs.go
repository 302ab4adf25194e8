// Copyright 2026 Google LLC
// SPDX-License-Identifier: Apache-2.0

package logs

import (
	"context"
	"flag"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/aboyz1/workflow/internal/httpx"
	"github.com/aboyz1/workflow/internal/oauth"
	"github.com/aboyz1/workflow/pkg/act"
	"github.com/aboyz1/workflow/pkg/act/cli"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// Config holds all configuration for the logs command.
type Config struct {
	API string
	ID  string
}

// Validate ensures the configuration is valid.
func (c Config) Validate() error {
	if c.API == "" {
		return errors.New("api is required")
	}
	if _, err := uuid.Parse(c.ID); err != nil {
		return errors.Wrap(err, "invalid deployment id")
	}
	return nil
}

// Deps holds dependencies for the command.
type Deps struct {
	IO cli.IO
}

func (d *Deps) SetIO(cio cli.IO) { d.IO = cio }

// InitDeps initializes Deps.
func InitDeps(context.Context) (*Deps, error) {
	return &Deps{}, nil
}

func parseArgs(cfg *Config, args []string) error {
	if len(args) != 1 {
		return errors.New("expected exactly 1 argument: deployment ID")
	}
	cfg.ID = args[0]
	return nil
}

// Handler contains the business logic for the logs command.
func Handler(ctx context.Context, cfg Config, deps *Deps) (*act.NoOutput, error) {
	apiURL, err := url.Parse(cfg.API)
	if err != nil {
		return nil, errors.Wrap(err, "parsing API endpoint")
	}
	var client *http.Client
	if strings.Contains(apiURL.Host, "run.app") {
		// If the api is on Cloud Run, we need to use an authorized client.
		apiURL.Scheme = "https"
		client, err = oauth.AuthorizedUserIDClient(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "creating authorized HTTP client")
		}
	} else {
		client = http.DefaultClient
	}
	// The log endpoint serves plain text of unbounded size, so this streams
	// rather than going through an api.Stub.
	logURL := apiURL.JoinPath("logs")
	logURL.RawQuery = url.Values{"id": []string{cfg.ID}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, logURL.String(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "creating logs request")
	}
	httpClient := &httpx.WithUserAgent{BasicClient: client, UserAgent: "deployctl"}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "sending logs request")
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		return nil, errors.Wrap(errors.New(resp.Status), "logs request")
	}
	if _, err := io.Copy(deps.IO.Out, resp.Body); err != nil {
		return nil, errors.Wrap(err, "streaming logs")
	}
	return &act.NoOutput{}, nil
}

// Command creates a new logs command instance.
func Command() *cobra.Command {
	cfg := Config{}
	cmd := &cobra.Command{
		Use:   "logs --api <URI> <deployment-id>",
		Short: "Stream build logs for a deployment",
		Args:  cobra.ExactArgs(1),
		RunE: cli.RunE(
			&cfg,
			parseArgs,
			InitDeps,
			Handler,
		),
	}
	cmd.Flags().AddGoFlagSet(flagSet(cmd.Name(), &cfg))
	return cmd
}

// flagSet returns the command-line flags for the Config struct.
func flagSet(name string, cfg *Config) *flag.FlagSet {
	set := flag.NewFlagSet(name, flag.ContinueOnError)
	set.StringVar(&cfg.API, "api", "", "deployment service endpoint URI")
	return set
}
