// Copyright 2026 Google LLC
// SPDX-License-Identifier: Apache-2.0

package status

import (
	"context"
	"flag"
	"net/http"
	"net/url"
	"strings"

	"github.com/aboyz1/workflow/internal/httpx"
	"github.com/aboyz1/workflow/internal/oauth"
	"github.com/aboyz1/workflow/pkg/act"
	"github.com/aboyz1/workflow/pkg/act/api"
	"github.com/aboyz1/workflow/pkg/act/cli"
	"github.com/aboyz1/workflow/pkg/deploy/schema"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	yaml "gopkg.in/yaml.v3"
)

// Config holds all configuration for the status command.
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

// Handler contains the business logic for the status command.
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
	stub := api.Stub[schema.GetDeploymentRequest, schema.Deployment](&httpx.WithUserAgent{BasicClient: client, UserAgent: "deployctl"}, apiURL.JoinPath("status"))
	d, err := stub(ctx, schema.GetDeploymentRequest{ID: cfg.ID})
	if err != nil {
		return nil, errors.Wrap(err, "fetching deployment")
	}
	if err := yaml.NewEncoder(deps.IO.Out).Encode(d); err != nil {
		return nil, errors.Wrap(err, "encoding deployment")
	}
	return &act.NoOutput{}, nil
}

// Command creates a new status command instance.
func Command() *cobra.Command {
	cfg := Config{}
	cmd := &cobra.Command{
		Use:   "status --api <URI> <deployment-id>",
		Short: "Show one deployment",
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
