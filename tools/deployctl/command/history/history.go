// Copyright 2026 Google LLC
// SPDX-License-Identifier: Apache-2.0

package history

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aboyz1/workflow/internal/httpx"
	"github.com/aboyz1/workflow/internal/oauth"
	"github.com/aboyz1/workflow/pkg/act"
	"github.com/aboyz1/workflow/pkg/act/api"
	"github.com/aboyz1/workflow/pkg/act/cli"
	"github.com/aboyz1/workflow/pkg/deploy/schema"
	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var (
	green  = color.New(color.FgGreen).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
)

// Config holds all configuration for the history command.
type Config struct {
	API   string
	Repo  string
	Limit int
}

// Validate ensures the configuration is valid.
func (c Config) Validate() error {
	if c.API == "" {
		return errors.New("api is required")
	}
	if c.Limit < 0 {
		return errors.New("limit must be non-negative")
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

// statusCell pads before colorizing since ANSI escapes would skew %-9s widths.
func statusCell(s schema.DeploymentStatus) string {
	padded := fmt.Sprintf("%-9s", s)
	switch s {
	case schema.DeploymentSucceeded:
		return green(padded)
	case schema.DeploymentFailed:
		return red(padded)
	default:
		return yellow(padded)
	}
}

// Handler contains the business logic for listing deployments.
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
	stub := api.Stub[schema.ListDeploymentsRequest, schema.ListDeploymentsResponse](&httpx.WithUserAgent{BasicClient: client, UserAgent: "deployctl"}, apiURL.JoinPath("list"))
	resp, err := stub(ctx, schema.ListDeploymentsRequest{Repo: cfg.Repo, Limit: cfg.Limit})
	if err != nil {
		return nil, errors.Wrap(err, "listing deployments")
	}
	for _, d := range resp.Deployments {
		fmt.Fprintf(deps.IO.Out, "%s  %s  %s  %s\n", d.Created.Format(time.RFC3339), d.ID, statusCell(d.Status), d.Repo)
	}
	switch len(resp.Deployments) {
	case 0:
		fmt.Fprintln(deps.IO.Out, "No deployments found")
	case 1:
		fmt.Fprintln(deps.IO.Out, "1 deployment found")
	default:
		fmt.Fprintf(deps.IO.Out, "%d deployments found\n", len(resp.Deployments))
	}
	return &act.NoOutput{}, nil
}

// Command creates a new history command instance.
func Command() *cobra.Command {
	cfg := Config{}
	cmd := &cobra.Command{
		Use:   "history --api <URI> [--repo <repository-url>] [--limit <N>]",
		Short: "List recent deployments",
		Args:  cobra.NoArgs,
		RunE: cli.RunE(
			&cfg,
			cli.SkipArgs[Config],
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
	set.StringVar(&cfg.Repo, "repo", "", "filter to deployments of one repository URL")
	set.IntVar(&cfg.Limit, "limit", 0, "maximum number of deployments to list")
	return set
}
