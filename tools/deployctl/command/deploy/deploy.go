// Copyright 2026 Google LLC
// SPDX-License-Identifier: Apache-2.0

package deploy

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
	"github.com/aboyz1/workflow/internal/uri"
	"github.com/aboyz1/workflow/pkg/act"
	"github.com/aboyz1/workflow/pkg/act/api"
	"github.com/aboyz1/workflow/pkg/act/cli"
	"github.com/aboyz1/workflow/pkg/deploy/schema"
	"github.com/cheggaaa/pb"
	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var (
	green = color.New(color.FgGreen).SprintFunc()
	red   = color.New(color.FgRed).SprintFunc()
)

// pollInterval is how often the watch loop re-reads the deployment record.
const pollInterval = 3 * time.Second

// Config holds all configuration for the deploy command.
type Config struct {
	API   string
	Repo  string
	Ref   string
	Watch bool
}

// Validate ensures the configuration is valid.
func (c Config) Validate() error {
	if c.API == "" {
		return errors.New("api is required")
	}
	if c.Repo == "" {
		return errors.New("repository URL is required")
	}
	if !uri.SmellsLikeARepo(c.Repo) {
		return errors.Errorf("does not look like a repository URL: %q", c.Repo)
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
		return errors.New("expected exactly 1 argument: repository URL")
	}
	cfg.Repo = args[0]
	return nil
}

// phasesDone maps a status to the number of pipeline phases behind it, which
// drives the watch progress bar.
var phasesDone = map[schema.DeploymentStatus]int{
	schema.DeploymentPending:   0,
	schema.DeploymentFetching:  1,
	schema.DeploymentPackaging: 2,
	schema.DeploymentBuilding:  3,
	schema.DeploymentSucceeded: 4,
	schema.DeploymentFailed:    4,
}

// Handler contains the business logic for the deploy command.
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
	httpClient := &httpx.WithUserAgent{BasicClient: client, UserAgent: "deployctl"}
	stub := api.Stub[schema.DeployRequest, schema.DeployResponse](httpClient, apiURL.JoinPath("deploy"))
	resp, err := stub(ctx, schema.DeployRequest{RepositoryURL: cfg.Repo, Ref: cfg.Ref})
	if err != nil {
		return nil, errors.Wrap(err, "requesting deployment")
	}
	fmt.Fprintf(deps.IO.Out, "Deployment %s started for %s\n", resp.ID, resp.Repo)
	if !cfg.Watch {
		return &act.NoOutput{}, nil
	}
	statusStub := api.Stub[schema.GetDeploymentRequest, schema.Deployment](httpClient, apiURL.JoinPath("status"))
	bar := pb.New(phasesDone[schema.DeploymentSucceeded])
	bar.Output = deps.IO.Err
	bar.ShowTimeLeft = true
	bar.Start()
	var done int
	for {
		d, err := statusStub(ctx, schema.GetDeploymentRequest{ID: resp.ID})
		if err != nil {
			bar.Finish()
			return nil, errors.Wrap(err, "fetching deployment")
		}
		for done < phasesDone[d.Status] {
			bar.Increment()
			done++
		}
		if d.Status.Terminal() {
			bar.Finish()
			if d.Status == schema.DeploymentFailed {
				fmt.Fprintln(deps.IO.Out, red("FAILED:"), d.Message)
				return nil, errors.New("deployment failed")
			}
			fmt.Fprintln(deps.IO.Out, green("SUCCEEDED:"), d.Image)
			if d.ImageDigest != "" {
				fmt.Fprintf(deps.IO.Out, "digest: %s\n", d.ImageDigest)
			}
			return &act.NoOutput{}, nil
		}
		select {
		case <-ctx.Done():
			bar.Finish()
			return nil, ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

// Command creates a new deploy command instance.
func Command() *cobra.Command {
	cfg := Config{}
	cmd := &cobra.Command{
		Use:   "deploy --api <URI> [--ref <ref>] [--watch] <repository-url>",
		Short: "Deploy a repository",
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
	set.StringVar(&cfg.Ref, "ref", "", "branch, tag, or commit SHA to deploy")
	set.BoolVar(&cfg.Watch, "watch", false, "poll the deployment until it completes")
	return set
}
