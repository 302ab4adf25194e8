// Copyright 2026 Google LLC
// SPDX-License-Identifier: Apache-2.0

package export

import (
	"context"
	"flag"
	"log"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/firestore"
	"github.com/aboyz1/workflow/pkg/act"
	"github.com/aboyz1/workflow/pkg/act/cli"
	"github.com/aboyz1/workflow/pkg/deploy/schema"
	"github.com/cheggaaa/pb"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// insertBatchSize caps the rows sent per streaming insert request.
const insertBatchSize = 500

// Config holds all configuration for the export command.
type Config struct {
	Project string
	Dataset string
	Table   string
	Since   string
}

// Validate ensures the configuration is valid.
func (c Config) Validate() error {
	if c.Project == "" {
		return errors.New("project is required")
	}
	if c.Dataset == "" {
		return errors.New("dataset is required")
	}
	if c.Table == "" {
		return errors.New("table is required")
	}
	if c.Since != "" {
		if _, err := time.Parse(time.DateOnly, c.Since); err != nil {
			return errors.Wrap(err, "invalid since date")
		}
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

// Handler contains the business logic for exporting deployment records.
func Handler(ctx context.Context, cfg Config, deps *Deps) (*act.NoOutput, error) {
	client, err := firestore.NewClient(ctx, cfg.Project)
	if err != nil {
		return nil, errors.Wrap(err, "creating firestore client")
	}
	q := client.Collection(schema.DeploymentCollection).Query
	if cfg.Since != "" {
		since, err := time.Parse(time.DateOnly, cfg.Since)
		if err != nil {
			return nil, errors.Wrap(err, "parsing since date")
		}
		q = q.Where("created", ">=", since)
	}
	q = q.OrderBy("created", firestore.Asc)
	var rows []schema.Deployment
	iter := q.Documents(ctx)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "iterating over deployments")
		}
		var d schema.Deployment
		if err := doc.DataTo(&d); err != nil {
			return nil, errors.Wrap(err, "unmarshalling deployment")
		}
		rows = append(rows, d)
	}
	log.Printf("Fetched %d deployments", len(rows))
	bq, err := bigquery.NewClient(ctx, cfg.Project, option.WithQuotaProject(cfg.Project))
	if err != nil {
		return nil, errors.Wrap(err, "creating bigquery client")
	}
	table := bq.Dataset(cfg.Dataset).Table(cfg.Table)
	if _, err := table.Metadata(ctx); err != nil {
		s, err := bigquery.InferSchema(schema.Deployment{})
		if err != nil {
			return nil, errors.Wrap(err, "inferring schema")
		}
		if err := table.Create(ctx, &bigquery.TableMetadata{Schema: s}); err != nil {
			return nil, errors.Wrap(err, "creating table")
		}
	}
	ins := table.Inserter()
	total := len(rows)
	bar := pb.New(total)
	bar.Output = deps.IO.Err
	bar.ShowTimeLeft = true
	bar.Start()
	for len(rows) > 0 {
		batch := rows
		if len(batch) > insertBatchSize {
			batch = batch[:insertBatchSize]
		}
		if err := ins.Put(ctx, batch); err != nil {
			return nil, errors.Wrap(err, "inserting rows")
		}
		for range batch {
			bar.Increment()
		}
		rows = rows[len(batch):]
	}
	bar.Finish()
	log.Printf("Exported %d deployments to %s.%s", total, cfg.Dataset, cfg.Table)
	return &act.NoOutput{}, nil
}

// Command creates a new export command instance.
func Command() *cobra.Command {
	cfg := Config{}
	cmd := &cobra.Command{
		Use:   "export --project <ID> --dataset <ID> [--table <ID>] [--since <YYYY-MM-DD>]",
		Short: "Export deployment records to BigQuery",
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
	set.StringVar(&cfg.Project, "project", "", "the project from which to fetch the Firestore data")
	set.StringVar(&cfg.Dataset, "dataset", "", "the BigQuery dataset to export into")
	set.StringVar(&cfg.Table, "table", "deployments", "the BigQuery table to export into")
	set.StringVar(&cfg.Since, "since", "", "only export deployments created on or after this date")
	return set
}
