// Copyright 2026 Google LLC
// SPDX-License-Identifier: Apache-2.0

// Package taskqueue hands deployment work to the builder via Cloud Tasks.
package taskqueue

import (
	"context"
	"regexp"
	"time"

	cloudtasks "cloud.google.com/go/cloudtasks/apiv2"
	taskspb "cloud.google.com/go/cloudtasks/apiv2/cloudtaskspb"
	"github.com/aboyz1/workflow/pkg/act"
	"github.com/aboyz1/workflow/pkg/act/api/form"
	"github.com/pkg/errors"
	"google.golang.org/protobuf/types/known/durationpb"
)

// queuePathRegex matches a fully qualified Cloud Tasks queue resource name.
var queuePathRegex = regexp.MustCompile(`^projects/[^/]+/locations/[^/]+/queues/[^/]+$`)

// dispatchDeadline extends the per-task response deadline beyond the Cloud
// Tasks default of 10 minutes since a container build routinely runs longer.
// 30 minutes is the maximum Cloud Tasks accepts.
const dispatchDeadline = 30 * time.Minute

// Queue delivers act inputs as authenticated POSTs to a target URL.
type Queue interface {
	Add(ctx context.Context, url string, msg act.Input) (*taskspb.Task, error)
}

type queue struct {
	client              *cloudtasks.Client
	queuePath           string
	serviceAccountEmail string
}

// NewQueue returns a Queue feeding the named Cloud Tasks queue. Tasks carry
// an OIDC token for serviceAccountEmail so the receiving service can require
// authenticated callers.
func NewQueue(ctx context.Context, queuePath, serviceAccountEmail string) (Queue, error) {
	if !queuePathRegex.MatchString(queuePath) {
		return nil, errors.Errorf("invalid queue path: %s", queuePath)
	}
	client, err := cloudtasks.NewClient(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "creating TaskQueue client")
	}
	return &queue{
		client:              client,
		queuePath:           queuePath,
		serviceAccountEmail: serviceAccountEmail,
	}, nil
}

func (q *queue) Add(ctx context.Context, url string, msg act.Input) (*taskspb.Task, error) {
	if err := msg.Validate(); err != nil {
		return nil, errors.Wrap(err, "validating message")
	}
	values, err := form.Marshal(msg)
	if err != nil {
		return nil, errors.Wrap(err, "marshalling message")
	}
	req := &taskspb.CreateTaskRequest{
		Parent: q.queuePath,
		Task: &taskspb.Task{
			DispatchDeadline: durationpb.New(dispatchDeadline),
			MessageType: &taskspb.Task_HttpRequest{
				HttpRequest: &taskspb.HttpRequest{
					HttpMethod: taskspb.HttpMethod_POST,
					Url:        url,
					Headers: map[string]string{
						"Content-Type": "application/x-www-form-urlencoded",
					},
					Body: []byte(values.Encode()),
					AuthorizationHeader: &taskspb.HttpRequest_OidcToken{
						OidcToken: &taskspb.OidcToken{
							ServiceAccountEmail: q.serviceAccountEmail,
						},
					},
				},
			},
		},
	}
	task, err := q.client.CreateTask(ctx, req)
	if err != nil {
		return nil, errors.Wrap(err, "creating task")
	}
	return task, nil
}
