package apiservice

import (
	"context"
	"errors"
	"os"

	"github.com/aboyz1/workflow/pkg/act/api"
	"github.com/aboyz1/workflow/pkg/deploy/schema"
	"google.golang.org/grpc/codes"
)

type VersionDeps struct {
	BuilderVersionStub api.StubFunc[schema.VersionRequest, schema.VersionResponse]
}

func Version(ctx context.Context, req schema.VersionRequest, deps *VersionDeps) (*schema.VersionResponse, error) {
	switch req.Service {
	case "":
		return &schema.VersionResponse{Version: os.Getenv("K_REVISION")}, nil
	case "builder":
		return deps.BuilderVersionStub(ctx, req)
	default:
		return nil, api.AsStatus(codes.InvalidArgument, errors.New("unknown service"))
	}
}
