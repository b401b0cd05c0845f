package awsservices

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/antigravity-dev/warmcli/internal/grabber"
)

// LoadRegistry builds the set of grabber.Service values the planner can
// drive, one real aws-sdk-go-v2 client per AWS CLI top-level command name.
// It loads the ambient SDK config once (shared profile, env vars, IMDS) and
// hands each service its own narrow client interface.
func LoadRegistry(ctx context.Context) (map[string]*grabber.Service, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("awsservices: load AWS config: %w", err)
	}

	return map[string]*grabber.Service{
		"ec2": NewEC2Service(ec2.NewFromConfig(cfg)),
		"s3":  NewS3Service(s3.NewFromConfig(cfg)),
	}, nil
}
