// internal/common/aws/client.go

// Package aws wraps the narrow slice of AWS this service touches: S3 for
// draft document storage, SES for outcome emails, and SNS for outcome
// SMS. Each wrapper exposes exactly the calls the notifier and document
// layers make, so the rest of the codebase never imports the SDK.
package aws

import (
	"context"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
)

// loadConfig resolves the shared SDK configuration for a region. All
// clients go through here so credentials resolve identically.
func loadConfig(ctx context.Context, region string) (awssdk.Config, error) {
	return config.LoadDefaultConfig(ctx, config.WithRegion(region))
}
