// internal/common/aws/sns.go
package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/sns"
)

// SNSClient delivers outcome SMS for submission attempts via direct
// phone-number publish. It satisfies the notifier's SMSSender interface.
type SNSClient struct {
	client *sns.Client
}

// NewSNSClient creates an SNS client in the notification region.
func NewSNSClient(ctx context.Context, region string) (*SNSClient, error) {
	cfg, err := loadConfig(ctx, region)
	if err != nil {
		return nil, err
	}
	return &SNSClient{client: sns.NewFromConfig(cfg)}, nil
}

// Publish sends one SMS. The notifier formats the destination number to
// E.164 before it gets here.
func (s *SNSClient) Publish(ctx context.Context, input *sns.PublishInput) (*sns.PublishOutput, error) {
	return s.client.Publish(ctx, input)
}
