package cloud

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"

	"github.com/ANIKETSHETTY47/solar-production-analytics/internal/service"
)

type snsAPI interface {
	Publish(ctx context.Context, in *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNSClient publishes import and re-estimation summaries.
type SNSClient struct {
	svc      snsAPI
	topicArn string
}

var _ service.Notifier = (*SNSClient)(nil)

// NewSNSClient creates a new SNS client instance
func NewSNSClient(ctx context.Context, region, topicArn string) (*SNSClient, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}
	return &SNSClient{svc: sns.NewFromConfig(cfg), topicArn: topicArn}, nil
}

func (c *SNSClient) Notify(ctx context.Context, s service.Summary) error {
	body, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}

	input := &sns.PublishInput{
		TopicArn: aws.String(c.topicArn),
		Subject:  aws.String(subject(s)),
		Message:  aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"kind": {DataType: aws.String("String"), StringValue: aws.String(s.Kind)},
			"installation_id": {
				DataType:    aws.String("Number"),
				StringValue: aws.String(fmt.Sprintf("%d", s.InstallationID)),
			},
		},
	}
	if _, err := c.svc.Publish(ctx, input); err != nil {
		return fmt.Errorf("failed to publish to SNS: %w", err)
	}
	return nil
}

func subject(s service.Summary) string {
	switch s.Kind {
	case "import":
		return fmt.Sprintf("PV production imported: installation %d, %d rows", s.InstallationID, s.Imported)
	case "recalculate":
		return fmt.Sprintf("PV estimates recalculated: installation %d, %d updated", s.InstallationID, s.Updated)
	default:
		return fmt.Sprintf("PV production: installation %d", s.InstallationID)
	}
}
