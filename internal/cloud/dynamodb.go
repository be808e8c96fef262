package cloud

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/ANIKETSHETTY47/solar-production-analytics/internal/domain"
	"github.com/ANIKETSHETTY47/solar-production-analytics/internal/providers"
	"github.com/ANIKETSHETTY47/solar-production-analytics/internal/series"
)

const (
	// cacheTTL is written to expiresAt, the table's TTL attribute.
	cacheTTL = 90 * 24 * time.Hour
	// maxCachedSamples keeps items below the 400 KB DynamoDB item size limit,
	// which holds about two years of hourly samples.
	maxCachedSamples = 18000
)

type dynamoAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// DynamoDBClient caches provider series in a table keyed by cacheKey.
type DynamoDBClient struct {
	svc   dynamoAPI
	table string
	now   func() time.Time
}

var _ providers.SeriesCache = (*DynamoDBClient)(nil)

// NewDynamoDBClient creates a new DynamoDB client instance
func NewDynamoDBClient(ctx context.Context, region, table string) (*DynamoDBClient, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}
	return &DynamoDBClient{svc: dynamodb.NewFromConfig(cfg), table: table, now: time.Now}, nil
}

// cachedSeries is the DynamoDB item of one provider response. Samples are stored
// column-wise: start offsets and durations in seconds relative to Origin.
type cachedSeries struct {
	CacheKey  string    `dynamodbav:"cacheKey"`
	Source    string    `dynamodbav:"source"`
	Origin    int64     `dynamodbav:"origin"`
	Offsets   []int64   `dynamodbav:"offsets"`
	Durations []int64   `dynamodbav:"durations"`
	WattHours []float64 `dynamodbav:"wh"`
	ExpiresAt int64     `dynamodbav:"expiresAt"`
}

func (c *DynamoDBClient) Get(ctx context.Context, key string) (*series.Series, bool, error) {
	out, err := c.svc.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(c.table),
		Key: map[string]types.AttributeValue{
			"cacheKey": &types.AttributeValueMemberS{Value: key},
		},
	})
	if err != nil {
		return nil, false, fmt.Errorf("failed to get cached series: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, false, nil
	}

	var item cachedSeries
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal cached series: %w", err)
	}
	if item.ExpiresAt > 0 && c.now().Unix() >= item.ExpiresAt {
		return nil, false, nil
	}
	source, err := domain.ParseProviderID(item.Source)
	if err != nil {
		return nil, false, fmt.Errorf("failed to decode cached series: %w", err)
	}

	n := len(item.Offsets)
	if len(item.Durations) != n || len(item.WattHours) != n {
		return nil, false, fmt.Errorf("failed to decode cached series %s: column lengths differ", key)
	}
	s := &series.Series{Source: source, Samples: make([]series.Sample, n)}
	for i := range n {
		from := time.Unix(item.Origin+item.Offsets[i], 0).UTC()
		s.Samples[i] = series.Sample{
			From:      from,
			To:        from.Add(time.Duration(item.Durations[i]) * time.Second),
			WattHours: item.WattHours[i],
		}
	}
	return s, true, nil
}

func (c *DynamoDBClient) Put(ctx context.Context, key string, s *series.Series) error {
	if s.Len() > maxCachedSamples {
		return fmt.Errorf("series of %d samples exceeds the cache item limit", s.Len())
	}
	item := cachedSeries{
		CacheKey:  key,
		Source:    s.Source.String(),
		Offsets:   make([]int64, s.Len()),
		Durations: make([]int64, s.Len()),
		WattHours: make([]float64, s.Len()),
		ExpiresAt: c.now().Add(cacheTTL).Unix(),
	}
	if s.Len() > 0 {
		item.Origin = s.Samples[0].From.Unix()
	}
	for i, smp := range s.Samples {
		item.Offsets[i] = smp.From.Unix() - item.Origin
		item.Durations[i] = smp.To.Unix() - smp.From.Unix()
		item.WattHours[i] = smp.WattHours
	}

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("failed to marshal series: %w", err)
	}
	_, err = c.svc.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(c.table),
		Item:      av,
	})
	if err != nil {
		return fmt.Errorf("failed to put item in DynamoDB: %w", err)
	}
	return nil
}
