package awsclient

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

// MetricsEmitter publishes request metrics to CloudWatch. Callers treat
// failures as best-effort: a metric that cannot be written is logged and
// dropped, never surfaced to the request.
type MetricsEmitter struct {
	CloudWatch CloudWatchAPI
	Namespace  string
}

func NewMetricsEmitter(cw CloudWatchAPI, namespace string) *MetricsEmitter {
	return &MetricsEmitter{
		CloudWatch: cw,
		Namespace:  namespace,
	}
}

// EmitRequest records one API request: a count metric and a latency metric,
// both dimensioned on route and status code.
func (m *MetricsEmitter) EmitRequest(ctx context.Context, route string, statusCode int, latency time.Duration) error {
	now := time.Now().UTC()
	dims := []cwtypes.Dimension{
		{Name: awsString("Route"), Value: awsString(route)},
		{Name: awsString("StatusCode"), Value: awsString(fmt.Sprintf("%d", statusCode))},
	}

	input := &cloudwatch.PutMetricDataInput{
		Namespace: &m.Namespace,
		MetricData: []cwtypes.MetricDatum{
			{
				MetricName: awsString("RequestCount"),
				Dimensions: dims,
				Timestamp:  &now,
				Unit:       cwtypes.StandardUnitCount,
				Value:      awsFloat64(1),
			},
			{
				MetricName: awsString("RequestLatency"),
				Dimensions: dims,
				Timestamp:  &now,
				Unit:       cwtypes.StandardUnitMilliseconds,
				Value:      awsFloat64(float64(latency.Milliseconds())),
			},
		},
	}

	if _, err := m.CloudWatch.PutMetricData(ctx, input); err != nil {
		return fmt.Errorf("put metric data: %w", err)
	}
	return nil
}

func awsFloat64(f float64) *float64 { return &f }
