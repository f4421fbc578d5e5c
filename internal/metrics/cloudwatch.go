package metrics

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"github.com/Conceptual-Machines/musicability-api/internal/logger"
)

const (
	namespace                = "MusicAbility/API"
	environmentProduction    = "production"
	httpStatusServerError    = 500
	cloudwatchTimeoutSeconds = 5
)

// CloudWatchAPI is the subset of the CloudWatch client used here.
type CloudWatchAPI interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// Client wraps CloudWatch client for custom metrics
type Client struct {
	client      CloudWatchAPI
	enabled     bool
	environment string
	async       bool
}

// NewClient creates a new CloudWatch metrics client
func NewClient(ctx context.Context, environment string) (*Client, error) {
	// Only enable in production
	if environment != environmentProduction {
		logger.Info("CloudWatch metrics disabled", logger.Fields{"environment": environment})
		return &Client{
			enabled:     false,
			environment: environment,
		}, nil
	}

	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		logger.Warn("Failed to load AWS config for CloudWatch", logger.Fields{"error": err.Error()})
		return &Client{enabled: false, environment: environment}, nil
	}

	logger.Info("CloudWatch metrics enabled", logger.Fields{"namespace": namespace})
	return NewClientWithAPI(cloudwatch.NewFromConfig(cfg), environment), nil
}

// NewClientWithAPI creates an enabled client over an existing CloudWatch API.
func NewClientWithAPI(api CloudWatchAPI, environment string) *Client {
	return &Client{
		client:      api,
		enabled:     api != nil,
		environment: environment,
		async:       true,
	}
}

// Enabled reports whether metrics are sent.
func (m *Client) Enabled() bool {
	return m != nil && m.enabled
}

// RecordAPIRequest records an API request metric
func (m *Client) RecordAPIRequest(endpoint string, statusCode int, duration time.Duration) {
	if !m.Enabled() {
		return
	}

	m.run(func(ctx context.Context) {
		// Determine if success or error
		metricName := "APIRequests"
		if statusCode >= httpStatusServerError {
			metricName = "APIErrors"
		}

		dimensions := []types.Dimension{
			{
				Name:  aws.String("Endpoint"),
				Value: aws.String(endpoint),
			},
			m.environmentDimension(),
		}

		if err := m.putMetric(ctx, metricName, 1, types.StandardUnitCount, dimensions); err != nil {
			logger.Warn("Failed to record metric", logger.Fields{"metric": metricName, "error": err.Error()})
		}

		latencyMs := float64(duration.Milliseconds())
		if err := m.putMetric(ctx, "APILatency", latencyMs, types.StandardUnitMilliseconds, dimensions); err != nil {
			logger.Warn("Failed to record metric", logger.Fields{"metric": "APILatency", "error": err.Error()})
		}
	})
}

// RecordRender records one normalize-and-encode (or preview) run
func (m *Client) RecordRender(kind string, duration time.Duration, notes, size int, success bool) {
	if !m.Enabled() {
		return
	}

	m.run(func(ctx context.Context) {
		dimensions := []types.Dimension{
			{
				Name:  aws.String("Kind"),
				Value: aws.String(kind),
			},
			{
				Name:  aws.String("Success"),
				Value: aws.String(boolToString(success)),
			},
			m.environmentDimension(),
		}

		durationMs := float64(duration.Milliseconds())
		if err := m.putMetric(ctx, "RenderDuration", durationMs, types.StandardUnitMilliseconds, dimensions); err != nil {
			logger.Warn("Failed to record metric", logger.Fields{"metric": "RenderDuration", "error": err.Error()})
		}
		if !success {
			return
		}
		if err := m.putMetric(ctx, "RenderedNotes", float64(notes), types.StandardUnitCount, dimensions); err != nil {
			logger.Warn("Failed to record metric", logger.Fields{"metric": "RenderedNotes", "error": err.Error()})
		}
		if err := m.putMetric(ctx, "RenderedBytes", float64(size), types.StandardUnitBytes, dimensions); err != nil {
			logger.Warn("Failed to record metric", logger.Fields{"metric": "RenderedBytes", "error": err.Error()})
		}
	})
}

func (m *Client) run(fn func(ctx context.Context)) {
	if m.async {
		go fn(context.Background())
		return
	}
	fn(context.Background())
}

func (m *Client) environmentDimension() types.Dimension {
	return types.Dimension{
		Name:  aws.String("Environment"),
		Value: aws.String(m.environment),
	}
}

// putMetric sends a metric to CloudWatch
func (m *Client) putMetric(
	ctx context.Context,
	metricName string,
	value float64,
	unit types.StandardUnit,
	dimensions []types.Dimension,
) error {
	if !m.enabled || m.client == nil {
		return nil
	}

	timeout := time.Duration(cloudwatchTimeoutSeconds) * time.Second
	cwCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	_, err := m.client.PutMetricData(cwCtx, &cloudwatch.PutMetricDataInput{
		Namespace: aws.String(namespace),
		MetricData: []types.MetricDatum{
			{
				MetricName: aws.String(metricName),
				Value:      aws.Float64(value),
				Unit:       unit,
				Timestamp:  aws.Time(time.Now()),
				Dimensions: dimensions,
			},
		},
	})

	return err
}

func boolToString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
