package metrics

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCloudWatch struct {
	mu     sync.Mutex
	inputs []*cloudwatch.PutMetricDataInput
	err    error
}

func (f *fakeCloudWatch) PutMetricData(_ context.Context, in *cloudwatch.PutMetricDataInput, _ ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inputs = append(f.inputs, in)
	return &cloudwatch.PutMetricDataOutput{}, f.err
}

func (f *fakeCloudWatch) names() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var names []string
	for _, in := range f.inputs {
		for _, d := range in.MetricData {
			names = append(names, aws.ToString(d.MetricName))
		}
	}
	return names
}

func syncClient(api CloudWatchAPI) *Client {
	c := NewClientWithAPI(api, "production")
	c.async = false
	return c
}

func TestNewClientDisabledOutsideProduction(t *testing.T) {
	c, err := NewClient(context.Background(), "development")
	require.NoError(t, err)
	assert.False(t, c.Enabled())

	// No-ops on a disabled client
	c.RecordAPIRequest("/health", 200, time.Millisecond)
	c.RecordRender("midi", time.Millisecond, 3, 60, true)

	var nilClient *Client
	assert.False(t, nilClient.Enabled())
}

func TestRecordAPIRequest(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		expected []string
	}{
		{name: "success", status: 200, expected: []string{"APIRequests", "APILatency"}},
		{name: "client error", status: 404, expected: []string{"APIRequests", "APILatency"}},
		{name: "server error", status: 503, expected: []string{"APIErrors", "APILatency"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &fakeCloudWatch{}
			syncClient(api).RecordAPIRequest("/api/v1/melodies/midi", tt.status, 25*time.Millisecond)
			assert.Equal(t, tt.expected, api.names())

			in := api.inputs[0]
			assert.Equal(t, namespace, aws.ToString(in.Namespace))
			assert.Contains(t, in.MetricData[0].Dimensions, types.Dimension{
				Name:  aws.String("Endpoint"),
				Value: aws.String("/api/v1/melodies/midi"),
			})
		})
	}
}

func TestRecordRender(t *testing.T) {
	api := &fakeCloudWatch{}
	c := syncClient(api)

	c.RecordRender("midi", 2*time.Millisecond, 8, 120, true)
	assert.Equal(t, []string{"RenderDuration", "RenderedNotes", "RenderedBytes"}, api.names())
	assert.Equal(t, types.StandardUnitBytes, api.inputs[2].MetricData[0].Unit)
	assert.Equal(t, 120.0, aws.ToFloat64(api.inputs[2].MetricData[0].Value))

	failed := &fakeCloudWatch{}
	syncClient(failed).RecordRender("midi", time.Millisecond, 0, 0, false)
	assert.Equal(t, []string{"RenderDuration"}, failed.names())
}

func TestRecordSurvivesAPIErrors(t *testing.T) {
	api := &fakeCloudWatch{err: errors.New("throttled")}
	syncClient(api).RecordAPIRequest("/health", 200, time.Millisecond)
	assert.Len(t, api.names(), 2)
}
