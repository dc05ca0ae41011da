package awsclient

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

func TestLoadAWSConfig_DefaultRegion(t *testing.T) {
	os.Setenv("AWS_REGION", "")

	cfg, err := LoadAWSConfig(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Region != "us-east-1" {
		t.Fatalf("expected default region 'us-east-1', got %s", cfg.Region)
	}
}

type mockSQS struct {
	sent []*sqs.SendMessageInput
	err  error
}

func (m *mockSQS) SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.sent = append(m.sent, params)
	return &sqs.SendMessageOutput{}, nil
}

func TestPublisher_SendRemediationEvent(t *testing.T) {
	mock := &mockSQS{}
	p := NewPublisher(mock, "https://sqs.local/queue")

	err := p.SendRemediationEvent(context.Background(), `{"trackingId":"ABEND_X_1"}`, map[string]string{
		"tracking_id": "ABEND_X_1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(mock.sent) != 1 {
		t.Fatalf("expected one message sent, got %d", len(mock.sent))
	}
	msg := mock.sent[0]
	if *msg.QueueUrl != "https://sqs.local/queue" {
		t.Errorf("unexpected queue url %s", *msg.QueueUrl)
	}
	if _, ok := msg.MessageAttributes["tracking_id"]; !ok {
		t.Error("expected tracking_id message attribute")
	}
}

func TestPublisher_SendRemediationEvent_Error(t *testing.T) {
	mock := &mockSQS{err: errors.New("queue unavailable")}
	p := NewPublisher(mock, "https://sqs.local/queue")

	if err := p.SendRemediationEvent(context.Background(), "{}", nil); err == nil {
		t.Fatal("expected error, got nil")
	}
}

type mockCloudWatch struct {
	inputs []*cloudwatch.PutMetricDataInput
}

func (m *mockCloudWatch) PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error) {
	m.inputs = append(m.inputs, params)
	return &cloudwatch.PutMetricDataOutput{}, nil
}

func TestMetricsEmitter_EmitRequest(t *testing.T) {
	mock := &mockCloudWatch{}
	em := NewMetricsEmitter(mock, "AbendTracker")

	if err := em.EmitRequest(context.Background(), "/ui-api/v1alpha1/abends", 200, 42*time.Millisecond); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(mock.inputs) != 1 {
		t.Fatalf("expected one PutMetricData call, got %d", len(mock.inputs))
	}
	input := mock.inputs[0]
	if *input.Namespace != "AbendTracker" {
		t.Errorf("unexpected namespace %s", *input.Namespace)
	}
	if len(input.MetricData) != 2 {
		t.Fatalf("expected count and latency metrics, got %d", len(input.MetricData))
	}
}

type mockSecrets struct {
	value string
	err   error
}

func (m *mockSecrets) GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &secretsmanager.GetSecretValueOutput{SecretString: &m.value}, nil
}

func TestFetchSecretString_Plain(t *testing.T) {
	mock := &mockSecrets{value: "token-abc"}
	got, err := FetchSecretString(context.Background(), mock, "adr/api-token", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "token-abc" {
		t.Errorf("expected token-abc, got %q", got)
	}
}

func TestFetchSecretString_JSONKey(t *testing.T) {
	mock := &mockSecrets{value: `{"apiToken":"token-xyz"}`}
	got, err := FetchSecretString(context.Background(), mock, "adr/api-token", "apiToken")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "token-xyz" {
		t.Errorf("expected token-xyz, got %q", got)
	}
}

func TestFetchSecretString_MissingKey(t *testing.T) {
	mock := &mockSecrets{value: `{"other":"v"}`}
	if _, err := FetchSecretString(context.Background(), mock, "adr/api-token", "apiToken"); err == nil {
		t.Fatal("expected error for missing key, got nil")
	}
}
