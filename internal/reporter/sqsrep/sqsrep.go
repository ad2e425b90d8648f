package sqsrep

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/programme-lv/subseries/api"
)

// SendMessageAPI is the part of *sqs.Client the reporter needs.
type SendMessageAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

const sendTimeout = 10 * time.Second

// sqsReporter sends run and chunk level messages. Dropped submissions are
// not forwarded, a large dump would turn into millions of queue messages.
type sqsReporter struct {
	client   SendMessageAPI
	queueUrl string
	runUuid  string
	log      *slog.Logger
}

func New(client SendMessageAPI, queueUrl string, runUuid string, log *slog.Logger) *sqsReporter {
	return &sqsReporter{
		client:   client,
		queueUrl: queueUrl,
		runUuid:  runUuid,
		log:      log,
	}
}

// NewFromRegion builds an SQS client from the default AWS credential chain.
func NewFromRegion(ctx context.Context, region string, queueUrl string, runUuid string, log *slog.Logger) (*sqsReporter, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}
	return New(sqs.NewFromConfig(cfg), queueUrl, runUuid, log), nil
}

func (s *sqsReporter) StartRun(info api.RunInfo) {
	s.send(api.NewStartRun(s.runUuid, info))
}

func (s *sqsReporter) StartChunk(lo, hi int) {
	s.send(api.NewStartChunk(s.runUuid, lo, hi))
}

func (s *sqsReporter) DropSubmission(drop api.Drop) {}

func (s *sqsReporter) FinishChunk(stats api.ChunkStats) {
	s.send(api.NewFinishChunk(s.runUuid, stats))
}

func (s *sqsReporter) FinishRun(errIfAny error) {
	s.send(api.NewFinishRun(s.runUuid, errIfAny))
}

func (s *sqsReporter) send(msg interface{}) {
	b, err := json.Marshal(msg)
	if err != nil {
		s.log.Warn("failed to marshal message", "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	_, err = s.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(s.queueUrl),
		MessageBody: aws.String(string(b)),
	})
	if err != nil {
		s.log.Warn("failed to send message to SQS", "queue", s.queueUrl, "error", err)
	}
}
