package aws

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"go.uber.org/zap"
)

// ErrDropMessage marks a message that can never be processed. The consumer
// deletes it instead of letting SQS redeliver it.
var ErrDropMessage = errors.New("drop message")

// MessageHandler processes one event payload. Returning an error leaves the
// message on the queue for redelivery unless it wraps ErrDropMessage.
type MessageHandler func(ctx context.Context, message []byte) error

type sqsAPI interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// SQSConsumer drains an SNS-subscribed queue.
type SQSConsumer struct {
	client   sqsAPI
	queueURL string
	wait     int32
	backoff  time.Duration
}

func NewSQSConsumer(cfg aws.Config, queueURL string) *SQSConsumer {
	return &SQSConsumer{client: sqs.NewFromConfig(cfg), queueURL: queueURL, wait: 20, backoff: 5 * time.Second}
}

// Start polls until ctx is cancelled.
func (c *SQSConsumer) Start(ctx context.Context, handler MessageHandler) {
	zap.L().Info("SQS consumer started", zap.String("queue", c.queueURL))
	for {
		select {
		case <-ctx.Done():
			zap.L().Info("SQS consumer shutting down", zap.String("queue", c.queueURL))
			return
		default:
		}
		if err := c.pollOnce(ctx, handler); err != nil && ctx.Err() == nil {
			zap.L().Error("SQS receive error", zap.Error(err))
			select {
			case <-ctx.Done():
			case <-time.After(c.backoff):
			}
		}
	}
}

func (c *SQSConsumer) pollOnce(ctx context.Context, handler MessageHandler) error {
	out, err := c.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(c.queueURL),
		MaxNumberOfMessages: 10,
		WaitTimeSeconds:     c.wait,
	})
	if err != nil {
		return err
	}
	for _, msg := range out.Messages {
		c.process(ctx, aws.ToString(msg.Body), msg.ReceiptHandle, handler)
	}
	return nil
}

// snsEnvelope is the wrapper SNS adds when raw delivery is off.
type snsEnvelope struct {
	Type    string `json:"Type"`
	Message string `json:"Message"`
}

func (c *SQSConsumer) process(ctx context.Context, body string, receiptHandle *string, handler MessageHandler) {
	if receiptHandle == nil || *receiptHandle == "" {
		zap.L().Error("received SQS message without receipt handle")
		return
	}
	if body == "" {
		zap.L().Error("received empty SQS message body")
		c.delete(ctx, receiptHandle)
		return
	}

	payload := []byte(body)
	var envelope snsEnvelope
	if err := json.Unmarshal(payload, &envelope); err == nil && envelope.Type == "Notification" {
		payload = []byte(envelope.Message)
	}

	if err := handler(ctx, payload); err != nil {
		if errors.Is(err, ErrDropMessage) {
			zap.L().Warn("dropping unprocessable SQS message", zap.Error(err))
			c.delete(ctx, receiptHandle)
			return
		}
		zap.L().Error("failed to process SQS message", zap.Error(err))
		return
	}
	c.delete(ctx, receiptHandle)
}

func (c *SQSConsumer) delete(ctx context.Context, receiptHandle *string) {
	if _, err := c.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(c.queueURL),
		ReceiptHandle: receiptHandle,
	}); err != nil {
		zap.L().Error("failed to delete SQS message", zap.Error(err))
	}
}
