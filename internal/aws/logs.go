package aws

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"
)

type cloudwatchLogsAPI interface {
	CreateLogGroup(ctx context.Context, params *cloudwatchlogs.CreateLogGroupInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.CreateLogGroupOutput, error)
	PutRetentionPolicy(ctx context.Context, params *cloudwatchlogs.PutRetentionPolicyInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.PutRetentionPolicyOutput, error)
	CreateLogStream(ctx context.Context, params *cloudwatchlogs.CreateLogStreamInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.CreateLogStreamOutput, error)
	PutLogEvents(ctx context.Context, params *cloudwatchlogs.PutLogEventsInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.PutLogEventsOutput, error)
}

const (
	logsBatchSize     = 500
	logsMaxBuffered   = 10000
	logsFlushInterval = 2 * time.Second
)

// LogsWriter ships log lines to a CloudWatch Logs stream. It implements
// io.Writer so it can be attached to the zap logger as an extra sink. Lines
// are buffered and sent in batches by Run and Flush.
type LogsWriter struct {
	client cloudwatchLogsAPI
	group  string
	stream string
	now    func() time.Time

	mu      sync.Mutex
	pending []types.InputLogEvent
	dropped int
	kick    chan struct{}

	sendMu        sync.Mutex
	sequenceToken *string
}

// NewLogsWriter creates the log group (30 day retention) and a fresh stream
// named after the service and start time.
func NewLogsWriter(ctx context.Context, cfg sdkaws.Config, group, service string) (*LogsWriter, error) {
	return newLogsWriter(ctx, cloudwatchlogs.NewFromConfig(cfg), group, service)
}

func newLogsWriter(ctx context.Context, api cloudwatchLogsAPI, group, service string) (*LogsWriter, error) {
	if group == "" {
		group = "/counterjob/services"
	}
	w := &LogsWriter{
		client: api,
		group:  group,
		stream: fmt.Sprintf("%s-%d", service, time.Now().Unix()),
		now:    time.Now,
		kick:   make(chan struct{}, 1),
	}

	_, err := api.CreateLogGroup(ctx, &cloudwatchlogs.CreateLogGroupInput{LogGroupName: sdkaws.String(group)})
	var exists *types.ResourceAlreadyExistsException
	if err != nil && !errors.As(err, &exists) {
		return nil, fmt.Errorf("failed to create log group: %w", err)
	}
	if _, err := api.PutRetentionPolicy(ctx, &cloudwatchlogs.PutRetentionPolicyInput{
		LogGroupName:    sdkaws.String(group),
		RetentionInDays: sdkaws.Int32(30),
	}); err != nil {
		return nil, fmt.Errorf("failed to set retention policy: %w", err)
	}
	if _, err := api.CreateLogStream(ctx, &cloudwatchlogs.CreateLogStreamInput{
		LogGroupName:  sdkaws.String(group),
		LogStreamName: sdkaws.String(w.stream),
	}); err != nil {
		return nil, fmt.Errorf("failed to create log stream: %w", err)
	}
	return w, nil
}

// Write queues p as one log event. It never blocks on CloudWatch; when the
// buffer is full the line is dropped and counted.
func (w *LogsWriter) Write(p []byte) (int, error) {
	event := types.InputLogEvent{
		Message:   sdkaws.String(string(p)),
		Timestamp: sdkaws.Int64(w.now().UnixMilli()),
	}

	w.mu.Lock()
	if len(w.pending) >= logsMaxBuffered {
		w.dropped++
		w.mu.Unlock()
		return len(p), nil
	}
	w.pending = append(w.pending, event)
	full := len(w.pending) >= logsBatchSize
	w.mu.Unlock()

	if full {
		select {
		case w.kick <- struct{}{}:
		default:
		}
	}
	return len(p), nil
}

// Run flushes on a timer, or sooner when a batch fills, until ctx is done.
// Call Flush afterwards to send what is left.
func (w *LogsWriter) Run(ctx context.Context) {
	ticker := time.NewTicker(logsFlushInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-w.kick:
		}
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		w.Flush(flushCtx)
		cancel()
	}
}

// Flush sends all buffered events. Failures are reported on stderr and the
// batch is dropped, so logging keeps working when CloudWatch is unreachable.
func (w *LogsWriter) Flush(ctx context.Context) {
	w.mu.Lock()
	events := w.pending
	w.pending = nil
	dropped := w.dropped
	w.dropped = 0
	w.mu.Unlock()

	if dropped > 0 {
		fmt.Fprintf(os.Stderr, "CloudWatch log buffer full, %d lines dropped\n", dropped)
	}

	w.sendMu.Lock()
	defer w.sendMu.Unlock()
	for len(events) > 0 {
		n := min(len(events), logsBatchSize)
		out, err := w.client.PutLogEvents(ctx, &cloudwatchlogs.PutLogEventsInput{
			LogGroupName:  sdkaws.String(w.group),
			LogStreamName: sdkaws.String(w.stream),
			SequenceToken: w.sequenceToken,
			LogEvents:     events[:n],
		})
		events = events[n:]
		if err != nil {
			fmt.Fprintf(os.Stderr, "CloudWatch write error: %v\n", err)
			continue
		}
		w.sequenceToken = out.NextSequenceToken
	}
}

// Stream returns the log stream name.
func (w *LogsWriter) Stream() string {
	return w.stream
}
