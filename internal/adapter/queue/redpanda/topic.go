package redpanda

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kmsg"
)

// adminRequester is the part of *kgo.Client used for topic administration.
type adminRequester interface {
	Request(ctx context.Context, req kmsg.Request) (kmsg.Response, error)
}

// createTopicIfNotExists creates the session events topic. An existing topic
// counts as success.
func createTopicIfNotExists(ctx context.Context, client adminRequester, topic string, partitions int32, replicationFactor int16) error {
	if topic == "" || partitions <= 0 || replicationFactor <= 0 {
		return fmt.Errorf("op=redpanda.createTopic: invalid topic spec %q partitions=%d rf=%d", topic, partitions, replicationFactor)
	}

	t := kmsg.NewCreateTopicsRequestTopic()
	t.Topic = topic
	t.NumPartitions = partitions
	t.ReplicationFactor = replicationFactor
	req := kmsg.NewPtrCreateTopicsRequest()
	req.TimeoutMillis = 30000
	req.Topics = append(req.Topics, t)

	resp, err := req.RequestWith(ctx, client)
	if err != nil {
		return fmt.Errorf("op=redpanda.createTopic: %w", err)
	}
	for _, tr := range resp.Topics {
		err := kerr.ErrorForCode(tr.ErrorCode)
		switch {
		case err == nil:
			slog.Info("session events topic created", slog.String("topic", tr.Topic), slog.Int("partitions", int(partitions)))
		case errors.Is(err, kerr.TopicAlreadyExists):
			slog.Debug("session events topic exists", slog.String("topic", tr.Topic))
		default:
			msg := ""
			if tr.ErrorMessage != nil {
				msg = *tr.ErrorMessage
			}
			return fmt.Errorf("op=redpanda.createTopic: %s: %w %s", tr.Topic, err, msg)
		}
	}
	return nil
}
