package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

const headerEventID = "event_id"

// KafkaConsumer reads classifier output from its group topics. Offsets are
// committed by the reader as messages are returned, so a message handed to
// the worker is not redelivered to this group unless the process dies
// before the commit interval elapses.
type KafkaConsumer struct {
	reader *kafka.Reader
}

func NewKafkaConsumer(brokers []string, groupID string, topics []string) (*KafkaConsumer, error) {
	switch {
	case len(brokers) == 0:
		return nil, fmt.Errorf("classifier consumer: no brokers configured")
	case groupID == "":
		return nil, fmt.Errorf("classifier consumer: group id is required")
	case len(topics) == 0:
		return nil, fmt.Errorf("classifier consumer: no topics configured")
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		GroupID:        groupID,
		GroupTopics:    topics,
		StartOffset:    kafka.FirstOffset,
		CommitInterval: time.Second,
		MinBytes:       1,
		MaxBytes:       1 << 20,
		MaxWait:        500 * time.Millisecond,
	})
	return &KafkaConsumer{reader: reader}, nil
}

// Poll returns up to max classifier messages, stopping early once the topic
// goes quiet for a short interval.
func (c *KafkaConsumer) Poll(ctx context.Context, max int) ([]Message, error) {
	if max <= 0 {
		max = 1
	}
	out := make([]Message, 0, max)
	for len(out) < max {
		readCtx, cancel := context.WithTimeout(ctx, 250*time.Millisecond)
		msg, err := c.reader.ReadMessage(readCtx)
		cancel()
		if err != nil {
			switch {
			case ctx.Err() != nil:
				return out, ctx.Err()
			case errors.Is(err, context.DeadlineExceeded):
				return out, nil
			default:
				return out, err
			}
		}
		out = append(out, fromKafka(msg))
	}
	return out, nil
}

func (c *KafkaConsumer) Close() error {
	return c.reader.Close()
}

func fromKafka(msg kafka.Message) Message {
	out := Message{
		Topic:     msg.Topic,
		Key:       string(msg.Key),
		Payload:   msg.Value,
		Partition: msg.Partition,
		Offset:    msg.Offset,
	}
	for _, h := range msg.Headers {
		if h.Key == headerEventID {
			out.EventID = string(h.Value)
		}
	}
	return out
}
