// Package kafka publishes records as JSON messages. URIs have the form
// kafka://broker1:9092,broker2:9092/topic?key=column.
package kafka

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/IBM/sarama"
	"github.com/ajitpratap0/phaeton/pkg/errors"
	"github.com/ajitpratap0/phaeton/pkg/record"
	"github.com/ajitpratap0/phaeton/pkg/sink"
	"go.uber.org/multierr"
)

func init() {
	if err := sink.RegisterStore("kafka", New); err != nil {
		panic(err)
	}
}

// Target is a parsed kafka URI.
type Target struct {
	Brokers  []string
	Topic    string
	KeyField string
}

// ParseTarget reads brokers, topic and optional key column from a URI.
// Brokers may also be given with ?brokers=a:9092,b:9092.
func ParseTarget(u *url.URL) (Target, error) {
	q := u.Query()
	hosts := u.Host
	if b := q.Get("brokers"); b != "" {
		hosts = b
	}
	var brokers []string
	for _, b := range strings.Split(hosts, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	topic := strings.Trim(u.Path, "/")
	if len(brokers) == 0 || topic == "" {
		return Target{}, fmt.Errorf("kafka uri %q needs brokers and a topic", u.String())
	}
	return Target{Brokers: brokers, Topic: topic, KeyField: q.Get("key")}, nil
}

// Writer publishes one message per record through a synchronous producer.
type Writer struct {
	target   Target
	keyIdx   int
	client   sarama.Client
	producer sarama.SyncProducer
}

// New creates a writer from a URI.
func New(u *url.URL) (sink.Writer, error) {
	t, err := ParseTarget(u)
	if err != nil {
		return nil, err
	}
	return &Writer{target: t, keyIdx: -1}, nil
}

// Open implements sink.Writer.
func (w *Writer) Open(_ context.Context, h *record.Header) error {
	if w.target.KeyField != "" {
		i, ok := h.Index(w.target.KeyField)
		if !ok {
			return errors.Newf(errors.ErrorTypeSchema, "kafka key column %q does not exist", w.target.KeyField)
		}
		w.keyIdx = i
	}

	cfg := sarama.NewConfig()
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Return.Successes = true
	cfg.Producer.Idempotent = true
	cfg.Net.MaxOpenRequests = 1
	cfg.Version = sarama.V2_1_0_0

	client, err := sarama.NewClient(w.target.Brokers, cfg)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeIO, "failed to connect to kafka")
	}
	producer, err := sarama.NewSyncProducerFromClient(client)
	if err != nil {
		_ = client.Close()
		return errors.Wrap(err, errors.ErrorTypeIO, "failed to create kafka producer")
	}
	w.client, w.producer = client, producer
	return nil
}

// Messages converts records to producer messages in order.
func (w *Writer) Messages(rows []*record.Record) ([]*sarama.ProducerMessage, error) {
	msgs := make([]*sarama.ProducerMessage, len(rows))
	for i, r := range rows {
		value, err := sink.MarshalRecord(r)
		if err != nil {
			return nil, err
		}
		msg := &sarama.ProducerMessage{Topic: w.target.Topic, Value: sarama.ByteEncoder(value)}
		if w.keyIdx >= 0 {
			msg.Key = sarama.StringEncoder(r.Values[w.keyIdx].Text())
		}
		msgs[i] = msg
	}
	return msgs, nil
}

// Write implements sink.Writer.
func (w *Writer) Write(_ context.Context, rows []*record.Record) error {
	if len(rows) == 0 {
		return nil
	}
	msgs, err := w.Messages(rows)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeIO, "failed to encode kafka messages")
	}
	if err := w.producer.SendMessages(msgs); err != nil {
		return errors.Wrap(err, errors.ErrorTypeIO, fmt.Sprintf("failed to publish to %s", w.target.Topic))
	}
	return nil
}

// Close implements sink.Writer.
func (w *Writer) Close(context.Context) error {
	var err error
	if w.producer != nil {
		err = multierr.Append(err, w.producer.Close())
	}
	if w.client != nil && !w.client.Closed() {
		err = multierr.Append(err, w.client.Close())
	}
	return err
}
