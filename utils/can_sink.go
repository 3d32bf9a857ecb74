package utils

import (
	"bytes"
	"context"

	"github.com/cockroachdb/errors"
	red "github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"
)

// Sink receives every decoded message of a dump session.
type Sink interface {
	Publish(ctx context.Context, msg *DecodedMessage) error
	Close() error
}

// EncodeDecoded packs a decoded message as msgpack.
func EncodeDecoded(msg *DecodedMessage) ([]byte, error) {
	buf := new(bytes.Buffer)
	enc := msgpack.NewEncoder(buf)
	enc.UseCompactInts(true)
	if err := enc.Encode(msg); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func DecodeDecoded(data []byte) (*DecodedMessage, error) {
	msg := new(DecodedMessage)
	if err := msgpack.NewDecoder(bytes.NewReader(data)).Decode(msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// RedisSink LPUSHes msgpack encoded messages onto a Redis list.
type RedisSink struct {
	Key string

	client *red.Client
}

func NewRedisSink(ctx context.Context, url, key string) (*RedisSink, error) {
	opt, err := red.ParseURL(url)
	if err != nil {
		return nil, errors.Wrap(err, "redis url")
	}
	client := red.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "redis ping")
	}
	return &RedisSink{Key: key, client: client}, nil
}

func (r *RedisSink) Publish(ctx context.Context, msg *DecodedMessage) error {
	data, err := EncodeDecoded(msg)
	if err != nil {
		return err
	}
	return r.client.LPush(ctx, r.Key, data).Err()
}

func (r *RedisSink) Close() error {
	if r.client == nil {
		return nil
	}
	err := r.client.Close()
	r.client = nil
	return err
}

// StubSink keeps published messages in memory.
type StubSink struct {
	Messages []*DecodedMessage
	Err      error
}

func (s *StubSink) Publish(ctx context.Context, msg *DecodedMessage) error {
	if s.Err != nil {
		return s.Err
	}
	s.Messages = append(s.Messages, msg)
	return nil
}

func (s *StubSink) Close() error { return nil }
