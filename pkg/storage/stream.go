package storage

import (
	"context"

	"github.com/go-redis/redis/v8"

	"fundsub/pkg/core"
	"fundsub/pkg/message"
)

// StreamSink 把记录包装成 MessageFormat 发布到 Redis Stream，供下游消费
type StreamSink struct {
	client   redis.UniversalClient
	producer string
	maxLen   int64
}

// NewStreamSink producer 写入消息头，maxLen > 0 时按近似长度裁剪 Stream
func NewStreamSink(client redis.UniversalClient, producer string, maxLen int64) *StreamSink {
	return &StreamSink{client: client, producer: producer, maxLen: maxLen}
}

func (s *StreamSink) SaveQuote(ctx context.Context, q *core.RealtimeQuote) error {
	return s.publish(ctx, message.DataTypeEstimate, q)
}

func (s *StreamSink) SaveHistory(ctx context.Context, series *core.HistorySeries) error {
	return s.publish(ctx, message.DataTypeNAV, series)
}

func (s *StreamSink) ReplaceFundList(ctx context.Context, list *core.FundList) error {
	return s.publish(ctx, message.DataTypeFundList, list)
}

func (s *StreamSink) Close() error {
	return s.client.Close()
}

func (s *StreamSink) publish(ctx context.Context, dataType string, payload interface{}) error {
	msg := message.NewMessageFormat(s.producer, "eastmoney", dataType, payload)
	data, err := msg.ToJSON()
	if err != nil {
		return ioErr("marshal message", err).WithContext("dataType", dataType)
	}

	stream := message.GetStreamName(dataType)
	args := &redis.XAddArgs{
		Stream: stream,
		Values: map[string]interface{}{
			"data": data,
		},
	}
	if s.maxLen > 0 {
		args.MaxLen = s.maxLen
		args.Approx = true
	}
	if err := s.client.XAdd(ctx, args).Err(); err != nil {
		return ioErr("publish to redis stream", err).WithContext("stream", stream)
	}
	return nil
}

var _ Sink = (*StreamSink)(nil)
