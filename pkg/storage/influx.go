package storage

import (
	"context"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"fundsub/pkg/config"
	"fundsub/pkg/core"
	"fundsub/pkg/timing"
)

// InfluxDB measurement 名称
const (
	MeasurementEstimate = "fund_estimate"
	MeasurementNAV      = "fund_nav"
)

// PointWriter 对应 influxdb2 的 WriteAPIBlocking
type PointWriter interface {
	WritePoint(ctx context.Context, point ...*write.Point) error
}

// InfluxSink 把估值和净值写成时序点。基金列表不是时序数据，不写入。
type InfluxSink struct {
	client influxdb2.Client
	writer PointWriter
}

// NewInfluxSink 连接 InfluxDB 并创建同步写入 API
func NewInfluxSink(cfg config.InfluxConfig) *InfluxSink {
	client := influxdb2.NewClient(cfg.URL, cfg.Token)
	return &InfluxSink{
		client: client,
		writer: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
	}
}

// NewInfluxSinkWithWriter 使用自定义 writer，主要用于测试
func NewInfluxSinkWithWriter(w PointWriter) *InfluxSink {
	return &InfluxSink{writer: w}
}

func (s *InfluxSink) SaveQuote(ctx context.Context, q *core.RealtimeQuote) error {
	if err := s.writer.WritePoint(ctx, EstimatePoint(q)); err != nil {
		return ioErr("influx write estimate", err).WithContext("code", q.Code)
	}
	return nil
}

func (s *InfluxSink) SaveHistory(ctx context.Context, series *core.HistorySeries) error {
	if len(series.Points) == 0 {
		return nil
	}
	if err := s.writer.WritePoint(ctx, NAVPoints(series)...); err != nil {
		return ioErr("influx write nav", err).WithContext("code", series.Code)
	}
	return nil
}

func (s *InfluxSink) ReplaceFundList(ctx context.Context, list *core.FundList) error {
	return nil
}

func (s *InfluxSink) Close() error {
	if s.client != nil {
		s.client.Close()
	}
	return nil
}

// EstimatePoint 估值点，时间取估值时间(中国时区)，解析失败时用当前时间
func EstimatePoint(q *core.RealtimeQuote) *write.Point {
	ts, err := time.ParseInLocation("2006-01-02 15:04", q.EstimateTime, timing.ChinaLocation)
	if err != nil {
		ts = time.Now()
	}
	return influxdb2.NewPointWithMeasurement(MeasurementEstimate).
		AddTag("code", q.Code).
		AddTag("name", q.Name).
		AddField("official_nav", q.OfficialNav.InexactFloat64()).
		AddField("estimate_nav", q.EstimateNav.InexactFloat64()).
		AddField("estimate_change_percent", q.EstimateChangePercent.InexactFloat64()).
		SetTime(ts)
}

// NAVPoints 每个交易日一个点，缺失的累计净值和增长率不写字段
func NAVPoints(series *core.HistorySeries) []*write.Point {
	points := make([]*write.Point, 0, len(series.Points))
	for _, p := range series.Points {
		pt := influxdb2.NewPointWithMeasurement(MeasurementNAV).
			AddTag("code", series.Code).
			AddField("nav", p.Nav.InexactFloat64()).
			SetTime(p.Date)
		if p.CumulativeNav.Valid {
			pt.AddField("cumulative_nav", p.CumulativeNav.Decimal.InexactFloat64())
		}
		if p.ReturnRate.Valid {
			pt.AddField("return_rate", p.ReturnRate.Decimal.InexactFloat64())
		}
		points = append(points, pt)
	}
	return points
}

var _ Sink = (*InfluxSink)(nil)
