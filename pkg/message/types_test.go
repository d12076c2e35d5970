package message

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fundsub/pkg/core"
)

func sampleQuote() *core.RealtimeQuote {
	return &core.RealtimeQuote{
		Code:                  "001186",
		Name:                  "富国文体健康股票",
		EstimateTime:          "2024-01-05 15:00",
		OfficialNav:           decimal.RequireFromString("1.234"),
		EstimateNav:           decimal.RequireFromString("1.250"),
		EstimateChangePercent: decimal.RequireFromString("1.30"),
	}
}

func TestNewMessageFormat(t *testing.T) {
	q := sampleQuote()
	msg := NewMessageFormat("test-producer", "eastmoney", DataTypeEstimate, q)

	assert.NotEmpty(t, msg.Header.MessageID)
	assert.Equal(t, "1.0", msg.Header.Version)
	assert.Equal(t, "test-producer", msg.Header.Producer)
	assert.Equal(t, "application/json", msg.Header.ContentType)
	assert.True(t, msg.Header.Timestamp > 0)

	assert.Equal(t, "eastmoney", msg.Metadata.Provider)
	assert.Equal(t, DataTypeEstimate, msg.Metadata.DataType)
	assert.Equal(t, "001186", msg.Metadata.FundCode)
	assert.Equal(t, 1, msg.Metadata.BatchSize)

	assert.Same(t, q, msg.Payload)
	assert.Contains(t, msg.Checksum, "sha256:")
}

func TestNewMessageFormat_BatchSize(t *testing.T) {
	series := &core.HistorySeries{Code: "001186", Points: make([]core.HistoryPoint, 3)}
	assert.Equal(t, 3, NewMessageFormat("p", "eastmoney", DataTypeNAV, series).Metadata.BatchSize)

	list := &core.FundList{Entries: make([]core.FundListEntry, 5)}
	assert.Equal(t, 5, NewMessageFormat("p", "eastmoney", DataTypeFundList, list).Metadata.BatchSize)
}

func TestMessageFormat_Validate(t *testing.T) {
	msg := NewMessageFormat("test-producer", "eastmoney", DataTypeEstimate, sampleQuote())
	require.NoError(t, msg.Validate())

	originalChecksum := msg.Checksum
	msg.Checksum = "invalid-checksum"
	assert.Equal(t, ErrInvalidChecksum, msg.Validate())

	msg.Checksum = originalChecksum
	assert.NoError(t, msg.Validate())

	msg.Header.MessageID = ""
	assert.Equal(t, ErrInvalidFormat, msg.Validate())
}

func TestMessageFormat_ToJSON_FromJSON(t *testing.T) {
	original := NewMessageFormat("test-producer", "eastmoney", DataTypeEstimate, sampleQuote())

	s, err := original.ToJSON()
	require.NoError(t, err)

	parsed, err := FromJSON(s)
	require.NoError(t, err)
	assert.Equal(t, original.Header, parsed.Header)
	assert.Equal(t, original.Metadata, parsed.Metadata)
	assert.Equal(t, original.Checksum, parsed.Checksum)

	var q core.RealtimeQuote
	require.NoError(t, parsed.DecodePayload(&q))
	assert.Equal(t, "001186", q.Code)
	assert.True(t, q.EstimateNav.Equal(decimal.RequireFromString("1.25")))

	_, err = FromJSON("{not json")
	assert.Error(t, err)
}

func TestDecodePayload_FromStruct(t *testing.T) {
	series := &core.HistorySeries{Code: "001186", Points: []core.HistoryPoint{
		{Date: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Nav: decimal.RequireFromString("1.2")},
	}}
	msg := NewMessageFormat("p", "eastmoney", DataTypeNAV, series)

	var out core.HistorySeries
	require.NoError(t, msg.DecodePayload(&out))
	require.Len(t, out.Points, 1)
	assert.Equal(t, "1.2", out.Points[0].Nav.String())
}

func TestGetStreamName(t *testing.T) {
	assert.Equal(t, "stream:fund:estimate", GetStreamName(DataTypeEstimate))
	assert.Equal(t, "stream:fund:nav", GetStreamName(DataTypeNAV))
	assert.Equal(t, "stream:fund:list", GetStreamName(DataTypeFundList))
	assert.Equal(t, "stream:unknown", GetStreamName("x"))
}
