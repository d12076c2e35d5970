// Package message 定义发布到 Redis Stream 的基金数据消息格式。
package message

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"

	"fundsub/pkg/core"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// 错误定义
var (
	ErrInvalidChecksum = errors.New("消息校验和不匹配")
	ErrInvalidFormat   = errors.New("消息格式无效")
)

// 数据类型
const (
	DataTypeEstimate = "fund_estimate"
	DataTypeNAV      = "fund_nav"
	DataTypeFundList = "fund_list"
)

// MessageHeader 消息头部信息
type MessageHeader struct {
	MessageID   string `json:"messageId"`
	Timestamp   int64  `json:"timestamp"`
	Version     string `json:"version"`
	Producer    string `json:"producer"`
	ContentType string `json:"contentType"`
}

// MessageMetadata 消息元数据
type MessageMetadata struct {
	Provider  string `json:"provider"`
	DataType  string `json:"dataType"`
	FundCode  string `json:"fundCode,omitempty"`
	BatchSize int    `json:"batchSize"`
}

// MessageFormat 标准消息格式
type MessageFormat struct {
	Header   MessageHeader   `json:"header"`
	Metadata MessageMetadata `json:"metadata"`
	Payload  interface{}     `json:"payload"`
	Checksum string          `json:"checksum"`
}

// NewMessageFormat 创建新的消息格式
func NewMessageFormat(producer, provider, dataType string, payload interface{}) *MessageFormat {
	header := MessageHeader{
		MessageID:   uuid.New().String(),
		Timestamp:   time.Now().Unix(),
		Version:     "1.0",
		Producer:    producer,
		ContentType: "application/json",
	}

	metadata := MessageMetadata{
		Provider:  provider,
		DataType:  dataType,
		BatchSize: 1,
	}
	switch p := payload.(type) {
	case *core.RealtimeQuote:
		metadata.FundCode = p.Code
	case *core.HistorySeries:
		metadata.FundCode = p.Code
		metadata.BatchSize = len(p.Points)
	case *core.FundList:
		metadata.BatchSize = len(p.Entries)
	case []*core.RealtimeQuote:
		metadata.BatchSize = len(p)
	}

	msg := &MessageFormat{
		Header:   header,
		Metadata: metadata,
		Payload:  payload,
	}

	// 计算校验和
	msg.Checksum = msg.calculateChecksum()

	return msg
}

// calculateChecksum 计算消息校验和
func (m *MessageFormat) calculateChecksum() string {
	// 创建消息副本，排除 checksum 字段
	temp := MessageFormat{
		Header:   m.Header,
		Metadata: m.Metadata,
		Payload:  m.Payload,
	}

	data, err := json.Marshal(temp)
	if err != nil {
		return ""
	}

	hash := sha256.Sum256(data)
	return "sha256:" + hex.EncodeToString(hash[:])
}

// Validate 验证消息完整性
func (m *MessageFormat) Validate() error {
	if m.Header.MessageID == "" || m.Metadata.DataType == "" {
		return ErrInvalidFormat
	}
	expectedChecksum := m.calculateChecksum()
	if m.Checksum != expectedChecksum {
		return ErrInvalidChecksum
	}
	return nil
}

// ToJSON 将消息转换为 JSON 字符串
func (m *MessageFormat) ToJSON() (string, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// FromJSON 从 JSON 字符串解析消息，Payload 保留原始 JSON 以便按类型解码
func FromJSON(jsonStr string) (*MessageFormat, error) {
	var raw struct {
		Header   MessageHeader       `json:"header"`
		Metadata MessageMetadata     `json:"metadata"`
		Payload  jsoniter.RawMessage `json:"payload"`
		Checksum string              `json:"checksum"`
	}
	if err := json.Unmarshal([]byte(jsonStr), &raw); err != nil {
		return nil, err
	}
	return &MessageFormat{
		Header:   raw.Header,
		Metadata: raw.Metadata,
		Payload:  raw.Payload,
		Checksum: raw.Checksum,
	}, nil
}

// DecodePayload 把 FromJSON 得到的原始 Payload 解码到 target
func (m *MessageFormat) DecodePayload(target interface{}) error {
	raw, ok := m.Payload.(jsoniter.RawMessage)
	if !ok {
		data, err := json.Marshal(m.Payload)
		if err != nil {
			return err
		}
		raw = data
	}
	return json.Unmarshal(raw, target)
}

// GetStreamName 根据数据类型获取 Redis Stream 名称
func GetStreamName(dataType string) string {
	switch dataType {
	case DataTypeEstimate:
		return "stream:fund:estimate"
	case DataTypeNAV:
		return "stream:fund:nav"
	case DataTypeFundList:
		return "stream:fund:list"
	default:
		return "stream:unknown"
	}
}
