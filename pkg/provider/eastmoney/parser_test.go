package eastmoney

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fundsub/pkg/apperr"
)

const samplePayload = `jsonpgz({"fundcode":"001186","name":"X","jzrq":"2023-12-29","dwjz":"1.234","gsz":"1.250","gszzl":"1.30","gztime":"2024-01-01 15:00"});`

func TestParseRealtime_Example(t *testing.T) {
	q, err := parseRealtime("001186", []byte(samplePayload))
	require.NoError(t, err)

	assert.Equal(t, "001186", q.Code)
	assert.Equal(t, "X", q.Name)
	assert.Equal(t, "2023-12-29", q.NavDate)
	assert.Equal(t, "2024-01-01 15:00", q.EstimateTime)
	assert.Equal(t, "1.234", q.OfficialNav.String())
	assert.Equal(t, "1.25", q.EstimateNav.String())
	assert.Equal(t, "1.3", q.EstimateChangePercent.String())
}

func TestParseRealtime_OptionalFields(t *testing.T) {
	q, err := parseRealtime("001186", []byte(`jsonpgz({"fundcode":"001186","dwjz":1.234,"gsz":"1.250","gszzl":"-0.5"});`))
	require.NoError(t, err)
	assert.Empty(t, q.Name)
	assert.Empty(t, q.EstimateTime)
	assert.Equal(t, "-0.5", q.EstimateChangePercent.String())
}

func TestParseRealtime_Failures(t *testing.T) {
	tests := []struct {
		name string
		body string
		code string
		want apperr.ErrorCode
	}{
		{"空估值", `jsonpgz();`, "001186", apperr.ErrExtraction},
		{"非法json", `jsonpgz({fundcode:001186});`, "001186", apperr.ErrDecode},
		{"缺少gsz", `jsonpgz({"fundcode":"001186","dwjz":"1","gszzl":"1"});`, "001186", apperr.ErrDecode},
		{"gsz非数字", `jsonpgz({"fundcode":"001186","dwjz":"1","gsz":"--","gszzl":"1"});`, "001186", apperr.ErrDecode},
		{"代码不一致", samplePayload, "000001", apperr.ErrDecode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := parseRealtime(tt.code, []byte(tt.body))
			assert.Nil(t, q)
			assert.Equal(t, tt.want, apperr.CodeOf(err))
		})
	}
}

func TestParseHistory_Merge(t *testing.T) {
	body, err := os.ReadFile("testdata/pingzhongdata_001186.js")
	require.NoError(t, err)

	s, err := parseHistory("001186", body)
	require.NoError(t, err)
	require.Len(t, s.Points, 3, "仅出现在累计净值中的日期被丢弃")
	assert.Equal(t, "001186", s.Code)

	// 按日期升序
	assert.Equal(t, "2024-01-02", s.Points[0].DateKey())
	assert.Equal(t, "2024-01-03", s.Points[1].DateKey())
	assert.Equal(t, "2024-01-04", s.Points[2].DateKey())

	// 两个序列都有的日期取累计净值
	assert.True(t, s.Points[0].CumulativeNav.Valid)
	assert.Equal(t, "1.435", s.Points[0].CumulativeNav.Decimal.String())
	assert.Equal(t, "1.45", s.Points[1].CumulativeNav.Decimal.String(), "单引号的值也能解析")

	// 只在单位净值中的日期累计净值为空
	assert.False(t, s.Points[2].CumulativeNav.Valid)

	assert.Equal(t, "1.235", s.Points[0].Nav.String())
	assert.True(t, s.Points[1].ReturnRate.Valid)
	assert.Equal(t, "1.21", s.Points[1].ReturnRate.Decimal.String())
	assert.False(t, s.Points[2].ReturnRate.Valid)
	assert.Equal(t, "每份派现金0.0100元", s.Points[2].Distribution)
}

func TestParseHistory_Failures(t *testing.T) {
	tests := []struct {
		name string
		body string
		want apperr.ErrorCode
	}{
		{"缺少单位净值", `var Data_ACWorthTrend = [];`, apperr.ErrExtraction},
		{"缺少累计净值", `var Data_netWorthTrend = [];`, apperr.ErrExtraction},
		{"单位净值缺y", `var Data_netWorthTrend = [{"x":1704124800000}];var Data_ACWorthTrend = [];`, apperr.ErrDecode},
		{"累计净值元组过短", `var Data_netWorthTrend = [];var Data_ACWorthTrend = [[1704124800000]];`, apperr.ErrDecode},
		{"单位净值不是对象数组", `var Data_netWorthTrend = [1,2];var Data_ACWorthTrend = [];`, apperr.ErrDecode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseHistory("001186", []byte(tt.body))
			assert.Equal(t, tt.want, apperr.CodeOf(err))
		})
	}
}

func TestParseHistory_Empty(t *testing.T) {
	s, err := parseHistory("001186", []byte(`var Data_netWorthTrend = [];var Data_ACWorthTrend = [];`))
	require.NoError(t, err)
	assert.Empty(t, s.Points)
}

func TestParseFundList(t *testing.T) {
	body, err := os.ReadFile("testdata/fundcode_search.js")
	require.NoError(t, err)

	entries, err := parseFundList(body)
	require.NoError(t, err)
	require.Len(t, entries, 3, "重复代码只保留一条")

	assert.Equal(t, "000001", entries[0].Code)
	assert.Equal(t, "华夏成长混合[新]", entries[0].Name, "后出现的覆盖先出现的，位置不变")
	assert.Equal(t, "000003", entries[1].Code)
	assert.Equal(t, "001186", entries[2].Code)
	assert.Equal(t, "股票型", entries[2].Type)
	assert.Equal(t, "FGWTJKGP", entries[2].Abbreviation)
	assert.Equal(t, "FUGUOWENTIJIANKANGGUPIAO", entries[2].Pinyin)
}

func TestParseFundList_Failures(t *testing.T) {
	_, err := parseFundList([]byte(`var r = ;`))
	assert.Equal(t, apperr.ErrExtraction, apperr.CodeOf(err))

	_, err = parseFundList([]byte(`var r = [["000001","a","b","c"]];`))
	assert.Equal(t, apperr.ErrDecode, apperr.CodeOf(err))

	_, err = parseFundList([]byte(`var r = [[1,2,3,4,5]];`))
	assert.Equal(t, apperr.ErrDecode, apperr.CodeOf(err))
}

func TestToDecimal_KeepsNumberLiteral(t *testing.T) {
	var raw map[string]interface{}
	require.NoError(t, json.UnmarshalFromString(`{"v":1.23456789012345678901,"s":"0.5","e":"","n":null,"c":161725}`, &raw))

	tests := []struct {
		name   string
		key    string
		want   string
		wantOK bool
	}{
		{name: "数字字面量不丢精度", key: "v", want: "1.23456789012345678901", wantOK: true},
		{name: "数字字符串", key: "s", want: "0.5", wantOK: true},
		{name: "空串", key: "e", want: "0", wantOK: false},
		{name: "null", key: "n", want: "0", wantOK: false},
		{name: "缺失", key: "missing", want: "0", wantOK: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, ok, err := toDecimal(raw[tt.key])
			require.NoError(t, err)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, d.String())
		})
	}

	code, ok := stringField(raw, "c")
	assert.True(t, ok)
	assert.Equal(t, "161725", code)

	_, ok = stringField(raw, "n")
	assert.False(t, ok)
}
