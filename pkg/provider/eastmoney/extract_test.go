package eastmoney

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fundsub/pkg/apperr"
)

func TestExtractObject(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"jsonp包装", `jsonpgz({"fundcode":"001186"});`, `{"fundcode":"001186"}`},
		{"嵌套对象", `cb({"a":{"b":1},"c":2});`, `{"a":{"b":1},"c":2}`},
		{"字符串中的括号", `cb({"name":"A}B{C"});`, `{"name":"A}B{C"}`},
		{"转义引号", `cb({"name":"say \"}\""});`, `{"name":"say \"}\""}`},
		{"尾部多余内容", `x({"a":1}); y({"b":2});`, `{"a":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := extractObject(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractObject_Failures(t *testing.T) {
	for _, in := range []string{"", "jsonpgz();", `jsonpgz({"a":1`, "<html>404</html>"} {
		_, err := extractObject(in)
		assert.True(t, apperr.HasCode(err, apperr.ErrExtraction), "input %q", in)
	}
}

func TestExtractArrayAfter(t *testing.T) {
	text := `var Data_netWorthTrend = [{"x":1,"y":[2]}];var Data_ACWorthTrend = [[1,2],[3,'4']];`

	got, err := extractArrayAfter(text, MarkerNetWorthTrend)
	require.NoError(t, err)
	assert.Equal(t, `[{"x":1,"y":[2]}]`, got)

	got, err = extractArrayAfter(text, MarkerACWorthTrend)
	require.NoError(t, err)
	assert.Equal(t, `[[1,2],[3,'4']]`, got, "嵌套数组取到配对的右括号")

	_, err = extractArrayAfter(text, "Data_missing")
	assert.True(t, apperr.HasCode(err, apperr.ErrExtraction))

	_, err = extractArrayAfter(`var Data_ACWorthTrend = [[1,2]`, MarkerACWorthTrend)
	assert.True(t, apperr.HasCode(err, apperr.ErrExtraction))

	_, err = extractArrayAfter(`var Data_ACWorthTrend = null;`, MarkerACWorthTrend)
	assert.True(t, apperr.HasCode(err, apperr.ErrExtraction))
}

func TestExtractOutermostArray(t *testing.T) {
	got, err := extractOutermostArray(`var r = [["a"],["b"]];`)
	require.NoError(t, err)
	assert.Equal(t, `[["a"],["b"]]`, got)

	for _, in := range []string{"var r = ;", "]["} {
		_, err := extractOutermostArray(in)
		assert.True(t, apperr.HasCode(err, apperr.ErrExtraction), "input %q", in)
	}
}

func TestMatchClose_NeverPanics(t *testing.T) {
	inputs := []string{"{", "[", "{'", `{"\`, "[[[", "x"}
	for _, in := range inputs {
		assert.NotPanics(t, func() { matchClose(in, 0) })
	}
	assert.Equal(t, -1, matchClose("x", 0))
}
