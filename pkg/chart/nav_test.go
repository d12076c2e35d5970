package chart

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"fundsub/pkg/apperr"
	"fundsub/pkg/core"
	"fundsub/pkg/timing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngMagic = []byte{0x89, 'P', 'N', 'G'}

func point(day int, nav string, cumulative string) core.HistoryPoint {
	p := core.HistoryPoint{
		Date: time.Date(2024, 1, day, 0, 0, 0, 0, timing.ChinaLocation),
		Nav:  decimal.RequireFromString(nav),
	}
	if cumulative != "" {
		p.CumulativeNav = decimal.NewNullDecimal(decimal.RequireFromString(cumulative))
	}
	return p
}

func TestFillCumulative(t *testing.T) {
	tests := []struct {
		name   string
		points []core.HistoryPoint
		want   []float64
		ok     bool
	}{
		{
			name:   "前向填充",
			points: []core.HistoryPoint{point(2, "1.2", "1.4"), point(3, "1.3", ""), point(4, "1.1", "1.5")},
			want:   []float64{1.4, 1.4, 1.5},
			ok:     true,
		},
		{
			name:   "开头缺失沿用首个值",
			points: []core.HistoryPoint{point(2, "1.2", ""), point(3, "1.3", "1.45")},
			want:   []float64{1.45, 1.45},
			ok:     true,
		},
		{
			name:   "全部缺失",
			points: []core.HistoryPoint{point(2, "1.2", ""), point(3, "1.3", "")},
			ok:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := fillCumulative(tt.points)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.InDeltaSlice(t, tt.want, got, 1e-9)
			}
		})
	}
}

func TestBounds(t *testing.T) {
	yMin, yMax := bounds([][]float64{{1.0, 1.2}, {1.1, 2.0}})
	assert.Less(t, yMin, 1.0)
	assert.Greater(t, yMax, 2.0)
	assert.GreaterOrEqual(t, yMin, 0.0)
}

func TestOptionsWithDefaults(t *testing.T) {
	tests := []struct {
		name       string
		in         Options
		wantWidth  int
		wantHeight int
	}{
		{name: "零值取默认", in: Options{}, wantWidth: DefaultWidth, wantHeight: DefaultHeight},
		{name: "负数取默认", in: Options{Width: -5, Height: -5}, wantWidth: DefaultWidth, wantHeight: DefaultHeight},
		{name: "正常尺寸保留", in: Options{Width: 600, Height: 300}, wantWidth: 600, wantHeight: 300},
		{name: "超大尺寸截断", in: Options{Width: 6000, Height: 100000}, wantWidth: MaxWidth, wantHeight: MaxHeight},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.in.withDefaults("001186")
			assert.Equal(t, tt.wantWidth, got.Width)
			assert.Equal(t, tt.wantHeight, got.Height)
			assert.Equal(t, "001186 净值走势", got.Title)
		})
	}
}

func TestRenderNAV(t *testing.T) {
	series := &core.HistorySeries{
		Code:   "001186",
		Points: []core.HistoryPoint{point(2, "1.2340", "1.4000"), point(3, "1.2500", "1.4500"), point(4, "1.3000", "")},
	}

	img, err := RenderNAV(series, Options{Width: 600, Height: 300})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(img, pngMagic))
}

func TestRenderNAV_NotEnoughPoints(t *testing.T) {
	_, err := RenderNAV(&core.HistorySeries{Code: "001186", Points: []core.HistoryPoint{point(2, "1.2", "")}}, Options{})
	require.Error(t, err)
	assert.Equal(t, apperr.ErrValidation, apperr.CodeOf(err))

	_, err = RenderNAV(nil, Options{})
	assert.Error(t, err)
}

func TestSaveNAV(t *testing.T) {
	series := &core.HistorySeries{
		Code:   "001186",
		Points: []core.HistoryPoint{point(2, "1.2340", ""), point(3, "1.2500", "")},
	}
	path := filepath.Join(t.TempDir(), "nav.png")

	require.NoError(t, SaveNAV(series, Options{}, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, pngMagic))
}
