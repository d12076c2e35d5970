// Package chart 绘制基金净值走势图。
package chart

import (
	"fmt"
	"os"

	"fundsub/pkg/apperr"
	"fundsub/pkg/core"

	"github.com/vicanso/go-charts/v2"
)

const (
	DefaultWidth  = 1000
	DefaultHeight = 500
	// 单边上限，超出按上限绘制
	MaxWidth    = 4000
	MaxHeight   = 4000
	labelLayout = "2006-01-02"
)

// Options 绘图参数
type Options struct {
	Width  int
	Height int
	Title  string
}

func (o Options) withDefaults(code string) Options {
	if o.Width <= 0 {
		o.Width = DefaultWidth
	}
	if o.Height <= 0 {
		o.Height = DefaultHeight
	}
	if o.Width > MaxWidth {
		o.Width = MaxWidth
	}
	if o.Height > MaxHeight {
		o.Height = MaxHeight
	}
	if o.Title == "" {
		o.Title = code + " 净值走势"
	}
	return o
}

// RenderNAV 将历史净值序列渲染为 PNG，包含单位净值和累计净值两条线。
// 累计净值缺失的日期沿用前一个已知值，序列开头的缺失沿用第一个已知值。
func RenderNAV(series *core.HistorySeries, opts Options) ([]byte, error) {
	if series == nil || len(series.Points) < 2 {
		return nil, apperr.New(apperr.ErrValidation, "净值数据点不足，无法绘图")
	}
	opts = opts.withDefaults(series.Code)

	labels := make([]string, len(series.Points))
	nav := make([]float64, len(series.Points))
	for i, p := range series.Points {
		labels[i] = p.Date.Format(labelLayout)
		nav[i] = p.Nav.InexactFloat64()
	}

	values := [][]float64{nav}
	legend := []string{"单位净值"}
	if cumulative, ok := fillCumulative(series.Points); ok {
		values = append(values, cumulative)
		legend = append(legend, "累计净值")
	}

	yMin, yMax := bounds(values)

	painter, err := charts.LineRender(values,
		charts.PNGTypeOption(),
		charts.WidthOptionFunc(opts.Width),
		charts.HeightOptionFunc(opts.Height),
		charts.TitleTextOptionFunc(opts.Title),
		charts.LegendLabelsOptionFunc(legend, charts.PositionRight),
		charts.XAxisOptionFunc(charts.XAxisOption{Data: labels, BoundaryGap: charts.FalseFlag(), SplitNumber: splitNumber(len(labels))}),
		charts.YAxisOptionFunc(charts.YAxisOption{Min: &yMin, Max: &yMax, DivideCount: 5}),
		charts.ThemeOptionFunc(charts.ThemeLight),
	)
	if err != nil {
		return nil, fmt.Errorf("渲染净值图失败 %s: %w", series.Code, err)
	}
	return painter.Bytes()
}

// SaveNAV 渲染并写入文件
func SaveNAV(series *core.HistorySeries, opts Options, path string) error {
	img, err := RenderNAV(series, opts)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, img, 0o644); err != nil {
		return apperr.Wrap(apperr.ErrStorageIO, "写入图片失败", err).WithContext("path", path)
	}
	return nil
}

// fillCumulative 返回前向填充后的累计净值；整条序列都没有累计净值时返回 false。
func fillCumulative(points []core.HistoryPoint) ([]float64, bool) {
	first := -1
	for i, p := range points {
		if p.CumulativeNav.Valid {
			first = i
			break
		}
	}
	if first < 0 {
		return nil, false
	}

	out := make([]float64, len(points))
	last := points[first].CumulativeNav.Decimal.InexactFloat64()
	for i, p := range points {
		if p.CumulativeNav.Valid {
			last = p.CumulativeNav.Decimal.InexactFloat64()
		}
		out[i] = last
	}
	return out, true
}

func bounds(values [][]float64) (float64, float64) {
	yMin, yMax := values[0][0], values[0][0]
	for _, line := range values {
		for _, v := range line {
			if v < yMin {
				yMin = v
			}
			if v > yMax {
				yMax = v
			}
		}
	}
	pad := (yMax - yMin) * 0.05
	if pad < yMax*0.002 {
		pad = yMax * 0.002
	}
	yMin -= pad
	if yMin < 0 {
		yMin = 0
	}
	return yMin, yMax + pad
}

func splitNumber(n int) int {
	switch {
	case n <= 10:
		return n
	case n <= 60:
		return 6
	default:
		return 10
	}
}
