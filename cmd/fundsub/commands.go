package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"
	"time"

	jsoniter "github.com/json-iterator/go"

	"fundsub/pkg/chart"
	"fundsub/pkg/core"
	"fundsub/pkg/timing"
)

const dateLayout = "2006-01-02"

// CLI 命令行子命令集合
type CLI struct {
	service core.FundService
	out     io.Writer
	errOut  io.Writer
}

// Dispatch 执行子命令
func (c *CLI) Dispatch(ctx context.Context, name string, args []string) error {
	switch name {
	case "realtime":
		return c.realtime(ctx, args)
	case "history":
		return c.history(ctx, args)
	case "list":
		return c.list(ctx, args)
	case "plot":
		return c.plot(ctx, args)
	default:
		return fmt.Errorf("未知命令: %s", name)
	}
}

func (c *CLI) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(c.errOut)
	return fs
}

func (c *CLI) writeJSON(v interface{}) error {
	enc := jsoniter.ConfigCompatibleWithStandardLibrary.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (c *CLI) table() *tabwriter.Writer {
	return tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
}

func (c *CLI) realtime(ctx context.Context, args []string) error {
	fs := c.flagSet("realtime")
	concurrency := fs.Int("concurrency", 0, "并发数，0 使用配置默认值")
	asJSON := fs.Bool("json", false, "输出 JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	codes := fs.Args()
	if len(codes) == 0 {
		return fmt.Errorf("realtime 至少需要一个基金代码")
	}

	var quotes map[string]*core.RealtimeQuote
	if len(codes) == 1 {
		q, err := c.service.FetchRealtime(ctx, codes[0])
		if err != nil {
			return err
		}
		quotes = map[string]*core.RealtimeQuote{codes[0]: q}
	} else {
		quotes = c.service.BatchRealtime(ctx, codes, *concurrency)
	}

	if *asJSON {
		return c.writeJSON(quotes)
	}

	w := c.table()
	fmt.Fprintln(w, "代码\t名称\t估算净值\t估算涨幅%\t估值时间\t单位净值\t净值日期")
	for _, code := range sortedKeys(quotes) {
		q := quotes[code]
		if q == nil {
			fmt.Fprintf(w, "%s\t获取失败\t\t\t\t\t\n", code)
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			q.Code, q.Name, q.EstimateNav.String(), q.EstimateChangePercent.String(),
			q.EstimateTime, q.OfficialNav.String(), q.NavDate)
	}
	return w.Flush()
}

// dateRange 解析 -start/-end
func dateRange(start, end string) (time.Time, time.Time, error) {
	var from, to time.Time
	var err error
	if start != "" {
		if from, err = time.ParseInLocation(dateLayout, start, timing.ChinaLocation); err != nil {
			return from, to, fmt.Errorf("无效的开始日期 %q: %w", start, err)
		}
	}
	if end != "" {
		if to, err = time.ParseInLocation(dateLayout, end, timing.ChinaLocation); err != nil {
			return from, to, fmt.Errorf("无效的结束日期 %q: %w", end, err)
		}
	}
	return from, to, nil
}

func (c *CLI) history(ctx context.Context, args []string) error {
	fs := c.flagSet("history")
	start := fs.String("start", "", "开始日期 YYYY-MM-DD")
	end := fs.String("end", "", "结束日期 YYYY-MM-DD")
	tail := fs.Int("tail", 10, "只显示最后 N 条，0 表示全部")
	asJSON := fs.Bool("json", false, "输出 JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("history 需要且只需要一个基金代码")
	}
	from, to, err := dateRange(*start, *end)
	if err != nil {
		return err
	}

	series, err := c.service.FetchHistory(ctx, fs.Arg(0))
	if err != nil {
		return err
	}
	points := series.Between(from, to)
	if *tail > 0 && len(points) > *tail {
		points = points[len(points)-*tail:]
	}

	if *asJSON {
		return c.writeJSON(core.HistorySeries{Code: series.Code, Points: points})
	}

	w := c.table()
	fmt.Fprintln(w, "日期\t单位净值\t累计净值\t日增长率%\t分红送配")
	for _, p := range points {
		cumulative := "-"
		if p.CumulativeNav.Valid {
			cumulative = p.CumulativeNav.Decimal.String()
		}
		rate := "-"
		if p.ReturnRate.Valid {
			rate = p.ReturnRate.Decimal.String()
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", p.DateKey(), p.Nav.String(), cumulative, rate, p.Distribution)
	}
	return w.Flush()
}

func (c *CLI) list(ctx context.Context, args []string) error {
	fs := c.flagSet("list")
	fundType := fs.String("type", "", "按基金类型过滤，例如 股票型")
	query := fs.String("q", "", "按代码、拼音或名称搜索")
	limit := fs.Int("limit", 20, "最多显示条数，0 表示全部")
	asJSON := fs.Bool("json", false, "输出 JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	list, err := c.service.FetchFundList(ctx)
	if err != nil {
		return err
	}
	entries := list.Entries
	if *fundType != "" {
		entries = list.FilterByType(*fundType)
	}
	entries = core.Search(entries, *query)
	total := len(entries)
	if *limit > 0 && len(entries) > *limit {
		entries = entries[:*limit]
	}

	if *asJSON {
		return c.writeJSON(entries)
	}

	w := c.table()
	fmt.Fprintln(w, "代码\t简拼\t名称\t类型")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.Code, e.Abbreviation, e.Name, e.Type)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "共 %d 只，显示 %d 只\n", total, len(entries))
	return nil
}

func (c *CLI) plot(ctx context.Context, args []string) error {
	fs := c.flagSet("plot")
	output := fs.String("o", "", "输出文件，默认 <代码>.png")
	width := fs.Int("width", chart.DefaultWidth, "图片宽度")
	height := fs.Int("height", chart.DefaultHeight, "图片高度")
	start := fs.String("start", "", "开始日期 YYYY-MM-DD")
	end := fs.String("end", "", "结束日期 YYYY-MM-DD")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("plot 需要且只需要一个基金代码")
	}
	from, to, err := dateRange(*start, *end)
	if err != nil {
		return err
	}

	code := fs.Arg(0)
	series, err := c.service.FetchHistory(ctx, code)
	if err != nil {
		return err
	}
	path := *output
	if path == "" {
		path = code + ".png"
	}

	window := &core.HistorySeries{Code: series.Code, Points: series.Between(from, to)}
	if err := chart.SaveNAV(window, chart.Options{Width: *width, Height: *height}, path); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "已保存 %s (%d 个数据点)\n", path, len(window.Points))
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
