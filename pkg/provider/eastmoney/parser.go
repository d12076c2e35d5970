package eastmoney

import (
	"fmt"
	"sort"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/shopspring/decimal"

	"fundsub/pkg/apperr"
	"fundsub/pkg/core"
	"fundsub/pkg/timing"
)

// 数字保留为 Number 字面量，避免 float64 丢精度
var json = jsoniter.Config{
	EscapeHTML:             true,
	SortMapKeys:            true,
	ValidateJsonRawMessage: true,
	UseNumber:              true,
}.Froze()

// parseRealtime 解析 fundgz 返回的 jsonpgz({...});
func parseRealtime(code string, body []byte) (*core.RealtimeQuote, error) {
	fragment, err := extractObject(string(body))
	if err != nil {
		return nil, withCode(err, code)
	}

	var raw map[string]interface{}
	if err := json.UnmarshalFromString(fragment, &raw); err != nil {
		return nil, decodeErr("realtime object is not valid json", err, code)
	}

	fundCode, ok := stringField(raw, "fundcode")
	if !ok || fundCode == "" {
		return nil, decodeErr("missing fundcode", nil, code)
	}
	if fundCode != code {
		return nil, decodeErr(fmt.Sprintf("response is for %s", fundCode), nil, code)
	}

	quote := &core.RealtimeQuote{Code: fundCode}
	quote.Name, _ = stringField(raw, "name")
	quote.NavDate, _ = stringField(raw, "jzrq")
	quote.EstimateTime, _ = stringField(raw, "gztime")

	for _, f := range []struct {
		key string
		dst *decimal.Decimal
	}{
		{"dwjz", &quote.OfficialNav},
		{"gsz", &quote.EstimateNav},
		{"gszzl", &quote.EstimateChangePercent},
	} {
		d, ok, err := toDecimal(raw[f.key])
		if err != nil || !ok {
			return nil, decodeErr(fmt.Sprintf("field %s missing or not numeric", f.key), err, code)
		}
		*f.dst = d
	}

	return quote, nil
}

// parseHistory 解析 pingzhongdata 脚本，按日期把累计净值左连接到单位净值上
func parseHistory(code string, body []byte) (*core.HistorySeries, error) {
	text := string(body)

	navFragment, err := extractArrayAfter(text, MarkerNetWorthTrend)
	if err != nil {
		return nil, withCode(err, code)
	}
	acFragment, err := extractArrayAfter(text, MarkerACWorthTrend)
	if err != nil {
		return nil, withCode(err, code)
	}

	var navRaw []map[string]interface{}
	if err := json.UnmarshalFromString(navFragment, &navRaw); err != nil {
		return nil, decodeErr("net worth trend is not valid json", err, code).WithContext("marker", MarkerNetWorthTrend)
	}
	var acRaw [][]interface{}
	if err := json.UnmarshalFromString(normalizeQuotes(acFragment), &acRaw); err != nil {
		return nil, decodeErr("accumulated worth trend is not valid json", err, code).WithContext("marker", MarkerACWorthTrend)
	}

	cumulative := make(map[string]decimal.Decimal, len(acRaw))
	for i, tuple := range acRaw {
		if len(tuple) < 2 {
			return nil, decodeErr(fmt.Sprintf("accumulated tuple %d has %d fields", i, len(tuple)), nil, code)
		}
		ts, ok, err := toDecimal(tuple[0])
		if err != nil || !ok {
			return nil, decodeErr(fmt.Sprintf("accumulated tuple %d has bad timestamp", i), err, code)
		}
		v, ok, err := toDecimal(tuple[1])
		if err != nil {
			return nil, decodeErr(fmt.Sprintf("accumulated tuple %d has bad value", i), err, code)
		}
		if !ok {
			continue
		}
		cumulative[timing.DateKey(timing.DayOf(ts.IntPart()))] = v
	}

	points := make([]core.HistoryPoint, 0, len(navRaw))
	for i, obj := range navRaw {
		ts, ok, err := toDecimal(obj["x"])
		if err != nil || !ok {
			return nil, decodeErr(fmt.Sprintf("net worth point %d has bad x", i), err, code)
		}
		nav, ok, err := toDecimal(obj["y"])
		if err != nil || !ok {
			return nil, decodeErr(fmt.Sprintf("net worth point %d has bad y", i), err, code)
		}
		ret, hasRet, err := toDecimal(obj["equityReturn"])
		if err != nil {
			return nil, decodeErr(fmt.Sprintf("net worth point %d has bad equityReturn", i), err, code)
		}

		p := core.HistoryPoint{
			Date:       timing.DayOf(ts.IntPart()),
			Nav:        nav,
			ReturnRate: decimal.NullDecimal{Decimal: ret, Valid: hasRet},
		}
		p.Distribution, _ = stringField(obj, "unitMoney")
		if cum, ok := cumulative[p.DateKey()]; ok {
			p.CumulativeNav = decimal.NullDecimal{Decimal: cum, Valid: true}
		}
		points = append(points, p)
	}

	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Date.Before(points[j].Date)
	})

	return &core.HistorySeries{Code: code, Points: points}, nil
}

// parseFundList 解析 fundcode_search.js 中的 var r = [[...], ...];
func parseFundList(body []byte) ([]core.FundListEntry, error) {
	fragment, err := extractOutermostArray(string(body))
	if err != nil {
		return nil, err
	}

	var tuples [][]string
	if err := json.UnmarshalFromString(fragment, &tuples); err != nil {
		return nil, apperr.Wrap(apperr.ErrDecode, "fund list is not an array of string tuples", err)
	}

	entries := make([]core.FundListEntry, 0, len(tuples))
	index := make(map[string]int, len(tuples))
	for i, t := range tuples {
		if len(t) != 5 {
			return nil, apperr.New(apperr.ErrDecode, fmt.Sprintf("fund list tuple %d has %d fields", i, len(t)))
		}
		e := core.FundListEntry{Code: t[0], Abbreviation: t[1], Name: t[2], Type: t[3], Pinyin: t[4]}
		if at, dup := index[e.Code]; dup {
			entries[at] = e
			continue
		}
		index[e.Code] = len(entries)
		entries = append(entries, e)
	}
	return entries, nil
}

// toDecimal 接受 JSON 数字或数字字符串；null、缺失和空串返回 ok=false
func toDecimal(v interface{}) (decimal.Decimal, bool, error) {
	if n, ok := jsoniter.CastJsonNumber(v); ok {
		d, err := decimal.NewFromString(n)
		return d, err == nil, err
	}
	switch x := v.(type) {
	case nil:
		return decimal.Zero, false, nil
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return decimal.Zero, false, nil
		}
		d, err := decimal.NewFromString(s)
		return d, err == nil, err
	case float64:
		return decimal.NewFromFloat(x), true, nil
	default:
		return decimal.Zero, false, fmt.Errorf("unexpected %T", v)
	}
}

func stringField(m map[string]interface{}, key string) (string, bool) {
	if s, ok := m[key].(string); ok {
		return s, true
	}
	return jsoniter.CastJsonNumber(m[key])
}

func decodeErr(msg string, cause error, code string) *apperr.Error {
	var e *apperr.Error
	if cause != nil {
		e = apperr.Wrap(apperr.ErrDecode, msg, cause)
	} else {
		e = apperr.New(apperr.ErrDecode, msg)
	}
	return e.WithContext("code", code)
}

func withCode(err error, code string) error {
	if e, ok := err.(*apperr.Error); ok {
		return e.WithContext("code", code)
	}
	return err
}
