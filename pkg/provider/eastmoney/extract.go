package eastmoney

import (
	"strings"

	"fundsub/pkg/apperr"
)

// 历史净值脚本中的变量名
const (
	MarkerNetWorthTrend = "Data_netWorthTrend"
	MarkerACWorthTrend  = "Data_ACWorthTrend"
)

// extractObject 取出第一个 '{' 到与之配对的 '}'，外层的 jsonpgz(...); 被忽略
func extractObject(text string) (string, error) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", extractionErr("no object start", "")
	}
	end := matchClose(text, start)
	if end < 0 {
		return "", extractionErr("unterminated object", "")
	}
	return text[start : end+1], nil
}

// extractArrayAfter 找到 marker 之后的第一个 '['，返回到配对 ']' 为止的片段
func extractArrayAfter(text, marker string) (string, error) {
	at := strings.Index(text, marker)
	if at < 0 {
		return "", extractionErr("marker not found", marker)
	}
	rel := strings.IndexByte(text[at+len(marker):], '[')
	if rel < 0 {
		return "", extractionErr("no array after marker", marker)
	}
	start := at + len(marker) + rel
	end := matchClose(text, start)
	if end < 0 {
		return "", extractionErr("unterminated array", marker)
	}
	return text[start : end+1], nil
}

// extractOutermostArray 返回文档中第一个 '[' 到最后一个 ']'
func extractOutermostArray(text string) (string, error) {
	start := strings.IndexByte(text, '[')
	end := strings.LastIndexByte(text, ']')
	if start < 0 || end <= start {
		return "", extractionErr("no array in document", "")
	}
	return text[start : end+1], nil
}

// matchClose 从 open 处的括号开始按深度扫描，返回配对的闭括号下标，找不到返回 -1
//
// 字符串(单引号或双引号)内的括号不计入深度。
func matchClose(text string, open int) int {
	var closer byte
	switch text[open] {
	case '{':
		closer = '}'
	case '[':
		closer = ']'
	default:
		return -1
	}
	opener := text[open]

	depth := 0
	var quote byte
	escaped := false
	for i := open; i < len(text); i++ {
		c := text[i]
		if quote != 0 {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == quote:
				quote = 0
			}
			continue
		}
		switch c {
		case '"', '\'':
			quote = c
		case opener:
			depth++
		case closer:
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// normalizeQuotes 把单引号统一成双引号，累计净值数组里偶尔出现 '...' 形式的值
func normalizeQuotes(fragment string) string {
	return strings.ReplaceAll(fragment, "'", `"`)
}

func extractionErr(msg, marker string) error {
	e := apperr.New(apperr.ErrExtraction, msg)
	if marker != "" {
		e.WithContext("marker", marker)
	}
	return e
}
