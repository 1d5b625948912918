package parser

import (
	"regexp"
	"strings"
)

var nonAlnumRe = regexp.MustCompile(`[^a-z0-9_]`)

// NormalizeHeaderKey 规范化表头文本
// 小写化并去掉空白与标点，使查找容忍首尾空格和细微标点差异
func NormalizeHeaderKey(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return nonAlnumRe.ReplaceAllString(s, "")
}

// SafeTrim 字符串化并去首尾空白
func SafeTrim(s string) string {
	return strings.TrimSpace(s)
}

// HeaderIndex 表头索引
// 每个表头同时以原始形式和规范化形式注册，规范化形式先到先得
type HeaderIndex struct {
	exact   map[string]int
	headers []string
}

// MakeHeaderIndex 基于表头行构建索引
func MakeHeaderIndex(headers []string) *HeaderIndex {
	hi := &HeaderIndex{
		exact:   make(map[string]int, len(headers)*2),
		headers: append([]string{}, headers...),
	}
	for i, h := range headers {
		norm := NormalizeHeaderKey(h)
		if _, ok := hi.exact[norm]; !ok {
			hi.exact[norm] = i
		}
		hi.exact[h] = i
	}
	return hi
}

// Resolve 按配置列名解析列下标
// 优先级：原始精确匹配 → 去空格后匹配 → 规范化匹配 → 逐列去空格比对
func (hi *HeaderIndex) Resolve(configured string) int {
	if configured == "" {
		return ColumnNotFound
	}

	if idx, ok := hi.exact[configured]; ok {
		return idx
	}

	trimmed := strings.TrimSpace(configured)
	if trimmed != "" {
		if idx, ok := hi.exact[trimmed]; ok {
			return idx
		}
	}

	if idx, ok := hi.exact[NormalizeHeaderKey(configured)]; ok {
		return idx
	}

	for i, h := range hi.headers {
		if strings.TrimSpace(h) == trimmed {
			return i
		}
	}

	return ColumnNotFound
}

// ColumnMap 某个 Sheet 的配置列名映射
// 列名直接取自源表格，允许带有多余的首尾空格
type ColumnMap struct {
	Module       string `toml:"module" json:"module"`
	ID           string `toml:"id" json:"id"`
	Title        string `toml:"title" json:"title"`
	Field        string `toml:"field" json:"field"`
	Type         string `toml:"type" json:"type"`
	Pre          string `toml:"pre" json:"pre"`
	Steps        string `toml:"steps" json:"steps"`
	Data         string `toml:"data" json:"data"`
	Expected     string `toml:"expected" json:"expected"`
	Status       string `toml:"status" json:"status"`
	ActualResult string `toml:"actual_result" json:"actualResult"`
}

// configuredName 返回字段的配置列名
func (cm *ColumnMap) configuredName(f Field) string {
	switch f {
	case FieldModule:
		return cm.Module
	case FieldID:
		return cm.ID
	case FieldTitle:
		return cm.Title
	case FieldField:
		return cm.Field
	case FieldType:
		return cm.Type
	case FieldPre:
		return cm.Pre
	case FieldSteps:
		return cm.Steps
	case FieldData:
		return cm.Data
	case FieldExpected:
		return cm.Expected
	case FieldStatus:
		return cm.Status
	case FieldActualResult:
		return cm.ActualResult
	}
	return ""
}

// 自动探测的字段正则表
var autoDetectPatterns = []struct {
	field   Field
	pattern *regexp.Regexp
}{
	{FieldID, regexp.MustCompile(`(?i)test.?id|id|#`)},
	{FieldTitle, regexp.MustCompile(`(?i)title|description|name|test.?case`)},
	{FieldModule, regexp.MustCompile(`(?i)module|feature|component|area`)},
	{FieldField, regexp.MustCompile(`(?i)field|control|element`)},
	{FieldType, regexp.MustCompile(`(?i)type|category`)},
	{FieldPre, regexp.MustCompile(`(?i)pre.?condition|setup|prerequisite`)},
	{FieldSteps, regexp.MustCompile(`(?i)step|procedure|action`)},
	{FieldData, regexp.MustCompile(`(?i)data|input|value`)},
	{FieldExpected, regexp.MustCompile(`(?i)expected|result|outcome`)},
	{FieldStatus, regexp.MustCompile(`(?i)status|result|outcome|pass|fail|block`)},
	{FieldActualResult, regexp.MustCompile(`(?i)actual.?result|actual|actual.?output|observed.?result`)},
}

// AutoDetectColumns 按固定正则表自动探测各字段所在列
// 每个字段取规范化后第一个命中的表头列
func AutoDetectColumns(headers []string) ColumnIndex {
	normalized := make([]string, len(headers))
	for i, h := range headers {
		normalized[i] = NormalizeHeaderKey(h)
	}

	ci := make(ColumnIndex, len(autoDetectPatterns))
	for _, entry := range autoDetectPatterns {
		ci[entry.field] = ColumnNotFound
		for i, norm := range normalized {
			// "#" 这类纯符号表头会被规范化掉，所以同时比对原始形式
			if norm == "" && strings.TrimSpace(headers[i]) == "" {
				continue
			}
			if entry.pattern.MatchString(norm) || entry.pattern.MatchString(headers[i]) {
				ci[entry.field] = i
				break
			}
		}
	}
	return ci
}

// ResolveColumns 解析语义字段到列下标
// 有配置映射时按配置解析，否则走自动探测
func ResolveColumns(headers []string, cm *ColumnMap) ColumnIndex {
	if cm == nil {
		return AutoDetectColumns(headers)
	}

	hi := MakeHeaderIndex(headers)
	ci := make(ColumnIndex, len(AllFields))
	for _, f := range AllFields {
		ci[f] = hi.Resolve(cm.configuredName(f))
	}
	return ci
}

// ValidateColumnIndex 校验必需字段是否解析成功
// 缺失只记警告，不中断该 Sheet 的处理
func ValidateColumnIndex(ci ColumnIndex, sheetName string, msgs *Messages) {
	var missing []string
	if ci.Col(FieldID) == ColumnNotFound {
		missing = append(missing, "Test ID")
	}
	if ci.Col(FieldTitle) == ColumnNotFound {
		missing = append(missing, "Title/Description")
	}

	if len(missing) > 0 {
		msgs.Warnf("Sheet %q: could not find columns: %s", sheetName, strings.Join(missing, ", "))
	}
}
