package parser

import (
	"fmt"
	"strings"

	"caseboard/internal/model"
)

// 状态关键词集合，大小写不敏感
var (
	passKeywords    = []string{"pass", "passed", "success", "ok"}
	failKeywords    = []string{"fail", "failed", "failure", "error"}
	blockedKeywords = []string{"block", "blocked", "skip", "skipped"}
)

// 汇总/页脚行的首列特征
var summaryMarkers = []string{"test cases summary"}

// IsNonDataRow 判断是否为混在数据区的汇总/页脚行
// 依据首列文本的规范化形式判断，命中即整行丢弃且不计入警告
func IsNonDataRow(firstCell string) bool {
	t := NormalizeRowMarker(firstCell)
	if t == "" {
		return false
	}
	for _, marker := range summaryMarkers {
		if strings.Contains(t, strings.ReplaceAll(marker, " ", "")) {
			return true
		}
	}
	if strings.HasPrefix(t, "total:") || strings.HasPrefix(t, "executioncoverage:") {
		return true
	}
	return false
}

// NormalizeRowMarker 行标记专用的规范化
// 与表头规范化一致但保留冒号，便于识别 "total:" 前缀
func NormalizeRowMarker(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == ':' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NormalizeStatus 把自由文本状态归一化为 ""/Pass/Fail/Blocked
func NormalizeStatus(raw string) string {
	status := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case containsString(passKeywords, status):
		return model.StatusPass
	case containsString(failKeywords, status):
		return model.StatusFail
	case containsString(blockedKeywords, status):
		return model.StatusBlocked
	}
	return model.StatusNone
}

// DetermineAttendance 判断状态文本是否为已执行的终态
// 命中任一关键词集合（含 Blocked 一档）即视为已执行
func DetermineAttendance(raw string) bool {
	status := strings.ToLower(strings.TrimSpace(raw))
	if status == "" {
		return false
	}
	return containsString(passKeywords, status) ||
		containsString(failKeywords, status) ||
		containsString(blockedKeywords, status)
}

func containsString(set []string, s string) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}

// cellAt 取出某列单元格文本，未解析到的列按空串处理
func cellAt(cells []string, idx int) string {
	if idx == ColumnNotFound || idx >= len(cells) {
		return ""
	}
	return SafeTrim(cells[idx])
}

// NormalizeRow 把一行原始单元格转换为规范化测试用例记录
// 汇总行与 id/title 双空的行返回 nil，属于结构性跳过
func NormalizeRow(cells []string, ci ColumnIndex, sheetName string, rowNum int) *model.TestCaseRecord {
	var firstCell string
	if len(cells) > 0 {
		firstCell = cells[0]
	}
	if IsNonDataRow(firstCell) {
		return nil
	}

	testID := cellAt(cells, ci.Col(FieldID))
	title := cellAt(cells, ci.Col(FieldTitle))
	if testID == "" && title == "" {
		return nil
	}

	statusRaw := cellAt(cells, ci.Col(FieldStatus))

	rec := &model.TestCaseRecord{
		Sheet:     sheetName,
		RowNumber: rowNum,
		Module:    cellAt(cells, ci.Col(FieldModule)),
		ID:        testID,
		Title:     title,
		Field:     cellAt(cells, ci.Col(FieldField)),
		Type:      cellAt(cells, ci.Col(FieldType)),
		Pre:       cellAt(cells, ci.Col(FieldPre)),
		Steps:     cellAt(cells, ci.Col(FieldSteps)),
		Data:      cellAt(cells, ci.Col(FieldData)),
		Expected:  cellAt(cells, ci.Col(FieldExpected)),

		ImportedStatus:       NormalizeStatus(statusRaw),
		ImportedActualResult: cellAt(cells, ci.Col(FieldActualResult)),
		ImportedAttended:     DetermineAttendance(statusRaw),
	}

	if rec.Module == "" && ci.Col(FieldModule) == ColumnNotFound {
		rec.Module = sheetName
	}
	if rec.ID == "" {
		rec.ID = fmt.Sprintf("AUTO_%s_%d", sheetName, rowNum)
		rec.IsAutoGenerated = true
	}
	if rec.Title == "" {
		rec.Title = "Untitled Test Case"
	}

	return rec
}
