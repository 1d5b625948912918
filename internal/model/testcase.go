package model

// 导入状态取值（由自由文本状态列归一化而来）
const (
	StatusNone    = ""
	StatusPass    = "Pass"
	StatusFail    = "Fail"
	StatusBlocked = "Blocked"
	StatusSkip    = "Skip"
)

// TestCaseRecord 导入后的一条测试用例记录
type TestCaseRecord struct {
	Sheet     string `json:"sheet"`     // 来源 Sheet 名
	RowNumber int    `json:"rowNumber"` // 源表中的行号（1 起）
	Module    string `json:"module"`    // 分组键，列缺失时回退为 Sheet 名
	ID        string `json:"id"`        // 去重后全局唯一
	Title     string `json:"title"`
	Field     string `json:"field"`
	Type      string `json:"type"`
	Pre       string `json:"pre"`
	Steps     string `json:"steps"`
	Data      string `json:"data"`
	Expected  string `json:"expected"`

	ImportedStatus       string `json:"importedStatus"`       // ""/Pass/Fail/Blocked
	ImportedActualResult string `json:"importedActualResult"`
	ImportedAttended     bool   `json:"importedAttended"`
	IsAutoGenerated      bool   `json:"isAutoGenerated"`
	IsDuplicateResolved  bool   `json:"isDuplicateResolved"`
}

// GroupKey 计算记录所属分组
// groupBy 为 "sheet" 时按来源 Sheet 分组，否则按模块分组并逐级回退
func (r *TestCaseRecord) GroupKey(groupBy string) string {
	if groupBy == "sheet" {
		return r.Sheet
	}
	if r.Module != "" {
		return r.Module
	}
	if r.Sheet != "" {
		return r.Sheet
	}
	return "General"
}
