package parser

import (
	"fmt"
	"time"
)

// Field 测试用例的语义字段
type Field string

const (
	FieldID           Field = "id"
	FieldTitle        Field = "title"
	FieldModule       Field = "module"
	FieldField        Field = "field"
	FieldType         Field = "type"
	FieldPre          Field = "pre"
	FieldSteps        Field = "steps"
	FieldData         Field = "data"
	FieldExpected     Field = "expected"
	FieldStatus       Field = "status"
	FieldActualResult Field = "actualResult"
)

// AllFields 全部语义字段，按自动探测顺序排列
var AllFields = []Field{
	FieldID,
	FieldTitle,
	FieldModule,
	FieldField,
	FieldType,
	FieldPre,
	FieldSteps,
	FieldData,
	FieldExpected,
	FieldStatus,
	FieldActualResult,
}

// ColumnNotFound 列未解析到时的哨兵下标
const ColumnNotFound = -1

// ColumnIndex 语义字段到列下标的映射
type ColumnIndex map[Field]int

// Col 返回字段对应的列下标，未解析到返回 ColumnNotFound
func (ci ColumnIndex) Col(f Field) int {
	if idx, ok := ci[f]; ok {
		return idx
	}
	return ColumnNotFound
}

// Messages 解析过程中的警告与错误收集器
// 逐行/逐表问题只累积不中断，导入结束后一次性上报
type Messages struct {
	Warnings []string
	Errors   []string
}

// Warnf 记录一条警告
func (m *Messages) Warnf(format string, args ...interface{}) {
	m.Warnings = append(m.Warnings, fmt.Sprintf(format, args...))
}

// Errorf 记录一条错误
func (m *Messages) Errorf(format string, args ...interface{}) {
	m.Errors = append(m.Errors, fmt.Sprintf(format, args...))
}

// SheetResult 单个 Sheet 的处理结果
type SheetResult struct {
	SheetName    string        `json:"sheetName"`
	Status       string        `json:"status"` // imported/skipped/error
	ImportedRows int           `json:"importedRows"`
	SkippedRows  int           `json:"skippedRows"`
	ErrorRows    int           `json:"errorRows"`
	Errors       []string      `json:"errors,omitempty"`
	Duration     time.Duration `json:"duration"`
}

// ImportReport 导入报告
type ImportReport struct {
	WorkbookName       string        `json:"workbookName"`
	TotalSheets        int           `json:"totalSheets"`
	ImportedSheets     int           `json:"importedSheets"`
	SkippedSheets      int           `json:"skippedSheets"`
	TotalRows          int           `json:"totalRows"`
	ImportedRows       int           `json:"importedRows"`
	ErrorRows          int           `json:"errorRows"`
	DuplicatesResolved int           `json:"duplicatesResolved"`
	Warnings           []string      `json:"warnings,omitempty"`
	Errors             []string      `json:"errors,omitempty"`
	Duration           time.Duration `json:"duration"`
	Sheets             []SheetResult `json:"sheets"`
}
