package parser

import (
	"strings"

	"caseboard/internal/model"
)

// ValidationRules 行级校验规则
type ValidationRules struct {
	Required   []Field
	MaxLengths map[Field]int
}

// DefaultValidationRules 默认校验规则
func DefaultValidationRules() ValidationRules {
	return ValidationRules{
		Required: []Field{FieldID, FieldTitle},
		MaxLengths: map[Field]int{
			FieldID:     50,
			FieldTitle:  200,
			FieldModule: 100,
		},
	}
}

// ValidateRecord 校验规范化后的记录
// 超长字段截断并警告；必填字段为空则整行丢弃并警告
func ValidateRecord(rec *model.TestCaseRecord, rules ValidationRules, msgs *Messages) bool {
	for _, f := range rules.Required {
		field := fieldPtr(rec, f)
		if field == nil || strings.TrimSpace(*field) == "" {
			msgs.Warnf("Row %d in %q: missing required field: %s", rec.RowNumber, rec.Sheet, f)
			return false
		}
	}

	// 截断顺序固定，保证警告输出可复现
	for _, f := range AllFields {
		maxLen, ok := rules.MaxLengths[f]
		if !ok {
			continue
		}
		field := fieldPtr(rec, f)
		if field == nil {
			continue
		}
		if runes := []rune(*field); len(runes) > maxLen {
			msgs.Warnf("Row %d in %q: %s exceeds %d characters (truncated)", rec.RowNumber, rec.Sheet, f, maxLen)
			*field = string(runes[:maxLen]) + "..."
		}
	}

	return true
}
