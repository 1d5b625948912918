package parser

import (
	"regexp"
	"strings"

	"caseboard/internal/model"
)

// RuleType 字段级转换规则类型
type RuleType string

const (
	RuleTrimWhitespace RuleType = "trim_whitespace"
	RuleDefaultValue   RuleType = "default_value"
	RuleUppercase      RuleType = "uppercase"
	RuleLowercase      RuleType = "lowercase"
	RulePrefix         RuleType = "prefix"
	RuleMapValue       RuleType = "map_value"
)

// Rule 单条转换规则
type Rule struct {
	Type        RuleType          `toml:"type" json:"type"`
	Field       Field             `toml:"field" json:"field"`
	Value       string            `toml:"value" json:"value,omitempty"`
	Mapping     map[string]string `toml:"mapping" json:"mapping,omitempty"`
	Description string            `toml:"description" json:"description,omitempty"`
}

// DefaultRules 未配置时使用的默认规则集
func DefaultRules() []Rule {
	return []Rule{
		{
			Type:        RuleTrimWhitespace,
			Field:       FieldTitle,
			Description: "Remove extra whitespace from titles",
		},
		{
			Type:        RuleTrimWhitespace,
			Field:       FieldID,
			Description: "Remove extra whitespace from test IDs",
		},
		{
			Type:        RuleDefaultValue,
			Field:       FieldType,
			Value:       "Functional",
			Description: "Set default test type to Functional",
		},
		{
			Type:  RuleMapValue,
			Field: FieldType,
			Mapping: map[string]string{
				"UI Test":          "UI",
				"Api Test":         "API",
				"Functional Test":  "Functional",
				"Integration Test": "Integration",
			},
			Description: "Normalize test type values",
		},
	}
}

var innerSpaceRe = regexp.MustCompile(`\s+`)

// ApplyRules 按顺序应用转换规则
// 未知规则类型记警告后继续，整个流水线不会因单条规则中断
func ApplyRules(rec *model.TestCaseRecord, rules []Rule, msgs *Messages) {
	for _, rule := range rules {
		field := fieldPtr(rec, rule.Field)
		if field == nil {
			msgs.Warnf("Transformation rule failed for %s: unknown field", rule.Field)
			continue
		}

		switch rule.Type {
		case RuleTrimWhitespace:
			if *field != "" {
				*field = innerSpaceRe.ReplaceAllString(strings.TrimSpace(*field), " ")
			}
		case RuleDefaultValue:
			if strings.TrimSpace(*field) == "" {
				*field = rule.Value
			}
		case RuleUppercase:
			if *field != "" {
				*field = strings.ToUpper(*field)
			}
		case RuleLowercase:
			if *field != "" {
				*field = strings.ToLower(*field)
			}
		case RulePrefix:
			if *field != "" && !strings.HasPrefix(*field, rule.Value) {
				*field = rule.Value + *field
			}
		case RuleMapValue:
			if *field != "" {
				if mapped, ok := rule.Mapping[*field]; ok {
					*field = mapped
				}
			}
		default:
			msgs.Warnf("Transformation rule failed for %s: unknown rule type %q", rule.Field, rule.Type)
		}
	}
}

// fieldPtr 返回记录中语义字段的指针，供规则原地修改
func fieldPtr(rec *model.TestCaseRecord, f Field) *string {
	switch f {
	case FieldModule:
		return &rec.Module
	case FieldID:
		return &rec.ID
	case FieldTitle:
		return &rec.Title
	case FieldField:
		return &rec.Field
	case FieldType:
		return &rec.Type
	case FieldPre:
		return &rec.Pre
	case FieldSteps:
		return &rec.Steps
	case FieldData:
		return &rec.Data
	case FieldExpected:
		return &rec.Expected
	}
	return nil
}
