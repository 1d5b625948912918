package model

import (
	"errors"
	"time"
)

// ExecutionState 用户附加在单条测试用例上的执行状态
// 与导入记录相互独立，按测试用例 ID 存取
type ExecutionState struct {
	TestID         string   `json:"testId"`
	Status         string   `json:"status"` // ""/Pass/Fail/Blocked/Skip
	Notes          string   `json:"notes"`
	ExpectedResult string   `json:"expectedResult"`
	Images         []string `json:"images"` // data-URI，保持附加顺序
	Attended       bool     `json:"attended"`
	Pending        bool     `json:"pending"`
	LastModified   string   `json:"lastModified"` // RFC3339
	Imported       bool     `json:"imported"`     // 是否来源于导入而非手工编辑
}

// Normalize 写入前整理状态
// 维持 attended == !pending 不变量，并以 UTC 时间戳覆盖 lastModified
func (s *ExecutionState) Normalize(testID string, now time.Time) {
	s.TestID = testID
	s.Pending = !s.Attended
	s.LastModified = now.UTC().Format(time.RFC3339)
	if s.Images == nil {
		s.Images = []string{}
	}
}

// Validate 读取后校验记账字段
// 校验失败的条目按不存在处理，而非向上抛错
func (s *ExecutionState) Validate() error {
	if s.TestID == "" {
		return errors.New("missing testId")
	}
	if s.LastModified == "" {
		return errors.New("missing lastModified")
	}
	if _, err := time.Parse(time.RFC3339, s.LastModified); err != nil {
		return errors.New("invalid lastModified timestamp")
	}
	return nil
}

// ApplyStatus 设置执行状态并联动出勤标记
// Pass/Fail/Blocked/Skip 视为已执行，空状态回到待执行
func (s *ExecutionState) ApplyStatus(status string) {
	s.Status = status
	attended := status != StatusNone
	s.Attended = attended
	s.Pending = !attended
}
