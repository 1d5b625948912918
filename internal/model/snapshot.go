package model

import "time"

// SnapshotVersion 快照结构版本号
const SnapshotVersion = "2.0.0"

// Snapshot 整体应用状态快照，用于会话恢复
type Snapshot struct {
	FlatRows       []*TestCaseRecord            `json:"flatRows"`
	Groups         map[string][]*TestCaseRecord `json:"groups"`
	GroupOrder     []string                     `json:"groupOrder"`
	SelectedSheets []string                     `json:"selectedSheets"`
	CurrentProject string                       `json:"currentProject"`
	LoadedCount    int                          `json:"loadedCount"`
	SavedAt        string                       `json:"savedAt"` // RFC3339
	Version        string                       `json:"version"`
}

// ImportRecord 一次导入的历史记录
type ImportRecord struct {
	ID                string `json:"id"`
	Timestamp         string `json:"timestamp"` // RFC3339
	SheetsProcessed   int    `json:"sheetsProcessed"`
	TotalRows         int    `json:"totalRows"`
	DurationMs        int64  `json:"durationMs"`
	Errors            int    `json:"errors"`
	Warnings          int    `json:"warnings"`
	DuplicatesFound   int    `json:"duplicatesFound"`
	TransformsApplied int    `json:"transformsApplied"`
}

// NewSnapshot 基于当前时间构造空快照
func NewSnapshot(now time.Time) *Snapshot {
	return &Snapshot{
		FlatRows:   []*TestCaseRecord{},
		Groups:     map[string][]*TestCaseRecord{},
		GroupOrder: []string{},
		SavedAt:    now.UTC().Format(time.RFC3339),
		Version:    SnapshotVersion,
	}
}
