package model

import (
	"sync"
	"time"
)

// AppState 应用共享状态
// 平铺记录集合是唯一数据源，分组映射是派生视图，随平铺集合重建
type AppState struct {
	mu sync.RWMutex

	flatRows       []*TestCaseRecord
	groups         map[string][]*TestCaseRecord
	groupOrder     []string
	selectedSheets []string
	currentProject string
	groupBy        string
	loadMs         int64
}

// NewAppState 创建共享状态
func NewAppState(groupBy string) *AppState {
	return &AppState{
		flatRows:   []*TestCaseRecord{},
		groups:     map[string][]*TestCaseRecord{},
		groupOrder: []string{},
		groupBy:    groupBy,
	}
}

// SetRows 替换平铺集合并重建分组
// 仅由导入协调器与快照恢复调用
func (s *AppState) SetRows(rows []*TestCaseRecord, selectedSheets []string, loadMs int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rows == nil {
		rows = []*TestCaseRecord{}
	}
	s.flatRows = rows
	s.selectedSheets = append([]string{}, selectedSheets...)
	s.loadMs = loadMs
	s.rebuildGroupsLocked()
}

// rebuildGroupsLocked 从平铺集合重建分组映射
// 组内顺序与平铺顺序一致，不重新排序
func (s *AppState) rebuildGroupsLocked() {
	s.groups = make(map[string][]*TestCaseRecord)
	s.groupOrder = s.groupOrder[:0]

	for _, row := range s.flatRows {
		key := row.GroupKey(s.groupBy)
		if _, ok := s.groups[key]; !ok {
			s.groupOrder = append(s.groupOrder, key)
		}
		s.groups[key] = append(s.groups[key], row)
	}
}

// Rows 返回平铺集合的拷贝
func (s *AppState) Rows() []*TestCaseRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*TestCaseRecord{}, s.flatRows...)
}

// Groups 返回分组映射及分组插入顺序的拷贝
func (s *AppState) Groups() (map[string][]*TestCaseRecord, []string) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	groups := make(map[string][]*TestCaseRecord, len(s.groups))
	for key, rows := range s.groups {
		groups[key] = append([]*TestCaseRecord{}, rows...)
	}
	return groups, append([]string{}, s.groupOrder...)
}

// Find 按 ID 查找记录
func (s *AppState) Find(id string) *TestCaseRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, row := range s.flatRows {
		if row.ID == id {
			return row
		}
	}
	return nil
}

// Delete 按 ID 删除记录并重建分组
// 返回是否确实删除了记录；执行状态由调用方一并清理
func (s *AppState) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, row := range s.flatRows {
		if row.ID == id {
			s.flatRows = append(s.flatRows[:i], s.flatRows[i+1:]...)
			s.rebuildGroupsLocked()
			return true
		}
	}
	return false
}

// Clear 清空全部记录与分组
func (s *AppState) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.flatRows = []*TestCaseRecord{}
	s.groups = map[string][]*TestCaseRecord{}
	s.groupOrder = []string{}
	s.selectedSheets = nil
	s.currentProject = ""
	s.loadMs = 0
}

// Count 返回记录总数
func (s *AppState) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.flatRows)
}

// SelectedSheets 返回最近一次导入选择的 Sheet 列表
func (s *AppState) SelectedSheets() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string{}, s.selectedSheets...)
}

// CurrentProject 返回当前项目名
func (s *AppState) CurrentProject() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentProject
}

// SetCurrentProject 设置当前项目名
func (s *AppState) SetCurrentProject(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentProject = name
}

// Snapshot 导出当前状态快照
func (s *AppState) Snapshot(now time.Time) *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := NewSnapshot(now)
	snap.FlatRows = append(snap.FlatRows, s.flatRows...)
	for key, rows := range s.groups {
		snap.Groups[key] = append([]*TestCaseRecord{}, rows...)
	}
	snap.GroupOrder = append(snap.GroupOrder, s.groupOrder...)
	snap.SelectedSheets = append([]string{}, s.selectedSheets...)
	snap.CurrentProject = s.currentProject
	snap.LoadedCount = len(s.flatRows)
	return snap
}

// Restore 从快照恢复状态
// 分组映射不直接信任快照内容，按平铺集合重建
func (s *AppState) Restore(snap *Snapshot) {
	if snap == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.flatRows = append([]*TestCaseRecord{}, snap.FlatRows...)
	s.selectedSheets = append([]string{}, snap.SelectedSheets...)
	s.currentProject = snap.CurrentProject
	s.rebuildGroupsLocked()
}
