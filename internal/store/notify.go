package store

import (
	"sync"
	"time"
)

// 变更事件类型
const (
	EventStateChanged   = "state_changed"
	EventSnapshotSaved  = "snapshot_saved"
	EventDataCleared    = "data_cleared"
	EventImportFinished = "import_finished"
)

// ChangeEvent 存储层变更通知
type ChangeEvent struct {
	Type      string `json:"type"`
	TestID    string `json:"testId,omitempty"`
	Project   string `json:"project,omitempty"`
	SessionID string `json:"sessionId"`
	Timestamp string `json:"timestamp"` // RFC3339
}

// ChangeFeed 进程内变更广播
// 订阅通道带缓冲，满时丢弃而非阻塞写入方
type ChangeFeed struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan ChangeEvent
}

// NewChangeFeed 创建广播器
func NewChangeFeed() *ChangeFeed {
	return &ChangeFeed{subs: make(map[int]chan ChangeEvent)}
}

// Subscribe 注册订阅者，返回订阅 ID 和事件通道
func (f *ChangeFeed) Subscribe() (int, <-chan ChangeEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.nextID++
	id := f.nextID
	ch := make(chan ChangeEvent, 16)
	f.subs[id] = ch
	return id, ch
}

// Unsubscribe 注销订阅者并关闭其通道
func (f *ChangeFeed) Unsubscribe(id int) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if ch, ok := f.subs[id]; ok {
		delete(f.subs, id)
		close(ch)
	}
}

// Publish 向所有订阅者推送事件
func (f *ChangeFeed) Publish(event ChangeEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, ch := range f.subs {
		select {
		case ch <- event:
		default:
			// 订阅者消费过慢，丢弃本条
		}
	}
}

// CloseAll 关闭全部订阅通道
func (f *ChangeFeed) CloseAll() {
	f.mu.Lock()
	defer f.mu.Unlock()

	for id, ch := range f.subs {
		delete(f.subs, id)
		close(ch)
	}
}

// publish 写入成功后的统一广播入口
func (s *Store) publish(eventType, testID, project string) {
	s.bumpChangeSeq()
	s.feed.Publish(ChangeEvent{
		Type:      eventType,
		TestID:    testID,
		Project:   project,
		SessionID: s.sessionID,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}
