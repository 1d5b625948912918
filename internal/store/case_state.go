package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"caseboard/internal/model"
)

// ErrNotFound 请求的记录不存在
var ErrNotFound = errors.New("record not found")

// GetState 读取单条执行状态
// 记账字段损坏的条目按不存在处理并即时删除，不向上抛错
func (s *Store) GetState(testID string) (*model.ExecutionState, error) {
	var payload string
	err := s.db.QueryRow(`SELECT payload FROM case_states WHERE test_id = ?`, testID).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query state: %w", err)
	}

	var state model.ExecutionState
	if err := json.Unmarshal([]byte(payload), &state); err != nil {
		log.Printf("丢弃损坏的执行状态 %s: %v", testID, err)
		s.db.Exec(`DELETE FROM case_states WHERE test_id = ?`, testID)
		return nil, ErrNotFound
	}
	if err := state.Validate(); err != nil {
		log.Printf("丢弃非法执行状态 %s: %v", testID, err)
		s.db.Exec(`DELETE FROM case_states WHERE test_id = ?`, testID)
		return nil, ErrNotFound
	}
	return &state, nil
}

// SetState 写入单条执行状态
// 写入前规范化，首次失败时先做配额清理再重试一次
func (s *Store) SetState(testID string, state *model.ExecutionState) error {
	state.Normalize(testID, time.Now())

	if err := s.writeState(testID, state); err != nil {
		log.Printf("写入执行状态失败，清理后重试: %v", err)
		if _, cerr := s.CleanupStale(s.retention); cerr != nil {
			log.Printf("配额清理失败: %v", cerr)
		}
		if err := s.writeState(testID, state); err != nil {
			return fmt.Errorf("failed to save state: %w", err)
		}
	}

	s.publish(EventStateChanged, testID, "")
	return nil
}

func (s *Store) writeState(testID string, state *model.ExecutionState) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT INTO case_states (test_id, payload, last_modified)
		VALUES (?, ?, ?)
		ON CONFLICT(test_id) DO UPDATE SET
			payload = excluded.payload,
			last_modified = excluded.last_modified,
			updated_at = CURRENT_TIMESTAMP
	`, testID, string(payload), state.LastModified)
	return err
}

// DeleteState 删除单条执行状态
func (s *Store) DeleteState(testID string) error {
	if _, err := s.db.Exec(`DELETE FROM case_states WHERE test_id = ?`, testID); err != nil {
		return fmt.Errorf("failed to delete state: %w", err)
	}
	s.publish(EventStateChanged, testID, "")
	return nil
}

// ListStates 读取全部执行状态，损坏条目跳过
func (s *Store) ListStates() (map[string]*model.ExecutionState, error) {
	rows, err := s.db.Query(`SELECT test_id, payload FROM case_states`)
	if err != nil {
		return nil, fmt.Errorf("failed to query states: %w", err)
	}
	defer rows.Close()

	states := make(map[string]*model.ExecutionState)
	for rows.Next() {
		var testID, payload string
		if err := rows.Scan(&testID, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan state: %w", err)
		}
		var state model.ExecutionState
		if err := json.Unmarshal([]byte(payload), &state); err != nil {
			log.Printf("跳过损坏的执行状态 %s: %v", testID, err)
			continue
		}
		if err := state.Validate(); err != nil {
			log.Printf("跳过非法执行状态 %s: %v", testID, err)
			continue
		}
		states[testID] = &state
	}
	return states, rows.Err()
}

// CleanupStale 删除超过保留期未修改的执行状态，返回删除条数
func (s *Store) CleanupStale(retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention).UTC().Format(time.RFC3339)
	res, err := s.db.Exec(`DELETE FROM case_states WHERE last_modified < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup stale states: %w", err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		log.Printf("配额清理: 删除 %d 条过期执行状态", n)
	}
	return n, nil
}

// ClearTestData 清空测试数据（执行状态、快照、备份、导入历史）
// meta 表保留，偏好设置与变更序号不受影响
func (s *Store) ClearTestData() error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{
		`DELETE FROM case_states`,
		`DELETE FROM snapshots`,
		`DELETE FROM backups`,
		`DELETE FROM import_history`,
	} {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("failed to clear data: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit clear: %w", err)
	}

	s.publish(EventDataCleared, "", "")
	return nil
}
