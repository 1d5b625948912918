package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"

	"caseboard/internal/model"
)

// DefaultProject 未命名工程使用的槽位名
const DefaultProject = "default"

// SaveSnapshot 保存应用状态快照
// 旧的主快照先转入备用槽位，再写入新主快照，两步在同一事务内完成，
// 任一时刻至少有一份可用快照落盘
func (s *Store) SaveSnapshot(project string, snap *model.Snapshot) error {
	if project == "" {
		project = DefaultProject
	}
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	// 主槽位让位给备用槽位
	if _, err := tx.Exec(`
		INSERT INTO snapshots (project, slot, payload, saved_at)
		SELECT project, 'backup', payload, saved_at FROM snapshots
		WHERE project = ? AND slot = 'primary'
		ON CONFLICT(project, slot) DO UPDATE SET
			payload = excluded.payload,
			saved_at = excluded.saved_at
	`, project); err != nil {
		return fmt.Errorf("failed to rotate backup slot: %w", err)
	}

	if _, err := tx.Exec(`
		INSERT INTO snapshots (project, slot, payload, saved_at)
		VALUES (?, 'primary', ?, CURRENT_TIMESTAMP)
		ON CONFLICT(project, slot) DO UPDATE SET
			payload = excluded.payload,
			saved_at = excluded.saved_at
	`, project, string(payload)); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit snapshot: %w", err)
	}

	s.publish(EventSnapshotSaved, "", project)
	return nil
}

// LoadSnapshot 读取快照，主槽位缺失或损坏时回落到备用槽位
func (s *Store) LoadSnapshot(project string) (*model.Snapshot, error) {
	if project == "" {
		project = DefaultProject
	}

	if snap, err := s.loadSlot(project, "primary"); err == nil {
		return snap, nil
	} else if err != ErrNotFound {
		log.Printf("主快照不可用，尝试备用快照: %v", err)
	}

	snap, err := s.loadSlot(project, "backup")
	if err == ErrNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load backup snapshot: %w", err)
	}
	log.Printf("已从备用快照恢复工程 %q", project)
	return snap, nil
}

func (s *Store) loadSlot(project, slot string) (*model.Snapshot, error) {
	var payload string
	err := s.db.QueryRow(`
		SELECT payload FROM snapshots WHERE project = ? AND slot = ?
	`, project, slot).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshot: %w", err)
	}

	var snap model.Snapshot
	if err := json.Unmarshal([]byte(payload), &snap); err != nil {
		return nil, fmt.Errorf("corrupt snapshot payload: %w", err)
	}
	return &snap, nil
}

// ListProjects 列出已有快照的工程名
func (s *Store) ListProjects() ([]string, error) {
	rows, err := s.db.Query(`SELECT DISTINCT project FROM snapshots ORDER BY project`)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	var projects []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// DeleteProject 删除工程的全部快照与备份
func (s *Store) DeleteProject(project string) error {
	if project == "" {
		project = DefaultProject
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM snapshots WHERE project = ?`, project); err != nil {
		return fmt.Errorf("failed to delete snapshots: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM backups WHERE project = ?`, project); err != nil {
		return fmt.Errorf("failed to delete backups: %w", err)
	}
	return tx.Commit()
}
