package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"caseboard/internal/model"
)

// DefaultMaxBackups 备份轮换上限
const DefaultMaxBackups = 5

// BackupInfo 备份列表条目
type BackupInfo struct {
	ID        int64  `json:"id"`
	Project   string `json:"project"`
	Name      string `json:"name"`
	CreatedAt string `json:"createdAt"`
}

// CreateBackup 创建命名备份并做轮换，最旧的超额备份被删除
func (s *Store) CreateBackup(project string, snap *model.Snapshot, maxBackups int) (*BackupInfo, error) {
	if project == "" {
		project = DefaultProject
	}
	if maxBackups <= 0 {
		maxBackups = DefaultMaxBackups
	}

	payload, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal backup: %w", err)
	}

	now := time.Now()
	name := "backup_" + now.Format("20060102_150405")

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(`
		INSERT INTO backups (project, name, payload) VALUES (?, ?, ?)
	`, project, name, string(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create backup: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get backup id: %w", err)
	}

	// 轮换：按创建时间保留最近 maxBackups 份
	if _, err := tx.Exec(`
		DELETE FROM backups WHERE project = ? AND id NOT IN (
			SELECT id FROM backups WHERE project = ?
			ORDER BY created_at DESC, id DESC LIMIT ?
		)
	`, project, project, maxBackups); err != nil {
		return nil, fmt.Errorf("failed to rotate backups: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit backup: %w", err)
	}

	return &BackupInfo{
		ID:        id,
		Project:   project,
		Name:      name,
		CreatedAt: now.UTC().Format(time.RFC3339),
	}, nil
}

// ListBackups 列出工程备份，新的在前
func (s *Store) ListBackups(project string) ([]BackupInfo, error) {
	if project == "" {
		project = DefaultProject
	}
	rows, err := s.db.Query(`
		SELECT id, project, name, created_at FROM backups
		WHERE project = ? ORDER BY created_at DESC, id DESC
	`, project)
	if err != nil {
		return nil, fmt.Errorf("failed to list backups: %w", err)
	}
	defer rows.Close()

	backups := []BackupInfo{}
	for rows.Next() {
		var b BackupInfo
		if err := rows.Scan(&b.ID, &b.Project, &b.Name, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan backup: %w", err)
		}
		backups = append(backups, b)
	}
	return backups, rows.Err()
}

// LoadBackup 读取指定备份的快照内容
func (s *Store) LoadBackup(id int64) (*model.Snapshot, error) {
	var payload string
	err := s.db.QueryRow(`SELECT payload FROM backups WHERE id = ?`, id).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query backup: %w", err)
	}

	var snap model.Snapshot
	if err := json.Unmarshal([]byte(payload), &snap); err != nil {
		return nil, fmt.Errorf("corrupt backup payload: %w", err)
	}
	return &snap, nil
}

// RestoreBackup 把备份内容写回工程的主快照槽位，返回恢复出的快照
func (s *Store) RestoreBackup(project string, id int64) (*model.Snapshot, error) {
	snap, err := s.LoadBackup(id)
	if err != nil {
		return nil, err
	}
	if err := s.SaveSnapshot(project, snap); err != nil {
		return nil, fmt.Errorf("failed to restore backup: %w", err)
	}
	return snap, nil
}
