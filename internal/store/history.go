package store

import (
	"encoding/json"
	"fmt"
	"log"

	"caseboard/internal/model"
)

// maxHistoryEntries 导入历史保留条数
const maxHistoryEntries = 10

// AddImportRecord 追加导入历史，超出上限时淘汰最旧的条目
func (s *Store) AddImportRecord(rec model.ImportRecord) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal import record: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`
		INSERT INTO import_history (id, payload) VALUES (?, ?)
	`, rec.ID, string(payload)); err != nil {
		return fmt.Errorf("failed to add import record: %w", err)
	}

	if _, err := tx.Exec(`
		DELETE FROM import_history WHERE id NOT IN (
			SELECT id FROM import_history
			ORDER BY created_at DESC, rowid DESC LIMIT ?
		)
	`, maxHistoryEntries); err != nil {
		return fmt.Errorf("failed to trim import history: %w", err)
	}

	return tx.Commit()
}

// ImportHistory 返回导入历史，新的在前，损坏条目跳过
func (s *Store) ImportHistory() ([]model.ImportRecord, error) {
	rows, err := s.db.Query(`
		SELECT payload FROM import_history ORDER BY created_at DESC, rowid DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query import history: %w", err)
	}
	defer rows.Close()

	records := []model.ImportRecord{}
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan import record: %w", err)
		}
		var rec model.ImportRecord
		if err := json.Unmarshal([]byte(payload), &rec); err != nil {
			log.Printf("跳过损坏的导入历史条目: %v", err)
			continue
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
