package store

import (
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaFS embed.FS

// DefaultRetention 执行状态的默认保留期，超期条目在配额清理时删除
const DefaultRetention = 30 * 24 * time.Hour

// Store SQLite 数据库存储层
// 同时承担变更广播：每次写入后向本进程订阅者推送事件，
// 并递增 meta 表中的 change_seq 供其他实例轮询
type Store struct {
	db        *sql.DB
	feed      *ChangeFeed
	sessionID string
	retention time.Duration
}

// New 创建新的 Store 实例
func New(dbPath string) (*Store, error) {
	// 确保 data 目录存在
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	// 打开数据库连接
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// 测试连接
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// 设置连接池参数
	db.SetMaxOpenConns(1) // SQLite 建议单连接
	db.SetMaxIdleConns(1)

	store := &Store{
		db:        db,
		feed:      NewChangeFeed(),
		sessionID: uuid.New().String(),
		retention: DefaultRetention,
	}

	// 初始化数据库结构
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema 初始化数据库结构
func (s *Store) initSchema() error {
	schemaSQL, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		return fmt.Errorf("failed to read schema.sql: %w", err)
	}

	// 执行建表语句
	if _, err := s.db.Exec(string(schemaSQL)); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	return nil
}

// SessionID 本实例的会话标识，用于订阅端过滤自身事件
func (s *Store) SessionID() string {
	return s.sessionID
}

// Feed 变更事件广播器
func (s *Store) Feed() *ChangeFeed {
	return s.feed
}

// SetRetention 覆盖执行状态保留期
func (s *Store) SetRetention(d time.Duration) {
	if d > 0 {
		s.retention = d
	}
}

// Close 关闭数据库连接
func (s *Store) Close() error {
	s.feed.CloseAll()
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// DB 获取原始数据库连接（用于事务等高级操作）
func (s *Store) DB() *sql.DB {
	return s.db
}

// BeginTx 开始事务
func (s *Store) BeginTx() (*sql.Tx, error) {
	return s.db.Begin()
}

// Exec 执行 SQL 语句
func (s *Store) Exec(query string, args ...interface{}) error {
	_, err := s.db.Exec(query, args...)
	return err
}

// QueryRow 查询单行
func (s *Store) QueryRow(query string, args ...interface{}) *sql.Row {
	return s.db.QueryRow(query, args...)
}

// Query 查询多行
func (s *Store) Query(query string, args ...interface{}) (*sql.Rows, error) {
	return s.db.Query(query, args...)
}

// bumpChangeSeq 递增跨实例变更序号，失败不影响主写入
func (s *Store) bumpChangeSeq() {
	s.db.Exec(`
		INSERT INTO meta (key, value) VALUES ('change_seq', '1')
		ON CONFLICT(key) DO UPDATE SET value = CAST(CAST(value AS INTEGER) + 1 AS TEXT)
	`)
}

// ChangeSeq 当前变更序号，无记录时为 0
func (s *Store) ChangeSeq() int64 {
	var seq int64
	s.db.QueryRow(`SELECT CAST(value AS INTEGER) FROM meta WHERE key = 'change_seq'`).Scan(&seq)
	return seq
}
