package server

import (
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"

	"caseboard/internal/api"
	"caseboard/internal/config"
	"caseboard/internal/model"
	"caseboard/internal/store"
)

// Server HTTP 服务器
// 持有存储与内存应用状态，负责启动恢复、定时备份与退出前落盘
type Server struct {
	router *gin.Engine
	store  *store.Store
	state  *model.AppState
	cfg    *config.AppConfig
	api    *api.Handler

	backupStop chan struct{}
}

// NewServer 创建服务器
func NewServer(cfg *config.AppConfig) *Server {
	devMode := cfg.Server.DevMode
	if !devMode {
		gin.SetMode(gin.ReleaseMode)
	}

	// 初始化 SQLite Store
	dataDir, err := config.EnsureDataDir(cfg)
	if err != nil {
		dataDir = cfg.Data.DataDir
	}
	cfg.Data.DataDir = dataDir
	dbPath := filepath.Join(dataDir, "caseboard.db")

	sqliteStore, err := store.New(dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	sqliteStore.SetRetention(time.Duration(cfg.Retention()) * 24 * time.Hour)

	state := model.NewAppState(cfg.Import.GroupBy)

	s := &Server{
		router:     gin.Default(),
		store:      sqliteStore,
		state:      state,
		cfg:        cfg,
		api:        api.NewHandler(sqliteStore, state, cfg),
		backupStop: make(chan struct{}),
	}

	s.restoreSession()
	s.startupCleanup()
	s.setupRoutes(devMode)

	if cfg.Data.AutoBackup {
		go s.autoBackupLoop()
	}

	return s
}

// restoreSession 启动时从最近快照恢复会话
func (s *Server) restoreSession() {
	snap, err := s.store.LoadSnapshot("")
	if err == store.ErrNotFound {
		return
	}
	if err != nil {
		log.Printf("会话恢复失败: %v", err)
		return
	}
	s.state.Restore(snap)
	log.Printf("已恢复会话: %d 条测试用例 (保存于 %s)", s.state.Count(), snap.SavedAt)
}

// startupCleanup 启动时清理过期执行状态
func (s *Server) startupCleanup() {
	retention := time.Duration(s.cfg.Retention()) * 24 * time.Hour
	if _, err := s.store.CleanupStale(retention); err != nil {
		log.Printf("启动清理失败: %v", err)
	}
}

// autoBackupLoop 周期性备份当前应用状态
func (s *Server) autoBackupLoop() {
	interval := time.Duration(s.cfg.Data.BackupIntervalMinutes) * time.Minute
	if interval <= 0 {
		interval = 30 * time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.backupStop:
			return
		case <-ticker.C:
			if s.state.Count() == 0 {
				continue
			}
			snap := s.state.Snapshot(time.Now())
			if _, err := s.store.CreateBackup(s.state.CurrentProject(), snap, s.cfg.Data.MaxBackups); err != nil {
				log.Printf("自动备份失败: %v", err)
			}
		}
	}
}

// setupRoutes 设置路由
func (s *Server) setupRoutes(devMode bool) {
	// CORS
	s.router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	// API 路由
	apiGroup := s.router.Group("/api")
	{
		s.api.RegisterRoutes(apiGroup)
	}

	// 静态资源
	if devMode {
		// 开发模式：代理到前端开发服务器
		s.router.NoRoute(func(c *gin.Context) {
			c.Redirect(http.StatusTemporaryRedirect, "http://localhost:5173"+c.Request.URL.Path)
		})
		return
	}

	// 生产模式：从可执行文件旁的 static 目录提供前端
	exeDir, err := config.GetExeDir()
	if err != nil {
		exeDir = "."
	}
	staticDir := filepath.Join(exeDir, "static")
	if _, err := os.Stat(staticDir); err == nil {
		s.router.Static("/assets", filepath.Join(staticDir, "assets"))
		s.router.StaticFile("/", filepath.Join(staticDir, "index.html"))
		s.router.StaticFile("/favicon.svg", filepath.Join(staticDir, "favicon.svg"))

		// SPA 路由 fallback
		s.router.NoRoute(func(c *gin.Context) {
			c.File(filepath.Join(staticDir, "index.html"))
		})
	}
}

// Run 启动服务器
func (s *Server) Run(addr string) error {
	return s.router.Run(addr)
}

// SaveNow 立即持久化当前会话
func (s *Server) SaveNow() error {
	close(s.backupStop)
	if s.state.Count() == 0 {
		return nil
	}
	snap := s.state.Snapshot(time.Now())
	return s.store.SaveSnapshot(s.state.CurrentProject(), snap)
}

// Close 释放资源
func (s *Server) Close() error {
	return s.store.Close()
}

// GetStore 获取存储（用于测试）
func (s *Server) GetStore() *store.Store {
	return s.store
}

// GetState 获取应用状态（用于测试）
func (s *Server) GetState() *model.AppState {
	return s.state
}
