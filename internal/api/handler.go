package api

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"

	"caseboard/internal/config"
	"caseboard/internal/model"
	"caseboard/internal/store"
)

// Handler API 处理器
type Handler struct {
	store *store.Store
	state *model.AppState
	cfg   *config.AppConfig

	// 上传文件缓存，token -> 临时文件路径
	uploads   map[string]string
	uploadsMu sync.RWMutex
}

// NewHandler 创建 API 处理器
func NewHandler(st *store.Store, state *model.AppState, cfg *config.AppConfig) *Handler {
	return &Handler{
		store:   st,
		state:   state,
		cfg:     cfg,
		uploads: make(map[string]string),
	}
}

// RegisterRoutes 注册 API 路由
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	// 系统状态
	router.GET("/status", h.GetStatus)

	// 工作簿上传与导入
	router.POST("/workbook", h.UploadWorkbook)
	router.POST("/import", h.Import)
	router.GET("/import/history", h.GetImportHistory)

	// 测试用例查询
	router.GET("/cases", h.ListCases)
	router.GET("/cases/grouped", h.ListGroupedCases)
	router.GET("/cases/summary", h.GetSummary)
	router.DELETE("/cases/:id", h.DeleteCase)

	// 执行状态
	router.GET("/states/:id", h.GetCaseState)
	router.PUT("/states/:id", h.SetCaseState)
	router.DELETE("/states/:id", h.DeleteCaseState)

	// 快照与工程
	router.POST("/snapshot/save", h.SaveSnapshot)
	router.POST("/snapshot/load", h.LoadSnapshot)
	router.GET("/projects", h.ListProjects)
	router.DELETE("/projects/:name", h.DeleteProject)

	// 备份
	router.GET("/backups", h.ListBackups)
	router.POST("/backups", h.CreateBackup)
	router.POST("/backups/:id/restore", h.RestoreBackup)

	// 维护
	router.POST("/clear", h.ClearData)

	// 变更事件流
	router.GET("/events", h.StreamEvents)
}

// Response 通用响应
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

func errorResponse(c *gin.Context, code int, message string) {
	c.JSON(http.StatusOK, Response{
		Code:    code,
		Message: message,
	})
}
