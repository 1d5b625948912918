package api

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"caseboard/internal/store"
)

// projectRequest 快照/工程操作的请求体
type projectRequest struct {
	Project string `json:"project"`
}

// SaveSnapshot 把当前应用状态写入快照
// POST /api/snapshot/save
func (h *Handler) SaveSnapshot(c *gin.Context) {
	var req projectRequest
	c.ShouldBindJSON(&req) // 请求体可为空，空工程名落默认槽位

	project := strings.TrimSpace(req.Project)
	if project != "" {
		h.state.SetCurrentProject(project)
	}

	snap := h.state.Snapshot(time.Now())
	if err := h.store.SaveSnapshot(project, snap); err != nil {
		errorResponse(c, 4001, err.Error())
		return
	}
	success(c, gin.H{
		"project":     snap.CurrentProject,
		"savedAt":     snap.SavedAt,
		"loadedCount": snap.LoadedCount,
	})
}

// LoadSnapshot 从快照恢复应用状态
// POST /api/snapshot/load
func (h *Handler) LoadSnapshot(c *gin.Context) {
	var req projectRequest
	c.ShouldBindJSON(&req)

	snap, err := h.store.LoadSnapshot(strings.TrimSpace(req.Project))
	if err == store.ErrNotFound {
		errorResponse(c, 4002, "没有可用的快照")
		return
	}
	if err != nil {
		errorResponse(c, 4003, err.Error())
		return
	}

	h.state.Restore(snap)
	success(c, gin.H{
		"loadedCount": h.state.Count(),
		"savedAt":     snap.SavedAt,
	})
}

// ListProjects 列出已有快照的工程
// GET /api/projects
func (h *Handler) ListProjects(c *gin.Context) {
	projects, err := h.store.ListProjects()
	if err != nil {
		errorResponse(c, 4004, err.Error())
		return
	}
	success(c, projects)
}

// DeleteProject 删除工程的快照与备份
// DELETE /api/projects/:name
func (h *Handler) DeleteProject(c *gin.Context) {
	name := c.Param("name")
	if err := h.store.DeleteProject(name); err != nil {
		errorResponse(c, 4005, err.Error())
		return
	}
	success(c, gin.H{"deleted": name})
}

// ListBackups 列出当前工程的备份
// GET /api/backups
func (h *Handler) ListBackups(c *gin.Context) {
	backups, err := h.store.ListBackups(h.state.CurrentProject())
	if err != nil {
		errorResponse(c, 4006, err.Error())
		return
	}
	success(c, backups)
}

// CreateBackup 为当前应用状态创建命名备份
// POST /api/backups
func (h *Handler) CreateBackup(c *gin.Context) {
	snap := h.state.Snapshot(time.Now())
	info, err := h.store.CreateBackup(h.state.CurrentProject(), snap, h.cfg.Data.MaxBackups)
	if err != nil {
		errorResponse(c, 4007, err.Error())
		return
	}
	success(c, info)
}

// RestoreBackup 恢复指定备份并刷新应用状态
// POST /api/backups/:id/restore
func (h *Handler) RestoreBackup(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		errorResponse(c, 1001, "参数错误")
		return
	}

	snap, err := h.store.RestoreBackup(h.state.CurrentProject(), id)
	if err == store.ErrNotFound {
		errorResponse(c, 4008, "备份不存在")
		return
	}
	if err != nil {
		errorResponse(c, 4009, err.Error())
		return
	}

	h.state.Restore(snap)
	success(c, gin.H{"loadedCount": h.state.Count()})
}

// ClearData 清空测试数据
// POST /api/clear
func (h *Handler) ClearData(c *gin.Context) {
	if err := h.store.ClearTestData(); err != nil {
		errorResponse(c, 4010, err.Error())
		return
	}
	h.state.Clear()
	success(c, gin.H{"cleared": true})
}
