package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"caseboard/internal/importer"
	"caseboard/internal/parser"
	"caseboard/internal/workbook"
)

// UploadResponse 工作簿上传响应
type UploadResponse struct {
	Token      string   `json:"token"`
	Name       string   `json:"name"`
	SheetNames []string `json:"sheetNames"`
}

// UploadWorkbook 上传并校验工作簿
// POST /api/workbook
// 文件落到 uploads 目录，返回 token 供后续导入引用
func (h *Handler) UploadWorkbook(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		errorResponse(c, 1001, "未找到上传文件")
		return
	}
	if file.Size > workbook.MaxFileSize {
		errorResponse(c, 1002, fmt.Sprintf("文件过大: %d 字节（上限 %d）", file.Size, workbook.MaxFileSize))
		return
	}
	if !workbook.SupportedExtension(file.Filename) {
		errorResponse(c, 1003, "不支持的文件类型，请上传 .xlsx/.xls/.csv/.tsv")
		return
	}

	uploadDir := filepath.Join(h.cfg.Data.DataDir, "uploads")
	savePath := filepath.Join(uploadDir, fmt.Sprintf("%d_%s", time.Now().Unix(), filepath.Base(file.Filename)))
	if err := c.SaveUploadedFile(file, savePath); err != nil {
		errorResponse(c, 1004, "保存文件失败")
		return
	}

	// 上传时就完整读取一遍，坏文件尽早报错
	wb, err := workbook.Open(savePath)
	if err != nil {
		os.Remove(savePath)
		errorResponse(c, 1005, fmt.Sprintf("解析工作簿失败: %v", err))
		return
	}

	token := uuid.New().String()
	h.uploadsMu.Lock()
	h.uploads[token] = savePath
	h.uploadsMu.Unlock()

	success(c, UploadResponse{
		Token:      token,
		Name:       wb.Name,
		SheetNames: wb.SheetNames,
	})
}

// Import 导入已上传的工作簿 (SSE 流式响应)
// POST /api/import
func (h *Handler) Import(c *gin.Context) {
	token := c.PostForm("token")

	h.uploadsMu.RLock()
	path, ok := h.uploads[token]
	h.uploadsMu.RUnlock()
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的上传 token"})
		return
	}

	wb, err := workbook.Open(path)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("读取工作簿失败: %v", err)})
		return
	}

	var selectedSheets []string
	if raw := c.PostForm("sheets"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			if s = strings.TrimSpace(s); s != "" {
				selectedSheets = append(selectedSheets, s)
			}
		}
	}
	overwrite := c.DefaultPostForm("overwriteStates", "false") == "true"

	// 设置 SSE 响应头
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "不支持流式响应"})
		return
	}

	validation := h.cfg.Import.ValidationRules()
	coordinator := importer.NewCoordinator(h.store, h.state)
	progressChan := coordinator.Import(c.Request.Context(), importer.Options{
		Workbook:        wb,
		SelectedSheets:  selectedSheets,
		SheetMaps:       h.sheetMaps(),
		Validation:      &validation,
		BatchSize:       h.cfg.Import.BatchSize,
		OverwriteStates: overwrite || h.cfg.Import.OverwriteStates,
	})

	// 流式发送进度事件
	for event := range progressChan {
		eventData, err := json.Marshal(event)
		if err != nil {
			continue
		}

		// SSE 格式: data: {json}\n\n
		fmt.Fprintf(c.Writer, "data: %s\n\n", eventData)
		flusher.Flush()
	}

	// 导入完成后清理上传缓存
	h.uploadsMu.Lock()
	delete(h.uploads, token)
	h.uploadsMu.Unlock()
	os.Remove(path)
}

// sheetMaps 配置中的列映射，无配置时返回 nil 走自动探测
func (h *Handler) sheetMaps() map[string]*parser.ColumnMap {
	if len(h.cfg.Sheets) == 0 {
		return nil
	}
	return h.cfg.Sheets
}

// GetImportHistory 获取导入历史
// GET /api/import/history
func (h *Handler) GetImportHistory(c *gin.Context) {
	history, err := h.store.ImportHistory()
	if err != nil {
		errorResponse(c, 2001, err.Error())
		return
	}
	success(c, history)
}
