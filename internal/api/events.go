package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// StreamEvents 推送存储层变更事件 (SSE)
// GET /api/events
// 多开页面通过订阅本流保持执行状态同步，事件携带 sessionId 供去重
func (h *Handler) StreamEvents(c *gin.Context) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "不支持流式响应"})
		return
	}

	id, ch := h.store.Feed().Subscribe()
	defer h.store.Feed().Unsubscribe(id)

	for {
		select {
		case <-c.Request.Context().Done():
			return
		case event, open := <-ch:
			if !open {
				return
			}
			eventData, err := json.Marshal(event)
			if err != nil {
				continue
			}
			fmt.Fprintf(c.Writer, "data: %s\n\n", eventData)
			flusher.Flush()
		}
	}
}
