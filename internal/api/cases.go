package api

import (
	"github.com/gin-gonic/gin"

	"caseboard/internal/model"
	"caseboard/internal/store"
)

// StatusResponse 系统状态响应
type StatusResponse struct {
	Initialized    bool     `json:"initialized"` // 是否已加载数据
	LoadedCount    int      `json:"loadedCount"`
	SelectedSheets []string `json:"selectedSheets"`
	CurrentProject string   `json:"currentProject"`
	SessionID      string   `json:"sessionId"`
	ChangeSeq      int64    `json:"changeSeq"`
	LastImportTime string   `json:"lastImportTime"`
}

// GetStatus 获取系统状态
// GET /api/status
func (h *Handler) GetStatus(c *gin.Context) {
	resp := StatusResponse{
		Initialized:    h.state.Count() > 0,
		LoadedCount:    h.state.Count(),
		SelectedSheets: h.state.SelectedSheets(),
		CurrentProject: h.state.CurrentProject(),
		SessionID:      h.store.SessionID(),
		ChangeSeq:      h.store.ChangeSeq(),
	}

	if history, err := h.store.ImportHistory(); err == nil && len(history) > 0 {
		resp.LastImportTime = history[0].Timestamp
	}

	success(c, resp)
}

// ListCases 获取平铺的测试用例列表
// GET /api/cases
func (h *Handler) ListCases(c *gin.Context) {
	success(c, h.state.Rows())
}

// GroupedCasesResponse 分组视图响应
type GroupedCasesResponse struct {
	Groups     map[string][]*model.TestCaseRecord `json:"groups"`
	GroupOrder []string                           `json:"groupOrder"`
}

// ListGroupedCases 获取分组后的测试用例
// GET /api/cases/grouped
func (h *Handler) ListGroupedCases(c *gin.Context) {
	groups, order := h.state.Groups()
	success(c, GroupedCasesResponse{
		Groups:     groups,
		GroupOrder: order,
	})
}

// DeleteCase 删除单条测试用例及其执行状态
// DELETE /api/cases/:id
func (h *Handler) DeleteCase(c *gin.Context) {
	id := c.Param("id")
	if !h.state.Delete(id) {
		errorResponse(c, 3001, "测试用例不存在")
		return
	}
	if err := h.store.DeleteState(id); err != nil {
		errorResponse(c, 3002, err.Error())
		return
	}
	success(c, gin.H{"deleted": id})
}

// GetCaseState 获取单条执行状态
// GET /api/states/:id
func (h *Handler) GetCaseState(c *gin.Context) {
	state, err := h.store.GetState(c.Param("id"))
	if err == store.ErrNotFound {
		// 无状态按空白待执行处理，前端不需要区分
		success(c, nil)
		return
	}
	if err != nil {
		errorResponse(c, 3003, err.Error())
		return
	}
	success(c, state)
}

// SetCaseState 写入单条执行状态
// PUT /api/states/:id
func (h *Handler) SetCaseState(c *gin.Context) {
	id := c.Param("id")
	if h.state.Find(id) == nil {
		errorResponse(c, 3001, "测试用例不存在")
		return
	}

	var req model.ExecutionState
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, 1001, "参数错误")
		return
	}
	req.ApplyStatus(req.Status)

	if err := h.store.SetState(id, &req); err != nil {
		errorResponse(c, 3004, err.Error())
		return
	}
	success(c, &req)
}

// DeleteCaseState 清除单条执行状态
// DELETE /api/states/:id
func (h *Handler) DeleteCaseState(c *gin.Context) {
	if err := h.store.DeleteState(c.Param("id")); err != nil {
		errorResponse(c, 3005, err.Error())
		return
	}
	success(c, gin.H{"cleared": c.Param("id")})
}

// SummaryCounts 一组用例的执行情况计数
type SummaryCounts struct {
	Total    int `json:"total"`
	Attended int `json:"attended"`
	Pending  int `json:"pending"`
	Pass     int `json:"pass"`
	Fail     int `json:"fail"`
	Blocked  int `json:"blocked"`
	Skip     int `json:"skip"`
}

func (sc *SummaryCounts) add(st *model.ExecutionState) {
	sc.Total++
	if st == nil || !st.Attended {
		sc.Pending++
		return
	}
	sc.Attended++
	switch st.Status {
	case model.StatusPass:
		sc.Pass++
	case model.StatusFail:
		sc.Fail++
	case model.StatusBlocked:
		sc.Blocked++
	case model.StatusSkip:
		sc.Skip++
	}
}

// SummaryResponse 执行情况汇总，含按分组的细分
type SummaryResponse struct {
	SummaryCounts
	Coverage   float64                  `json:"coverage"` // 已执行比例 0-100
	Groups     map[string]SummaryCounts `json:"groups"`
	GroupOrder []string                 `json:"groupOrder"`
}

// GetSummary 汇总当前加载用例的执行情况
// GET /api/cases/summary
func (h *Handler) GetSummary(c *gin.Context) {
	states, err := h.store.ListStates()
	if err != nil {
		errorResponse(c, 3006, err.Error())
		return
	}

	resp := SummaryResponse{Groups: map[string]SummaryCounts{}}
	groups, order := h.state.Groups()
	resp.GroupOrder = order

	for _, key := range order {
		var counts SummaryCounts
		for _, rec := range groups[key] {
			st := states[rec.ID]
			counts.add(st)
			resp.SummaryCounts.add(st)
		}
		resp.Groups[key] = counts
	}
	if resp.Total > 0 {
		resp.Coverage = float64(resp.Attended) / float64(resp.Total) * 100
	}

	success(c, resp)
}
