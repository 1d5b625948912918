package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"caseboard/internal/config"
	"caseboard/internal/model"
	"caseboard/internal/store"
)

func newTestRouter(t *testing.T) (*gin.Engine, *Handler) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st, err := store.New(filepath.Join(t.TempDir(), "caseboard.db"))
	if err != nil {
		t.Fatalf("init store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	cfg := config.DefaultConfig()
	cfg.Data.DataDir = t.TempDir()

	h := NewHandler(st, model.NewAppState(cfg.Import.GroupBy), cfg)
	r := gin.New()
	api := r.Group("/api")
	h.RegisterRoutes(api)
	return r, h
}

func seedRows(h *Handler) {
	h.state.SetRows([]*model.TestCaseRecord{
		{Sheet: "Auth", RowNumber: 2, Module: "Login", ID: "TC-1", Title: "Login works"},
		{Sheet: "Auth", RowNumber: 3, Module: "Login", ID: "TC-2", Title: "Logout works"},
		{Sheet: "Cart", RowNumber: 2, Module: "Cart", ID: "TC-3", Title: "Add to cart"},
	}, []string{"Auth", "Cart"}, 5)
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) (*httptest.ResponseRecorder, Response) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var resp Response
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad response body %q: %v", w.Body.String(), err)
	}
	return w, resp
}

func TestGetStatus_Empty(t *testing.T) {
	r, _ := newTestRouter(t)

	_, resp := doJSON(t, r, http.MethodGet, "/api/status", nil)
	if resp.Code != 0 {
		t.Fatalf("code = %d", resp.Code)
	}

	data := resp.Data.(map[string]any)
	if data["initialized"].(bool) {
		t.Fatal("empty state must not report initialized")
	}
	if data["sessionId"].(string) == "" {
		t.Fatal("missing session id")
	}
}

func TestListCases(t *testing.T) {
	r, h := newTestRouter(t)
	seedRows(h)

	_, resp := doJSON(t, r, http.MethodGet, "/api/cases", nil)
	rows := resp.Data.([]any)
	if len(rows) != 3 {
		t.Fatalf("rows = %d", len(rows))
	}
}

func TestGroupedCases(t *testing.T) {
	r, h := newTestRouter(t)
	seedRows(h)

	_, resp := doJSON(t, r, http.MethodGet, "/api/cases/grouped", nil)
	data := resp.Data.(map[string]any)
	order := data["groupOrder"].([]any)
	if len(order) != 2 || order[0] != "Login" || order[1] != "Cart" {
		t.Fatalf("group order = %v", order)
	}
}

func TestCaseStateRoundTrip(t *testing.T) {
	r, h := newTestRouter(t)
	seedRows(h)

	_, resp := doJSON(t, r, http.MethodPut, "/api/states/TC-1", map[string]any{
		"status": model.StatusPass,
		"notes":  "looks good",
	})
	if resp.Code != 0 {
		t.Fatalf("put failed: %s", resp.Message)
	}

	_, resp = doJSON(t, r, http.MethodGet, "/api/states/TC-1", nil)
	state := resp.Data.(map[string]any)
	if state["status"] != model.StatusPass || state["attended"] != true {
		t.Fatalf("state = %v", state)
	}
	if state["pending"] != false {
		t.Fatal("attended state must not be pending")
	}
}

func TestSetCaseState_UnknownCase(t *testing.T) {
	r, _ := newTestRouter(t)

	_, resp := doJSON(t, r, http.MethodPut, "/api/states/ghost", map[string]any{"status": "Pass"})
	if resp.Code == 0 {
		t.Fatal("unknown case must fail")
	}
}

func TestGetCaseState_MissingIsNull(t *testing.T) {
	r, h := newTestRouter(t)
	seedRows(h)

	_, resp := doJSON(t, r, http.MethodGet, "/api/states/TC-1", nil)
	if resp.Code != 0 || resp.Data != nil {
		t.Fatalf("missing state must be null data: %+v", resp)
	}
}

func TestSummary(t *testing.T) {
	r, h := newTestRouter(t)
	seedRows(h)

	doJSON(t, r, http.MethodPut, "/api/states/TC-1", map[string]any{"status": model.StatusPass})
	doJSON(t, r, http.MethodPut, "/api/states/TC-2", map[string]any{"status": model.StatusFail})

	_, resp := doJSON(t, r, http.MethodGet, "/api/cases/summary", nil)
	data := resp.Data.(map[string]any)
	if data["total"].(float64) != 3 || data["attended"].(float64) != 2 {
		t.Fatalf("summary = %v", data)
	}
	if data["pass"].(float64) != 1 || data["fail"].(float64) != 1 || data["pending"].(float64) != 1 {
		t.Fatalf("summary = %v", data)
	}
	groups := data["groups"].(map[string]any)
	login := groups["Login"].(map[string]any)
	if login["total"].(float64) != 2 || login["pass"].(float64) != 1 || login["fail"].(float64) != 1 {
		t.Fatalf("login summary = %v", login)
	}
	cart := groups["Cart"].(map[string]any)
	if cart["total"].(float64) != 1 || cart["pending"].(float64) != 1 {
		t.Fatalf("cart summary = %v", cart)
	}
}

func TestDeleteCase(t *testing.T) {
	r, h := newTestRouter(t)
	seedRows(h)

	_, resp := doJSON(t, r, http.MethodDelete, "/api/cases/TC-3", nil)
	if resp.Code != 0 {
		t.Fatalf("delete failed: %s", resp.Message)
	}
	if h.state.Count() != 2 {
		t.Fatalf("count = %d", h.state.Count())
	}

	_, resp = doJSON(t, r, http.MethodDelete, "/api/cases/TC-3", nil)
	if resp.Code == 0 {
		t.Fatal("double delete must fail")
	}
}

func TestSnapshotSaveLoad(t *testing.T) {
	r, h := newTestRouter(t)
	seedRows(h)

	_, resp := doJSON(t, r, http.MethodPost, "/api/snapshot/save", map[string]any{"project": "release-1"})
	if resp.Code != 0 {
		t.Fatalf("save failed: %s", resp.Message)
	}

	h.state.Clear()
	if h.state.Count() != 0 {
		t.Fatal("clear failed")
	}

	_, resp = doJSON(t, r, http.MethodPost, "/api/snapshot/load", map[string]any{"project": "release-1"})
	if resp.Code != 0 {
		t.Fatalf("load failed: %s", resp.Message)
	}
	if h.state.Count() != 3 {
		t.Fatalf("restored count = %d", h.state.Count())
	}
}

func TestSnapshotLoad_Missing(t *testing.T) {
	r, _ := newTestRouter(t)

	_, resp := doJSON(t, r, http.MethodPost, "/api/snapshot/load", map[string]any{"project": "nope"})
	if resp.Code == 0 {
		t.Fatal("missing snapshot must fail")
	}
}

func TestBackupAndRestore(t *testing.T) {
	r, h := newTestRouter(t)
	seedRows(h)

	_, resp := doJSON(t, r, http.MethodPost, "/api/backups", nil)
	if resp.Code != 0 {
		t.Fatalf("create backup failed: %s", resp.Message)
	}
	info := resp.Data.(map[string]any)
	id := int(info["id"].(float64))

	h.state.Clear()

	_, resp = doJSON(t, r, http.MethodPost, "/api/backups/"+strconv.Itoa(id)+"/restore", nil)
	if resp.Code != 0 {
		t.Fatalf("restore failed: %s", resp.Message)
	}
	if h.state.Count() != 3 {
		t.Fatalf("restored count = %d", h.state.Count())
	}
}

func TestClearData(t *testing.T) {
	r, h := newTestRouter(t)
	seedRows(h)
	doJSON(t, r, http.MethodPut, "/api/states/TC-1", map[string]any{"status": "Pass"})

	_, resp := doJSON(t, r, http.MethodPost, "/api/clear", nil)
	if resp.Code != 0 {
		t.Fatalf("clear failed: %s", resp.Message)
	}
	if h.state.Count() != 0 {
		t.Fatal("state not cleared")
	}

	_, resp = doJSON(t, r, http.MethodGet, "/api/cases/summary", nil)
	data := resp.Data.(map[string]any)
	if data["total"].(float64) != 0 {
		t.Fatalf("summary after clear = %v", data)
	}
}

func TestImportHistoryEndpoint(t *testing.T) {
	r, h := newTestRouter(t)

	h.store.AddImportRecord(model.ImportRecord{
		ID:        "imp-1",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		TotalRows: 3,
	})

	_, resp := doJSON(t, r, http.MethodGet, "/api/import/history", nil)
	records := resp.Data.([]any)
	if len(records) != 1 {
		t.Fatalf("history = %d entries", len(records))
	}
}
