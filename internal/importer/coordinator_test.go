package importer

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"caseboard/internal/model"
	"caseboard/internal/parser"
	"caseboard/internal/store"
	"caseboard/internal/workbook"
)

func newTestCoordinator(t *testing.T) (*Coordinator, *store.Store, *model.AppState) {
	t.Helper()
	st, err := store.New(filepath.Join(t.TempDir(), "caseboard.db"))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	state := model.NewAppState("module")
	return NewCoordinator(st, state), st, state
}

func testWorkbook() *workbook.Workbook {
	return &workbook.Workbook{
		Name:       "regression.xlsx",
		SheetNames: []string{"Auth", "Cart"},
		Sheets: map[string][][]string{
			"Auth": {
				{"Test ID", "Title", "Module", "Status"},
				{"TC-10", "Login works", "Login", "Pass"},
				{"TC-2", "Logout works", "Login", ""},
				{"Total: 2", "", "", ""},
			},
			"Cart": {
				{"Test ID", "Title", "Module", "Status"},
				{"TC-2", "Add to cart", "Cart", "FAILED"},
				{"", "", "", ""},
			},
		},
	}
}

// drain 消费进度通道并返回完成事件的报告
func drain(t *testing.T, ch <-chan ProgressEvent) *parser.ImportReport {
	t.Helper()
	var report *parser.ImportReport
	for ev := range ch {
		if ev.Type == "error" {
			t.Fatalf("unexpected error event: %s", ev.Message)
		}
		if ev.Type == "done" {
			r, ok := ev.Data.(*parser.ImportReport)
			if !ok {
				t.Fatalf("done event data = %T", ev.Data)
			}
			report = r
		}
	}
	if report == nil {
		t.Fatal("no done event")
	}
	return report
}

func TestImport_EndToEnd(t *testing.T) {
	c, st, state := newTestCoordinator(t)

	ch := c.Import(context.Background(), Options{Workbook: testWorkbook()})
	report := drain(t, ch)

	if report.ImportedSheets != 2 {
		t.Fatalf("imported sheets = %d", report.ImportedSheets)
	}
	if report.ImportedRows != 3 {
		t.Fatalf("imported rows = %d", report.ImportedRows)
	}
	if report.DuplicatesResolved != 1 {
		t.Fatalf("duplicates = %d", report.DuplicatesResolved)
	}

	// 自然排序：TC-2 在 TC-10 之前，重复的第二个 TC-2 改名为 TC-2_1
	rows := state.Rows()
	if len(rows) != 3 {
		t.Fatalf("state rows = %d", len(rows))
	}
	if rows[0].ID != "TC-2" || rows[1].ID != "TC-2_1" || rows[2].ID != "TC-10" {
		t.Fatalf("order = %s, %s, %s", rows[0].ID, rows[1].ID, rows[2].ID)
	}

	// 携带导入状态的记录应落初始执行状态
	got, err := st.GetState("TC-10")
	if err != nil {
		t.Fatalf("seeded state missing: %v", err)
	}
	if got.Status != model.StatusPass || !got.Attended || !got.Imported {
		t.Fatalf("seeded state = %+v", got)
	}

	// 无状态列内容的行不落状态
	if _, err := st.GetState("TC-2"); err != store.ErrNotFound {
		t.Fatalf("unexpected state for TC-2: %v", err)
	}

	// 导入历史记一条
	history, err := st.ImportHistory()
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 1 || history[0].DuplicatesFound != 1 {
		t.Fatalf("history = %+v", history)
	}
}

func TestImport_SkipIfPresent(t *testing.T) {
	c, st, _ := newTestCoordinator(t)

	// 预置用户手工编辑过的状态
	existing := &model.ExecutionState{Status: model.StatusFail, Notes: "manual note", Attended: true}
	if err := st.SetState("TC-10", existing); err != nil {
		t.Fatalf("preset state: %v", err)
	}

	drain(t, c.Import(context.Background(), Options{Workbook: testWorkbook()}))

	got, err := st.GetState("TC-10")
	if err != nil {
		t.Fatalf("get state: %v", err)
	}
	if got.Status != model.StatusFail || got.Notes != "manual note" {
		t.Fatalf("existing state clobbered: %+v", got)
	}
}

func TestImport_OverwriteStates(t *testing.T) {
	c, st, _ := newTestCoordinator(t)

	st.SetState("TC-10", &model.ExecutionState{Status: model.StatusFail, Attended: true})

	drain(t, c.Import(context.Background(), Options{
		Workbook:        testWorkbook(),
		OverwriteStates: true,
	}))

	got, err := st.GetState("TC-10")
	if err != nil {
		t.Fatalf("get state: %v", err)
	}
	if got.Status != model.StatusPass {
		t.Fatalf("state not overwritten: %+v", got)
	}
}

func TestImport_SelectedSheets(t *testing.T) {
	c, _, state := newTestCoordinator(t)

	report := drain(t, c.Import(context.Background(), Options{
		Workbook:       testWorkbook(),
		SelectedSheets: []string{"Cart"},
	}))

	if report.TotalSheets != 1 || report.ImportedRows != 1 {
		t.Fatalf("report = %+v", report)
	}
	if state.Count() != 1 {
		t.Fatalf("state rows = %d", state.Count())
	}
}

func TestImport_SheetWithoutHeader(t *testing.T) {
	c, _, _ := newTestCoordinator(t)

	wb := &workbook.Workbook{
		Name:       "sparse.xlsx",
		SheetNames: []string{"Notes"},
		Sheets: map[string][][]string{
			"Notes": {{"just one cell"}, {"another"}},
		},
	}
	report := drain(t, c.Import(context.Background(), Options{Workbook: wb}))

	if report.SkippedSheets != 1 {
		t.Fatalf("skipped sheets = %d", report.SkippedSheets)
	}
	if len(report.Warnings) == 0 {
		t.Fatal("missing header must produce a warning")
	}
}

func TestImport_Cancelled(t *testing.T) {
	c, _, state := newTestCoordinator(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sawError := false
	for ev := range c.Import(ctx, Options{Workbook: testWorkbook()}) {
		if ev.Type == "error" {
			sawError = true
		}
		if ev.Type == "done" {
			t.Fatal("cancelled import must not complete")
		}
	}
	if !sawError {
		t.Fatal("cancellation must surface as error event")
	}
	if state.Count() != 0 {
		t.Fatal("cancelled import must not publish rows")
	}
}

func TestImport_GroupsByModule(t *testing.T) {
	c, _, state := newTestCoordinator(t)

	drain(t, c.Import(context.Background(), Options{Workbook: testWorkbook()}))

	groups, order := state.Groups()
	if len(order) != 2 {
		t.Fatalf("group order = %v", order)
	}
	if order[0] != "Login" || order[1] != "Cart" {
		t.Fatalf("group order = %v", order)
	}
	if len(groups["Login"]) != 2 || len(groups["Cart"]) != 1 {
		t.Fatalf("groups = %v", groups)
	}
}

func TestImport_ReportTiming(t *testing.T) {
	c, _, _ := newTestCoordinator(t)

	report := drain(t, c.Import(context.Background(), Options{Workbook: testWorkbook()}))
	if report.Duration <= 0 || report.Duration > time.Minute {
		t.Fatalf("implausible duration: %v", report.Duration)
	}
}
