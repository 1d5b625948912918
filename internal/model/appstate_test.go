package model

import (
	"testing"
	"time"
)

func sampleRows() []*TestCaseRecord {
	return []*TestCaseRecord{
		{Sheet: "Auth", RowNumber: 2, Module: "Login", ID: "TC-1", Title: "Login works"},
		{Sheet: "Cart", RowNumber: 2, Module: "Cart", ID: "TC-2", Title: "Add to cart"},
		{Sheet: "Auth", RowNumber: 3, Module: "Login", ID: "TC-3", Title: "Logout works"},
		{Sheet: "Misc", RowNumber: 2, Module: "", ID: "TC-4", Title: "Other"},
	}
}

func TestSetRows_GroupInsertionOrder(t *testing.T) {
	t.Parallel()

	s := NewAppState("module")
	s.SetRows(sampleRows(), []string{"Auth", "Cart", "Misc"}, 3)

	groups, order := s.Groups()
	// 分组按首次出现顺序排列，不按字典序重排
	want := []string{"Login", "Cart", "Misc"}
	if len(order) != len(want) {
		t.Fatalf("order = %v", order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}

	if len(groups["Login"]) != 2 {
		t.Fatalf("Login group = %d rows", len(groups["Login"]))
	}
	// 组内保持平铺顺序
	if groups["Login"][0].ID != "TC-1" || groups["Login"][1].ID != "TC-3" {
		t.Fatalf("group order = %s, %s", groups["Login"][0].ID, groups["Login"][1].ID)
	}
}

func TestGroupKey_Fallback(t *testing.T) {
	t.Parallel()

	rec := &TestCaseRecord{Module: "", Sheet: "Misc"}
	if got := rec.GroupKey("module"); got != "Misc" {
		t.Fatalf("module fallback = %q", got)
	}
	rec.Sheet = ""
	if got := rec.GroupKey("module"); got != "General" {
		t.Fatalf("final fallback = %q", got)
	}
	rec.Sheet = "Misc"
	if got := rec.GroupKey("sheet"); got != "Misc" {
		t.Fatalf("sheet grouping = %q", got)
	}
}

func TestDelete_RebuildsGroups(t *testing.T) {
	t.Parallel()

	s := NewAppState("module")
	s.SetRows(sampleRows(), nil, 0)

	if !s.Delete("TC-2") {
		t.Fatal("delete must succeed")
	}
	if s.Delete("TC-2") {
		t.Fatal("double delete must fail")
	}

	groups, order := s.Groups()
	if _, ok := groups["Cart"]; ok {
		t.Fatal("empty group must disappear")
	}
	if len(order) != 2 {
		t.Fatalf("order = %v", order)
	}
	if s.Count() != 3 {
		t.Fatalf("count = %d", s.Count())
	}
}

func TestSnapshotRestore_RoundTrip(t *testing.T) {
	t.Parallel()

	s := NewAppState("module")
	s.SetRows(sampleRows(), []string{"Auth"}, 7)
	s.SetCurrentProject("release-1")

	snap := s.Snapshot(time.Now())
	if snap.LoadedCount != 4 || snap.Version != SnapshotVersion {
		t.Fatalf("snapshot = %+v", snap)
	}
	if snap.CurrentProject != "release-1" {
		t.Fatalf("project = %q", snap.CurrentProject)
	}

	restored := NewAppState("module")
	restored.Restore(snap)

	if restored.Count() != 4 {
		t.Fatalf("restored count = %d", restored.Count())
	}
	if restored.CurrentProject() != "release-1" {
		t.Fatal("project not restored")
	}
	_, order := restored.Groups()
	if len(order) != 3 {
		t.Fatalf("groups not rebuilt: %v", order)
	}
}

func TestRestore_IgnoresSnapshotGroups(t *testing.T) {
	t.Parallel()

	// 快照里的分组内容被篡改也不影响恢复结果
	snap := NewSnapshot(time.Now())
	snap.FlatRows = sampleRows()
	snap.Groups["bogus"] = []*TestCaseRecord{{ID: "ghost"}}
	snap.GroupOrder = []string{"bogus"}

	s := NewAppState("module")
	s.Restore(snap)

	groups, order := s.Groups()
	if _, ok := groups["bogus"]; ok {
		t.Fatal("groups must be rebuilt from flat rows")
	}
	if order[0] != "Login" {
		t.Fatalf("order = %v", order)
	}
}

func TestExecutionState_ApplyStatus(t *testing.T) {
	t.Parallel()

	var st ExecutionState
	st.ApplyStatus(StatusPass)
	if !st.Attended || st.Pending {
		t.Fatalf("terminal status: %+v", st)
	}

	st.ApplyStatus(StatusNone)
	if st.Attended || !st.Pending {
		t.Fatalf("cleared status: %+v", st)
	}
}

func TestExecutionState_Normalize(t *testing.T) {
	t.Parallel()

	st := ExecutionState{Attended: true}
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	st.Normalize("TC-9", now)

	if st.TestID != "TC-9" || st.Pending {
		t.Fatalf("normalized = %+v", st)
	}
	if st.LastModified != "2026-03-01T12:00:00Z" {
		t.Fatalf("lastModified = %q", st.LastModified)
	}
	if st.Images == nil {
		t.Fatal("images must be non-nil")
	}
	if err := st.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestExecutionState_ValidateRejectsGarbage(t *testing.T) {
	t.Parallel()

	bad := ExecutionState{TestID: "TC-1", LastModified: "yesterday"}
	if err := bad.Validate(); err == nil {
		t.Fatal("non-RFC3339 timestamp must fail validation")
	}
	if err := (&ExecutionState{}).Validate(); err == nil {
		t.Fatal("empty state must fail validation")
	}
}
