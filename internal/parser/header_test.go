package parser

import "testing"

func TestNormalizeHeaderKey(t *testing.T) {
	t.Parallel()

	if got := NormalizeHeaderKey("  Title/Description "); got != "titledescription" {
		t.Fatalf("unexpected key: %q", got)
	}
	if got := NormalizeHeaderKey("Field/Control "); got != "fieldcontrol" {
		t.Fatalf("unexpected key: %q", got)
	}
}

func TestAutoDetectColumns_StandardHeaders(t *testing.T) {
	t.Parallel()

	headers := []string{"Test ID", "Title/Description", "Module/Feature", "Test Steps", "Expected Result", "Status"}
	ci := AutoDetectColumns(headers)

	if ci.Col(FieldID) != 0 {
		t.Fatalf("id column: want 0 got %d", ci.Col(FieldID))
	}
	if ci.Col(FieldTitle) != 1 {
		t.Fatalf("title column: want 1 got %d", ci.Col(FieldTitle))
	}
	if ci.Col(FieldModule) != 2 {
		t.Fatalf("module column: want 2 got %d", ci.Col(FieldModule))
	}
	if ci.Col(FieldSteps) != 3 {
		t.Fatalf("steps column: want 3 got %d", ci.Col(FieldSteps))
	}
	if ci.Col(FieldExpected) != 4 {
		t.Fatalf("expected column: want 4 got %d", ci.Col(FieldExpected))
	}
}

func TestAutoDetectColumns_NotFound(t *testing.T) {
	t.Parallel()

	ci := AutoDetectColumns([]string{"один", "два"})
	if ci.Col(FieldID) != ColumnNotFound {
		t.Fatalf("id column: want sentinel got %d", ci.Col(FieldID))
	}
}

func TestResolveColumns_ConfiguredWithStrayWhitespace(t *testing.T) {
	t.Parallel()

	// 配置名带尾部空格，须经去空格回退命中无空格的表头
	headers := []string{"Test ID", "Title/Description", "Field/Control"}
	cm := &ColumnMap{
		ID:    "Test ID",
		Title: " Title/Description",
		Field: "Field/Control ",
	}

	ci := ResolveColumns(headers, cm)
	if ci.Col(FieldID) != 0 {
		t.Fatalf("id column: want 0 got %d", ci.Col(FieldID))
	}
	if ci.Col(FieldTitle) != 1 {
		t.Fatalf("title column: want 1 got %d", ci.Col(FieldTitle))
	}
	if ci.Col(FieldField) != 2 {
		t.Fatalf("field column: want 2 got %d", ci.Col(FieldField))
	}
}

func TestResolveColumns_ReversedCase(t *testing.T) {
	t.Parallel()

	// 表头本身带空格、配置名干净时走逐列去空格比对
	headers := []string{"Field/Control ", " Title/Description"}
	cm := &ColumnMap{Field: "Field/Control", Title: "Title/Description"}

	ci := ResolveColumns(headers, cm)
	if ci.Col(FieldField) != 0 {
		t.Fatalf("field column: want 0 got %d", ci.Col(FieldField))
	}
	if ci.Col(FieldTitle) != 1 {
		t.Fatalf("title column: want 1 got %d", ci.Col(FieldTitle))
	}
}

func TestValidateColumnIndex_MissingRequired(t *testing.T) {
	t.Parallel()

	msgs := &Messages{}
	ci := ColumnIndex{FieldID: ColumnNotFound, FieldTitle: 0}
	ValidateColumnIndex(ci, "Sheet1", msgs)

	if len(msgs.Warnings) != 1 {
		t.Fatalf("want 1 warning got %d", len(msgs.Warnings))
	}
}

func TestHeaderIndex_ResolveEmpty(t *testing.T) {
	t.Parallel()

	hi := MakeHeaderIndex([]string{"A", "B"})
	if got := hi.Resolve(""); got != ColumnNotFound {
		t.Fatalf("empty configured name: want sentinel got %d", got)
	}
}
