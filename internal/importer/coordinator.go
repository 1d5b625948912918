package importer

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"time"

	"github.com/google/uuid"

	"caseboard/internal/model"
	"caseboard/internal/parser"
	"caseboard/internal/store"
	"caseboard/internal/workbook"
)

// DefaultBatchSize 行处理批大小，批与批之间让出调度并检查取消
const DefaultBatchSize = 200

// Coordinator 导入协调器
// 串起工作簿解析、排序去重、应用状态更新与执行状态落库
type Coordinator struct {
	store *store.Store
	state *model.AppState
}

// NewCoordinator 创建导入协调器
func NewCoordinator(st *store.Store, state *model.AppState) *Coordinator {
	return &Coordinator{store: st, state: state}
}

// Options 导入选项
type Options struct {
	Workbook        *workbook.Workbook
	SelectedSheets  []string                      // 空则导入全部 sheet
	SheetMaps       map[string]*parser.ColumnMap  // 按 sheet 名配置的列映射，缺省自动探测
	Rules           []parser.Rule                 // 空则使用默认规则集
	Validation      *parser.ValidationRules       // 空则使用默认校验规则
	BatchSize       int
	OverwriteStates bool // 是否覆盖已有执行状态
}

// ProgressEvent 进度事件
type ProgressEvent struct {
	Type      string      `json:"type"`    // start/sheet_start/sheet_done/info/warning/error/done
	Message   string      `json:"message"` // 事件消息
	Data      interface{} `json:"data"`    // 附加数据
	Timestamp time.Time   `json:"timestamp"`
}

// importContext 单次导入的内部上下文
type importContext struct {
	opts         Options
	startTime    time.Time
	report       *parser.ImportReport
	msgs         *parser.Messages
	records      []*model.TestCaseRecord
	progressChan chan ProgressEvent
}

// Import 执行导入，返回进度通道
// 调用方取消 ctx 时在批边界停止，已发送事件不回收
func (c *Coordinator) Import(ctx context.Context, opts Options) <-chan ProgressEvent {
	progressChan := make(chan ProgressEvent, 100)

	go func() {
		defer close(progressChan)
		c.doImport(ctx, opts, progressChan)
	}()

	return progressChan
}

// doImport 执行导入逻辑
func (c *Coordinator) doImport(ctx context.Context, opts Options, progressChan chan ProgressEvent) {
	ic := &importContext{
		opts:      opts,
		startTime: time.Now(),
		msgs:      &parser.Messages{},
		report: &parser.ImportReport{
			Sheets: []parser.SheetResult{},
		},
		progressChan: progressChan,
	}

	if opts.Workbook == nil {
		c.sendProgress(progressChan, ProgressEvent{
			Type:      "error",
			Message:   "导入失败: 未提供工作簿",
			Timestamp: time.Now(),
		})
		return
	}
	ic.report.WorkbookName = opts.Workbook.Name

	if opts.Rules == nil {
		ic.opts.Rules = parser.DefaultRules()
	}
	if opts.Validation == nil {
		v := parser.DefaultValidationRules()
		ic.opts.Validation = &v
	}
	if opts.BatchSize <= 0 {
		ic.opts.BatchSize = DefaultBatchSize
	}

	// 发送开始事件
	c.sendProgress(progressChan, ProgressEvent{
		Type:    "start",
		Message: fmt.Sprintf("开始导入工作簿: %s", opts.Workbook.Name),
		Data: map[string]string{
			"workbook": opts.Workbook.Name,
		},
		Timestamp: time.Now(),
	})

	sheets := ic.opts.SelectedSheets
	if len(sheets) == 0 {
		sheets = opts.Workbook.SheetNames
	}
	ic.report.TotalSheets = len(sheets)

	c.sendProgress(progressChan, ProgressEvent{
		Type:    "info",
		Message: fmt.Sprintf("待处理 %d 个 Sheet", len(sheets)),
		Data: map[string]interface{}{
			"total_sheets": len(sheets),
		},
		Timestamp: time.Now(),
	})

	// 逐 Sheet 解析
	for _, sheetName := range sheets {
		if err := c.processSheet(ctx, ic, sheetName); err != nil {
			c.sendProgress(progressChan, ProgressEvent{
				Type:      "error",
				Message:   fmt.Sprintf("导入中止: %v", err),
				Timestamp: time.Now(),
			})
			return
		}
	}

	// 全局自然排序后解决 ID 冲突，改名结果与展示顺序一致
	sort.SliceStable(ic.records, func(i, j int) bool {
		return parser.CompareTestIDs(ic.records[i].ID, ic.records[j].ID) < 0
	})
	ic.report.DuplicatesResolved = parser.ResolveDuplicates(ic.records, ic.msgs)

	// 更新应用状态
	loadMs := time.Since(ic.startTime).Milliseconds()
	c.state.SetRows(ic.records, sheets, loadMs)

	// 为携带导入结果的记录落初始执行状态
	seeded := c.seedStates(ic)
	if seeded > 0 {
		c.sendProgress(progressChan, ProgressEvent{
			Type:      "info",
			Message:   fmt.Sprintf("已写入 %d 条初始执行状态", seeded),
			Timestamp: time.Now(),
		})
	}

	ic.report.Warnings = ic.msgs.Warnings
	ic.report.Errors = ic.msgs.Errors
	ic.report.Duration = time.Since(ic.startTime)

	// 记入导入历史，失败只降级为警告
	if err := c.store.AddImportRecord(model.ImportRecord{
		ID:                uuid.New().String(),
		Timestamp:         time.Now().UTC().Format(time.RFC3339),
		SheetsProcessed:   ic.report.ImportedSheets,
		TotalRows:         ic.report.ImportedRows,
		DurationMs:        ic.report.Duration.Milliseconds(),
		Errors:            len(ic.report.Errors),
		Warnings:          len(ic.report.Warnings),
		DuplicatesFound:   ic.report.DuplicatesResolved,
		TransformsApplied: len(ic.opts.Rules),
	}); err != nil {
		c.sendProgress(progressChan, ProgressEvent{
			Type:      "warning",
			Message:   fmt.Sprintf("写入导入历史失败: %v", err),
			Timestamp: time.Now(),
		})
	}

	// 发送完成事件
	c.sendProgress(progressChan, ProgressEvent{
		Type:      "done",
		Message:   fmt.Sprintf("导入完成: %d 行", ic.report.ImportedRows),
		Data:      ic.report,
		Timestamp: time.Now(),
	})
}

// processSheet 处理单个 Sheet
// 返回非 nil 仅表示整次导入被取消，单 sheet 的问题都落进报告
func (c *Coordinator) processSheet(ctx context.Context, ic *importContext, sheetName string) error {
	sheetStartTime := time.Now()

	c.sendProgress(ic.progressChan, ProgressEvent{
		Type:    "sheet_start",
		Message: fmt.Sprintf("正在解析 Sheet: %s", sheetName),
		Data: map[string]string{
			"sheet_name": sheetName,
		},
		Timestamp: time.Now(),
	})

	table := ic.opts.Workbook.FindHeaderTable(sheetName)
	if table == nil {
		ic.msgs.Warnf("Sheet %q: no header row found, skipped", sheetName)
		c.recordSheetResult(ic, parser.SheetResult{
			SheetName: sheetName,
			Status:    "skipped",
			Errors:    []string{"no header row found"},
			Duration:  time.Since(sheetStartTime),
		})
		c.sendProgress(ic.progressChan, ProgressEvent{
			Type:      "warning",
			Message:   fmt.Sprintf("Sheet \"%s\" 未找到表头行，已跳过", sheetName),
			Timestamp: time.Now(),
		})
		return nil
	}

	ci := parser.ResolveColumns(table.Headers, ic.opts.SheetMaps[sheetName])
	parser.ValidateColumnIndex(ci, sheetName, ic.msgs)

	result := parser.SheetResult{SheetName: sheetName, Status: "imported"}
	batchSize := ic.opts.BatchSize

	for start := 0; start < len(table.DataRows); start += batchSize {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		end := start + batchSize
		if end > len(table.DataRows) {
			end = len(table.DataRows)
		}
		for i := start; i < end; i++ {
			// Excel 行号 1 起算，数据区从表头行的下一行开始
			rowNum := table.HeaderRow + 2 + i
			rec := c.normalizeRow(ic, table.DataRows[i], ci, sheetName, rowNum, &result)
			if rec != nil {
				ic.records = append(ic.records, rec)
				result.ImportedRows++
			}
		}

		// 大表导入时让出调度，避免长时间占住 P
		runtime.Gosched()
	}

	result.Duration = time.Since(sheetStartTime)
	c.recordSheetResult(ic, result)

	c.sendProgress(ic.progressChan, ProgressEvent{
		Type:    "sheet_done",
		Message: fmt.Sprintf("Sheet \"%s\" 解析完成: %d 行", sheetName, result.ImportedRows),
		Data: map[string]interface{}{
			"sheet_name":    sheetName,
			"imported_rows": result.ImportedRows,
			"skipped_rows":  result.SkippedRows,
		},
		Timestamp: time.Now(),
	})
	return nil
}

// normalizeRow 单行的规范化与校验，异常只影响本行
func (c *Coordinator) normalizeRow(ic *importContext, cells []string, ci parser.ColumnIndex, sheetName string, rowNum int, result *parser.SheetResult) (rec *model.TestCaseRecord) {
	defer func() {
		if r := recover(); r != nil {
			ic.msgs.Errorf("Row %d in %q: %v", rowNum, sheetName, r)
			result.ErrorRows++
			rec = nil
		}
	}()

	rec = parser.NormalizeRow(cells, ci, sheetName, rowNum)
	if rec == nil {
		result.SkippedRows++
		return nil
	}

	parser.ApplyRules(rec, ic.opts.Rules, ic.msgs)
	if !parser.ValidateRecord(rec, *ic.opts.Validation, ic.msgs) {
		result.SkippedRows++
		return nil
	}
	return rec
}

// seedStates 为携带导入状态/实测结果的记录写初始执行状态
// 默认跳过已有状态，避免重复导入覆盖用户手工编辑
func (c *Coordinator) seedStates(ic *importContext) int {
	seeded := 0
	for _, rec := range ic.records {
		if rec.ImportedStatus == "" && rec.ImportedActualResult == "" {
			continue
		}

		if !ic.opts.OverwriteStates {
			if _, err := c.store.GetState(rec.ID); err == nil {
				continue
			}
		}

		state := &model.ExecutionState{
			Status:   rec.ImportedStatus,
			Notes:    rec.ImportedActualResult,
			Attended: rec.ImportedAttended,
			Imported: true,
		}
		if err := c.store.SetState(rec.ID, state); err != nil {
			ic.msgs.Warnf("Failed to seed state for %s: %v", rec.ID, err)
			continue
		}
		seeded++
	}
	return seeded
}

// recordSheetResult 记录 Sheet 处理结果
func (c *Coordinator) recordSheetResult(ic *importContext, result parser.SheetResult) {
	ic.report.Sheets = append(ic.report.Sheets, result)

	if result.Status == "imported" {
		ic.report.ImportedSheets++
		ic.report.ImportedRows += result.ImportedRows
	} else if result.Status == "skipped" {
		ic.report.SkippedSheets++
	}

	if result.ErrorRows > 0 {
		ic.report.ErrorRows += result.ErrorRows
	}

	ic.report.TotalRows += result.ImportedRows + result.SkippedRows + result.ErrorRows
}

// sendProgress 发送进度事件
func (c *Coordinator) sendProgress(ch chan ProgressEvent, event ProgressEvent) {
	select {
	case ch <- event:
	default:
		// 通道已满，丢弃事件
	}
}
