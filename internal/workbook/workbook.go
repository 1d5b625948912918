package workbook

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// MaxFileSize 上传文件大小上限（50MB）
const MaxFileSize = 50 * 1024 * 1024

// minHeaderCells 表头行至少包含的非空单元格数
const minHeaderCells = 3

var supportedExts = map[string]struct{}{
	".xlsx": {},
	".xls":  {},
	".csv":  {},
	".tsv":  {},
}

// Workbook 已读入内存的工作簿，所有单元格按字符串保存
type Workbook struct {
	Name       string
	SheetNames []string
	Sheets     map[string][][]string
}

// SupportedExtension 判断扩展名是否受支持
func SupportedExtension(name string) bool {
	_, ok := supportedExts[strings.ToLower(filepath.Ext(name))]
	return ok
}

// ValidateFile 打开前的文件级校验：扩展名与大小
func ValidateFile(path string) error {
	if !SupportedExtension(path) {
		return fmt.Errorf("unsupported file type %q (expected .xlsx, .xls, .csv or .tsv)", filepath.Ext(path))
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat file: %w", err)
	}
	if info.Size() > MaxFileSize {
		return fmt.Errorf("file too large: %d bytes (limit %d)", info.Size(), MaxFileSize)
	}
	if info.Size() == 0 {
		return fmt.Errorf("file is empty")
	}
	return nil
}

// Open 读取工作簿，按扩展名分派到 Excel 或分隔文本解析
func Open(path string) (*Workbook, error) {
	if err := ValidateFile(path); err != nil {
		return nil, err
	}

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".xlsx", ".xls":
		return openExcel(path)
	case ".csv":
		return openDelimited(path, ',')
	case ".tsv":
		return openDelimited(path, '\t')
	}
	return nil, fmt.Errorf("unsupported file type %q", ext)
}

func openExcel(path string) (*Workbook, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	wb := &Workbook{
		Name:   filepath.Base(path),
		Sheets: make(map[string][][]string),
	}
	for _, sheetName := range f.GetSheetList() {
		rows, err := f.GetRows(sheetName)
		if err != nil {
			return nil, fmt.Errorf("read sheet %q: %w", sheetName, err)
		}
		wb.SheetNames = append(wb.SheetNames, sheetName)
		wb.Sheets[sheetName] = rows
	}

	if err := wb.validateContent(); err != nil {
		return nil, err
	}
	return wb, nil
}

// openDelimited 把 CSV/TSV 当作单 sheet 工作簿，sheet 名取文件名（去扩展名）
func openDelimited(path string, sep rune) (*Workbook, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	var rows [][]string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		rows = append(rows, parseDelimitedLine(scanner.Text(), sep))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	base := filepath.Base(path)
	sheetName := strings.TrimSuffix(base, filepath.Ext(base))
	wb := &Workbook{
		Name:       base,
		SheetNames: []string{sheetName},
		Sheets:     map[string][][]string{sheetName: rows},
	}
	if err := wb.validateContent(); err != nil {
		return nil, err
	}
	return wb, nil
}

// parseDelimitedLine 解析一行，支持双引号包裹与 "" 转义
func parseDelimitedLine(line string, sep rune) []string {
	var (
		cells    []string
		cell     strings.Builder
		inQuotes bool
	)
	runes := []rune(line)
	for i := 0; i < len(runes); i++ {
		c := runes[i]
		switch {
		case c == '"':
			if inQuotes && i+1 < len(runes) && runes[i+1] == '"' {
				cell.WriteRune('"')
				i++
			} else {
				inQuotes = !inQuotes
			}
		case c == sep && !inQuotes:
			cells = append(cells, cell.String())
			cell.Reset()
		default:
			cell.WriteRune(c)
		}
	}
	cells = append(cells, cell.String())
	return cells
}

// validateContent 保证至少有一个含数据的 sheet
func (wb *Workbook) validateContent() error {
	for _, name := range wb.SheetNames {
		for _, row := range wb.Sheets[name] {
			for _, cell := range row {
				if strings.TrimSpace(cell) != "" {
					return nil
				}
			}
		}
	}
	return fmt.Errorf("workbook %q contains no data", wb.Name)
}

// HeaderTable 一个 sheet 的表头行定位结果
type HeaderTable struct {
	Headers   []string
	DataRows  [][]string
	HeaderRow int
}

// FindHeaderTable 定位表头行：自上而下第一行非空单元格数达到阈值者
// 找不到时返回 nil
func (wb *Workbook) FindHeaderTable(sheetName string) *HeaderTable {
	rows, ok := wb.Sheets[sheetName]
	if !ok {
		return nil
	}

	for i, row := range rows {
		nonEmpty := 0
		for _, cell := range row {
			if strings.TrimSpace(cell) != "" {
				nonEmpty++
			}
		}
		if nonEmpty >= minHeaderCells {
			return &HeaderTable{
				Headers:   row,
				DataRows:  rows[i+1:],
				HeaderRow: i,
			}
		}
	}
	return nil
}
