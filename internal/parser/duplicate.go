package parser

import (
	"fmt"

	"caseboard/internal/model"
)

// ResolveDuplicates 解决 ID 冲突
// 单趟扫描，后出现的冲突记录追加 _1、_2… 后缀直到未占用
// 必须在全局排序之后调用，改名结果才相对展示顺序确定
// 返回被改名的记录数
func ResolveDuplicates(records []*model.TestCaseRecord, msgs *Messages) int {
	seen := make(map[string]struct{}, len(records))
	renamed := 0

	for _, rec := range records {
		if _, dup := seen[rec.ID]; !dup {
			seen[rec.ID] = struct{}{}
			continue
		}

		suffix := 1
		newID := fmt.Sprintf("%s_%d", rec.ID, suffix)
		for {
			if _, taken := seen[newID]; !taken {
				break
			}
			suffix++
			newID = fmt.Sprintf("%s_%d", rec.ID, suffix)
		}

		msgs.Warnf("Duplicate ID %q found. Renamed to %q", rec.ID, newID)
		rec.ID = newID
		rec.IsDuplicateResolved = true
		seen[newID] = struct{}{}
		renamed++
	}

	return renamed
}
