package parser

import "strconv"

// 无数字部分的 ID 使用的哨兵值，保证排到规整 ID 之后
const noNumberSentinel = 999999

type parsedTestID struct {
	prefix string
	number int
	suffix string
}

// parseTestID 拆解测试用例 ID
// 前缀 = 首个数字前的非数字串，数字 = 其后连续数字，后缀 = 剩余部分
func parseTestID(id string) parsedTestID {
	digitStart := -1
	for i := 0; i < len(id); i++ {
		if id[i] >= '0' && id[i] <= '9' {
			digitStart = i
			break
		}
	}
	if digitStart < 0 {
		return parsedTestID{prefix: id, number: noNumberSentinel}
	}

	digitEnd := digitStart
	for digitEnd < len(id) && id[digitEnd] >= '0' && id[digitEnd] <= '9' {
		digitEnd++
	}

	number, err := strconv.Atoi(id[digitStart:digitEnd])
	if err != nil {
		// 数字串超出 int 范围时退回哨兵值
		number = noNumberSentinel
	}

	return parsedTestID{
		prefix: id[:digitStart],
		number: number,
		suffix: id[digitEnd:],
	}
}

// CompareTestIDs 测试用例 ID 的全序比较
// 先比前缀（字典序），再比数字（数值序），最后比后缀（字典序）
// 由此得到自然排序：TC-2 在 TC-10 之前
func CompareTestIDs(a, b string) int {
	pa := parseTestID(a)
	pb := parseTestID(b)

	if pa.prefix != pb.prefix {
		if pa.prefix < pb.prefix {
			return -1
		}
		return 1
	}
	if pa.number != pb.number {
		if pa.number < pb.number {
			return -1
		}
		return 1
	}
	if pa.suffix != pb.suffix {
		if pa.suffix < pb.suffix {
			return -1
		}
		return 1
	}
	return 0
}
