package parser

import (
	"sort"
	"testing"
)

func TestCompareTestIDs_NaturalOrder(t *testing.T) {
	t.Parallel()

	if got := CompareTestIDs("TC-2", "TC-10"); got >= 0 {
		t.Fatalf("TC-2 vs TC-10: want <0 got %d", got)
	}
	if got := CompareTestIDs("TC-2", "TC-2a"); got >= 0 {
		t.Fatalf("TC-2 vs TC-2a: want <0 got %d", got)
	}
	if got := CompareTestIDs("TC-10", "TC-2"); got <= 0 {
		t.Fatalf("TC-10 vs TC-2: want >0 got %d", got)
	}
	if got := CompareTestIDs("TC-7", "TC-7"); got != 0 {
		t.Fatalf("TC-7 vs TC-7: want 0 got %d", got)
	}
}

func TestCompareTestIDs_PrefixBeforeNumber(t *testing.T) {
	t.Parallel()

	if got := CompareTestIDs("AUTH-9", "TC-1"); got >= 0 {
		t.Fatalf("AUTH-9 vs TC-1: want <0 got %d", got)
	}
}

func TestCompareTestIDs_NoDigitsSortLast(t *testing.T) {
	t.Parallel()

	// 无数字的 ID 取哨兵数值，应排在同前缀的规整 ID 之后
	if got := CompareTestIDs("TC-5", "TC-"); got >= 0 {
		t.Fatalf("TC-5 vs TC-: want <0 got %d", got)
	}
}

func TestCompareTestIDs_TotalOrder(t *testing.T) {
	t.Parallel()

	ids := []string{"TC-10", "TC-2", "TC-2a", "AUTO_Sheet1_5", "TC-1_1", "TC-1", "zz", "TC-10a"}
	sort.Slice(ids, func(i, j int) bool { return CompareTestIDs(ids[i], ids[j]) < 0 })

	// 反对称：compare(a,b) == -compare(b,a)
	for _, a := range ids {
		for _, b := range ids {
			if CompareTestIDs(a, b) != -CompareTestIDs(b, a) {
				t.Fatalf("antisymmetry violated for %q vs %q", a, b)
			}
		}
	}

	// 传递性抽查：排序结果必须与逐对比较一致
	for i := 0; i < len(ids)-1; i++ {
		if CompareTestIDs(ids[i], ids[i+1]) > 0 {
			t.Fatalf("sorted order inconsistent at %q > %q", ids[i], ids[i+1])
		}
	}
}

func TestParseTestID_Components(t *testing.T) {
	t.Parallel()

	p := parseTestID("TC-12a")
	if p.prefix != "TC-" || p.number != 12 || p.suffix != "a" {
		t.Fatalf("TC-12a parsed as %+v", p)
	}

	p = parseTestID("nodigits")
	if p.prefix != "nodigits" || p.number != noNumberSentinel || p.suffix != "" {
		t.Fatalf("nodigits parsed as %+v", p)
	}
}
