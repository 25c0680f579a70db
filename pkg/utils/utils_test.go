package utils

import "testing"

func TestCoalesceString(t *testing.T) {
	if got := CoalesceString("", "a", "b"); got != "a" {
		t.Errorf("CoalesceString: %q", got)
	}
	if got := CoalesceString("", ""); got != "" {
		t.Errorf("CoalesceString empty: %q", got)
	}
}

func TestDefaultInt(t *testing.T) {
	if got := DefaultInt(0, 5); got != 5 {
		t.Errorf("DefaultInt(0,5): %d", got)
	}
	if got := DefaultInt(3, 5); got != 3 {
		t.Errorf("DefaultInt(3,5): %d", got)
	}
}

func TestTruncateHead(t *testing.T) {
	if got := TruncateHead("hello", 3); got != "hel" {
		t.Errorf("TruncateHead: %q", got)
	}
	if got := TruncateHead("hello", 10); got != "hello" {
		t.Errorf("TruncateHead no-op: %q", got)
	}
	if got := TruncateHead("hello", 0); got != "" {
		t.Errorf("TruncateHead zero: %q", got)
	}
	// 多字节字符按字符数截断，不能切断 UTF-8 序列
	if got := TruncateHead("项目计划表", 2); got != "项目" {
		t.Errorf("TruncateHead multibyte: %q", got)
	}
}

func TestTruncateTail(t *testing.T) {
	if got := TruncateTail("hello", 3); got != "llo" {
		t.Errorf("TruncateTail: %q", got)
	}
	if got := TruncateTail("hello", 10); got != "hello" {
		t.Errorf("TruncateTail no-op: %q", got)
	}
	if got := TruncateTail("项目计划表", 2); got != "划表" {
		t.Errorf("TruncateTail multibyte: %q", got)
	}
}

func TestRuneLen(t *testing.T) {
	if got := RuneLen("项目abc"); got != 5 {
		t.Errorf("RuneLen: %d", got)
	}
}
