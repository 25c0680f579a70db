// Package utils 通用小工具，不依赖 internal
package utils

import "unicode/utf8"

// CoalesceString 返回第一个非空字符串
func CoalesceString(ss ...string) string {
	for _, s := range ss {
		if s != "" {
			return s
		}
	}
	return ""
}

// DefaultInt 若 v 为 0 则返回 defaultVal
func DefaultInt(v, defaultVal int) int {
	if v == 0 {
		return defaultVal
	}
	return v
}

// RuneLen 返回字符数（code point 数，预算核算统一用字符不用字节）
func RuneLen(s string) int {
	return utf8.RuneCountInString(s)
}

// TruncateHead 保留前 n 个字符
func TruncateHead(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}

// TruncateTail 保留后 n 个字符
func TruncateTail(s string, n int) string {
	if n <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[len(r)-n:])
}
