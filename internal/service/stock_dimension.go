package service

import (
	"strings"

	"github.com/mavazi-pos/internal/constants"
)

var validSizes = func() map[string]bool {
	m := make(map[string]bool, len(constants.Sizes))
	for _, size := range constants.Sizes {
		m[size] = true
	}
	return m
}()

var sizeRank = func() map[string]int {
	m := make(map[string]int, len(constants.Sizes))
	for i, size := range constants.Sizes {
		m[size] = i
	}
	return m
}()

// NormalizeSize 规范化尺码，空值表示不区分尺码
func NormalizeSize(raw string) (string, error) {
	size := strings.ToUpper(strings.TrimSpace(raw))
	if size == "" {
		return "", nil
	}
	if size == "XXL" {
		size = constants.Size2XL
	}
	if !validSizes[size] {
		return "", ErrInvalidSize
	}
	return size, nil
}

// NormalizeColor 规范化颜色（去空白、转小写）
func NormalizeColor(raw string) string {
	return strings.ToLower(strings.Join(strings.Fields(raw), " "))
}

// SizeRank 返回尺码排序序号，未知尺码排在最后
func SizeRank(size string) int {
	if rank, ok := sizeRank[size]; ok {
		return rank
	}
	return len(constants.Sizes)
}
