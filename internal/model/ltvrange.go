package model

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// RangeKind LTV 区间的记法类型
type RangeKind int

const (
	RangeExact   RangeKind = iota // 精确值（遗留格式）
	RangeClosed                   // 闭区间 lo-hi
	RangeAtMost                   // 上开区间 <=hi
	RangeAtLeast                  // 下开区间 >=lo
)

var (
	reRangeClosed  = regexp.MustCompile(`^\d+(\.\d+)?-\d+(\.\d+)?%?$`)
	reRangeAtMost  = regexp.MustCompile(`^<=\d+(\.\d+)?%?$`)
	reRangeAtLeast = regexp.MustCompile(`^>=\d+(\.\d+)?%?$`)
)

// LTVRange 标准化后的 LTV 适用区间
type LTVRange struct {
	Kind RangeKind
	Lo   float64
	Hi   float64
	Raw  string // 标准化后的原始键（含 %）
}

// IsRangeKey 判断单元格文本是否为三种区间记法之一
func IsRangeKey(s string) bool {
	s = strings.TrimSpace(s)
	return reRangeClosed.MatchString(s) || reRangeAtMost.MatchString(s) || reRangeAtLeast.MatchString(s)
}

// NormalizeRangeKey 标准化区间键：去空白并补齐 % 后缀
func NormalizeRangeKey(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	if !strings.HasSuffix(s, "%") {
		s += "%"
	}
	return s
}

// ParseLTVRange 解析区间键为结构化区间
// 支持 "lo-hi%"、"<=hi%"、">=lo%" 三种记法；纯数字按精确值处理
func ParseLTVRange(key string) (LTVRange, error) {
	raw := NormalizeRangeKey(key)
	s := strings.TrimSuffix(raw, "%")

	switch {
	case strings.HasPrefix(s, "<="):
		hi, err := strconv.ParseFloat(strings.TrimPrefix(s, "<="), 64)
		if err != nil {
			return LTVRange{}, fmt.Errorf("invalid range key %q: %w", key, err)
		}
		return LTVRange{Kind: RangeAtMost, Hi: hi, Raw: raw}, nil
	case strings.HasPrefix(s, ">="):
		lo, err := strconv.ParseFloat(strings.TrimPrefix(s, ">="), 64)
		if err != nil {
			return LTVRange{}, fmt.Errorf("invalid range key %q: %w", key, err)
		}
		return LTVRange{Kind: RangeAtLeast, Lo: lo, Raw: raw}, nil
	case strings.Contains(s, "-"):
		parts := strings.SplitN(s, "-", 2)
		lo, err1 := strconv.ParseFloat(parts[0], 64)
		hi, err2 := strconv.ParseFloat(parts[1], 64)
		if err1 != nil || err2 != nil {
			return LTVRange{}, fmt.Errorf("invalid range key %q", key)
		}
		return LTVRange{Kind: RangeClosed, Lo: lo, Hi: hi, Raw: raw}, nil
	default:
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return LTVRange{}, fmt.Errorf("invalid range key %q", key)
		}
		return LTVRange{Kind: RangeExact, Lo: v, Hi: v, Raw: raw}, nil
	}
}

// Contains 判断 LTV 数值是否落在区间内（闭区间，端点均含）
func (r LTVRange) Contains(v float64) bool {
	switch r.Kind {
	case RangeExact:
		return v == r.Lo
	case RangeClosed:
		return r.Lo <= v && v <= r.Hi
	case RangeAtMost:
		return v <= r.Hi
	case RangeAtLeast:
		return v >= r.Lo
	default:
		return false
	}
}
