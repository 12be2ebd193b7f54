package service

import (
	"fmt"
	"strings"
	"time"
)

// parseClock 解析 "15:04" / "15:04:05"（PostgreSQL TIME 可能带小数秒）为当天偏移量
func parseClock(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '.'); i >= 0 {
		s = s[:i]
	}
	layout := "15:04:05"
	if strings.Count(s, ":") == 1 {
		layout = clockLayout
	}
	t, err := time.Parse(layout, s)
	if err != nil {
		return 0, fmt.Errorf("无效的时间 %q: %w", s, err)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute + time.Duration(t.Second())*time.Second, nil
}

// formatClock 统一输出为 "15:04"，无法解析时原样返回
func formatClock(s string) string {
	d, err := parseClock(s)
	if err != nil {
		return s
	}
	return fmt.Sprintf("%02d:%02d", int(d.Hours()), int(d.Minutes())%60)
}

// overlaps 两个半开区间 [aFrom, aTo) 与 [bFrom, bTo) 是否相交
func overlaps(aFrom, aTo, bFrom, bTo time.Duration) bool {
	return aFrom < bTo && bFrom < aTo
}

// atClock 将日期与当天时间组合为 loc 时区下的时刻
func atClock(day time.Time, clock string, loc *time.Location) (time.Time, error) {
	d, err := parseClock(clock)
	if err != nil {
		return time.Time{}, err
	}
	y, m, dd := day.Date()
	h, mi, sec := int(d.Hours()), int(d.Minutes())%60, int(d.Seconds())%60
	return time.Date(y, m, dd, h, mi, sec, 0, loc), nil
}
