// Package billingcycle 按自然月计算计费周期
package billingcycle

import (
	"time"
)

// AddMonths 保留 t 的日，超出目标月天数时落在月末
// (1月31日 + 1 个月 = 2月28日或29日)
func AddMonths(t time.Time, n int) time.Time {
	first := time.Date(t.Year(), t.Month()+time.Month(n), 1, 0, 0, 0, 0, t.Location())
	day := t.Day()
	if last := daysIn(first.Year(), first.Month()); day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day,
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// IsDue 到达或超过下次计费时间
func IsDue(next, now time.Time) bool {
	return !now.Before(next)
}

// Advance 从 next 起按整月前进，直到结果晚于 now。
// 每一步都从 anchor 重新计算，所以 1/31 -> 2/29 -> 3/31 不会漂移到 3/29。
// 返回新的计费时间和跳过的周期数，未到期时原样返回 next 和 0。
func Advance(anchor, next, now time.Time) (time.Time, int) {
	if !IsDue(next, now) {
		return next, 0
	}

	k := monthsBetween(anchor, next)
	skipped := 0
	for IsDue(next, now) {
		k++
		skipped++
		next = AddMonths(anchor, k)
	}
	return next, skipped
}

func monthsBetween(from, to time.Time) int {
	return (to.Year()-from.Year())*12 + int(to.Month()) - int(from.Month())
}
