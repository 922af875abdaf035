package costs

import (
	"fmt"
	"strconv"
)

// FormatRelative renders cost as a share of total. With percentSign the
// result reads like "12.34%", otherwise just "12.34". A zero total renders
// the absolute cost instead, since a share of nothing is meaningless.
func FormatRelative(cost, total uint64, percentSign bool) string {
	if total == 0 {
		return strconv.FormatUint(cost, 10)
	}
	share := float64(cost) / float64(total) * 100
	if percentSign {
		return fmt.Sprintf("%.2f%%", share)
	}
	return fmt.Sprintf("%.2f", share)
}
