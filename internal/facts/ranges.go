package facts

import (
	"fmt"
	"strings"
)

// RangesAndStrides formats sorted unique device indices as a
// square-bracketed list of ranges, e.g.
//
//	[0,1,2,3,4,5,6,8,9,10,12,14,15,16,18] -> "[0-6,8-10,12,14-16,18]"
//
// used for the File suffix of multi-device generic-resource entries.
func RangesAndStrides(nums []int) string {
	var parts []string

	for i := 0; i < len(nums); {
		j := i
		for j+1 < len(nums) && nums[j+1] == nums[j]+1 {
			j++
		}
		if i == j {
			parts = append(parts, fmt.Sprintf("%d", nums[i]))
		} else {
			parts = append(parts, fmt.Sprintf("%d-%d", nums[i], nums[j]))
		}
		i = j + 1
	}

	return "[" + strings.Join(parts, ",") + "]"
}
