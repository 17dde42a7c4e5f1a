// Package placement maps logical chunk and stripe-set indices to physical
// disk indices. All functions are pure arithmetic; callers must validate the
// disk count against the raid level minimum first.
package placement

import (
	"github.com/raidforge/raidforge/pkg/types"
)

// AdjustIndex perturbs a raw chunk index per the configured algorithm before
// the direction policy is applied. Every variant is deterministic, so the
// same configuration always reproduces the same layout.
func AdjustIndex(stripeIndex, numDisks int, algorithm types.Algorithm) int {
	switch algorithm {
	case types.AlgorithmStandard:
		return stripeIndex
	case types.AlgorithmDelayed:
		return stripeIndex + numDisks/2
	case types.AlgorithmInterleaved:
		if stripeIndex%2 == 0 {
			return stripeIndex
		}
		return stripeIndex + numDisks
	case types.AlgorithmRandom:
		return int((uint64(stripeIndex) * 2654435761) % (1 << 32))
	}
	return stripeIndex
}

// DataDisk returns the disk holding chunk stripeIndex for the non-parity
// striping levels (raid0).
func DataDisk(stripeIndex, numDisks int, direction types.Direction) int {
	switch direction {
	case types.DirectionForward:
		return stripeIndex % numDisks
	case types.DirectionBackward:
		return (numDisks - 1) - stripeIndex%numDisks
	case types.DirectionInsideOut:
		mid := numDisks / 2
		if stripeIndex%2 == 0 {
			return mid + (stripeIndex/2)%(numDisks-mid)
		}
		return mid - 1 - (stripeIndex/2)%mid
	case types.DirectionOutsideIn:
		if stripeIndex%2 == 0 {
			return (stripeIndex / 2) % numDisks
		}
		return numDisks - 1 - (stripeIndex/2)%numDisks
	}
	return stripeIndex % numDisks
}

// ParityDisk returns the disk holding P parity for stripe set stripeSet on a
// raid5/6 array with a rotating layout.
func ParityDisk(stripeSet, numDisks int, layout types.Layout) int {
	switch layout {
	case types.LayoutLeftSymmetric, types.LayoutRightAsymmetric:
		return numDisks - 1 - stripeSet%numDisks
	case types.LayoutLeftAsymmetric, types.LayoutRightSymmetric:
		return stripeSet % numDisks
	}
	return numDisks - 1 - stripeSet%numDisks
}

// QParityDisk returns the disk holding Q parity for raid6, adjacent to the
// P parity disk on the side determined by the layout.
func QParityDisk(pParityDisk, numDisks int, layout types.Layout) int {
	switch layout {
	case types.LayoutLeftSymmetric, types.LayoutRightAsymmetric:
		return (pParityDisk + numDisks - 1) % numDisks
	case types.LayoutLeftAsymmetric, types.LayoutRightSymmetric:
		return (pParityDisk + 1) % numDisks
	}
	return (pParityDisk + numDisks - 1) % numDisks
}

// DataDisks returns the disks carrying data chunks for one stripe set, in
// ascending order, skipping the given parity disks.
func DataDisks(numDisks int, parityDisks ...int) []int {
	skip := map[int]bool{}
	for _, disk := range parityDisks {
		skip[disk] = true
	}
	disks := make([]int, 0, numDisks-len(parityDisks))
	for disk := 0; disk < numDisks; disk++ {
		if !skip[disk] {
			disks = append(disks, disk)
		}
	}
	return disks
}
