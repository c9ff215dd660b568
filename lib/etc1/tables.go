// Copyright 2025 The Etc2 Authors.
//
// Licensed under the Apache License, Version 2.0 <LICENSE-APACHE or
// https://www.apache.org/licenses/LICENSE-2.0>. This file may not be copied,
// modified, or distributed except according to those terms.
//
// SPDX-License-Identifier: Apache-2.0

package etc1

// intenTables are the eight intensity modifier tables, indexed by Selector.
var intenTables = [8][4]int32{
	{-8, -2, 2, 8},
	{-17, -5, 5, 17},
	{-29, -9, 9, 29},
	{-42, -13, 13, 42},
	{-60, -18, 18, 60},
	{-80, -24, 24, 80},
	{-106, -33, 33, 106},
	{-183, -47, 47, 183},
}

// Selector indexes a sub-block's four colors in increasing intensity order,
// which is also the column order of intenTables.
type Selector uint8

// wireSelector is the 2 bit value stored in a block's two selector planes:
// the high bit in the MSB plane and the low bit in the LSB plane.
type wireSelector uint8

var (
	selectorToWire = [4]wireSelector{3, 2, 0, 1}
	wireToSelector = [4]Selector{2, 3, 1, 0}
)

func (s Selector) wire() wireSelector    { return selectorToWire[s&3] }
func (w wireSelector) selector() Selector { return wireToSelector[w&3] }

const (
	// The second sub-block's 555 color minus the first's must be in this
	// range, per channel, in differential mode.
	colorDeltaMin = -4
	colorDeltaMax = +3

	limit4 = 15
	limit5 = 31
)

// subblockPixelXY gives the (x, y) coordinates, within the 4×4 block, of the
// i'th pixel of a sub-block, indexed by [flip][subblock][i].
//
// Non-flipped sub-blocks are two columns wide, walked column by column.
// Flipped sub-blocks are two rows tall, walked row by row.
var subblockPixelXY = [2][2][8][2]uint8{{
	{{0, 0}, {0, 1}, {0, 2}, {0, 3}, {1, 0}, {1, 1}, {1, 2}, {1, 3}},
	{{2, 0}, {2, 1}, {2, 2}, {2, 3}, {3, 0}, {3, 1}, {3, 2}, {3, 3}},
}, {
	{{0, 0}, {1, 0}, {2, 0}, {3, 0}, {0, 1}, {1, 1}, {2, 1}, {3, 1}},
	{{0, 2}, {1, 2}, {2, 2}, {3, 2}, {0, 3}, {1, 3}, {2, 3}, {3, 3}},
}}

// qualityTuning holds the search knobs for each Quality.
type qualityTuning struct {
	scanDeltas []int

	// escalation0 is scanned when a sub-block's error exceeds
	// escalationThreshold0, or escalation1 when it exceeds
	// escalationThreshold1 (and escalation1 is non-empty).
	escalation0 []int
	escalation1 []int

	exactEvaluation  bool
	refinementTrials int
	solidSubblocks   bool
}

const (
	escalationThreshold0 = 3000
	escalationThreshold1 = 6000
)

var qualityTunings = [numQualities]qualityTuning{
	QualitySuperFast: {
		scanDeltas:       []int{0},
		refinementTrials: 1,
	},
	QualityFast: {
		scanDeltas:       []int{0},
		refinementTrials: 2,
	},
	QualityNormal: {
		scanDeltas:       []int{-1, 0, 1},
		escalation0:      []int{-3, -2, 2, 3},
		refinementTrials: 4,
		solidSubblocks:   true,
	},
	QualityBetter: {
		scanDeltas:       []int{-2, -1, 0, 1, 2},
		escalation0:      []int{-4, -3, 3, 4},
		escalation1:      []int{-6, -5, -4, -3, 3, 4, 5, 6},
		exactEvaluation:  true,
		refinementTrials: 4,
		solidSubblocks:   true,
	},
	QualitySlow: {
		scanDeltas:       []int{-4, -3, -2, -1, 0, 1, 2, 3, 4},
		escalation0:      []int{-5, 5},
		escalation1:      []int{-8, -7, -6, -5, 5, 6, 7, 8},
		exactEvaluation:  true,
		refinementTrials: 4,
		solidSubblocks:   true,
	},
}

func (q Quality) tuning() *qualityTuning {
	if int(q) >= len(qualityTunings) {
		q = QualitySlow
	}
	return &qualityTunings[q]
}
