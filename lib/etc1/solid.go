// Copyright 2025 The Etc2 Authors.
//
// Licensed under the Apache License, Version 2.0 <LICENSE-APACHE or
// https://www.apache.org/licenses/LICENSE-2.0>. This file may not be copied,
// modified, or distributed except according to those terms.
//
// SPDX-License-Identifier: Apache-2.0

package etc1

import (
	"math"
)

// nextComponent[i] and nextComponent[i+1] are the two channels other than i.
var nextComponent = [4]int{1, 2, 0, 1}

// solidMatch is the best single (diff, intensity table, selector) encoding of
// a solid color.
type solidMatch struct {
	// err is the per pixel squared error.
	err    uint32
	config blockConfig
	packed [3]uint8
}

func outsideDeltaRange(packed uint8, base uint8) bool {
	d := int32(packed) - int32(base)
	return (d < colorDeltaMin) || (colorDeltaMax < d)
}

// searchSolidColor looks for the configuration that best reproduces c. For
// each channel, and each value within ±1 of that channel, it tries every
// configuration that hits that value exactly, choosing the other two
// channels' packed values via the inverse lookup table. The result can be
// worse than the best over every configuration, e.g. for (15, 100, 62).
//
// If restrict is set, only configurations whose diff bit equals useDiff are
// considered. If base is non-nil, only configurations whose packed color is
// a valid differential offset from base are considered.
func searchSolidColor(c [3]uint8, restrict bool, useDiff bool, base *[3]uint8) (solidMatch, bool) {
	t := lookup()
	best := solidMatch{err: math.MaxUint32}

	for i := range 3 {
		i1, i2 := nextComponent[i], nextComponent[i+1]
		for delta := int32(-1); delta <= 1; delta++ {
			target := clampI32(int32(c[i])+delta, 0, 255)
			d := uint32((target - int32(c[i])) * (target - int32(c[i])))

			for _, x := range t.configs[target] {
				if restrict && (x.diff() != useDiff) {
					continue
				}
				p0 := x.packed()
				if (base != nil) && outsideDeltaRange(p0, base[i]) {
					continue
				}

				inv := &t.inverse[x.inverseIndex()]
				e1, e2 := inv[c[i1]], inv[c[i2]]
				if (base != nil) &&
					(outsideDeltaRange(e1.packed(), base[i1]) ||
						outsideDeltaRange(e2.packed(), base[i2])) {
					continue
				}

				err := d + (e1.err() * e1.err()) + (e2.err() * e2.err())
				if err < best.err {
					best.err = err
					best.config = x
					best.packed[i] = p0
					best.packed[i1] = e1.packed()
					best.packed[i2] = e2.packed()
					if err == 0 {
						return best, true
					}
				}
			}
		}
	}

	return best, best.err != math.MaxUint32
}

// packSolidColor encodes a block whose 16 pixels all have the RGB color c,
// returning the block's total squared error.
func packSolidColor(dst *Block, c [3]uint8) uint64 {
	m, _ := searchSolidColor(c, false, false, nil)

	*dst = Block{}
	diff := m.config.diff()
	dst.SetDiffBit(diff)
	dst.SetIntenTable(0, m.config.intenTable())
	dst.SetIntenTable(1, m.config.intenTable())
	if diff {
		dst.SetBase5Color(m.packed)
	} else {
		dst.SetBase4Color(0, m.packed)
		dst.SetBase4Color(1, m.packed)
	}

	s := m.config.selector()
	for x := range 4 {
		for y := range 4 {
			dst.setSelector(x, y, s)
		}
	}
	return 16 * uint64(m.err)
}

// packSolidColorConstrained encodes n pixels, all with the RGB color c, as
// one sub-block in the given mode. In differential mode, base (if non-nil)
// is the other sub-block's 555 color. It returns the sub-block's total
// squared error, or math.MaxUint64 (leaving result unchanged) if no
// configuration satisfies the constraints.
func packSolidColorConstrained(result *optimizerResult, n int, c [3]uint8, useDiff bool, base *[3]uint8) uint64 {
	m, ok := searchSolidColor(c, true, useDiff, base)
	if !ok {
		return math.MaxUint64
	}

	result.coords = coordinates{
		unscaled:   m.packed,
		intenTable: m.config.intenTable(),
		color4:     !useDiff,
	}
	s := m.config.selector()
	for i := range n {
		result.selectors[i] = s
	}
	result.n = n
	result.err = uint64(m.err) * uint64(n)
	return result.err
}
