// Copyright 2025 The Etc2 Authors.
//
// Licensed under the Apache License, Version 2.0 <LICENSE-APACHE or
// https://www.apache.org/licenses/LICENSE-2.0>. This file may not be copied,
// modified, or distributed except according to those terms.
//
// SPDX-License-Identifier: Apache-2.0

package etc1

import (
	"cmp"
	"math"
	"slices"
)

// optimizerParams configure one optimizer run over a sub-block.
type optimizerParams struct {
	// pixels holds 4 or 8 pixels.
	pixels []Pixel

	// scanDeltas are the per channel offsets, from the quantized average
	// color, of the lattice points to try.
	scanDeltas []int

	tuning *qualityTuning

	useColor4 bool

	// When constrainAgainstBaseColor5 is set, only 555 colors within
	// [colorDeltaMin, colorDeltaMax] of baseColor5 (per channel) are
	// candidates.
	constrainAgainstBaseColor5 bool
	baseColor5                 [3]uint8
}

// optimizerResult is a sub-block's encoding.
type optimizerResult struct {
	coords    coordinates
	selectors [8]Selector
	n         int
	err       uint64
}

type potentialSolution struct {
	coords    coordinates
	selectors [8]Selector
	err       uint64
	valid     bool
}

// optimizer searches for a sub-block's base color, intensity table and
// selectors. Its arrays are scratch space, reused from one sub-block to the
// next.
type optimizer struct {
	params *optimizerParams
	result *optimizerResult

	n     int
	limit int32

	avg [3]float32

	// base is the quantized average color.
	base [3]int32

	luma              [8]uint32
	sortedLumaIndices [8]uint8
	sortedLuma        [8]uint32

	best          potentialSolution
	trial         potentialSolution
	tempSelectors [8]Selector
}

// quantize maps an 8 bit channel value to the nearest lattice point in [0,
// limit].
func quantize(v float32, limit int32) int32 {
	q := v*float32(limit)/255 + 0.5
	if q <= 0 {
		return 0
	}
	return clampI32(int32(q), 0, limit)
}

func (o *optimizer) init(params *optimizerParams, result *optimizerResult) {
	n := len(params.pixels)
	if (n != 4) && (n != 8) {
		panic("etc1: optimizer needs 4 or 8 pixels")
	}
	o.params = params
	o.result = result
	o.n = n

	o.limit = limit5
	if params.useColor4 {
		o.limit = limit4
	}

	sum := [3]float32{}
	for i, p := range params.pixels {
		sum[0] += float32(p.R)
		sum[1] += float32(p.G)
		sum[2] += float32(p.B)
		o.luma[i] = uint32(p.R) + uint32(p.G) + uint32(p.B)
		o.sortedLumaIndices[i] = uint8(i)
	}
	for i := range sum {
		o.avg[i] = sum[i] / float32(n)
		o.base[i] = quantize(o.avg[i], o.limit)
	}

	if !params.tuning.exactEvaluation {
		indices := o.sortedLumaIndices[:n]
		slices.SortStableFunc(indices, func(a uint8, b uint8) int {
			return cmp.Compare(o.luma[a], o.luma[b])
		})
		for i, j := range indices {
			o.sortedLuma[i] = o.luma[j]
		}
	}

	o.best = potentialSolution{err: math.MaxUint64}
}

func (o *optimizer) evaluate(coords coordinates) bool {
	if o.params.tuning.exactEvaluation {
		return o.evaluateSolution(coords)
	}
	return o.evaluateSolutionFast(coords)
}

// compute scans the lattice around the average color, refining each
// improvement. It can be called again (with wider params.scanDeltas) to
// continue from the best solution found so far. It returns false if no
// lattice point satisfied the constraints.
func (o *optimizer) compute() bool {
	deltas := o.params.scanDeltas
	tuning := o.params.tuning

	for _, zd := range deltas {
		mbb := o.base[2] + int32(zd)
		if mbb < 0 {
			continue
		} else if mbb > o.limit {
			break
		}

		for _, yd := range deltas {
			mbg := o.base[1] + int32(yd)
			if mbg < 0 {
				continue
			} else if mbg > o.limit {
				break
			}

			for _, xd := range deltas {
				mbr := o.base[0] + int32(xd)
				if mbr < 0 {
					continue
				} else if mbr > o.limit {
					break
				}

				coords := coordinates{
					unscaled: [3]uint8{uint8(mbr), uint8(mbg), uint8(mbb)},
					color4:   o.params.useColor4,
				}
				if !o.evaluate(coords) {
					continue
				}

				trials := tuning.refinementTrials
				if (xd | yd | zd) != 0 {
					trials = min(trials, 2)
				}
				for range trials {
					if !o.refine(coords.unscaled) {
						break
					}
				}
			}
		}
	}

	if !o.best.valid {
		o.result.err = math.MaxUint64
		return false
	}

	o.result.coords = o.best.coords
	o.result.selectors = o.best.selectors
	o.result.n = o.n
	o.result.err = o.best.err
	return true
}

// refine moves the best solution's base color by the average of the
// (clamped) intensity deltas that its selectors apply, and re-evaluates. It
// returns false when there is nothing further to try.
func (o *optimizer) refine(scanned [3]uint8) bool {
	inten := &intenTables[o.best.coords.intenTable]
	base := o.best.coords.scaled()

	deltaSum := [3]int32{}
	for _, s := range o.best.selectors[:o.n] {
		d := inten[s]
		for c := range 3 {
			deltaSum[c] += clampI32(base[c]+d, 0, 255) - base[c]
		}
	}
	if deltaSum == [3]int32{} {
		return false
	}

	refined := [3]uint8{}
	for c := range 3 {
		avgDelta := float32(deltaSum[c]) / float32(o.n)
		refined[c] = uint8(quantize(o.avg[c]-avgDelta, o.limit))
	}

	if (refined == scanned) ||
		(refined == o.best.coords.unscaled) ||
		(refined == [3]uint8{uint8(o.base[0]), uint8(o.base[1]), uint8(o.base[2])}) {
		return false
	}

	return o.evaluate(coordinates{
		unscaled: refined,
		color4:   o.params.useColor4,
	})
}

func (o *optimizer) violatesConstraint(coords *coordinates) bool {
	if !o.params.constrainAgainstBaseColor5 {
		return false
	}
	for c := range 3 {
		d := int32(coords.unscaled[c]) - int32(o.params.baseColor5[c])
		if (d < colorDeltaMin) || (colorDeltaMax < d) {
			return true
		}
	}
	return false
}

// evaluateSolution tries every intensity table, giving each pixel its
// nearest color. It returns whether the result improved on o.best.
func (o *optimizer) evaluateSolution(coords coordinates) bool {
	trial := &o.trial
	trial.valid = false
	if o.violatesConstraint(&coords) {
		return false
	}

	pixels := o.params.pixels
	trial.err = math.MaxUint64

	for t := range uint8(len(intenTables)) {
		coords.intenTable = t
		colors := coords.blockColors()

		totalErr := uint64(0)
		for i, p := range pixels {
			bestS, bestErr := Selector(0), colorDistance(p, colors[0])
			for s := Selector(1); s < 4; s++ {
				if e := colorDistance(p, colors[s]); e < bestErr {
					bestS, bestErr = s, e
				}
			}
			o.tempSelectors[i] = bestS

			totalErr += bestErr
			if totalErr >= trial.err {
				break
			}
		}

		if totalErr < trial.err {
			trial.err = totalErr
			trial.coords.intenTable = t
			trial.selectors = o.tempSelectors
			trial.valid = true
		}
	}

	return o.acceptTrial(&coords)
}

// evaluateSolutionFast is like evaluateSolution but relies on a sub-block's
// four colors being ordered along the (1, 1, 1) intensity axis. With the
// pixels pre-sorted by luma, classification is a linear scan against three
// midpoints. This is an approximation: pixels whose nearest color by
// Euclidean distance is not their nearest by luma get a worse selector.
func (o *optimizer) evaluateSolutionFast(coords coordinates) bool {
	trial := &o.trial
	trial.valid = false
	if o.violatesConstraint(&coords) {
		return false
	}

	n := o.n
	pixels := o.params.pixels
	sortedLuma := o.sortedLuma[:n]
	lumaMin, lumaMax := sortedLuma[0], sortedLuma[n-1]
	trial.err = math.MaxUint64

	for t := len(intenTables) - 1; t >= 0; t-- {
		coords.intenTable = uint8(t)
		colors := coords.blockColors()

		blockInten := [4]uint32{}
		for s, c := range colors {
			blockInten[s] = uint32(c[0] + c[1] + c[2])
		}
		midpoints := [3]uint32{
			blockInten[0] + blockInten[1],
			blockInten[1] + blockInten[2],
			blockInten[2] + blockInten[3],
		}

		totalErr := uint64(0)
		if (lumaMax * 2) < midpoints[0] {
			if (blockInten[0] > lumaMax) && (uint64(blockInten[0]-lumaMax) >= trial.err) {
				continue
			}
			for i, p := range pixels {
				o.tempSelectors[i] = 0
				totalErr += colorDistance(p, colors[0])
			}

		} else if (lumaMin * 2) >= midpoints[2] {
			if (lumaMin > blockInten[3]) && (uint64(lumaMin-blockInten[3]) >= trial.err) {
				continue
			}
			for i, p := range pixels {
				o.tempSelectors[i] = 3
				totalErr += colorDistance(p, colors[3])
			}

		} else {
			s := Selector(0)
			for i, y := range sortedLuma {
				for (s < 3) && ((y * 2) >= midpoints[s]) {
					s++
				}
				j := o.sortedLumaIndices[i]
				o.tempSelectors[j] = s
				totalErr += colorDistance(pixels[j], colors[s])
			}
		}

		if totalErr < trial.err {
			trial.err = totalErr
			trial.coords.intenTable = uint8(t)
			trial.selectors = o.tempSelectors
			trial.valid = true
			if totalErr == 0 {
				break
			}
		}
	}

	return o.acceptTrial(&coords)
}

func (o *optimizer) acceptTrial(coords *coordinates) bool {
	trial := &o.trial
	trial.coords.unscaled = coords.unscaled
	trial.coords.color4 = o.params.useColor4
	if trial.valid && (trial.err < o.best.err) {
		o.best = *trial
		return true
	}
	return false
}
