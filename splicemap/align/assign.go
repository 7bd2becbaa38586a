// Copyright © 2023-2024 Wei Shen <shenwei356@gmail.com>
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

package align

// assignSeedsToWindows places every locus of non-repetitive seeds into the window
// owning its bin. Windows with no anchors are discarded.
func (ra *ReadAlign) assignSeedsToWindows() {
	p := ra.p
	n := p.SeedPerWindowNmax

	var w *Window
	for i := range ra.windows {
		w = &ra.windows[i]
		w.Aligns = ra.waBuf[i*n : i*n : (i+1)*n]
		w.NAnchors = 0
		w.Alive = false
		w.TrStart, w.TrN = 0, 0
	}

	var sd *Seed
	var anchor bool
	var mate, bin, iW int
	for iS := range ra.seeds {
		sd = &ra.seeds[iS]
		if sd.LociN == 0 {
			continue
		}
		anchor = sd.Nrep <= p.WinAnchorMultimapNmax && !sd.LowComplexity
		mate = ra.mateOf(sd.Dir, sd.RStart)
		for _, l := range ra.loci[sd.LociStart : sd.LociStart+sd.LociN] {
			bin, _ = ra.locusBin(sd.RStart, int(l))
			iW = int(ra.winBin[sd.Dir][bin])
			if iW < 0 {
				continue
			}
			ra.addWindowAlign(&ra.windows[iW], WindowAlign{
				RStart: sd.RStart,
				GStart: int(l),
				Len:    sd.Len,
				Nrep:   sd.Nrep,
				Anchor: anchor,
				Mate:   mate,
				ISeed:  iS,
			})
		}
	}

	for i := range ra.windows {
		w = &ra.windows[i]
		w.Incl = ra.inclBuf[i*n : i*n+len(w.Aligns)]
		for k := range w.Incl {
			w.Incl[k] = true
		}
		w.Alive = w.NAnchors > 0
		if len(w.Aligns) > 0 {
			w.CoverStart, w.CoverEnd = w.Aligns[0].RStart, 0
			for k := range w.Aligns {
				w.CoverEnd = max(w.CoverEnd, w.Aligns[k].REnd())
			}
		}
	}
}

// addWindowAlign inserts an align into a window, keeping the order.
// Nested aligns on the same diagonal are collapsed into the longer one.
func (ra *ReadAlign) addWindowAlign(w *Window, a WindowAlign) {
	diag := a.GStart - a.RStart

	// remove aligns nested in the new one, and stop if it is nested in an existing one
	var o *WindowAlign
	j := 0
	for k := range w.Aligns {
		o = &w.Aligns[k]
		if o.GStart-o.RStart == diag {
			if o.RStart <= a.RStart && a.REnd() <= o.REnd() {
				return
			}
			if a.RStart <= o.RStart && o.REnd() <= a.REnd() {
				if o.Anchor {
					w.NAnchors--
				}
				continue
			}
		}
		if j != k {
			w.Aligns[j] = *o
		}
		j++
	}
	w.Aligns = w.Aligns[:j]

	if len(w.Aligns) == cap(w.Aligns) {
		ra.flags |= FlagSeedPerWindowOverflow
		kMax := 0
		for k := range w.Aligns {
			if w.Aligns[k].Nrep > w.Aligns[kMax].Nrep {
				kMax = k
			}
		}
		if a.Nrep >= w.Aligns[kMax].Nrep {
			return
		}
		if w.Aligns[kMax].Anchor {
			w.NAnchors--
		}
		copy(w.Aligns[kMax:], w.Aligns[kMax+1:])
		w.Aligns = w.Aligns[:len(w.Aligns)-1]
	}

	// insertion position
	i := len(w.Aligns)
	for i > 0 {
		o = &w.Aligns[i-1]
		if o.RStart < a.RStart || (o.RStart == a.RStart && o.GStart <= a.GStart) {
			break
		}
		i--
	}
	w.Aligns = w.Aligns[:len(w.Aligns)+1]
	copy(w.Aligns[i+1:], w.Aligns[i:])
	w.Aligns[i] = a
	if a.Anchor {
		w.NAnchors++
	}
}
