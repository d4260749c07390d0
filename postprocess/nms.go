package postprocess

import (
	"math"
	"sort"
)

// Suppress implements greedy Non-Maximum Suppression (NMS) across all classes.
// Candidates with a confidence not above confThresh are dropped, the rest are
// visited in descending confidence order and any box whose IoU with an
// already kept box is greater than overlapThresh is discarded.  A high
// confidence box of one class can therefore suppress an overlapping box of
// another class.  The indices of the kept candidates are returned in the
// order they were selected.
func Suppress(cands []RawCandidate, confThresh, overlapThresh float32) []int {

	order := make([]int, 0, len(cands))

	for i, c := range cands {
		if c.Confidence > confThresh {
			order = append(order, i)
		}
	}

	// stable sort so equal confidences keep their input order
	sort.SliceStable(order, func(i, j int) bool {
		return cands[order[i]].Confidence > cands[order[j]].Confidence
	})

	rects := make([]Rect, len(order))

	for i, n := range order {
		rects[i] = cands[n].Rect()
	}

	suppressed := make([]bool, len(order))
	keep := make([]int, 0, len(order))

	for i, n := range order {

		if suppressed[i] {
			continue
		}

		keep = append(keep, n)

		for j := i + 1; j < len(order); j++ {

			if suppressed[j] {
				continue
			}

			if IoU(rects[i], rects[j]) > overlapThresh {
				suppressed[j] = true
			}
		}
	}

	return keep
}

// IoU works out the Intersection over Union value of two rectangles
func IoU(a, b Rect) float32 {

	w := math.Min(float64(a.X+a.Width), float64(b.X+b.Width)) - math.Max(float64(a.X), float64(b.X))
	h := math.Min(float64(a.Y+a.Height), float64(b.Y+b.Height)) - math.Max(float64(a.Y), float64(b.Y))

	if w <= 0 || h <= 0 {
		return 0
	}

	intersection := w * h
	union := float64(a.Width*a.Height) + float64(b.Width*b.Height) - intersection

	if union <= 0 {
		return 0
	}

	return float32(intersection / union)
}
