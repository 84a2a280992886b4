package alloc

import (
	"fmt"
	"io"
)

// NumClasses is the number of fixed histogram bins.
const NumClasses = 10

// classBounds holds the exclusive upper bound of classes 0..8; class 9 is open-ended.
var classBounds = [NumClasses - 1]int{16, 32, 64, 128, 256, 512, 1024, 2048, 4096}

var classLabels = [NumClasses]string{
	"<16B",
	"16-31B",
	"32-63B",
	"64-127B",
	"128-255B",
	"256-511B",
	"512-1023B",
	"1-2KB",
	"2-4KB",
	">=4KB",
}

// SizeClass returns the histogram bin for a block of size bytes.
func SizeClass(size int) int {
	for i, bound := range classBounds {
		if size < bound {
			return i
		}
	}
	return NumClasses - 1
}

// ClassLabel returns the display label for class i.
func ClassLabel(i int) string {
	if i < 0 || i >= NumClasses {
		return "?"
	}
	return classLabels[i]
}

// Histogram counts blocks per size class.
type Histogram [NumClasses]uint64

// Add records one block of size bytes.
func (h *Histogram) Add(size int) {
	h[SizeClass(size)]++
}

// Total returns the number of recorded blocks.
func (h *Histogram) Total() uint64 {
	var n uint64
	for _, c := range h {
		n += c
	}
	return n
}

// WriteTo renders one line per class.
func (h *Histogram) WriteTo(w io.Writer) (int64, error) {
	var written int64
	for i, c := range h {
		n, err := fmt.Fprintf(w, "  %-9s: %d\n", classLabels[i], c)
		written += int64(n)
		if err != nil {
			return written, err
		}
	}
	return written, nil
}
