package series

import (
	"errors"
	"fmt"
)

// DefaultCapacity is the bounded window length for every time series. The
// value matches the dashboard plot width the store was built for.
const DefaultCapacity = 500

// ErrInsufficientData is returned when a caller asks for a larger window than
// a series can ever hold, or when an eligibility check needs more real
// samples than have been appended.
var ErrInsufficientData = errors.New("series: insufficient data")

// TimeSeries is a fixed-capacity FIFO of float64 samples. It starts
// zero-filled at full length, so readers always see a complete window; the
// real-sample counter distinguishes appended data from the synthetic zero
// fill. Not safe for concurrent use: ingestion is single-goroutine by
// design.
type TimeSeries struct {
	buf  []float64
	next int // ring index of the next write (== index of the oldest sample)
	real int // number of genuine appends, saturates at capacity
}

// NewTimeSeries returns a zero-filled series of the given capacity.
func NewTimeSeries(capacity int) *TimeSeries {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &TimeSeries{buf: make([]float64, capacity)}
}

// Cap returns the fixed capacity of the series.
func (s *TimeSeries) Cap() int { return len(s.buf) }

// RealSamples returns how many genuine samples the window currently holds,
// capped at capacity. Values below capacity mean the tail of the window is
// still synthetic zero fill.
func (s *TimeSeries) RealSamples() int { return s.real }

// Append pushes one sample, evicting the oldest.
func (s *TimeSeries) Append(v float64) {
	s.buf[s.next] = v
	s.next++
	if s.next == len(s.buf) {
		s.next = 0
	}
	if s.real < len(s.buf) {
		s.real++
	}
}

// Window copies the most recent n samples, oldest first. Zero fill from the
// startup state counts as data; only n > capacity fails.
func (s *TimeSeries) Window(n int) ([]float64, error) {
	if n <= 0 || n > len(s.buf) {
		return nil, fmt.Errorf("%w: window %d of capacity %d", ErrInsufficientData, n, len(s.buf))
	}
	out := make([]float64, n)
	start := s.next - n
	if start < 0 {
		start += len(s.buf)
	}
	for i := 0; i < n; i++ {
		idx := start + i
		if idx >= len(s.buf) {
			idx -= len(s.buf)
		}
		out[i] = s.buf[idx]
	}
	return out, nil
}

// Latest returns the most recently appended sample (zero before any append).
func (s *TimeSeries) Latest() float64 {
	idx := s.next - 1
	if idx < 0 {
		idx = len(s.buf) - 1
	}
	return s.buf[idx]
}
