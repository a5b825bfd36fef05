package model

// PerformanceMatrix maps open-leads bucket x revenue bucket to a
// conversion rate in [0,1]. A nil cell means no sample was ever observed
// there. Every (row, col) pair of the configured buckets is present.
type PerformanceMatrix map[int]map[int]*float64

// NewPerformanceMatrix builds an all-nil matrix over the given buckets.
func NewPerformanceMatrix(openLeadsBuckets, revenueBuckets []int) PerformanceMatrix {
	m := make(PerformanceMatrix, len(openLeadsBuckets))
	for _, ol := range openLeadsBuckets {
		row := make(map[int]*float64, len(revenueBuckets))
		for _, rev := range revenueBuckets {
			row[rev] = nil
		}
		m[ol] = row
	}
	return m
}

// At returns the cell value, or nil when the cell is absent or empty.
func (m PerformanceMatrix) At(openLeads, revenue int) *float64 {
	row, ok := m[openLeads]
	if !ok {
		return nil
	}
	return row[revenue]
}

// Set stores a conversion rate into a cell.
func (m PerformanceMatrix) Set(openLeads, revenue int, rate float64) {
	row, ok := m[openLeads]
	if !ok {
		row = make(map[int]*float64)
		m[openLeads] = row
	}
	v := rate
	row[revenue] = &v
}

// Clone returns a deep copy.
func (m PerformanceMatrix) Clone() PerformanceMatrix {
	out := make(PerformanceMatrix, len(m))
	for ol, row := range m {
		cp := make(map[int]*float64, len(row))
		for rev, v := range row {
			if v == nil {
				cp[rev] = nil
			} else {
				val := *v
				cp[rev] = &val
			}
		}
		out[ol] = cp
	}
	return out
}

// FilledCells counts cells that have observed at least one sample.
func (m PerformanceMatrix) FilledCells() int {
	n := 0
	for _, row := range m {
		for _, v := range row {
			if v != nil {
				n++
			}
		}
	}
	return n
}

// MeanConversion averages the filled cells. Returns nil for an empty matrix.
func (m PerformanceMatrix) MeanConversion() *float64 {
	var sum float64
	var n int
	for _, row := range m {
		for _, v := range row {
			if v != nil {
				sum += *v
				n++
			}
		}
	}
	if n == 0 {
		return nil
	}
	mean := sum / float64(n)
	return &mean
}
