package performance

// Buckets holds the shared matrix bucket boundaries. Boundaries are
// ascending; a raw value is rounded up to the nearest boundary and
// clamped into the last bucket when above range, never dropped.
type Buckets struct {
	OpenLeads []int
	Revenue   []int
}

// DefaultBuckets returns the production bucket boundaries: open-leads
// 10..140 in steps of 10, revenue 3000..69000 in steps of 6000 with a
// 70000 cap bucket.
func DefaultBuckets() Buckets {
	openLeads := make([]int, 0, 14)
	for b := 10; b <= 140; b += 10 {
		openLeads = append(openLeads, b)
	}

	revenue := make([]int, 0, 13)
	for b := 3000; b <= 69000; b += 6000 {
		revenue = append(revenue, b)
	}
	revenue = append(revenue, 70000)

	return Buckets{OpenLeads: openLeads, Revenue: revenue}
}

// BucketFor rounds value up to the nearest boundary, clamping to the
// last one. boundaries must be non-empty and ascending.
func BucketFor(value float64, boundaries []int) int {
	for _, b := range boundaries {
		if value <= float64(b) {
			return b
		}
	}
	return boundaries[len(boundaries)-1]
}
