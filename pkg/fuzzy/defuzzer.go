package fuzzy

// Defuzzer accumulates (bucket, degree) pairs and reports their weighted
// centroid. The zero value is reset.
type Defuzzer struct {
	Numerator   int64
	Denominator int64
}

// Feed adds one bucket weighted by degree.
func (d *Defuzzer) Feed(bucket, degree int64) {
	d.Numerator += bucket * degree
	d.Denominator += degree
}

// Defuzz returns floor(Numerator / max(1, Denominator)). With nothing fed
// the result is 0.
func (d *Defuzzer) Defuzz() int64 {
	return FloorDiv(d.Numerator, max(1, d.Denominator))
}

// Reset clears both accumulators.
func (d *Defuzzer) Reset() {
	d.Numerator = 0
	d.Denominator = 0
}
