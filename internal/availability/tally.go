package availability

// TallyResult is the outcome of aggregating stored events columns.
type TallyResult struct {
	Counts []int
	// Skipped counts rows that could not be decoded.
	Skipped int
	// OutOfRange counts decoded indices with no matching catalog event.
	OutOfRange int
	// FirstErr is the decode error of the first skipped row.
	FirstErr error
}

// Tally decodes each raw events column and counts every index into a
// zero-initialised slice of length size.  Undecodable rows are skipped
// rather than failing the whole aggregation.
func Tally(rows [][]byte, size int) TallyResult {
	if size < 0 {
		size = 0
	}
	res := TallyResult{Counts: make([]int, size)}
	for _, raw := range rows {
		sel, err := DecodeSelection(raw)
		if err != nil {
			res.Skipped++
			if res.FirstErr == nil {
				res.FirstErr = err
			}
			continue
		}
		for _, idx := range sel.Indices {
			if idx < 0 || idx >= size {
				res.OutOfRange++
				continue
			}
			res.Counts[idx]++
		}
	}
	return res
}
