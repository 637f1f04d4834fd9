// ABOUTME: Splits a fetched page into tombstones and live records
// ABOUTME: Pure function; partitions solely on the deletion marker
package sync

// Classification is the reconciliation plan for one page.
type Classification struct {
	ToDelete []RawRecord
	ToUpsert []RawRecord
}

// Classify partitions records on their deletion marker. Every input record
// lands in exactly one of the two slices and input order is preserved.
func Classify(records []RawRecord) Classification {
	var c Classification
	for _, rec := range records {
		if rec.Deleted {
			c.ToDelete = append(c.ToDelete, rec)
			continue
		}
		c.ToUpsert = append(c.ToUpsert, rec)
	}
	return c
}

// IsEmpty reports whether the page had nothing to reconcile.
func (c Classification) IsEmpty() bool {
	return len(c.ToDelete) == 0 && len(c.ToUpsert) == 0
}
