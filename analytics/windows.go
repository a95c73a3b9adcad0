package analytics

import "time"

// historySlots is fixed at 24 regardless of configured history_hours
// (§4.3.2, §6.5 "fixed to 24-slot output").
const historySlots = 24

// windows holds the computed time boundaries for one pass (§4.3.2).
type windows struct {
	tLast       time.Time
	tEnd        time.Time
	currentFrom time.Time
	// bucketStarts[i] is the start of hourly bucket i, i in 0..23,
	// starting at tEnd-25h. bucketStarts[23] is the last bucket, i.e.
	// [tEnd-2h, tEnd-1h); the hour [tEnd-1h, tEnd) is in no bucket.
	bucketStarts [historySlots]time.Time
}

// computeWindows derives T_last/T_end/current window/history buckets
// from the max created_at across records (§4.3.2). When records is
// empty, tLast defaults to now so the pass still emits a well-formed,
// all-zero snapshot.
func computeWindows(records []*record, currentWindow time.Duration) windows {
	tLast := time.Now().UTC()
	first := true
	for _, r := range records {
		if first || r.createdAt.After(tLast) {
			tLast = r.createdAt
			first = false
		}
	}

	tEnd := roundUpToHour(tLast)
	w := windows{
		tLast:       tLast,
		tEnd:        tEnd,
		currentFrom: tLast.Add(-currentWindow),
	}
	// Bucket i in 0..23: [T_end-(25-i)h, T_end-(24-i)h).
	for i := 0; i < historySlots; i++ {
		w.bucketStarts[i] = tEnd.Add(-time.Duration(25-i) * time.Hour)
	}
	return w
}

// roundUpToHour rounds t up to the next whole hour; a time already on
// the hour boundary is returned unchanged.
func roundUpToHour(t time.Time) time.Time {
	truncated := t.Truncate(time.Hour)
	if truncated.Equal(t) {
		return truncated
	}
	return truncated.Add(time.Hour)
}

// inCurrentWindow reports whether r falls in [T_last-W_c, T_last].
func (w windows) inCurrentWindow(r *record) bool {
	return !r.createdAt.Before(w.currentFrom) && !r.createdAt.After(w.tLast)
}

// inHistoryWindow reports whether r falls anywhere in the historical
// window [bucketStarts[0], tEnd). That span is 25 hours: it includes
// the final hour [tEnd-1h, tEnd), which bucketOf maps to no bucket.
func (w windows) inHistoryWindow(r *record) bool {
	return !r.createdAt.Before(w.bucketStarts[0]) && r.createdAt.Before(w.tEnd)
}

// bucketOf returns the index (0..23) of the hourly bucket containing
// r.createdAt, or -1 if out of range.
func (w windows) bucketOf(r *record) int {
	for i := historySlots - 1; i >= 0; i-- {
		start := w.bucketStarts[i]
		end := start.Add(time.Hour)
		if !r.createdAt.Before(start) && r.createdAt.Before(end) {
			return i
		}
	}
	return -1
}
