// Package tally aggregates grant recipients into ranked counts
package tally

import "sort"

// Row is one recipient's aggregated count
type Row struct {
	RecipientID int64
	Count       int64
}

// Rank groups recipient ids into per-recipient counts ordered by count
// descending. Ties keep first-appearance order so output is stable for a
// given input sequence
func Rank(recipientIDs []int64) []Row {
	if len(recipientIDs) == 0 {
		return nil
	}

	counts := make(map[int64]int64, len(recipientIDs))
	order := make([]int64, 0, len(recipientIDs))
	for _, id := range recipientIDs {
		if _, seen := counts[id]; !seen {
			order = append(order, id)
		}
		counts[id]++
	}

	rows := make([]Row, 0, len(order))
	for _, id := range order {
		rows = append(rows, Row{RecipientID: id, Count: counts[id]})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Count > rows[j].Count
	})
	return rows
}

// Total sums the counts of all rows
func Total(rows []Row) int64 {
	var n int64
	for _, r := range rows {
		n += r.Count
	}
	return n
}
