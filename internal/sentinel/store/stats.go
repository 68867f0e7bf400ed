package store

import (
	"sort"
	"time"

	"github.com/BrandonDHaskell/sentinel/internal/sentinel/types"
)

// Tally builds DetectionStats from decisions in memory. Decisions before
// since are ignored. Hours are UTC and only non-empty hours are listed.
func Tally(since time.Time, decisions []types.AccessDecision) types.DetectionStats {
	out := types.DetectionStats{
		Since:     since.UTC().Format(time.RFC3339),
		ByChannel: make(map[types.Channel]int),
	}
	hours := make(map[int]int)
	for _, d := range decisions {
		if d.Timestamp.Before(since) {
			continue
		}
		out.Total++
		if d.Granted() {
			out.Granted++
		} else {
			out.Denied++
		}
		out.ByChannel[d.Channel]++
		hours[d.Timestamp.UTC().Hour()]++
	}
	for h, n := range hours {
		out.Hourly = append(out.Hourly, types.HourlyCount{Hour: h, Count: n})
	}
	sort.Slice(out.Hourly, func(i, j int) bool { return out.Hourly[i].Hour < out.Hourly[j].Hour })
	return out
}
