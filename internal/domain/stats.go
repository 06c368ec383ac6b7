package domain

// CampaignStats are the summary counts of a campaign's recipients. Sent includes rows that later
// progressed to DELIVERED or OPENED; Delivered includes OPENED.
type CampaignStats struct {
	Total     int
	Sent      int
	Delivered int
	Opened    int
	Failed    int
	Pending   int
}

// AggregateStats reduces per-status recipient counts into campaign stats.
func AggregateStats(counts map[RecipientStatus]int) CampaignStats {
	var stats CampaignStats
	for status, n := range counts {
		if n <= 0 {
			continue
		}
		stats.Total += n

		switch status {
		case RecipientStatusSent:
			stats.Sent += n
		case RecipientStatusDelivered:
			stats.Sent += n
			stats.Delivered += n
		case RecipientStatusOpened:
			stats.Sent += n
			stats.Delivered += n
			stats.Opened += n
		case RecipientStatusFailed:
			stats.Failed += n
		case RecipientStatusPending:
			stats.Pending += n
		}
	}
	return stats
}
