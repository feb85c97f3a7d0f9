package adintel

import (
	"math"
	"strings"
	"time"

	"github.com/sells-group/outreach-research/internal/model"
)

// Spend estimation constants.
const (
	CostPerMille = 1.5
	Currency     = "EUR"
)

const sampleCreatives = 3

// Aggregate summarises relevant ads.
func Aggregate(ads []model.ScoredAd) model.AdMetrics {
	m := model.AdMetrics{
		Total:     len(ads),
		Platforms: make(map[string]int),
		Currency:  Currency,
	}

	var latest time.Time
	var impressions float64
	seenCreative := make(map[string]bool)
	for _, ad := range ads {
		if ad.Active() {
			m.Active++
		}
		for _, p := range ad.Platforms {
			m.Platforms[strings.ToLower(p)]++
		}
		if ad.DeliveryStart.After(latest) {
			latest = ad.DeliveryStart
		}
		impressions += ad.Impressions.Midpoint()

		for _, body := range ad.CreativeBodies {
			body = strings.TrimSpace(body)
			if body == "" || seenCreative[body] || len(m.SampleCreatives) == sampleCreatives {
				continue
			}
			seenCreative[body] = true
			m.SampleCreatives = append(m.SampleCreatives, body)
		}
	}

	if !latest.IsZero() {
		m.LatestActivity = &latest
	}
	m.EstimatedSpend = math.Round(impressions/1000*CostPerMille*100) / 100
	m.Sophistication = sophistication(m.Total)
	if m.Active > 0 {
		m.AdvertisingStatus = "active advertiser"
	} else {
		m.AdvertisingStatus = "inactive advertiser"
	}
	return m
}

func sophistication(total int) string {
	switch {
	case total >= 20:
		return "high"
	case total >= 10:
		return "medium"
	case total >= 5:
		return "moderate"
	default:
		return "basic"
	}
}
