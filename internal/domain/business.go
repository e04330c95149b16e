package domain

import (
	"fmt"
	"strings"
	"time"
)

// Weekday ordering follows time.Weekday (Sunday = 0).
const daysPerWeek = 7

// DayHours is one weekday's open/close interval. Times are minutes from
// midnight in the business's local time. Closed means no interval that day.
type DayHours struct {
	Open   int  `json:"open"`
	Close  int  `json:"close"`
	Closed bool `json:"closed"`
}

// Business is the canonical record owned by the structured store.
// It is immutable from the pipeline's perspective; ingestion refreshes it
// out-of-band and signals invalidation.
type Business struct {
	ID        string
	Name      string
	Address   string
	Phone     string
	PriceTier int
	Hours     [daysPerWeek]DayHours
	Amenities map[string]bool
}

// OpenAt reports whether the business is open at the given local time.
func (b *Business) OpenAt(t time.Time) bool {
	h := b.Hours[t.Weekday()]
	if h.Closed {
		return false
	}
	minute := t.Hour()*60 + t.Minute()
	return minute >= h.Open && minute < h.Close
}

// HoursString renders the full weekly schedule, Monday first.
func (b *Business) HoursString() string {
	var sb strings.Builder
	for i := 0; i < daysPerWeek; i++ {
		day := time.Weekday((i + 1) % daysPerWeek) // start at Monday
		h := b.Hours[day]
		if i > 0 {
			sb.WriteString("; ")
		}
		sb.WriteString(day.String())
		sb.WriteString(" ")
		if h.Closed {
			sb.WriteString("closed")
			continue
		}
		sb.WriteString(formatMinutes(h.Open))
		sb.WriteString("-")
		sb.WriteString(formatMinutes(h.Close))
	}
	return sb.String()
}

func formatMinutes(m int) string {
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

// AmenityLabel normalizes a stored amenity key into its human label
// ("wifi_free" -> "wifi free"). Used both in rendering and in the
// review-conflict scan.
func AmenityLabel(key string) string {
	return strings.ToLower(strings.ReplaceAll(key, "_", " "))
}

// Review is anecdotal per-business content, never authoritative.
type Review struct {
	ID         string
	BusinessID string
	Rating     float64
	Text       string
	Embedding  []float32
}

// Photo is anecdotal per-business content.
type Photo struct {
	ID         string
	BusinessID string
	URL        string
	Caption    string
	Embedding  []float32
}
