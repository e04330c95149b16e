package business

import (
	"encoding/json"
	"fmt"

	"github.com/kailas-cloud/concierge/internal/domain"
)

// hoursDTO is the JSONB shape of one weekday interval, indexed by
// time.Weekday (Sunday first).
type hoursDTO struct {
	Open   int  `json:"open"`
	Close  int  `json:"close"`
	Closed bool `json:"closed"`
}

func hoursFromJSON(data []byte) ([7]domain.DayHours, error) {
	var out [7]domain.DayHours
	if len(data) == 0 {
		return out, nil
	}
	var rows []hoursDTO
	if err := json.Unmarshal(data, &rows); err != nil {
		return out, fmt.Errorf("parse hours: %w", err)
	}
	if len(rows) != len(out) {
		return out, fmt.Errorf("expected 7 weekday intervals, got %d", len(rows))
	}
	for i, h := range rows {
		out[i] = domain.DayHours{Open: h.Open, Close: h.Close, Closed: h.Closed}
	}
	return out, nil
}

func amenitiesFromJSON(data []byte) (map[string]bool, error) {
	out := map[string]bool{}
	if len(data) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("parse amenities: %w", err)
	}
	return out, nil
}
