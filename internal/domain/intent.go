package domain

import "strings"

// Intent classifies what a question is asking about. Produced once per
// request by the classifier and drives backend routing.
type Intent string

const (
	// IntentOperational covers hours, open-now, location, phone.
	IntentOperational Intent = "OPERATIONAL"
	// IntentAmenity covers feature questions (wifi, parking, outdoor seating).
	IntentAmenity Intent = "AMENITY"
	// IntentQuality covers subjective questions answered from reviews.
	IntentQuality Intent = "QUALITY"
	// IntentPhoto covers visual questions (what does it look like).
	IntentPhoto Intent = "PHOTO"
	// IntentUnknown is the classifier's fallback.
	IntentUnknown Intent = "UNKNOWN"
)

// ParseIntent maps a classifier label to an Intent, defaulting to UNKNOWN.
func ParseIntent(label string) Intent {
	switch Intent(strings.ToUpper(strings.TrimSpace(label))) {
	case IntentOperational:
		return IntentOperational
	case IntentAmenity:
		return IntentAmenity
	case IntentQuality:
		return IntentQuality
	case IntentPhoto:
		return IntentPhoto
	default:
		return IntentUnknown
	}
}

// Classification is the classifier's full output for one question.
type Classification struct {
	Intent     Intent
	Confidence float64
	ElapsedMs  int64
}

// RoutingDecision selects which search backends a request fans out to.
// At least one flag is always set.
type RoutingDecision struct {
	UseStructured   bool
	UseReviewVector bool
	UsePhotoHybrid  bool
}
