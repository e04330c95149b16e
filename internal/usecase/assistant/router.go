package assistant

import "github.com/kailas-cloud/concierge/internal/domain"

// routingTable is the fixed intent -> backend mapping. Total: every intent
// maps to a non-empty decision.
var routingTable = map[domain.Intent]domain.RoutingDecision{
	domain.IntentOperational: {UseStructured: true},
	// Amenity answers come from canonical data but benefit from a review
	// cross-check for conflict notes.
	domain.IntentAmenity: {UseStructured: true, UseReviewVector: true},
	domain.IntentQuality: {UseReviewVector: true, UsePhotoHybrid: true},
	// Photo questions still get the structured fallback so a degraded
	// answer has canonical facts to stand on.
	domain.IntentPhoto:   {UsePhotoHybrid: true, UseStructured: true},
	domain.IntentUnknown: {UseStructured: true, UseReviewVector: true, UsePhotoHybrid: true},
}

// Route maps a classified intent to a routing decision. Deterministic;
// unrecognized intents fall back to structured only.
func Route(intent domain.Intent) domain.RoutingDecision {
	if d, ok := routingTable[intent]; ok {
		return d
	}
	return domain.RoutingDecision{UseStructured: true}
}
