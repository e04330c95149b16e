package openai

import (
	"testing"

	"github.com/kailas-cloud/concierge/internal/domain"
)

func TestParseLabel(t *testing.T) {
	tests := []struct {
		name           string
		reply          string
		wantIntent     domain.Intent
		wantConfidence float64
	}{
		{"well formed", "OPERATIONAL 0.95", domain.IntentOperational, 0.95},
		{"lowercase label", "amenity 0.8", domain.IntentAmenity, 0.8},
		{"surrounding whitespace", "  QUALITY 0.7  ", domain.IntentQuality, 0.7},
		{"label only", "PHOTO", domain.IntentPhoto, unparsedConfidence},
		{"unknown label", "RANDOM 0.9", domain.IntentUnknown, 0.9},
		{"empty reply", "", domain.IntentUnknown, unparsedConfidence},
		{"garbage confidence", "OPERATIONAL high", domain.IntentOperational, unparsedConfidence},
		{"confidence above one", "OPERATIONAL 1.5", domain.IntentOperational, unparsedConfidence},
		{"negative confidence", "OPERATIONAL -0.2", domain.IntentOperational, unparsedConfidence},
		{"trailing chatter", "QUALITY 0.85 because the question asks", domain.IntentQuality, 0.85},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			intent, confidence := parseLabel(tt.reply)
			if intent != tt.wantIntent {
				t.Fatalf("intent = %s, want %s", intent, tt.wantIntent)
			}
			if confidence != tt.wantConfidence {
				t.Fatalf("confidence = %v, want %v", confidence, tt.wantConfidence)
			}
		})
	}
}
