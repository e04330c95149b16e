// Package evidence merges backend results into a scored, conflict-annotated
// bundle and renders the generation context.
package evidence

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kailas-cloud/concierge/internal/domain"
)

// Final-score weights. Fixed constants of the design.
const (
	structuredWeight = 0.4
	reviewWeight     = 0.3
	photoWeight      = 0.3
)

// How many anecdotal items the rendered context carries per section.
const maxRenderedItems = 3

// Merge combines the (possibly empty, possibly partial-due-to-timeout)
// backend results into one bundle. Structured data is authoritative and is
// never overridden by anecdotal evidence.
func Merge(
	structured *domain.StructuredResult,
	reviews []domain.ReviewResult,
	photos []domain.PhotoResult,
) domain.EvidenceBundle {
	bundle := domain.EvidenceBundle{
		Reviews: reviews,
		Photos:  photos,
	}

	if structured != nil && structured.Business != nil {
		bundle.Business = structured.Business
		bundle.StructuredScore = structured.Score
		bundle.ConflictNotes = detectConflicts(structured.Business, reviews)
	}

	bundle.FinalScore = structuredWeight*bundle.StructuredScore +
		reviewWeight*avgReviewSimilarity(reviews) +
		photoWeight*avgPhotoScore(photos)

	return bundle
}

// detectConflicts scans review text for mentions of amenities the canonical
// record says the business does not have. A substring match is a
// best-effort textual heuristic, not a logical proof; the note states that
// the canonical value stands.
func detectConflicts(b *domain.Business, reviews []domain.ReviewResult) []string {
	var keys []string
	for key, has := range b.Amenities {
		if !has {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	var notes []string
	for _, key := range keys {
		label := domain.AmenityLabel(key)
		for _, r := range reviews {
			if strings.Contains(strings.ToLower(r.Review.Text), label) {
				notes = append(notes, fmt.Sprintf(
					"canonical data says %q is not available; a review mentions it, but that is anecdotal and the canonical value stands",
					label,
				))
				break
			}
		}
	}
	return notes
}

// An empty list's average is 0.
func avgReviewSimilarity(reviews []domain.ReviewResult) float64 {
	if len(reviews) == 0 {
		return 0
	}
	var sum float64
	for _, r := range reviews {
		sum += r.Similarity
	}
	return sum / float64(len(reviews))
}

func avgPhotoScore(photos []domain.PhotoResult) float64 {
	if len(photos) == 0 {
		return 0
	}
	var sum float64
	for _, p := range photos {
		sum += p.CombinedScore
	}
	return sum / float64(len(photos))
}

// RenderContext produces the generation-ready text block: four labeled
// sections in fixed order, then the instruction block. This exact shape is
// the contract the generator depends on.
func RenderContext(bundle domain.EvidenceBundle) string {
	var sb strings.Builder

	sb.WriteString("CANONICAL FACTS (authoritative):\n")
	if b := bundle.Business; b != nil {
		fmt.Fprintf(&sb, "Name: %s\n", b.Name)
		if b.Address != "" {
			fmt.Fprintf(&sb, "Address: %s\n", b.Address)
		}
		if b.Phone != "" {
			fmt.Fprintf(&sb, "Phone: %s\n", b.Phone)
		}
		if b.PriceTier > 0 {
			fmt.Fprintf(&sb, "Price tier: %s\n", strings.Repeat("$", b.PriceTier))
		}
		fmt.Fprintf(&sb, "Hours: %s\n", b.HoursString())
		writeAmenities(&sb, b.Amenities)
	} else {
		sb.WriteString("(no canonical record available)\n")
	}

	sb.WriteString("\nCONFLICT NOTES:\n")
	if len(bundle.ConflictNotes) == 0 {
		sb.WriteString("(none)\n")
	}
	for _, note := range bundle.ConflictNotes {
		fmt.Fprintf(&sb, "- %s\n", note)
	}

	sb.WriteString("\nTOP REVIEWS (anecdotal):\n")
	if len(bundle.Reviews) == 0 {
		sb.WriteString("(none)\n")
	}
	for i, r := range bundle.Reviews {
		if i >= maxRenderedItems {
			break
		}
		fmt.Fprintf(&sb, "%d. [%.1f/5] %s\n", i+1, r.Review.Rating, r.Review.Text)
	}

	sb.WriteString("\nTOP PHOTOS (anecdotal):\n")
	if len(bundle.Photos) == 0 {
		sb.WriteString("(none)\n")
	}
	for i, p := range bundle.Photos {
		if i >= maxRenderedItems {
			break
		}
		caption := p.Photo.Caption
		if caption == "" {
			caption = "(no caption)"
		}
		fmt.Fprintf(&sb, "%d. %s (%s)\n", i+1, caption, p.Photo.URL)
	}

	sb.WriteString("\nINSTRUCTIONS:\n")
	sb.WriteString("Answer the question using only the information above. ")
	sb.WriteString("Canonical facts are authoritative and override anecdotal evidence. ")
	sb.WriteString("If the answer is not in the information above, say you do not know. ")
	sb.WriteString("Never fabricate details.\n")

	return sb.String()
}

func writeAmenities(sb *strings.Builder, amenities map[string]bool) {
	if len(amenities) == 0 {
		return
	}
	keys := make([]string, 0, len(amenities))
	for k := range amenities {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	sb.WriteString("Amenities: ")
	for i, k := range keys {
		if i > 0 {
			sb.WriteString(", ")
		}
		val := "no"
		if amenities[k] {
			val = "yes"
		}
		fmt.Fprintf(sb, "%s: %s", domain.AmenityLabel(k), val)
	}
	sb.WriteString("\n")
}
