package domain

// StructuredResult is the structured backend's top match: the canonical
// business plus which fields matched the question and how well.
type StructuredResult struct {
	Business      *Business
	MatchedFields []string
	Score         float64
}

// ReviewResult is one review hit with its vector similarity in [0,1].
type ReviewResult struct {
	Review     Review
	Similarity float64
}

// PhotoResult is one photo hit. CombinedScore blends caption relevance
// and image similarity, each in [0,1].
type PhotoResult struct {
	Photo           Photo
	CaptionScore    float64
	ImageSimilarity float64
	CombinedScore   float64
}

// EvidenceBundle is the orchestrator's merged view of everything the
// backends returned for one request. Built once, rendered once, discarded.
type EvidenceBundle struct {
	Business        *Business
	StructuredScore float64
	Reviews         []ReviewResult
	Photos          []PhotoResult
	FinalScore      float64
	ConflictNotes   []string
}

// Answer is the pipeline's final product for one request.
type Answer struct {
	Text       string         `json:"answer"`
	Confidence float64        `json:"confidence"`
	Intent     Intent         `json:"intent"`
	Evidence   EvidenceCounts `json:"evidence"`
	LatencyMs  int64          `json:"latency_ms"`
	Degraded   bool           `json:"degraded,omitempty"`
	FromCache  bool           `json:"from_cache,omitempty"`
}

// EvidenceCounts summarizes what backed the answer.
type EvidenceCounts struct {
	Structured  bool `json:"structured"`
	ReviewsUsed int  `json:"reviews_used"`
	PhotosUsed  int  `json:"photos_used"`
}
