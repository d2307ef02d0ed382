package domain

import "time"

// TextEmbeddingEvent is one recently visited page's text embedding.
type TextEmbeddingEvent struct {
	Embedding []float32 `json:"embedding"`
	CreatedAt time.Time `json:"created_at"`
}

// UserModel is rebuilt from live browsing signals on each serving
// opportunity; it is never persisted as a whole. Segment lists are ordered
// by relevance, most relevant first.
type UserModel struct {
	InterestSegments       []string `json:"interest_segments"`
	LatentInterestSegments []string `json:"latent_interest_segments"`
	IntentSegments         []string `json:"intent_segments"`

	// Bounded rolling window of recent page embeddings.
	TextEmbeddingEvents []TextEmbeddingEvent `json:"text_embedding_events"`

	// Recently visited sites, used by anti-targeting.
	RecentSites []string `json:"recent_sites"`

	// Segments the user opted out of receiving.
	OptedOutSegments []string `json:"opted_out_segments"`
}

// TargetableSegments returns all segment lists flattened in relevance order,
// deduplicated, for catalog candidate queries.
func (u UserModel) TargetableSegments() []string {
	seen := make(map[string]struct{})
	out := make([]string, 0, len(u.IntentSegments)+len(u.InterestSegments)+len(u.LatentInterestSegments))
	for _, list := range [][]string{u.IntentSegments, u.InterestSegments, u.LatentInterestSegments} {
		for _, seg := range list {
			if _, ok := seen[seg]; ok {
				continue
			}
			seen[seg] = struct{}{}
			out = append(out, seg)
		}
	}
	return out
}
