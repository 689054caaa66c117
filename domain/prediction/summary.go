package prediction

import "sort"

// PathwaySummary counts predictions of one pathway by category.
type PathwaySummary struct {
	Pathway    string                   `json:"pathway"`
	TotalGenes int                      `json:"total_genes"`
	Signaling  map[SignalingChange]int  `json:"signaling"`
	Transcript map[TranscriptChange]int `json:"transcript"`
	Confidence map[Confidence]int       `json:"confidence"`
}

// Summarize aggregates records per pathway, ordered by pathway name.
func Summarize(records []Record) []PathwaySummary {
	byPathway := make(map[string]*PathwaySummary)
	for _, r := range records {
		s, ok := byPathway[r.Pathway]
		if !ok {
			s = &PathwaySummary{
				Pathway:    r.Pathway,
				Signaling:  make(map[SignalingChange]int),
				Transcript: make(map[TranscriptChange]int),
				Confidence: make(map[Confidence]int),
			}
			byPathway[r.Pathway] = s
		}
		s.TotalGenes++
		s.Signaling[r.SignalingChange]++
		s.Transcript[r.TranscriptChange]++
		s.Confidence[r.Confidence]++
	}

	out := make([]PathwaySummary, 0, len(byPathway))
	for _, s := range byPathway {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Pathway < out[j].Pathway })
	return out
}

// ConfidenceDistribution counts records per tier.
func ConfidenceDistribution(records []Record) map[Confidence]int {
	out := make(map[Confidence]int, 4)
	for _, r := range records {
		out[r.Confidence]++
	}
	return out
}
