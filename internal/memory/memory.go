// Package memory implements AETHERA's Report Memory: a RAG-style store
// of past report sections, retrievable by embedding similarity so the
// report generator can ground new narratives in precedent. Cosine
// similarity is computed with gonum/floats, the same numerics package
// InMAP itself imports in vargrid.go and io.go for vector
// arithmetic — reused here rather than hand-rolled dot products.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/aethera-eia/aethera/internal/errs"
)

// DefaultK and DefaultMinScore are the retrieval defaults the RAG
// parameters resolve to (k=3, min_score=0.7).
const (
	DefaultK        = 3
	DefaultMinScore = 0.7
)

// SectionInput is one section of a report as given to Upsert. Embedding
// is optional: when nil, the vector is computed lazily on first
// retrieval rather than at write time.
type SectionInput struct {
	SectionID string
	Text      string
	Metadata  map[string]interface{}
	Embedding []float32
}

// Section is one stored (report_id, section_id) memory record.
type Section struct {
	ReportID  string
	SectionID string
	Text      string
	Metadata  map[string]interface{}
	Embedding []float32 // nil until computed, lazily, on first retrieval
	CreatedAt time.Time
}

// Feedback is one piece of analyst feedback recorded against a report.
type Feedback struct {
	Reviewer string
	Rating   int // 1-5
	Text     string
	At       time.Time
}

// Match is one retrieval hit: a section, its similarity score, and the
// report it belongs to.
type Match struct {
	ReportID  string
	SectionID string
	Score     float64
	Text      string
	Metadata  map[string]interface{}
}

type sectionKey struct {
	reportID  string
	sectionID string
}

// Store is an in-memory Report Memory backed by an Embedder. A
// production deployment would back Store with a vector database; this
// implementation keeps the same interface so the backing store can be
// swapped without touching callers, mirroring internal/tracker's
// backend-swap design.
type Store struct {
	embedder Embedder

	mu       sync.RWMutex
	sections map[sectionKey]Section
	feedback map[string][]Feedback // keyed by report_id
}

// NewStore builds a Store using the given Embedder.
func NewStore(embedder Embedder) *Store {
	return &Store{
		embedder: embedder,
		sections: map[sectionKey]Section{},
		feedback: map[string][]Feedback{},
	}
}

// Upsert stores or replaces reportID's sections. A section whose
// Embedding is nil is stored unembedded; Embed computes it lazily the
// first time that section is considered by FindSimilar.
func (s *Store) Upsert(ctx context.Context, reportID string, sections []SectionInput) ([]Section, error) {
	out := make([]Section, 0, len(sections))

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, in := range sections {
		key := sectionKey{reportID: reportID, sectionID: in.SectionID}
		rec := Section{
			ReportID:  reportID,
			SectionID: in.SectionID,
			Text:      in.Text,
			Metadata:  in.Metadata,
			Embedding: in.Embedding,
			CreatedAt: time.Now(),
		}
		if existing, ok := s.sections[key]; ok {
			rec.CreatedAt = existing.CreatedAt
		}
		s.sections[key] = rec
		out = append(out, rec)
	}
	return out, nil
}

// FindSimilar embeds query and returns up to k sections whose cosine
// similarity meets minScore, highest similarity first. filter restricts
// candidates to sections whose Metadata contains every key/value pair
// in filter; a nil or empty filter matches everything. A minScore <= 0
// uses DefaultMinScore; a k <= 0 uses DefaultK.
//
// Sections stored without an embedding are embedded here, on first
// retrieval, and the computed vector is cached back onto the record.
func (s *Store) FindSimilar(ctx context.Context, query string, k int, minScore float64, filter map[string]interface{}) ([]Match, error) {
	if k <= 0 {
		k = DefaultK
	}
	if minScore <= 0 {
		minScore = DefaultMinScore
	}
	queryVec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, errs.Wrap(errs.StorageError, "report_memory_find_similar", err)
	}

	s.mu.Lock()
	candidates := make([]Section, 0, len(s.sections))
	for key, rec := range s.sections {
		if !matchesFilter(rec.Metadata, filter) {
			continue
		}
		if rec.Embedding == nil {
			vec, err := s.embedder.Embed(ctx, rec.Text)
			if err != nil {
				s.mu.Unlock()
				return nil, errs.Wrap(errs.StorageError, "report_memory_lazy_embed", err)
			}
			rec.Embedding = vec
			s.sections[key] = rec
		}
		candidates = append(candidates, rec)
	}
	s.mu.Unlock()

	matches := make([]Match, 0, len(candidates))
	for _, rec := range candidates {
		score := cosineSimilarity(queryVec, rec.Embedding)
		if score >= minScore {
			matches = append(matches, Match{
				ReportID:  rec.ReportID,
				SectionID: rec.SectionID,
				Score:     score,
				Text:      rec.Text,
				Metadata:  rec.Metadata,
			})
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		if matches[i].ReportID != matches[j].ReportID {
			return matches[i].ReportID < matches[j].ReportID
		}
		return matches[i].SectionID < matches[j].SectionID
	})
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

// matchesFilter reports whether metadata contains every key/value pair
// in filter.
func matchesFilter(metadata, filter map[string]interface{}) bool {
	if len(filter) == 0 {
		return true
	}
	if metadata == nil {
		return false
	}
	for k, v := range filter {
		mv, ok := metadata[k]
		if !ok || mv != v {
			return false
		}
	}
	return true
}

// RecordFeedback appends an analyst's feedback to reportID's log.
// reportID must have at least one stored section.
func (s *Store) RecordFeedback(reportID, reviewer string, rating int, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	found := false
	for key := range s.sections {
		if key.reportID == reportID {
			found = true
			break
		}
	}
	if !found {
		return errs.New(errs.InvalidInput, "report_memory_feedback", "no such report: "+reportID)
	}
	s.feedback[reportID] = append(s.feedback[reportID], Feedback{
		Reviewer: reviewer,
		Rating:   rating,
		Text:     text,
		At:       time.Now(),
	})
	return nil
}

// Feedback returns the feedback log recorded against reportID.
func (s *Store) Feedback(reportID string) []Feedback {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Feedback(nil), s.feedback[reportID]...)
}

// cosineSimilarity returns the cosine similarity of a and b, 0 if
// either is a zero vector or their lengths differ.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	af := make([]float64, len(a))
	bf := make([]float64, len(b))
	for i := range a {
		af[i] = float64(a[i])
		bf[i] = float64(b[i])
	}
	normA := floats.Norm(af, 2)
	normB := floats.Norm(bf, 2)
	if normA == 0 || normB == 0 {
		return 0
	}
	return floats.Dot(af, bf) / (normA * normB)
}
