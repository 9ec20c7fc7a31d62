package advisor

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"

	"FinGenius/internal/domain/models"
	domsvc "FinGenius/internal/domain/service"
)

const (
	CategorizerModelKey = "categorizer/transactions"
	CategorizerKind     = "tfidf-centroid"

	categorizerFormat  = 1
	maxVocabularyTerms = 1000
	minDistinctLabels  = 2
	minTokenRunes      = 2
	epsilon            = 1e-12
)

var stopWords = func() map[string]struct{} {
	words := strings.Fields(`a about above after again against all am an and any are as at be because been
before being below between both but by can could did do does doing down during each few for from further
had has have having he her here hers him his how i if in into is it its itself just me more most my no nor
not now of off on once only or other our ours out over own same she should so some such than that the their
theirs them then there these they this those through to too under until up very was we were what when where
which while who whom why will with you your yours`)
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}()

// categorizerModel is the full persisted state. Labels and centroids travel
// together so a record can never hold one without the other.
type categorizerModel struct {
	Format     int         `json:"format"`
	Vocabulary []string    `json:"vocabulary"`
	IDF        []float64   `json:"idf"`
	Labels     []string    `json:"labels"`
	Counts     []int       `json:"counts"`
	Centroids  [][]float64 `json:"centroids"`
	TrainedAt  time.Time   `json:"trained_at"`

	index map[string]int
}

// Categorizer maps a transaction description to a category using TF-IDF
// features and the nearest class centroid by cosine similarity.
type Categorizer struct {
	mu    sync.RWMutex
	model *categorizerModel
}

func NewCategorizer() *Categorizer { return &Categorizer{} }

func (c *Categorizer) Trained() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.model != nil
}

// Labels returns the learned categories in a stable order.
func (c *Categorizer) Labels() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.model == nil {
		return nil
	}
	return append([]string(nil), c.model.Labels...)
}

func (c *Categorizer) Train(examples []models.LabeledExample) error {
	if len(examples) == 0 {
		return fmt.Errorf("categorizer: no examples: %w", models.ErrInsufficientData)
	}

	labelSet := map[string]struct{}{}
	docs := make([][]string, 0, len(examples))
	for _, ex := range examples {
		if strings.TrimSpace(ex.Category) == "" {
			continue
		}
		labelSet[ex.Category] = struct{}{}
		docs = append(docs, tokenize(ex.Description))
	}
	if len(labelSet) < minDistinctLabels {
		return fmt.Errorf("categorizer: need at least %d distinct categories, got %d: %w",
			minDistinctLabels, len(labelSet), models.ErrInsufficientData)
	}

	m := &categorizerModel{Format: categorizerFormat, TrainedAt: time.Now().UTC()}
	m.Vocabulary, m.IDF = buildVocabulary(docs)
	m.buildIndex()

	for l := range labelSet {
		m.Labels = append(m.Labels, l)
	}
	sort.Strings(m.Labels)
	labelIdx := make(map[string]int, len(m.Labels))
	for i, l := range m.Labels {
		labelIdx[l] = i
	}

	m.Counts = make([]int, len(m.Labels))
	m.Centroids = make([][]float64, len(m.Labels))
	for i := range m.Centroids {
		m.Centroids[i] = make([]float64, len(m.Vocabulary))
	}
	d := 0
	for _, ex := range examples {
		if strings.TrimSpace(ex.Category) == "" {
			continue
		}
		li := labelIdx[ex.Category]
		vec := m.vectorize(docs[d])
		d++
		m.Counts[li]++
		for j, v := range vec {
			m.Centroids[li][j] += v
		}
	}
	for i := range m.Centroids {
		normalize(m.Centroids[i])
	}

	c.mu.Lock()
	c.model = m
	c.mu.Unlock()
	return nil
}

// Predict always returns one learned label. Text sharing no vocabulary with
// any class falls back to the most frequent class.
func (c *Categorizer) Predict(description string) (string, error) {
	c.mu.RLock()
	m := c.model
	c.mu.RUnlock()
	if m == nil {
		return "", models.ErrUntrainedModel
	}

	vec := m.vectorize(tokenize(description))
	best, bestScore := -1, 0.0
	for i, centroid := range m.Centroids {
		score := dot(vec, centroid)
		if score <= epsilon {
			continue
		}
		if best < 0 || score > bestScore+epsilon ||
			(math.Abs(score-bestScore) <= epsilon && m.Counts[i] > m.Counts[best]) {
			best, bestScore = i, score
		}
	}
	if best < 0 {
		best = m.majority()
	}
	return m.Labels[best], nil
}

// Snapshot serializes the trained model as one self-contained blob.
func (c *Categorizer) Snapshot() ([]byte, error) {
	c.mu.RLock()
	m := c.model
	c.mu.RUnlock()
	if m == nil {
		return nil, models.ErrUntrainedModel
	}
	return json.Marshal(m)
}

// Restore replaces the model with a persisted blob after validating it.
func (c *Categorizer) Restore(blob []byte) error {
	var m categorizerModel
	if err := json.Unmarshal(blob, &m); err != nil {
		return fmt.Errorf("decode categorizer: %w: %v", models.ErrCorruptModel, err)
	}
	if err := m.validate(); err != nil {
		return err
	}
	m.buildIndex()

	c.mu.Lock()
	c.model = &m
	c.mu.Unlock()
	return nil
}

func (m *categorizerModel) validate() error {
	switch {
	case m.Format != categorizerFormat:
		return fmt.Errorf("categorizer format %d: %w", m.Format, models.ErrCorruptModel)
	case len(m.Labels) < minDistinctLabels:
		return fmt.Errorf("categorizer has %d labels: %w", len(m.Labels), models.ErrCorruptModel)
	case len(m.Centroids) != len(m.Labels) || len(m.Counts) != len(m.Labels):
		return fmt.Errorf("categorizer labels and centroids disagree: %w", models.ErrCorruptModel)
	case len(m.IDF) != len(m.Vocabulary):
		return fmt.Errorf("categorizer vocabulary and idf disagree: %w", models.ErrCorruptModel)
	}
	for _, c := range m.Centroids {
		if len(c) != len(m.Vocabulary) {
			return fmt.Errorf("categorizer centroid width: %w", models.ErrCorruptModel)
		}
	}
	return nil
}

func (m *categorizerModel) buildIndex() {
	m.index = make(map[string]int, len(m.Vocabulary))
	for i, t := range m.Vocabulary {
		m.index[t] = i
	}
}

func (m *categorizerModel) majority() int {
	best := 0
	for i, n := range m.Counts {
		if n > m.Counts[best] {
			best = i
		}
	}
	return best
}

// vectorize returns an L2-normalized TF-IDF vector.
func (m *categorizerModel) vectorize(tokens []string) []float64 {
	vec := make([]float64, len(m.Vocabulary))
	for _, t := range tokens {
		if j, ok := m.index[t]; ok {
			vec[j]++
		}
	}
	for j := range vec {
		vec[j] *= m.IDF[j]
	}
	normalize(vec)
	return vec
}

// buildVocabulary keeps the most document-frequent terms (ties broken
// alphabetically) and computes smoothed idf = ln((1+n)/(1+df)) + 1.
func buildVocabulary(docs [][]string) ([]string, []float64) {
	df := map[string]int{}
	for _, doc := range docs {
		seen := map[string]struct{}{}
		for _, t := range doc {
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			df[t]++
		}
	}
	terms := make([]string, 0, len(df))
	for t := range df {
		terms = append(terms, t)
	}
	sort.Slice(terms, func(i, j int) bool {
		if df[terms[i]] != df[terms[j]] {
			return df[terms[i]] > df[terms[j]]
		}
		return terms[i] < terms[j]
	})
	if len(terms) > maxVocabularyTerms {
		terms = terms[:maxVocabularyTerms]
	}
	sort.Strings(terms)

	n := float64(len(docs))
	idf := make([]float64, len(terms))
	for i, t := range terms {
		idf[i] = math.Log((1+n)/(1+float64(df[t]))) + 1
	}
	return terms, idf
}

func tokenize(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := fields[:0]
	for _, f := range fields {
		if len([]rune(f)) < minTokenRunes {
			continue
		}
		if _, stop := stopWords[f]; stop {
			continue
		}
		out = append(out, f)
	}
	return out
}

func normalize(v []float64) {
	n := math.Sqrt(dot(v, v))
	if n == 0 {
		return
	}
	for i := range v {
		v[i] /= n
	}
}

func dot(a, b []float64) float64 {
	s := 0.0
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

var _ domsvc.Categorizer = (*Categorizer)(nil)
