package rag

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
)

var (
	ErrDimensionMismatch = errors.New("rag: dimension mismatch")
	ErrEmptyVector       = errors.New("rag: empty vector")
	ErrZeroMagnitude     = errors.New("rag: zero-magnitude vector")
	ErrNonFinite         = errors.New("rag: non-finite vector component")
	ErrUnknownMetric     = errors.New("rag: unknown similarity metric")
)

// Metric selects how a query is scored against a document.
type Metric int

const (
	// MetricCosine is the dot product divided by both magnitudes.
	MetricCosine Metric = iota
	// MetricDot is the plain dot product.
	MetricDot
)

func (m Metric) String() string {
	switch m {
	case MetricCosine:
		return "cosine"
	case MetricDot:
		return "dot"
	default:
		return fmt.Sprintf("metric(%d)", int(m))
	}
}

func (m Metric) valid() bool {
	return m == MetricCosine || m == MetricDot
}

// ParseMetric maps a config value to a Metric.
func ParseMetric(s string) (Metric, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "cosine":
		return MetricCosine, nil
	case "dot", "dot_product":
		return MetricDot, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownMetric, s)
}

func dot(a, b []float64) float64 {
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

// magnitude returns the Euclidean norm of v, scaled by the largest
// component so that extreme but finite values neither overflow nor
// underflow.
func magnitude(v []float64) float64 {
	var scale float64
	for _, x := range v {
		scale = max(scale, math.Abs(x))
	}
	if scale == 0 {
		return 0
	}
	var sum float64
	for _, x := range v {
		r := x / scale
		sum += r * r
	}
	return scale * math.Sqrt(sum)
}

// cosine divides each component by its vector's magnitude before
// multiplying, keeping the products in range.
func cosine(a, b []float64, ma, mb float64) float64 {
	var sum float64
	for i := range a {
		sum += (a[i] / ma) * (b[i] / mb)
	}
	return sum
}

func checkFinite(v []float64) error {
	for i, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return fmt.Errorf("%w: component %d is %v", ErrNonFinite, i, x)
		}
	}
	return nil
}

// Similarity scores two equal-length vectors with the given metric.
func Similarity(a, b []float64, metric Metric) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d vs %d", ErrDimensionMismatch, len(a), len(b))
	}
	if len(a) == 0 {
		return 0, ErrEmptyVector
	}
	if err := checkFinite(a); err != nil {
		return 0, err
	}
	if err := checkFinite(b); err != nil {
		return 0, err
	}
	switch metric {
	case MetricDot:
		score := dot(a, b)
		if math.IsNaN(score) || math.IsInf(score, 0) {
			return 0, fmt.Errorf("%w: dot product overflows", ErrNonFinite)
		}
		return score, nil
	case MetricCosine:
		ma, mb := magnitude(a), magnitude(b)
		if ma == 0 || mb == 0 {
			return 0, ErrZeroMagnitude
		}
		return cosine(a, b, ma, mb), nil
	}
	return 0, fmt.Errorf("%w: %s", ErrUnknownMetric, metric)
}

// Rank scores every document in corpus against query and returns all of
// them ordered by descending score. Equal scores keep corpus order.
//
// The whole corpus is validated before any score is computed, so a
// malformed entry fails the call without a partial ranking. An empty
// corpus yields an empty, non-nil result.
func Rank(query []float64, corpus Corpus, metric Metric) ([]RankedResult, error) {
	if !metric.valid() {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMetric, metric)
	}
	if len(query) == 0 {
		return nil, fmt.Errorf("%w: query", ErrEmptyVector)
	}
	if err := checkFinite(query); err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	var qmag float64
	if metric == MetricCosine {
		qmag = magnitude(query)
		if qmag == 0 {
			return nil, fmt.Errorf("%w: query", ErrZeroMagnitude)
		}
	}

	var dmags []float64
	if metric == MetricCosine {
		dmags = make([]float64, len(corpus))
	}
	for i, doc := range corpus {
		if len(doc.Embedding) == 0 {
			return nil, fmt.Errorf("%w: document %d (%s)", ErrEmptyVector, i, doc.ID)
		}
		if len(doc.Embedding) != len(query) {
			return nil, fmt.Errorf("%w: document %d (%s) has %d dimensions, query has %d",
				ErrDimensionMismatch, i, doc.ID, len(doc.Embedding), len(query))
		}
		if err := checkFinite(doc.Embedding); err != nil {
			return nil, fmt.Errorf("document %d (%s): %w", i, doc.ID, err)
		}
		if metric == MetricCosine {
			dmags[i] = magnitude(doc.Embedding)
			if dmags[i] == 0 {
				return nil, fmt.Errorf("%w: document %d (%s)", ErrZeroMagnitude, i, doc.ID)
			}
		}
	}

	results := make([]RankedResult, len(corpus))
	for i, doc := range corpus {
		var score float64
		if metric == MetricCosine {
			score = cosine(query, doc.Embedding, qmag, dmags[i])
		} else {
			score = dot(query, doc.Embedding)
		}
		if math.IsNaN(score) || math.IsInf(score, 0) {
			return nil, fmt.Errorf("%w: score for document %d (%s) overflows", ErrNonFinite, i, doc.ID)
		}
		results[i] = RankedResult{ID: doc.ID, Score: score}
	}

	slices.SortStableFunc(results, func(a, b RankedResult) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		}
		return 0
	})
	return results, nil
}
