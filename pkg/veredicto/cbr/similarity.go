package cbr

import (
	"fmt"
	"math"
	"sort"

	"github.com/ausentia/veredicto/pkg/veredicto/internalerr"
)

// Weights assigns each similarity feature its share of the overall score.
type Weights map[string]float64

// DefaultWeights is the tuned feature weighting. The categorical features
// (motivo, certificate, validation) compare exactly; the numeric ones use a
// normalized distance.
func DefaultWeights() Weights {
	return Weights{
		FeatureMotivo:           0.25,
		FeatureDuracion:         0.20,
		FeatureAusencias:        0.15,
		FeatureCertificate:      0.15,
		FeatureValidationStatus: 0.10,
		FeatureSector:           0.10,
		FeatureDeadlineExceeded: 0.05,
	}
}

// Validate checks that weights are positive and name known features.
func (w Weights) Validate() error {
	known := map[string]bool{
		FeatureMotivo: true, FeatureDuracion: true, FeatureAusencias: true,
		FeatureCertificate: true, FeatureValidationStatus: true,
		FeatureSector: true, FeatureDeadlineExceeded: true,
	}
	if len(w) == 0 {
		return fmt.Errorf("no feature weights: %w", internalerr.ErrInvalidConfig)
	}
	for name, weight := range w {
		if !known[name] {
			return fmt.Errorf("unknown feature %q: %w", name, internalerr.ErrInvalidConfig)
		}
		if weight <= 0 {
			return fmt.Errorf("weight for %q must be positive: %w", name, internalerr.ErrInvalidConfig)
		}
	}
	return nil
}

// exactMatch features compare for equality; everything else compares by
// normalized numeric distance.
var exactMatch = map[string]bool{
	FeatureMotivo:           true,
	FeatureCertificate:      true,
	FeatureValidationStatus: true,
}

// Similarity scores two feature vectors in [0,1]. Only features present in
// both vectors contribute; the result is the weighted mean of per-feature
// similarities.
func Similarity(a, b Vector, w Weights) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	var sum, totalWeight float64
	for feature, weight := range w {
		av, aok := a[feature]
		bv, bok := b[feature]
		if !aok || !bok {
			continue
		}
		sum += featureSim(feature, av, bv) * weight
		totalWeight += weight
	}
	if totalWeight == 0 {
		return 0
	}
	return sum / totalWeight
}

func featureSim(feature string, a, b float64) float64 {
	if exactMatch[feature] {
		if a == b {
			return 1
		}
		return 0
	}
	span := math.Max(math.Max(a, b), 1) // avoid dividing by zero
	return 1 - math.Abs(a-b)/span
}

// MatchingFeatures returns the features on which the two vectors agree,
// sorted by name. Numeric features count as matching within a small margin.
func MatchingFeatures(a, b Vector, w Weights) []string {
	var out []string
	for feature := range w {
		av, aok := a[feature]
		bv, bok := b[feature]
		if !aok || !bok {
			continue
		}
		if exactMatch[feature] {
			if av == bv {
				out = append(out, feature)
			}
		} else if math.Abs(av-bv) < 0.1 {
			out = append(out, feature)
		}
	}
	sort.Strings(out)
	return out
}
