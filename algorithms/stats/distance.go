package stats

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// DistanceMetric represents different distance/similarity measures
type DistanceMetric int

const (
	EuclideanDistance DistanceMetric = iota
	CosineDistance
	SymmetricKLDistance
	JensenShannonDistance
)

// probabilityFloor keeps empty histogram bins from producing infinite
// divergences.
const probabilityFloor = 1e-10

// DistanceFunction is a function type for computing distance between two vectors
type DistanceFunction func(a, b []float64) float64

// GetDistanceFunction returns the appropriate distance function for the given metric
func GetDistanceFunction(metric DistanceMetric) DistanceFunction {
	switch metric {
	case CosineDistance:
		return CosineDistanceFunc
	case SymmetricKLDistance:
		return SymmetricKLFunc
	case JensenShannonDistance:
		return JensenShannonDistanceFunc
	default:
		return EuclideanDistanceFunc
	}
}

// GetDistanceMetricName returns a printable metric name
func GetDistanceMetricName(metric DistanceMetric) string {
	switch metric {
	case EuclideanDistance:
		return "euclidean"
	case CosineDistance:
		return "cosine"
	case SymmetricKLDistance:
		return "symmetric_kl"
	case JensenShannonDistance:
		return "jensen_shannon"
	default:
		return "unknown"
	}
}

// EuclideanDistanceFunc calculates Euclidean distance between two points
func EuclideanDistanceFunc(a, b []float64) float64 {
	return floats.Distance(a, b, 2)
}

// CosineDistanceFunc calculates cosine distance (1 - cosine similarity)
func CosineDistanceFunc(a, b []float64) float64 {
	normA := floats.Norm(a, 2)
	normB := floats.Norm(b, 2)
	if normA == 0 || normB == 0 {
		return 1.0
	}
	return 1.0 - floats.Dot(a, b)/(normA*normB)
}

// KLDivergenceFunc calculates Kullback-Leibler divergence D(p||q).
// Both inputs are normalised and floored first.
func KLDivergenceFunc(p, q []float64) float64 {
	pNorm := normalizeToProbability(p)
	qNorm := normalizeToProbability(q)

	kl := 0.0
	for i := range pNorm {
		kl += pNorm[i] * math.Log(pNorm[i]/qNorm[i])
	}
	return kl
}

// SymmetricKLFunc averages D(p||q) and D(q||p)
func SymmetricKLFunc(p, q []float64) float64 {
	return 0.5 * (KLDivergenceFunc(p, q) + KLDivergenceFunc(q, p))
}

// JensenShannonDistanceFunc calculates Jensen-Shannon distance
func JensenShannonDistanceFunc(p, q []float64) float64 {
	pNorm := normalizeToProbability(p)
	qNorm := normalizeToProbability(q)

	m := make([]float64, len(pNorm))
	floats.AddTo(m, pNorm, qNorm)
	floats.Scale(0.5, m)

	js := 0.5*KLDivergenceFunc(pNorm, m) + 0.5*KLDivergenceFunc(qNorm, m)
	return math.Sqrt(math.Max(js, 0))
}

func normalizeToProbability(values []float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = math.Max(v, 0) + probabilityFloor
	}
	floats.Scale(1/floats.Sum(out), out)
	return out
}
