// Package speaker provides voice-fingerprint extraction and
// nearest-neighbor speaker identification.
package speaker

import "math"

// Profile pairs a known speaker's display name with their voice embedding.
type Profile struct {
	Name      string
	Embedding []float32
}

// Match is the result of comparing a candidate embedding against the
// known-speaker set.
type Match struct {
	// Name is the best-matching speaker, or "unknown" when no known
	// embedding was usable.
	Name string

	// Score is the cosine similarity of the best match, 0 when unmatched.
	Score float64
}

// Unknown is the sentinel name returned when identification fails.
const Unknown = "unknown"

// BestMatch returns the known speaker whose embedding has the highest
// cosine similarity with the candidate. It always returns the best score
// found; acceptance thresholding is the caller's policy.
//
// Zero-norm embeddings carry no signal: a zero-norm candidate
// short-circuits to ("unknown", 0), and zero-norm profiles are skipped.
// Ties keep the first-seen profile (only strictly greater replaces).
func BestMatch(candidate []float32, known []Profile) Match {
	if norm(candidate) == 0 {
		return Match{Name: Unknown, Score: 0}
	}

	best := Match{Name: Unknown, Score: 0}
	for _, p := range known {
		score, ok := cosine(candidate, p.Embedding)
		if !ok {
			continue
		}
		if score > best.Score {
			best = Match{Name: p.Name, Score: score}
		}
	}
	return best
}

// cosine computes dot(a,b) / (|a|*|b|). The second return is false when
// either vector has zero norm or the lengths differ.
func cosine(a, b []float32) (float64, bool) {
	if len(a) != len(b) {
		return 0, false
	}

	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0, false
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb)), true
}

func norm(v []float32) float64 {
	var n float64
	for _, x := range v {
		n += float64(x) * float64(x)
	}
	return math.Sqrt(n)
}

// IsZero reports whether an embedding is the zero-vector sentinel
// (no usable signal).
func IsZero(v []float32) bool {
	return norm(v) == 0
}
