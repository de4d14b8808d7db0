package route

import (
	"math"
	"strconv"
	"strings"
)

const (
	// MaxRoutes is the size limit of a route set.
	MaxRoutes = 5

	signatureSeparator = "|"
	signaturePrecision = 5
)

// Signature fingerprints a candidate by rounded distance and duration, rounded
// first and last geometry point, and vertex count. Two candidates with equal
// signatures are treated as the same route; different paths with identical
// endpoints and metrics collide.
func Signature(r RouteCandidate) string {
	parts := []string{
		strconv.FormatInt(int64(math.Round(r.Distance)), 10),
		strconv.FormatInt(int64(math.Round(r.Duration)), 10),
		signaturePoint(r.Geometry, 0),
		signaturePoint(r.Geometry, len(r.Geometry)-1),
		strconv.Itoa(len(r.Geometry)),
	}
	return strings.Join(parts, signatureSeparator)
}

func signaturePoint(geom []Coordinate, i int) string {
	if i < 0 || i >= len(geom) {
		return "-"
	}
	p := geom[i]
	return strconv.FormatFloat(p.Lat, 'f', signaturePrecision, 64) + "," +
		strconv.FormatFloat(p.Lng, 'f', signaturePrecision, 64)
}

// CandidateSet accumulates unique candidates in arrival order up to a limit.
type CandidateSet struct {
	limit  int
	seen   map[string]struct{}
	routes []RouteCandidate
}

// NewCandidateSet creates a set holding at most limit candidates.
func NewCandidateSet(limit int) *CandidateSet {
	if limit <= 0 {
		limit = MaxRoutes
	}
	return &CandidateSet{limit: limit, seen: make(map[string]struct{}, limit)}
}

// Contains reports whether a candidate with the same signature was accepted.
func (s *CandidateSet) Contains(r RouteCandidate) bool {
	_, ok := s.seen[Signature(r)]
	return ok
}

// Add accepts r if its signature is new and the set is not full.
func (s *CandidateSet) Add(r RouteCandidate) bool {
	if s.Full() {
		return false
	}
	sig := Signature(r)
	if _, ok := s.seen[sig]; ok {
		return false
	}
	s.seen[sig] = struct{}{}
	s.routes = append(s.routes, r)
	return true
}

// Full reports whether the limit was reached.
func (s *CandidateSet) Full() bool { return len(s.routes) >= s.limit }

// Len returns the number of accepted candidates.
func (s *CandidateSet) Len() int { return len(s.routes) }

// Routes returns the accepted candidates in arrival order.
func (s *CandidateSet) Routes() []RouteCandidate {
	out := make([]RouteCandidate, len(s.routes))
	copy(out, s.routes)
	return out
}
