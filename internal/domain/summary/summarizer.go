package summary

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Placeholder replaces a response with no extractable text.
const Placeholder = "Could not parse a summary from the model response."

// Prompt is the fixed instruction sent with every route-set payload.
const Prompt = `You compare driving route alternatives for a single trip.
The JSON document below lists up to five routes with distance (meters), duration (seconds), maneuver counts and sample maneuvers, plus context: the time-of-day bias, precomputed hints and the route the user has selected.
Write a short comparison (at most six sentences) of the trade-offs between the routes, taking the bias into account.
End with exactly one line of the form "route_index = N" naming the zero-based index of the route you recommend.`

var (
	// ErrUnchanged means the route set matches the last summarized one.
	ErrUnchanged = errors.New("route set unchanged since last summary")

	// ErrStale means the route set changed while the summary was generated.
	ErrStale = errors.New("summary computed for a superseded route set")

	// ErrNoRoutes means there is nothing to summarize.
	ErrNoRoutes = errors.New("no routes to summarize")
)

// Failure is a non-success answer from the text generation service.
type Failure struct {
	StatusCode int
	Body       string
}

func (e *Failure) Error() string {
	return fmt.Sprintf("summary service returned status %d: %s", e.StatusCode, e.Body)
}

// Summarizer generates free text for an instruction prompt and a JSON document.
type Summarizer interface {
	Summarize(ctx context.Context, prompt string, document []byte) (string, error)
}

// Result is a stored summary.
type Result struct {
	Text           string    `json:"text"`
	SuggestedIndex *int      `json:"suggested_index,omitempty"`
	Signature      string    `json:"signature"`
	TimeBand       TimeBand  `json:"time_band"`
	GeneratedAt    time.Time `json:"generated_at"`
}
