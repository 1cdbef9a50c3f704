// internal/visit/journey.go
//
// Session journey reconstruction.
//
// Context
// -------
// A journey is the time-ordered list of pages one session visited, with
// the gap between consecutive steps.  It is computed on read from the rows
// sharing a session_id; nothing is stored.
//
// Notes
// -----
//   - A visit without a session yields ErrNoSession, never an empty list,
//     so callers can tell "no session" from "session with no rows".
//   - Durations are floored: seconds between steps, minutes overall.
//   - Oxford commas, two spaces after periods.
package visit

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"time"
)

// TimeLayout formats step times.
const TimeLayout = "15:04:05"

// UnknownPage labels steps whose url is NULL.
const UnknownPage = "unknown"

// Step is one page view inside a journey.
type Step struct {
	Step          int       `json:"step"`
	VisitID       int64     `json:"visit_id"`
	Time          string    `json:"time"`
	At            time.Time `json:"at"`
	Page          string    `json:"page"`
	FullURL       *string   `json:"full_url"`
	SecondsToNext *int64    `json:"seconds_to_next"` // nil on the last step
	Current       bool      `json:"current"`
}

// Journey is the reconstructed session.
type Journey struct {
	SessionID      string `json:"session_id"`
	Steps          []Step `json:"steps"`
	TotalSteps     int    `json:"total_steps"`
	ElapsedMinutes int64  `json:"elapsed_minutes"`
	ElapsedLabel   string `json:"elapsed_label"`
}

// SessionReader loads the rows of one session.  *Store satisfies it.
type SessionReader interface {
	Session(ctx context.Context, sessionID string) ([]Visit, error)
}

// JourneyFor loads anchor's session and builds its journey.
func JourneyFor(ctx context.Context, src SessionReader, anchor *Visit) (*Journey, error) {
	if !anchor.HasSession() {
		return nil, ErrNoSession
	}
	visits, err := src.Session(ctx, *anchor.SessionID)
	if err != nil {
		return nil, err
	}
	return BuildJourney(anchor, visits)
}

// BuildJourney orders visits by created_at then id and derives the steps.
// The anchor's step is flagged Current.
func BuildJourney(anchor *Visit, visits []Visit) (*Journey, error) {
	if !anchor.HasSession() {
		return nil, ErrNoSession
	}

	ordered := make([]Visit, len(visits))
	copy(ordered, visits)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})

	j := &Journey{
		SessionID:  *anchor.SessionID,
		Steps:      make([]Step, len(ordered)),
		TotalSteps: len(ordered),
	}
	for i, v := range ordered {
		st := Step{
			Step:    i + 1,
			VisitID: v.ID,
			Time:    v.CreatedAt.Format(TimeLayout),
			At:      v.CreatedAt,
			Page:    PagePath(v.URL),
			FullURL: v.URL,
			Current: v.ID == anchor.ID,
		}
		if i+1 < len(ordered) {
			gap := int64(ordered[i+1].CreatedAt.Sub(v.CreatedAt) / time.Second)
			st.SecondsToNext = &gap
		}
		j.Steps[i] = st
	}

	if n := len(ordered); n > 1 {
		j.ElapsedMinutes = int64(ordered[n-1].CreatedAt.Sub(ordered[0].CreatedAt) / time.Minute)
	}
	j.ElapsedLabel = elapsedLabel(j.ElapsedMinutes)
	return j, nil
}

// PagePath reduces a stored url to its path.  Host, query, and fragment are
// dropped; a bare host becomes "/"; an unparseable value is returned as is;
// NULL becomes UnknownPage.
func PagePath(raw *string) string {
	if raw == nil || *raw == "" {
		return UnknownPage
	}
	u, err := url.Parse(*raw)
	if err != nil {
		return *raw
	}
	if u.Path != "" {
		return u.Path
	}
	if u.Host != "" {
		return "/"
	}
	return *raw
}

func elapsedLabel(minutes int64) string {
	switch {
	case minutes < 1:
		return "< 1 minute"
	case minutes == 1:
		return "1 minute"
	default:
		return fmt.Sprintf("%d minutes", minutes)
	}
}
