package extract

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/greyfort/eventscout/internal/event"
)

var isoDate = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// validate runs the schema checks over an extract result and returns one
// message per violation.
func validate(r *event.ExtractResult) []string {
	var errs []string

	if strings.TrimSpace(r.Title) == "" {
		errs = append(errs, "title is missing")
	}
	if len(strings.TrimSpace(r.Description)) < 10 {
		errs = append(errs, "description shorter than 10 characters")
	}
	if r.Date != "" && r.StartDate == "" {
		// Normalization ran before validation; a raw date with no
		// canonical start date means it was unparseable.
		errs = append(errs, "date does not normalize to YYYY-MM-DD")
	}
	if r.StartDate != "" {
		if !isoDate.MatchString(r.StartDate) {
			errs = append(errs, "start date is not YYYY-MM-DD")
		} else if _, err := time.Parse("2006-01-02", r.StartDate); err != nil {
			errs = append(errs, "start date does not parse")
		}
	}
	if r.Location != "" && len(strings.TrimSpace(r.Location)) < 3 {
		errs = append(errs, "location shorter than 3 characters")
	}
	for _, s := range r.Speakers {
		if len(strings.TrimSpace(s.Name)) < 5 {
			errs = append(errs, fmt.Sprintf("speaker name %q too short", s.Name))
		}
	}
	if r.Confidence < 0 || r.Confidence > 1 {
		errs = append(errs, "confidence outside [0,1]")
	}

	return errs
}

// blendConfidence combines the parse confidence with the validation outcome
// and field completeness:
//
//	adjusted  = base + 0.1 when fully valid, else base - 0.05 per error,
//	            floored at 0.1
//	final     = adjusted * (0.7 + 0.3 * completeness), rounded to 2 decimals
//
// where completeness is the populated fraction of title, description, date,
// location, and venue.
func blendConfidence(base float64, r *event.ExtractResult) float64 {
	adjusted := base
	if len(r.ValidationErrors) == 0 {
		adjusted += 0.1
	} else {
		adjusted -= 0.05 * float64(len(r.ValidationErrors))
	}
	if adjusted < 0.1 {
		adjusted = 0.1
	}

	completeness := float64(r.FieldCount()) / 5
	final := adjusted * (0.7 + 0.3*completeness)
	if final > 1 {
		final = 1
	}
	return math.Round(final*100) / 100
}
