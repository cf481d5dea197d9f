package validation

import (
	"fmt"
	"regexp"
	"strings"

	"cloud.google.com/go/civil"

	"github.com/hyperengineering/tally/internal/types"
)

// Field limits, in runes.
const (
	MaxNameLength        = 100
	MaxDescriptionLength = 500
	MaxIconLength        = 50
	MaxNotesLength       = 2000
)

var hexColor = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// ValidateColor returns an error unless value is a #rrggbb hex color.
func ValidateColor(field, value string) *ValidationError {
	if !hexColor.MatchString(value) {
		return &ValidationError{
			Field:   field,
			Message: "must be a hex color like #3b82f6",
		}
	}
	return nil
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(field, value string) (civil.Date, *ValidationError) {
	d, err := civil.ParseDate(value)
	if err != nil || !d.IsValid() {
		return civil.Date{}, &ValidationError{
			Field:   field,
			Message: "must be a date in YYYY-MM-DD format",
		}
	}
	return d, nil
}

// ValidateNotFuture returns an error if d is after today.
func ValidateNotFuture(field string, d, today civil.Date) *ValidationError {
	if d.After(today) {
		return &ValidationError{
			Field:   field,
			Message: fmt.Sprintf("must not be after %s", today),
		}
	}
	return nil
}

// ValidateKnownIDs returns an error naming the first id not in known.
func ValidateKnownIDs(field string, ids []string, known map[string]bool) *ValidationError {
	for _, id := range ids {
		if !known[id] {
			return &ValidationError{
				Field:   field,
				Message: fmt.Sprintf("unknown trackable %q", id),
			}
		}
	}
	return nil
}

func validateName(c *Collector, name string) {
	c.Add(ValidateRequired("name", name))
	ValidateText(c, "name", strings.TrimSpace(name), MaxNameLength)
}

// ValidateCreateTrackable checks a new trackable. An empty color is allowed
// and replaced by the default.
func ValidateCreateTrackable(req types.CreateTrackableRequest) []ValidationError {
	var c Collector
	validateName(&c, req.Name)
	ValidateText(&c, "description", req.Description, MaxDescriptionLength)
	if req.Color != "" {
		c.Add(ValidateColor("color", req.Color))
	}
	ValidateText(&c, "icon", req.Icon, MaxIconLength)
	return c.Errors()
}

// ValidateUpdateTrackable checks only the fields present in req.
func ValidateUpdateTrackable(req types.UpdateTrackableRequest) []ValidationError {
	var c Collector
	if req.Name != nil {
		validateName(&c, *req.Name)
	}
	if req.Description != nil {
		ValidateText(&c, "description", *req.Description, MaxDescriptionLength)
	}
	if req.Color != nil {
		c.Add(ValidateColor("color", *req.Color))
	}
	if req.Icon != nil {
		ValidateText(&c, "icon", *req.Icon, MaxIconLength)
	}
	return c.Errors()
}

// ValidateNotes checks an entry's free-text notes.
func ValidateNotes(notes string) []ValidationError {
	var c Collector
	ValidateText(&c, "notes", notes, MaxNotesLength)
	return c.Errors()
}

// ValidateGoal checks a new goal.
func ValidateGoal(req types.GoalRequest) []ValidationError {
	var c Collector
	c.Add(ValidatePositive("target_value", req.TargetValue))
	c.Add(ValidateEnum("target_period", req.TargetPeriod, types.Periods))
	return c.Errors()
}

// ValidateUpdateGoal checks only the fields present in req.
func ValidateUpdateGoal(req types.UpdateGoalRequest) []ValidationError {
	var c Collector
	if req.TargetValue != nil {
		c.Add(ValidatePositive("target_value", *req.TargetValue))
	}
	if req.TargetPeriod != nil {
		c.Add(ValidateEnum("target_period", *req.TargetPeriod, types.Periods))
	}
	return c.Errors()
}
