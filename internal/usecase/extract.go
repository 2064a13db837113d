package usecase

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// The model is asked to embed the plan as JSON but is not guaranteed to emit
// clean structure, so extraction is a best-effort two-stage search: a fenced
// block labeled json first, then a bare brace region holding the meal_plan
// key. The search order is a hard contract: a fenced candidate that fails to
// decode is a fatal error, never a fallthrough to stage two.
var (
	fencedPlanRe = regexp.MustCompile("(?s)```json\\s*(\\{.*\\})\\s*```")
	barePlanRe   = regexp.MustCompile(`(?s)\{.*"meal_plan".*\}`)
)

const extractExcerptLen = 300

// ExtractPlan locates and decodes the structured meal plan embedded in a
// terminal agent answer.
func ExtractPlan(text string) (map[string]any, error) {
	if m := fencedPlanRe.FindStringSubmatch(text); m != nil {
		var plan map[string]any
		if err := json.Unmarshal([]byte(m[1]), &plan); err != nil {
			return nil, newError(ErrorExtraction, "fenced_block_decode_failed",
				fmt.Errorf("decode fenced plan: %w (candidate: %s)", err, excerpt(m[1])))
		}
		return plan, nil
	}

	if m := barePlanRe.FindString(text); m != "" {
		var plan map[string]any
		if err := json.Unmarshal([]byte(m), &plan); err == nil {
			return plan, nil
		}
	}

	return nil, newError(ErrorExtraction, "no_plan_found",
		fmt.Errorf("no decodable meal plan in response (text: %s)", excerpt(text)))
}

func excerpt(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= extractExcerptLen {
		return s
	}
	return s[:extractExcerptLen] + "..."
}
