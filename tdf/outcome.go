package tdf

import (
	"fmt"
	"strings"
)

// Outcome is the result code TOM writes on a match.
type Outcome int

const (
	OutcomeInProgress Outcome = 0
	OutcomePlayer1Win Outcome = 1
	OutcomePlayer2Win Outcome = 2
	OutcomeTie        Outcome = 3
	OutcomeBye        Outcome = 5
)

// ParseOutcome maps a raw code to an Outcome. Unknown codes are treated as
// still in progress.
func ParseOutcome(code int) Outcome {
	switch o := Outcome(code); o {
	case OutcomePlayer1Win, OutcomePlayer2Win, OutcomeTie, OutcomeBye:
		return o
	default:
		return OutcomeInProgress
	}
}

func (o Outcome) Finished() bool {
	return o != OutcomeInProgress
}

var divisionLabels = map[string]string{
	"0": "Junior",
	"1": "Senior",
	"2": "Masters",
	"8": "Junior/Senior",
}

// DivisionLabel resolves a pod category code to a display label. Composite
// codes such as "0/1" combine their parts when every part is known.
func DivisionLabel(category string) string {
	category = strings.TrimSpace(category)
	if category == "" {
		return "Division Unknown"
	}
	if label, ok := divisionLabels[category]; ok {
		return label
	}
	if strings.Contains(category, "/") {
		parts := strings.Split(category, "/")
		labels := make([]string, 0, len(parts))
		for _, p := range parts {
			label, ok := divisionLabels[strings.TrimSpace(p)]
			if !ok {
				return fmt.Sprintf("Division %s", category)
			}
			labels = append(labels, label)
		}
		return strings.Join(labels, "/")
	}
	return fmt.Sprintf("Division %s", category)
}
