package availability

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// SlotStep is the fixed slot granularity in minutes.
const SlotStep = 30

// Template is the ascending, duplicate-free set of slot start times a pharmacy
// offers on any day.
type Template []TimeOfDay

// RejectedFragment describes a piece of the hours text that produced no slots.
type RejectedFragment struct {
	Fragment string
	Reason   string
}

var (
	rangeSeparator = regexp.MustCompile(`(?i)\s+y\s+|[,;]`)
	timeToken      = regexp.MustCompile(`\b(\d{1,2}):(\d{2})\b`)
)

// ParseBusinessHours converts free-form hours text such as
// "09:00-13:00 y 16:00-20:00" into a slot template. Each fragment contributes
// the half-open range [first token, last token) walked in SlotStep minutes.
// Fragments that cannot be read are returned for the caller to log; they never
// fail the parse.
func ParseBusinessHours(text string) (Template, []RejectedFragment) {
	seen := map[TimeOfDay]struct{}{}
	var rejected []RejectedFragment

	for _, fragment := range rangeSeparator.Split(text, -1) {
		fragment = strings.TrimSpace(fragment)
		if fragment == "" {
			continue
		}

		tokens := timeToken.FindAllStringSubmatch(fragment, -1)
		if len(tokens) < 2 {
			rejected = append(rejected, RejectedFragment{Fragment: fragment, Reason: "fewer than two HH:MM tokens"})
			continue
		}

		start, err := tokenTime(tokens[0])
		if err != nil || start == EndOfDay {
			rejected = append(rejected, RejectedFragment{Fragment: fragment, Reason: "unparseable start time"})
			continue
		}
		end, err := tokenTime(tokens[len(tokens)-1])
		if err != nil {
			rejected = append(rejected, RejectedFragment{Fragment: fragment, Reason: "unparseable end time"})
			continue
		}
		if end <= start {
			rejected = append(rejected, RejectedFragment{Fragment: fragment, Reason: "end is not after start"})
			continue
		}

		for t := start; t < end; t += SlotStep {
			seen[t] = struct{}{}
		}
	}

	out := make(Template, 0, len(seen))
	for t := range seen {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, rejected
}

func tokenTime(match []string) (TimeOfDay, error) {
	h, err := strconv.Atoi(match[1])
	if err != nil {
		return 0, err
	}
	m, err := strconv.Atoi(match[2])
	if err != nil {
		return 0, err
	}
	return NewTimeOfDay(h, m)
}
