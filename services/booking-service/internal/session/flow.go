package session

import (
	"fmt"
	"strings"

	"github.com/md-rashed-zaman/pharmavisit/services/booking-service/internal/model"
)

// Step is a state of the booking wizard.
type Step int

const (
	StepChoosePharmacy Step = iota
	StepChooseDateTime
	StepChoosePayment
	StepReviewSubmit
)

var stepNames = [...]string{"choose_pharmacy", "choose_date_time", "choose_payment", "review_submit"}

func (s Step) String() string {
	if s < 0 || int(s) >= len(stepNames) {
		return fmt.Sprintf("step(%d)", int(s))
	}
	return stepNames[s]
}

func ParseStep(raw string) (Step, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	for i, name := range stepNames {
		if name == raw {
			return Step(i), nil
		}
	}
	return 0, fmt.Errorf("unknown step %q", raw)
}

// Draft is the caller-owned state accumulated across the wizard.
type Draft struct {
	PharmacyID    string              `json:"pharmacy_id"`
	LocalDate     string              `json:"local_date"`
	TimeOfDay     string              `json:"time_of_day"`
	Reason        string              `json:"reason"`
	PaymentMethod model.PaymentMethod `json:"payment_method"`
}

// entry lists, per step, the draft fields that must be filled to enter it.
var entry = map[Step]func(Draft) []string{
	StepChoosePharmacy: func(Draft) []string { return nil },
	StepChooseDateTime: func(d Draft) []string {
		return missing(field{"pharmacy_id", d.PharmacyID})
	},
	StepChoosePayment: func(d Draft) []string {
		return missing(
			field{"pharmacy_id", d.PharmacyID},
			field{"local_date", d.LocalDate},
			field{"time_of_day", d.TimeOfDay},
			field{"reason", d.Reason},
		)
	},
	StepReviewSubmit: func(d Draft) []string {
		m := missing(
			field{"pharmacy_id", d.PharmacyID},
			field{"local_date", d.LocalDate},
			field{"time_of_day", d.TimeOfDay},
			field{"reason", d.Reason},
			field{"payment_method", string(d.PaymentMethod)},
		)
		if len(m) == 0 && !d.PaymentMethod.IsValid() {
			m = append(m, "payment_method")
		}
		return m
	},
}

// TransitionError reports a refused wizard move.
type TransitionError struct {
	From    Step
	To      Step
	Missing []string
}

func (e *TransitionError) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("cannot move from %s to %s: missing %s", e.From, e.To, strings.Join(e.Missing, ", "))
	}
	return fmt.Sprintf("cannot move from %s to %s", e.From, e.To)
}

// Transition validates a move between steps. Forward moves advance one step
// at a time and require the fields of every earlier step. Backward moves are
// always allowed and never clear the draft.
func Transition(from, to Step, d Draft) error {
	if !valid(from) || !valid(to) {
		return &TransitionError{From: from, To: to}
	}
	if to <= from {
		return nil
	}
	if to != from+1 {
		return &TransitionError{From: from, To: to}
	}
	if m := entry[to](d); len(m) > 0 {
		return &TransitionError{From: from, To: to, Missing: m}
	}
	return nil
}

// Furthest returns the last step the draft is allowed to reach.
func Furthest(d Draft) Step {
	step := StepChoosePharmacy
	for next := StepChooseDateTime; next <= StepReviewSubmit; next++ {
		if len(entry[next](d)) > 0 {
			break
		}
		step = next
	}
	return step
}

func valid(s Step) bool { return s >= StepChoosePharmacy && s <= StepReviewSubmit }

type field struct {
	name  string
	value string
}

func missing(fields ...field) []string {
	var out []string
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			out = append(out, f.name)
		}
	}
	return out
}
