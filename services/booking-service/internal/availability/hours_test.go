package availability

import (
	"slices"
	"testing"
)

func TestParseBusinessHours_SingleRange(t *testing.T) {
	tmpl, rejected := ParseBusinessHours("09:00-13:00")
	if len(rejected) != 0 {
		t.Fatalf("expected no rejected fragments, got %+v", rejected)
	}
	want := "09:00,09:30,10:00,10:30,11:00,11:30,12:00,12:30"
	if got := join(tmpl); got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
}

func TestParseBusinessHours_UnionIsSortedAndDeduplicated(t *testing.T) {
	tmpl, _ := ParseBusinessHours("14:00-16:00 y 09:00-10:00; 15:00-17:00")
	want := "09:00,09:30,14:00,14:30,15:00,15:30,16:00,16:30"
	if got := join(tmpl); got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
}

func TestParseBusinessHours_TwoRangesWithConjunction(t *testing.T) {
	tmpl, _ := ParseBusinessHours("09:00-13:00 y 14:00-18:00")
	if len(tmpl) != 16 {
		t.Fatalf("expected 16 slots, got %d (%v)", len(tmpl), join(tmpl))
	}
	if tmpl[0].String() != "09:00" || tmpl[len(tmpl)-1].String() != "17:30" {
		t.Fatalf("unexpected bounds %s..%s", tmpl[0], tmpl[len(tmpl)-1])
	}
	if slices.Contains(tmpl, 13*60) {
		t.Fatal("13:00 is the exclusive end of the first range")
	}
	for i := 1; i < len(tmpl); i++ {
		if tmpl[i] <= tmpl[i-1] {
			t.Fatalf("template not strictly ascending at %d", i)
		}
	}
}

func TestParseBusinessHours_InvalidHoursYieldEmpty(t *testing.T) {
	tmpl, rejected := ParseBusinessHours("25:00-26:00")
	if len(tmpl) != 0 {
		t.Fatalf("expected empty template, got %v", join(tmpl))
	}
	if len(rejected) != 1 {
		t.Fatalf("expected one rejected fragment, got %+v", rejected)
	}
}

func TestParseBusinessHours_DiscardsBadFragmentsOnly(t *testing.T) {
	tmpl, rejected := ParseBusinessHours("Lunes a viernes 10:00 a 11:00, cerrado domingo; 18:00-17:00")
	if got := join(tmpl); got != "10:00,10:30" {
		t.Fatalf("unexpected template %s", got)
	}
	if len(rejected) != 2 {
		t.Fatalf("expected 2 rejected fragments, got %+v", rejected)
	}
}

func TestParseBusinessHours_UsesFirstAndLastToken(t *testing.T) {
	tmpl, _ := ParseBusinessHours("desde 08:00 (pausa 09:00) hasta 09:30")
	if got := join(tmpl); got != "08:00,08:30,09:00" {
		t.Fatalf("unexpected template %s", got)
	}
}

func TestParseBusinessHours_EndOfDay(t *testing.T) {
	tmpl, _ := ParseBusinessHours("23:00-24:00")
	if got := join(tmpl); got != "23:00,23:30" {
		t.Fatalf("unexpected template %s", got)
	}
	if tmpl, _ := ParseBusinessHours("24:00-24:30"); len(tmpl) != 0 {
		t.Fatalf("24:00 cannot start a range, got %v", join(tmpl))
	}
}

func TestParseBusinessHours_Deterministic(t *testing.T) {
	const text = "08:00-12:00 y 16:00-20:00"
	a, _ := ParseBusinessHours(text)
	b, _ := ParseBusinessHours(text)
	if join(a) != join(b) {
		t.Fatal("parse is not deterministic")
	}
}

func TestParseTimeOfDay(t *testing.T) {
	v, err := ParseTimeOfDay("9:05")
	if err != nil || v.String() != "09:05" {
		t.Fatalf("expected 09:05, got %s (%v)", v, err)
	}
	for _, bad := range []string{"", "9", "09:5", "12:60", "24:01", "ab:cd", "123:00"} {
		if _, err := ParseTimeOfDay(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}
