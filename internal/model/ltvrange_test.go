package model

import "testing"

func TestIsRangeKey(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want bool
	}{
		{"60-70%", true},
		{"60-70", true},
		{"<=70%", true},
		{">=70.01%", true},
		{" 60-70% ", true},
		{"70.5-80%", true},
		{"FICO", false},
		{"<700", false},
		{"", false},
		{"60-", false},
		{"<=", false},
	}

	for _, c := range cases {
		if got := IsRangeKey(c.in); got != c.want {
			t.Fatalf("IsRangeKey(%q)=%v, want %v", c.in, got, c.want)
		}
	}
}

func TestNormalizeRangeKey(t *testing.T) {
	t.Parallel()

	if got := NormalizeRangeKey(" 60-70 "); got != "60-70%" {
		t.Fatalf("got %q, want %q", got, "60-70%")
	}
	if got := NormalizeRangeKey("<=70%"); got != "<=70%" {
		t.Fatalf("got %q, want %q", got, "<=70%")
	}
	if got := NormalizeRangeKey(""); got != "" {
		t.Fatalf("got %q, want empty", got)
	}
}

func TestParseLTVRange(t *testing.T) {
	t.Parallel()

	r, err := ParseLTVRange("60-70%")
	if err != nil {
		t.Fatalf("parse 60-70%%: %v", err)
	}
	if r.Kind != RangeClosed || r.Lo != 60 || r.Hi != 70 {
		t.Fatalf("unexpected range: %+v", r)
	}

	r, err = ParseLTVRange("<=70")
	if err != nil {
		t.Fatalf("parse <=70: %v", err)
	}
	if r.Kind != RangeAtMost || r.Hi != 70 {
		t.Fatalf("unexpected range: %+v", r)
	}
	if r.Raw != "<=70%" {
		t.Fatalf("raw=%q, want %q", r.Raw, "<=70%")
	}

	r, err = ParseLTVRange(">=70.01%")
	if err != nil {
		t.Fatalf("parse >=70.01%%: %v", err)
	}
	if r.Kind != RangeAtLeast || r.Lo != 70.01 {
		t.Fatalf("unexpected range: %+v", r)
	}

	r, err = ParseLTVRange("65")
	if err != nil {
		t.Fatalf("parse 65: %v", err)
	}
	if r.Kind != RangeExact || r.Lo != 65 || r.Hi != 65 {
		t.Fatalf("unexpected range: %+v", r)
	}

	if _, err := ParseLTVRange("abc"); err == nil {
		t.Fatalf("expected error for abc")
	}
}

func TestLTVRangeContains_BoundariesInclusive(t *testing.T) {
	t.Parallel()

	closed, _ := ParseLTVRange("60-70%")
	for _, v := range []float64{60, 65, 70} {
		if !closed.Contains(v) {
			t.Fatalf("60-70%% should contain %v", v)
		}
	}
	for _, v := range []float64{59.99, 70.01} {
		if closed.Contains(v) {
			t.Fatalf("60-70%% should not contain %v", v)
		}
	}

	atMost, _ := ParseLTVRange("<=70%")
	if !atMost.Contains(70) || !atMost.Contains(0) {
		t.Fatalf("<=70%% boundary not inclusive")
	}
	if atMost.Contains(70.01) {
		t.Fatalf("<=70%% should not contain 70.01")
	}

	atLeast, _ := ParseLTVRange(">=70.01%")
	if !atLeast.Contains(70.01) || !atLeast.Contains(100) {
		t.Fatalf(">=70.01%% boundary not inclusive")
	}
	if atLeast.Contains(70) {
		t.Fatalf(">=70.01%% should not contain 70")
	}

	exact, _ := ParseLTVRange("65%")
	if !exact.Contains(65) || exact.Contains(65.5) {
		t.Fatalf("exact range mismatch")
	}
}
