package api

import (
	"encoding/json"
	"testing"
	"time"
)

func TestValidString(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"abc", true},
		{"  abc  ", true},
		{"", false},
		{"   ", false},
		{"\t\n", false},
	}
	for _, c := range cases {
		if got := validString(c.in); got != c.want {
			t.Fatalf("validString(%q)=%v want %v", c.in, got, c.want)
		}
	}
}

func TestEmailRegex(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"a@b.com", true},
		{"a+b@b.com.br", true},
		{"", false},
		{"a@", false},
		{"@b.com", false},
		{"a@b", false},
		{"a b@c.com", false},
	}
	for _, c := range cases {
		if got := emailRegex.MatchString(c.in); got != c.want {
			t.Fatalf("email=%q got=%v want=%v", c.in, got, c.want)
		}
	}
}

func TestFlexFloatUnmarshal(t *testing.T) {
	cases := []struct {
		in     string
		want   float64
		wantOK bool
	}{
		{`12.5`, 12.5, true},
		{`"12.5"`, 12.5, true},
		{`" 80 "`, 80, true},
		{`0`, 0, true},
		{`"abc"`, 0, false},
		{`""`, 0, false},
		{`"NaN"`, 0, false},
		{`"Inf"`, 0, false},
		{`true`, 0, false},
	}
	for _, c := range cases {
		var f FlexFloat
		err := json.Unmarshal([]byte(c.in), &f)
		if (err == nil) != c.wantOK {
			t.Fatalf("in=%s wantOK=%v gotErr=%v", c.in, c.wantOK, err)
		}
		if err == nil && float64(f) != c.want {
			t.Fatalf("in=%s got=%v want=%v", c.in, float64(f), c.want)
		}
	}
}

func TestFlexIntUnmarshal(t *testing.T) {
	cases := []struct {
		in     string
		want   int64
		wantOK bool
	}{
		{`7`, 7, true},
		{`"7"`, 7, true},
		{`" 42 "`, 42, true},
		{`7.5`, 0, false},
		{`"7.5"`, 0, false},
		{`"abc"`, 0, false},
		{`""`, 0, false},
	}
	for _, c := range cases {
		var f FlexInt
		err := json.Unmarshal([]byte(c.in), &f)
		if (err == nil) != c.wantOK {
			t.Fatalf("in=%s wantOK=%v gotErr=%v", c.in, c.wantOK, err)
		}
		if err == nil && int64(f) != c.want {
			t.Fatalf("in=%s got=%v want=%v", c.in, int64(f), c.want)
		}
	}
}

func TestParseDateTime(t *testing.T) {
	cases := []struct {
		in     string
		wantOK bool
	}{
		{"2026-03-10", true},
		{"2026-03-10T14:30:00", true},
		{"2026-03-10T14:30:00Z", true},
		{"2026-03-10 14:30:00", true},
		{"10/03/2026", false},
		{"", false},
		{"amanhã", false},
	}
	for _, c := range cases {
		_, err := parseDateTime(c.in)
		if (err == nil) != c.wantOK {
			t.Fatalf("in=%q wantOK=%v gotErr=%v", c.in, c.wantOK, err)
		}
	}
}

func TestEndOfDayIfDateOnly(t *testing.T) {
	raw := "2026-03-10"
	base, err := parseDateTime(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	got := endOfDayIfDateOnly(raw, base)
	if got.Hour() != 23 || got.Minute() != 59 || got.Second() != 59 {
		t.Fatalf("date-only end not promoted: %v", got)
	}

	rawFull := "2026-03-10T08:00:00"
	full, err := parseDateTime(rawFull)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got := endOfDayIfDateOnly(rawFull, full); !got.Equal(full) {
		t.Fatalf("datetime end should be untouched: %v", got)
	}
}

func TestIdadeEmAnos(t *testing.T) {
	ref := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		nasc time.Time
		want int
	}{
		{time.Date(2008, 3, 10, 0, 0, 0, 0, time.UTC), 18},
		{time.Date(2008, 3, 20, 0, 0, 0, 0, time.UTC), 17},
		{time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC), 0},
		{time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC), 36},
	}
	for _, c := range cases {
		if got := idadeEmAnos(c.nasc, ref); got != c.want {
			t.Fatalf("nasc=%v got=%d want=%d", c.nasc, got, c.want)
		}
	}
}
