package qbcompat

import (
	"reflect"
	"testing"
)

func TestSplitList(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"  ", nil},
		{"a,b,c", []string{"a", "b", "c"}},
		{"a; b ;c", []string{"a", "b", "c"}},
		{"a,,b", []string{"a", "b"}},
	}
	for _, tc := range cases {
		if got := splitList(tc.in); !reflect.DeepEqual(got, tc.want) {
			t.Errorf("splitList(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestSplitHashes(t *testing.T) {
	got := splitHashes("aaa|bbb| ccc ")
	want := []string{"aaa", "bbb", "ccc"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("splitHashes = %v, want %v", got, want)
	}
}

func TestSplitURLs(t *testing.T) {
	got := splitURLs("magnet:one\n\nmagnet:two\n  \nmagnet:three")
	want := []string{"magnet:one", "magnet:two", "magnet:three"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("splitURLs = %v, want %v", got, want)
	}
}

func TestParseLimit(t *testing.T) {
	cases := []struct {
		in      string
		wantNil bool
		wantOK  bool
		want    uint64
	}{
		{"", true, true, 0},
		{"NaN", true, true, 0},
		{"nan", true, true, 0},
		{"0", true, true, 0},
		{"-5", true, true, 0},
		{"1000", false, true, 1000},
		{"not-a-number", true, false, 0},
	}
	for _, tc := range cases {
		got, ok := parseLimit(tc.in)
		if ok != tc.wantOK {
			t.Errorf("parseLimit(%q) ok = %v, want %v", tc.in, ok, tc.wantOK)
			continue
		}
		if tc.wantNil && got != nil {
			t.Errorf("parseLimit(%q) = %v, want nil", tc.in, *got)
		}
		if !tc.wantNil && (got == nil || *got != tc.want) {
			t.Errorf("parseLimit(%q) = %v, want %d", tc.in, got, tc.want)
		}
	}
}

func TestWantsAll(t *testing.T) {
	for _, in := range []string{"", "all", "ALL", "All"} {
		if !wantsAll(in) {
			t.Errorf("wantsAll(%q) = false, want true", in)
		}
	}
	if wantsAll("abc123") {
		t.Error("wantsAll(\"abc123\") = true, want false")
	}
}
