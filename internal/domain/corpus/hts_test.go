package corpus

import (
	"reflect"
	"testing"
)

func TestNormalizeHTS(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"6109.10.00 10", "6109.10.0010"},
		{" 6109.10. ", "6109.10"},
		{"6109100010", "6109100010"},
		{"61", "61"},
		{"hts 8517", "8517"},
		{"cotton", ""},
		{"...", ""},
	}
	for _, tc := range cases {
		if got := NormalizeHTS(tc.in); got != tc.want {
			t.Errorf("NormalizeHTS(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestFormatHTS(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"6109100010", "6109.10.00.10"},
		{"61091000", "6109.10.00"},
		{"610910", "6109.10"},
		{"6109", "6109"},
		{"61", "61"},
		{"6109.10.0010", "6109.10.00.10"},
		{"85171300999", "8517.13.00.99"},
	}
	for _, tc := range cases {
		if got := FormatHTS(tc.in); got != tc.want {
			t.Errorf("FormatHTS(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestAncestorHTSCodes(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"6109.10.0010", []string{"6109.10.00", "6109.10", "6109"}},
		{"6109.10.00", []string{"6109.10", "6109"}},
		{"6109.10", []string{"6109"}},
		{"6109", nil},
		{"61", nil},
	}
	for _, tc := range cases {
		got := AncestorHTSCodes(tc.in)
		if !reflect.DeepEqual(got, tc.want) {
			t.Errorf("AncestorHTSCodes(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
