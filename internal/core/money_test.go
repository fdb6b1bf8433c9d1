package core

import (
	"encoding/json"
	"testing"
)

func TestParseDecimalToCents(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"1.0", 100, true},
		{"1.23", 123, true},
		{"1,23", 123, true},
		{"0.01", 1, true},
		{"1.005", 101, true}, // half-up rounding
		{" 2.50 ", 250, true},
		{".5", 50, true},
		{"-1", 0, false},
		{"0", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseDecimalToCents(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got, err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
		}
	}
}

func TestParseSignedDecimalToCents(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"0", 0, true},
		{"-12.5", -1250, true},
		{"+3", 300, true},
		{"33.333333", 3333, true},
		{"-", 0, false},
		{"1-2", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseSignedDecimalToCents(tc.in)
		if tc.ok && (err != nil || got != tc.out) {
			t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}

func TestMoneyString(t *testing.T) {
	cases := map[int64]string{
		0:     "0",
		1200:  "12",
		1250:  "12.5",
		1205:  "12.05",
		1234:  "12.34",
		-5:    "-0.05",
		-1250: "-12.5",
	}
	for cents, want := range cases {
		if got := (Money{Cents: cents}).String(); got != want {
			t.Errorf("Money{%d}.String() = %q, want %q", cents, got, want)
		}
	}
}

func TestMoneyJSONKeepsDecimalShape(t *testing.T) {
	var doc struct {
		Rent     Money   `json:"rent"`
		Portions []Money `json:"portions"`
	}
	if err := json.Unmarshal([]byte(`{"rent":600,"portions":[50.5,"49.5",1e-9]}`), &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if doc.Rent.Cents != 60000 {
		t.Fatalf("rent cents = %d", doc.Rent.Cents)
	}
	if doc.Portions[0].Cents != 5050 || doc.Portions[1].Cents != 4950 || doc.Portions[2].Cents != 0 {
		t.Fatalf("portions = %+v", doc.Portions)
	}
	out, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != `{"rent":600,"portions":[50.5,49.5,0]}` {
		t.Fatalf("marshal = %s", out)
	}
}
