package estimate

import (
	"strings"
	"testing"
)

func TestTextCost(t *testing.T) {
	cases := []struct {
		name string
		text string
		want int64
	}{
		{"empty", "", 0},
		{"one char", "a", 1},
		{"three chars", "abc", 1},
		{"four chars", "abcd", 1},
		{"five chars rounds up", "abcde", 2},
		{"320 chars", strings.Repeat("x", 320), 80},
		{"4000 chars", strings.Repeat("x", 4000), 1000},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := TextCost(tc.text); got != tc.want {
				t.Fatalf("TextCost(%d chars) = %d, want %d", len(tc.text), got, tc.want)
			}
		})
	}
}

func TestImageCostBuckets(t *testing.T) {
	cases := []struct {
		name          string
		width, height int
		want          int64
	}{
		{"just under small boundary", 499, 499, 1000},
		{"exactly at small boundary", 500, 500, 2500},
		{"exactly at medium boundary", 1000, 1000, 5000},
		{"large", 4000, 3000, 5000},
		{"tiny", 10, 10, 1000},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ImageCost(tc.width, tc.height); got != tc.want {
				t.Fatalf("ImageCost(%d, %d) = %d, want %d", tc.width, tc.height, got, tc.want)
			}
		})
	}
}

func TestImageCostUnknownDimensions(t *testing.T) {
	for _, dims := range [][2]int{{0, 0}, {-1, 600}, {600, 0}} {
		if got := ImageCost(dims[0], dims[1]); got != 2500 {
			t.Fatalf("ImageCost(%d, %d) = %d, want medium bucket 2500", dims[0], dims[1], got)
		}
	}
}
