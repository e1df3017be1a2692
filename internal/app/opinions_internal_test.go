package app

import "testing"

func TestExtractPlaces(t *testing.T) {
	text := "Staying in Echo Park next month. Is it safe to walk at night near Sunset Blvd? " +
		"We arrive on Friday and I was in Echo Park last year."

	got := extractPlaces(text)
	want := []string{"Echo Park", "Sunset Blvd"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestExtractPlaces_StopwordsAndLowercase(t *testing.T) {
	cases := []struct {
		text string
		want int
	}{
		{"I live in my apartment", 0},       // pronoun start
		{"we meet on Friday at God knows", 0},
		{"walking around the block", 0},     // lowercase, no match
		{"staying at The Line in Koreatown", 2},
	}
	for _, c := range cases {
		if got := extractPlaces(c.text); len(got) != c.want {
			t.Errorf("extractPlaces(%q) = %v, want %d places", c.text, got, c.want)
		}
	}
}

func TestExtractPlaces_TrimsTrailingPunctuation(t *testing.T) {
	got := extractPlaces("Anyone stayed near Venice Beach?")
	if len(got) != 1 || got[0] != "Venice Beach" {
		t.Fatalf("got %v", got)
	}
}
