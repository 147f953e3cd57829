package utils

import "testing"

func TestFold(t *testing.T) {
	inputs := map[string]string{
		"Héllo":      "hello",
		"ＦＲＥＥ":       "free",
		"nіtrо":      "nitro",
		"ÇA VA":      "ca va",
		"straße":     "strasse",
		"plain text": "plain text",
	}
	for input, want := range inputs {
		if got := Fold(input); got != want {
			t.Fatalf("Fold(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestContainsFolded(t *testing.T) {
	if !ContainsFolded("get FREE  n.i.t.r.o here", "nitro") {
		t.Fatalf("expected punctuation-split phrase to match")
	}
	if !ContainsFolded("j o i n   n o w", "join now") {
		t.Fatalf("expected spaced phrase to match")
	}
	if !ContainsFolded("Ｒａｉｄ time", "raid") {
		t.Fatalf("expected full-width phrase to match")
	}
	if ContainsFolded("nothing to see", "raid") {
		t.Fatalf("did not expect a match")
	}
	if ContainsFolded("anything", "   ") {
		t.Fatalf("blank phrase must not match")
	}
}
