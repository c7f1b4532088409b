package dedupe

import "testing"

func TestKeyForPrefersMessageSID(t *testing.T) {
	key := KeyFor("SM123", "https://media.example/a.ogg")
	if key != "SM123" {
		t.Fatalf("expected message sid, got %q", key)
	}
}

func TestKeyForFallsBackToMediaHash(t *testing.T) {
	a := KeyFor("", "https://media.example/a.ogg")
	b := KeyFor("  ", "https://media.example/a.ogg")
	c := KeyFor("", "https://media.example/b.ogg")

	if a != b {
		t.Fatalf("same URL must hash to same key: %q vs %q", a, b)
	}
	if a == c {
		t.Fatalf("different URLs must not collide")
	}
	if len(a) < 10 {
		t.Fatalf("unexpected key shape %q", a)
	}
}
