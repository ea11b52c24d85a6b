package resource

import "testing"

func TestBundleContainsAndTotal(t *testing.T) {
	held := Of(Brick, 2, Ore, 3)
	if held.Total() != 5 {
		t.Fatalf("expected total 5, got %d", held.Total())
	}
	if !held.Contains(Of(Brick, 2)) {
		t.Fatalf("expected %v to contain 2 brick", held)
	}
	if held.Contains(Of(Brick, 1, Wool, 1)) {
		t.Fatalf("expected %v not to contain wool", held)
	}
	if !held.Contains(nil) {
		t.Fatalf("every bundle contains the empty bundle")
	}
}

func TestBundleValidRejectsNegativeAndAny(t *testing.T) {
	if !Of(Grain, 1).Valid() {
		t.Fatalf("expected single grain to be valid")
	}
	if Of(Grain, -1).Valid() {
		t.Fatalf("negative amount must be invalid")
	}
	if (Bundle{Any: 1}).Valid() {
		t.Fatalf("Any is not a real resource")
	}
}

func TestBundleLargestPrefersKindOrderOnTie(t *testing.T) {
	k, n := Of(Ore, 2, Lumber, 2, Wool, 1).Largest()
	if k != Lumber || n != 2 {
		t.Fatalf("expected lumber:2, got %v:%d", k, n)
	}
	if k, n := Bundle(nil).Largest(); k != Any || n != 0 {
		t.Fatalf("expected empty bundle to report any:0, got %v:%d", k, n)
	}
}

func TestParseKindRoundTrip(t *testing.T) {
	for _, k := range Kinds {
		got, err := ParseKind(k.String())
		if err != nil {
			t.Fatalf("ParseKind(%q) err: %v", k.String(), err)
		}
		if got != k {
			t.Fatalf("ParseKind(%q) = %v", k.String(), got)
		}
	}
	if _, err := ParseKind("gold"); err == nil {
		t.Fatalf("expected error for unknown kind")
	}
}
