package sound

import "testing"

func TestTierCue(t *testing.T) {
	for n, expected := range []string{"tier1.wav", "tier2.wav", "tier3.wav", "tier4.wav"} {
		if got := TierCue(n); got != expected {
			t.Errorf("TierCue(%d) = %q, expected %q", n, got, expected)
		}
	}
}

func TestDisabledWithoutDir(t *testing.T) {
	if c := InitSound(""); c != nil {
		t.Fatal("Expected no player without a sounds directory")
	}
}
