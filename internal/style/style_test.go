package style

import (
	"strings"
	"testing"
)

func TestStatusRendersKnownValues(t *testing.T) {
	for _, s := range []string{"succeeded", "failed", "skipped", "running", "stopped", "error"} {
		if got := Status(s); !strings.Contains(got, s) {
			t.Errorf("Status(%q) = %q, want it to contain the original text", s, got)
		}
	}
}

func TestStatusPassesThroughUnknownValues(t *testing.T) {
	if got := Status("bogus"); got != "bogus" {
		t.Errorf("Status(bogus) = %q, want %q", got, "bogus")
	}
}
