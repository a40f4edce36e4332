package change

import (
	"testing"

	"github.com/hazyhaar/pagewatch/snapshot"
)

func TestDetect(t *testing.T) {
	prev := &snapshot.Snapshot{Content: "<main>a</main>"}
	tests := []struct {
		name     string
		previous *snapshot.Snapshot
		current  string
		want     Result
	}{
		{"no previous", nil, "<main>a</main>", Initial},
		{"no previous empty content", nil, "", Initial},
		{"identical", prev, "<main>a</main>", Unchanged},
		{"different", prev, "<main>b</main>", Changed},
		{"whitespace differs", prev, "<main>a</main> ", Changed},
		{"previous empty", &snapshot.Snapshot{}, "x", Changed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Detect(tt.previous, tt.current); got != tt.want {
				t.Errorf("Detect() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestResult_String(t *testing.T) {
	for r, want := range map[Result]string{Initial: "initial", Unchanged: "unchanged", Changed: "changed", Result(9): "unknown"} {
		if got := r.String(); got != want {
			t.Errorf("Result(%d).String() = %q, want %q", r, got, want)
		}
	}
}
