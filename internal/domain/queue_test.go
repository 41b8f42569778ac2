package domain_test

import (
	"testing"

	"github.com/streaky/streakd/internal/domain"
)

func TestBatchProgress_Percentage(t *testing.T) {
	tests := []struct {
		name     string
		progress domain.BatchProgress
		want     int
	}{
		{
			"empty batch",
			domain.BatchProgress{},
			0,
		},
		{
			"half terminal",
			domain.BatchProgress{Pending: 3, Processing: 2, Completed: 4, Failed: 1, Total: 10},
			50,
		},
		{
			"all completed",
			domain.BatchProgress{Completed: 7, Total: 7},
			100,
		},
		{
			"rounds to nearest",
			domain.BatchProgress{Pending: 2, Completed: 1, Total: 3},
			33,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.progress.Percentage(); got != tc.want {
				t.Fatalf("expected %d%%, got %d%%", tc.want, got)
			}
		})
	}
}

func TestStatus_IsTerminal(t *testing.T) {
	if domain.StatusPending.IsTerminal() || domain.StatusProcessing.IsTerminal() {
		t.Fatal("pending/processing must not be terminal")
	}
	if !domain.StatusCompleted.IsTerminal() || !domain.StatusFailed.IsTerminal() {
		t.Fatal("completed/failed must be terminal")
	}
}
