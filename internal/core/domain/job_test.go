package domain

import "testing"

func TestJobStatusTransitions(t *testing.T) {
	cases := []struct {
		from, to JobStatus
		want     bool
	}{
		{JobPending, JobProcessing, true},
		{JobProcessing, JobCompleted, true},
		{JobProcessing, JobFailed, true},
		{JobPending, JobCompleted, false},
		{JobPending, JobFailed, false},
		{JobCompleted, JobProcessing, false},
		{JobCompleted, JobFailed, false},
		{JobFailed, JobProcessing, false},
		{JobFailed, JobCompleted, false},
		{JobProcessing, JobPending, false},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransition(tc.to); got != tc.want {
			t.Errorf("CanTransition(%s -> %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestJobStatusTerminal(t *testing.T) {
	if JobPending.Terminal() || JobProcessing.Terminal() {
		t.Fatalf("pending/processing must not be terminal")
	}
	if !JobCompleted.Terminal() || !JobFailed.Terminal() {
		t.Fatalf("completed/failed must be terminal")
	}
}
