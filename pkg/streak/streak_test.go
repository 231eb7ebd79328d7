package streak

import "testing"

func TestCounterFindsLongestRun(t *testing.T) {
	c := NewCounter()
	inputs := []int{100, 4, 200, 1, 3, 2}
	for _, n := range inputs {
		c.Add(n)
	}
	if got := c.Longest(); got != 4 {
		t.Fatalf("expected longest run 4, got %d", got)
	}
}

func TestCounterIgnoresDuplicates(t *testing.T) {
	c := NewCounter()
	for _, n := range []int{5, 5, 6, 6, 7, 5} {
		c.Add(n)
	}
	if got := c.Longest(); got != 3 {
		t.Fatalf("expected longest run 3, got %d", got)
	}
}

func TestCounterMergesSpansFromBothSides(t *testing.T) {
	c := NewCounter()
	c.Add(1)
	c.Add(3)
	if got := c.Longest(); got != 1 {
		t.Fatalf("expected 1 before merge, got %d", got)
	}
	if got := c.Add(2); got != 3 {
		t.Fatalf("expected merged run 3, got %d", got)
	}
}

func TestCounterHandlesNegativesAndGaps(t *testing.T) {
	c := NewCounter()
	for _, n := range []int{-2, -1, 0, 10, 11} {
		c.Add(n)
	}
	if got := c.Longest(); got != 3 {
		t.Fatalf("expected longest run 3 across negatives, got %d", got)
	}
}

func TestCounterReportsRunningLongest(t *testing.T) {
	c := NewCounter()
	steps := []struct {
		add  int
		want int
	}{
		{100, 1}, {4, 1}, {200, 1}, {1, 1}, {3, 2}, {2, 4},
	}
	for _, step := range steps {
		if got := c.Add(step.add); got != step.want {
			t.Fatalf("after adding %d: expected %d, got %d", step.add, step.want, got)
		}
	}
}
