package pq

import "testing"

func TestPriorityQueueOrder(t *testing.T) {
	q := Empty(func(a, b int) bool { return a < b })
	for _, x := range []int{5, 3, 8, 1, 3, 5} {
		q.Add(x)
	}

	if q.Len() != 4 {
		t.Fatalf("Expected duplicates to be ignored, got %d elements", q.Len())
	}

	var got []int
	for !q.IsEmpty() {
		got = append(got, q.GetNext())
	}

	exp := []int{1, 3, 5, 8}
	for i := range exp {
		if got[i] != exp[i] {
			t.Fatalf("Got %v, expected %v", got, exp)
		}
	}
}

func TestPriorityQueueReAdd(t *testing.T) {
	q := Empty(func(a, b string) bool { return a < b })
	q.Add("b")
	if !q.Contains("b") {
		t.Error("Expected b to be queued")
	}
	if q.GetNext() != "b" {
		t.Error("Expected b")
	}
	if q.Contains("b") {
		t.Error("Did not expect b to be queued after removal")
	}
	q.Add("b")
	if q.Len() != 1 {
		t.Error("Expected b to be re-added after removal")
	}
}
