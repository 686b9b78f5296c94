package graph

import (
	"bytes"
	"strings"
	"testing"
)

var edges = map[int][]int{
	0:  {1, 8},
	1:  {4, 5, 2},
	2:  {6, 3, 9},
	3:  {2, 7},
	4:  {0, 5},
	5:  {6},
	6:  {5},
	7:  {3, 6},
	8:  {},
	9:  {10, 11},
	10: {12, 13},
	11: {12, 13},
	12: {},
	13: {},
}
var _sampleGraph = OfHashable(func(i int) []int {
	return edges[i]
})

func TestBFSReachesEverything(t *testing.T) {
	seen := map[int]bool{}
	stopped := _sampleGraph.BFS(0, func(n int) bool {
		seen[n] = true
		return false
	})

	if stopped {
		t.Error("BFS stopped early")
	}
	if len(seen) != len(edges) {
		t.Errorf("BFS visited %d nodes, expected %d", len(seen), len(edges))
	}
}

func TestBFSStopsEarly(t *testing.T) {
	if !_sampleGraph.BFS(0, func(n int) bool { return n == 9 }) {
		t.Error("Expected BFS to stop when reaching 9")
	}
}

func TestDFSOrder(t *testing.T) {
	order := _sampleGraph.DFS(0)

	if len(order.RPO) != len(edges) {
		t.Fatalf("RPO has %d nodes, expected %d", len(order.RPO), len(edges))
	}
	if order.RPO[0] != 0 {
		t.Errorf("RPO starts with %d, expected the root", order.RPO[0])
	}

	// Every forward edge between components respects the order.
	for from, tos := range edges {
		for _, to := range tos {
			if order.Index(from) > order.Index(to) && !order.IsLoopHead(to) {
				t.Errorf("Edge %d -> %d goes backwards to a node that is not a loop head", from, to)
			}
		}
	}

	for _, head := range []int{0, 2, 5} {
		if !order.IsLoopHead(head) {
			t.Errorf("Expected %d to be a loop head", head)
		}
	}
	for _, n := range []int{8, 9, 12} {
		if order.IsLoopHead(n) {
			t.Errorf("Did not expect %d to be a loop head", n)
		}
	}
	if order.Index(42) != -1 {
		t.Error("Unreached node has an index")
	}
}

func TestToDotGraph(t *testing.T) {
	nodes := []int{9, 10, 11}
	dg := _sampleGraph.ToDotGraph("sample", nodes, nil)

	if len(dg.Nodes) != 3 {
		t.Errorf("Expected 3 nodes, got %d", len(dg.Nodes))
	}
	if len(dg.Edges) != 2 {
		t.Errorf("Expected 2 edges, got %d", len(dg.Edges))
	}

	var buf bytes.Buffer
	if err := dg.WriteDot(&buf); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `"9" -> "10"`) {
		t.Errorf("Missing edge in:\n%s", buf.String())
	}
}
