package absint

import (
	"fmt"
	"sort"

	"github.com/cs-au-dk/absum/analysis/cfg"
	"github.com/cs-au-dk/absum/utils"
	"github.com/cs-au-dk/absum/utils/dot"
	"github.com/cs-au-dk/absum/utils/graph"
)

// SummaryGraph relates methods to the callees they have summaries of.
type SummaryGraph struct {
	graph.Graph[*cfg.Function]
	methods []*cfg.Function
	counts  map[[2]*cfg.Function]int
}

// SummaryGraph computes the summary graph from the repository.
func (a *Analyzer[D]) SummaryGraph() *SummaryGraph {
	sg := &SummaryGraph{counts: make(map[[2]*cfg.Function]int)}

	seen := make(map[*cfg.Function]bool)
	add := func(f *cfg.Function) {
		if !seen[f] {
			seen[f] = true
			sg.methods = append(sg.methods, f)
		}
	}

	edges := make(map[*cfg.Function][]*cfg.Function)
	for _, callee := range a.manager.Methods() {
		add(callee)
		for _, s := range a.manager.Summaries(callee) {
			if s.Site() == nil {
				continue
			}
			caller := s.Site().Function()
			add(caller)
			edge := [2]*cfg.Function{caller, callee}
			if sg.counts[edge] == 0 {
				edges[caller] = append(edges[caller], callee)
			}
			sg.counts[edge]++
		}
	}

	sort.Slice(sg.methods, func(i, j int) bool {
		return sg.methods[i].Name() < sg.methods[j].Name()
	})
	sg.Graph = graph.OfHashable(func(f *cfg.Function) []*cfg.Function {
		return edges[f]
	})
	return sg
}

// Methods returns the nodes of the graph sorted by name.
func (sg *SummaryGraph) Methods() []*cfg.Function { return sg.methods }

// Count is the number of summaries of callee requested from caller.
func (sg *SummaryGraph) Count(caller, callee *cfg.Function) int {
	return sg.counts[[2]*cfg.Function{caller, callee}]
}

// ToDot renders the summary graph. Recursive methods are clustered by
// recursion group.
func (sg *SummaryGraph) ToDot(title string, groups *RecursionGroups) *dot.DotGraph {
	vcfg := &graph.VisualizationConfig[*cfg.Function]{
		NodeAttrs: func(f *cfg.Function) (string, dot.DotAttrs) {
			attrs := dot.DotAttrs{"label": f.Name()}
			if groups != nil && groups.Recursive(f) {
				attrs["fillcolor"] = "lightpink"
			}
			return f.Name(), attrs
		},
		EdgeAttrs: func(from, to *cfg.Function) dot.DotAttrs {
			return dot.DotAttrs{"label": fmt.Sprint(sg.Count(from, to))}
		},
	}

	if groups != nil {
		rep := make(map[*cfg.Function]string)
		for _, group := range groups.Groups() {
			for _, f := range group {
				rep[f] = group[0].Name()
			}
		}
		vcfg.ClusterKey = func(f *cfg.Function) any {
			if r, found := rep[f]; found {
				return r
			}
			return ""
		}
		vcfg.ClusterAttrs = func(key any) (string, dot.DotAttrs) {
			if key == "" {
				return "methods", dot.DotAttrs{"style": "invis"}
			}
			return fmt.Sprint(key), dot.DotAttrs{"label": fmt.Sprintf("recursion: %v", key)}
		}
	}

	return sg.Graph.ToDotGraph(title, sg.methods, vcfg)
}

// Visualize renders the summary graph of the analyzer to outfname.
func (a *Analyzer[D]) Visualize(outfname, format string) (string, error) {
	opts := utils.Opts()
	noColorize := opts.NoColorize()
	opts.SetNoColorize(true)
	defer opts.SetNoColorize(noColorize)

	return a.SummaryGraph().ToDot("Summary graph", a.groups).Render(outfname, format)
}
