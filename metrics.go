package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cs-au-dk/absum/analysis/absint"
	"github.com/cs-au-dk/absum/analysis/cfg"
	"github.com/cs-au-dk/absum/analysis/frontend"
)

func gatherMetrics(fe *frontend.Frontend, metrics *absint.Metrics) {
	if !metrics.Enabled() {
		return
	}
	prog := fe.SSAProgram()

	var sb strings.Builder
	sb.WriteString("================ Results =====================\n\n")
	sb.WriteString(metrics.String() + "\n")

	funs := metrics.Functions()
	expanded := make([]*cfg.Function, 0, len(funs))
	for f := range funs {
		expanded = append(expanded, f)
	}
	sort.Slice(expanded, func(i, j int) bool { return expanded[i].Name() < expanded[j].Name() })

	files := make(map[string]struct{})
	for _, f := range expanded {
		if fn, ok := fe.SSA(f); ok && fn.Pos().IsValid() {
			files[prog.Fset.Position(fn.Pos()).Filename] = struct{}{}
		}
	}

	fs := make([]string, 0, len(files))
	for f := range files {
		fs = append(fs, f)
	}
	sort.Strings(fs)

	fmt.Fprintf(&sb, "Files: %d\n", len(fs))
	for _, f := range fs {
		sb.WriteString("  " + f + "\n")
	}

	fmt.Print(sb.String())
}
