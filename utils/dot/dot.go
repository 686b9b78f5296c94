package dot

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"

	"github.com/goccy/go-graphviz"
)

// DotToImage renders the DOT source with the embedded graphviz library and
// returns the path of the produced file. The "dot" format writes the source
// as-is.
func DotToImage(outfname string, format string, dot []byte) (img string, err error) {
	if outfname == "" {
		outfname = filepath.Join(os.TempDir(), "absum_export")
	}
	img = fmt.Sprintf("%s.%s", outfname, format)

	if format == "dot" {
		return img, os.WriteFile(img, dot, 0644)
	}

	g := graphviz.New()
	graph, err := graphviz.ParseBytes(dot)
	if err != nil {
		return "", fmt.Errorf("parsing dot source: %w", err)
	}
	defer func() {
		if cerr := graph.Close(); err == nil {
			err = cerr
		}
		g.Close()
	}()

	if err := g.RenderFilename(graph, graphviz.Format(format), img); err != nil {
		return "", fmt.Errorf("rendering %s: %w", img, err)
	}
	return img, nil
}

const tmplCluster = `{{define "cluster" -}}
	{{printf "subgraph %q {" .}}
		{{printf "%s" .Attrs.Lines}}
		{{range .Nodes}}
		{{template "node" .}}
		{{- end}}
	{{println "}" }}
{{- end}}`

const tmplEdge = `{{define "edge" -}}
	{{printf "%q -> %q [ %s ]" .From .To .Attrs}}
{{- end}}`

const tmplNode = `{{define "node" -}}
	{{printf "%q [ %s ]" .ID .Attrs}}
{{- end}}`

const tmplGraph = `digraph Summaries {
	label="{{.Title}}";
	labeljust="l";
	fontname="Arial";
	fontsize="14";
	rankdir="{{or .Options.rankdir "LR"}}";
	style="solid";
	penwidth="0.5";
	pad="0.0";
	nodesep="{{.Options.nodesep}}";

	node [shape="box" style="filled" fillcolor="honeydew" fontname="Verdana" penwidth="1.0" margin="0.05,0.0"];
	edge [minlen="{{.Options.minlen}}"]

	{{- range .Clusters}}
	{{template "cluster" .}}
	{{- end}}

	{{range .Nodes}}
	{{template "node" .}}
	{{- end}}

	{{- range .Edges}}
	{{template "edge" .}}
	{{- end}}
}
`

// ==[ type def/func: DotCluster ]===============================================
type DotCluster struct {
	ID    string
	Nodes []*DotNode
	Attrs DotAttrs
}

func NewDotCluster(id string) *DotCluster {
	return &DotCluster{
		ID:    id,
		Attrs: make(DotAttrs),
	}
}

func (c *DotCluster) String() string {
	return fmt.Sprintf("cluster_%s", c.ID)
}

// ==[ type def/func: DotNode    ]===============================================
type DotNode struct {
	ID    string
	Attrs DotAttrs
}

func (n *DotNode) String() string {
	return n.ID
}

// ==[ type def/func: DotEdge    ]===============================================
type DotEdge struct {
	From  *DotNode
	To    *DotNode
	Attrs DotAttrs
}

// ==[ type def/func: DotAttrs   ]===============================================
type DotAttrs map[string]string

// List renders the attributes sorted by key, so output is deterministic.
func (p DotAttrs) List() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	l := make([]string, 0, len(keys))
	for _, k := range keys {
		l = append(l, fmt.Sprintf("%s=%q;", k, p[k]))
	}
	return l
}

func (p DotAttrs) String() string {
	return strings.Join(p.List(), " ")
}

func (p DotAttrs) Lines() string {
	return strings.Join(p.List(), "\n")
}

// ==[ type def/func: DotGraph   ]===============================================
type DotGraph struct {
	Title    string
	Clusters []*DotCluster
	Nodes    []*DotNode
	Edges    []*DotEdge
	Options  map[string]string
}

func (g *DotGraph) WriteDot(w io.Writer) error {
	t := template.New("dot")
	t.Option("missingkey=zero") // Make missing map keys return the zero value of appropriate type
	for _, s := range []string{tmplCluster, tmplNode, tmplEdge, tmplGraph} {
		if _, err := t.Parse(s); err != nil {
			return err
		}
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, g); err != nil {
		return err
	}
	_, err := buf.WriteTo(w)
	return err
}

// Render writes the graph to outfname with the given format extension.
func (g *DotGraph) Render(outfname, format string) (string, error) {
	var buf bytes.Buffer
	if err := g.WriteDot(&buf); err != nil {
		return "", err
	}
	return DotToImage(outfname, format, buf.Bytes())
}
