package diagrams

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ziadkadry99/sitemermaid/internal/sitemap"
)

// Grouping selects how nodes are collected into tier subgraphs.
type Grouping string

const (
	// GroupByLevel emits one tier per depth, numbered from tier1.
	GroupByLevel Grouping = "level"
	// GroupByParent emits one tier per distinct parent, numbered from tier0.
	GroupByParent Grouping = "parent"
)

// Valid reports whether g is a known grouping policy.
func (g Grouping) Valid() bool {
	return g == GroupByLevel || g == GroupByParent
}

// Options controls markup generation.
type Options struct {
	Grouping Grouping
	// Title, when set, is emitted as Mermaid front matter above the graph.
	Title string
}

// Generator renders flat sitemap nodes as a tiered Mermaid graph.
type Generator struct {
	opts Options
}

// NewGenerator returns a Generator. An empty grouping defaults to GroupByLevel.
func NewGenerator(opts Options) *Generator {
	if opts.Grouping == "" {
		opts.Grouping = GroupByLevel
	}
	return &Generator{opts: opts}
}

// Options returns the generator's effective options.
func (g *Generator) Options() Options { return g.opts }

// Generate renders nodes as Mermaid markup. With a non-empty startID only
// that node and its descendants are rendered, and the start node is drawn
// as the sole root. Returns sitemap.ErrNodeNotFound for an unknown startID.
func (g *Generator) Generate(nodes []sitemap.FlatNode, startID string) (string, error) {
	tiers, err := g.Tiers(nodes, startID)
	if err != nil {
		return "", err
	}
	return g.render(tiers), nil
}

// Generate renders nodes with the default level grouping and no title.
func Generate(nodes []sitemap.FlatNode, startID string) (string, error) {
	return NewGenerator(Options{}).Generate(nodes, startID)
}

// Tier is one subgraph of the diagram.
type Tier struct {
	ID    string
	Nodes []TierNode
}

// TierNode is a node as drawn inside a tier. Parent is empty for nodes
// drawn as roots.
type TierNode struct {
	ID     string
	Name   string
	Parent string
}

// Tiers groups the selected nodes into ordered, non-empty tiers.
func (g *Generator) Tiers(nodes []sitemap.FlatNode, startID string) ([]Tier, error) {
	subset, err := sitemap.NewIndex(nodes).Select(startID)
	if err != nil {
		return nil, fmt.Errorf("selecting subtree: %w", err)
	}

	rel := newRelations(subset, startID)
	if g.opts.Grouping == GroupByParent {
		return groupByParent(subset, rel), nil
	}
	return groupByLevel(subset, rel), nil
}

func groupByLevel(subset []sitemap.FlatNode, rel *relations) []Tier {
	maxDepth := 0
	depths := make([]int, len(subset))
	for i, n := range subset {
		depths[i] = rel.depth(n.ID)
		if depths[i] > maxDepth {
			maxDepth = depths[i]
		}
	}

	buckets := make([][]TierNode, maxDepth+1)
	for i, n := range subset {
		buckets[depths[i]] = append(buckets[depths[i]], rel.tierNode(n))
	}

	var tiers []Tier
	for _, bucket := range buckets {
		if len(bucket) == 0 {
			continue
		}
		tiers = append(tiers, Tier{
			ID:    fmt.Sprintf("tier%d", len(tiers)+1),
			Nodes: bucket,
		})
	}
	return tiers
}

func groupByParent(subset []sitemap.FlatNode, rel *relations) []Tier {
	order := make(map[string]int)
	var tiers []Tier
	for _, n := range subset {
		tn := rel.tierNode(n)
		i, ok := order[tn.Parent]
		if !ok {
			i = len(tiers)
			order[tn.Parent] = i
			tiers = append(tiers, Tier{ID: fmt.Sprintf("tier%d", i)})
		}
		tiers[i].Nodes = append(tiers[i].Nodes, tn)
	}
	return tiers
}

// relations resolves effective parents and depths within a node subset.
type relations struct {
	startID string
	byID    map[string]sitemap.FlatNode
	depths  map[string]int
}

func newRelations(subset []sitemap.FlatNode, startID string) *relations {
	r := &relations{
		startID: startID,
		byID:    make(map[string]sitemap.FlatNode, len(subset)),
		depths:  make(map[string]int, len(subset)),
	}
	for _, n := range subset {
		if _, ok := r.byID[n.ID]; !ok {
			r.byID[n.ID] = n
		}
	}
	return r
}

// parent returns the parent id of n when that parent is part of the subset.
func (r *relations) parent(n sitemap.FlatNode) string {
	if n.IsRoot() || n.ID == r.startID {
		return ""
	}
	if _, ok := r.byID[n.ParentID]; !ok {
		return ""
	}
	return n.ParentID
}

func (r *relations) depth(id string) int {
	if d, ok := r.depths[id]; ok {
		if d == 0 {
			// Revisited while resolving: a parent cycle. Break it here.
			return 1
		}
		return d
	}
	r.depths[id] = 0
	d := 1
	if p := r.parent(r.byID[id]); p != "" {
		d = r.depth(p) + 1
	}
	r.depths[id] = d
	return d
}

func (r *relations) tierNode(n sitemap.FlatNode) TierNode {
	return TierNode{ID: n.ID, Name: n.Name, Parent: r.parent(n)}
}

func (g *Generator) render(tiers []Tier) string {
	var b strings.Builder
	if g.opts.Title != "" {
		fmt.Fprintf(&b, "---\nconfig:\n  title: %s\n---\n\n", frontMatterValue(g.opts.Title))
	}
	b.WriteString("graph TD\n")
	b.WriteString("  classDef containers fill:transparent,stroke-width:0\n\n")

	names := newNodeIDs(tiers)
	ids := make([]string, len(tiers))
	for i, t := range tiers {
		ids[i] = t.ID
		fmt.Fprintf(&b, "  subgraph %s[\" \"]\n", t.ID)
		for _, n := range t.Nodes {
			if n.Parent == "" {
				fmt.Fprintf(&b, "    %s[\"%s\"]\n", names.get(n.ID), escapeMermaid(n.Name))
			} else {
				fmt.Fprintf(&b, "    %s --- %s[\"%s\"]\n", names.get(n.Parent), names.get(n.ID), escapeMermaid(n.Name))
			}
		}
		b.WriteString("  end\n\n")
	}

	if len(ids) > 0 {
		fmt.Fprintf(&b, "  class %s containers", strings.Join(ids, ","))
	}
	return b.String()
}

// frontMatterValue renders a title as a single-line YAML scalar, quoted
// when the plain form would not parse back to the same string.
func frontMatterValue(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	out, err := yaml.Marshal(s)
	if err != nil {
		return strconv.Quote(s)
	}
	v := strings.TrimSuffix(string(out), "\n")
	if strings.Contains(v, "\n") {
		return strconv.Quote(s)
	}
	return v
}

// reservedIDs are flowchart keywords that cannot name a node.
var reservedIDs = map[string]bool{
	"end": true, "graph": true, "flowchart": true, "subgraph": true,
	"class": true, "classdef": true, "style": true, "linkstyle": true,
	"click": true, "direction": true, "default": true,
}

// nodeIDs maps node ids to Mermaid ids, one-to-one within a diagram.
type nodeIDs struct {
	byNode map[string]string
	taken  map[string]bool
}

// newNodeIDs assigns Mermaid ids for every node in tiers. Tier ids are
// reserved first. Ids that are already safe keep their spelling; the rest
// are sanitized and suffixed with _2, _3, ... until unused.
func newNodeIDs(tiers []Tier) *nodeIDs {
	m := &nodeIDs{byNode: make(map[string]string), taken: make(map[string]bool)}
	for _, t := range tiers {
		m.taken[t.ID] = true
	}
	var pending []string
	for _, t := range tiers {
		for _, n := range t.Nodes {
			if _, ok := m.byNode[n.ID]; ok {
				continue
			}
			if safe := sanitizeID(n.ID); safe == n.ID && !m.taken[safe] && !reservedIDs[strings.ToLower(safe)] {
				m.byNode[n.ID] = safe
				m.taken[safe] = true
				continue
			}
			pending = append(pending, n.ID)
		}
	}
	for _, id := range pending {
		if _, ok := m.byNode[id]; ok {
			continue
		}
		base := sanitizeID(id)
		if reservedIDs[strings.ToLower(base)] {
			base += "_"
		}
		name := base
		for i := 2; m.taken[name]; i++ {
			name = base + "_" + strconv.Itoa(i)
		}
		m.byNode[id] = name
		m.taken[name] = true
	}
	return m
}

func (m *nodeIDs) get(id string) string {
	if name, ok := m.byNode[id]; ok {
		return name
	}
	return sanitizeID(id)
}

// sanitizeID keeps ASCII letters, digits and underscores and replaces every
// other rune with an underscore. The result is never empty.
func sanitizeID(s string) string {
	if s == "" {
		return "_"
	}
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

var lineBreaks = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

// escapeMermaid escapes characters that have special meaning in mermaid labels.
func escapeMermaid(s string) string {
	s = lineBreaks.Replace(s)
	// '#' first, so entity codes already present in a name stay literal.
	s = strings.ReplaceAll(s, "#", "#35;")
	s = strings.ReplaceAll(s, "\"", "#quot;")
	s = strings.ReplaceAll(s, "(", "#lpar;")
	s = strings.ReplaceAll(s, ")", "#rpar;")
	s = strings.ReplaceAll(s, "[", "#lsqb;")
	s = strings.ReplaceAll(s, "]", "#rsqb;")
	s = strings.ReplaceAll(s, "{", "#lbrace;")
	s = strings.ReplaceAll(s, "}", "#rbrace;")
	s = strings.ReplaceAll(s, "<", "#lt;")
	s = strings.ReplaceAll(s, ">", "#gt;")
	return s
}
