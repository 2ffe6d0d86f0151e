package plan

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/janusql/planner/operator"
	"github.com/janusql/planner/predicate"
)

// Explain renders p's operator tree as the stable nested, ->-indented
// text format spec §6 names: `[index]`, `bounds:`, `reverse:`,
// `est. entries:`, `satisfies:` annotations per node. Grounded on
// datalog/planner/types.go's QueryPlan.String()/Phase.String()
// indent-as-you-recurse tree printer, generalized from fixed
// Patterns/Predicates/Expressions sections to a single recursive
// operator walk.
func Explain(p *Plan) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Plan %s (cost=%s)\n", p.ID, humanize.Commaf(p.TotalCost))
	writeOperator(&sb, p.Root, 0)
	if p.PostFilterPredicate != nil {
		fmt.Fprintf(&sb, "post-filter: %s\n", p.PostFilterPredicate.String())
	}
	return sb.String()
}

func writeOperator(sb *strings.Builder, op *operator.Operator, depth int) {
	if op == nil {
		return
	}
	indent := strings.Repeat("  ", depth)
	if depth > 0 {
		indent += "-> "
	}

	sb.WriteString(indent)
	sb.WriteString(op.Kind.String())
	if op.IndexName != "" {
		fmt.Fprintf(sb, " [%s]", op.IndexName)
	}
	if op.Bounds != nil {
		fmt.Fprintf(sb, " bounds:%s", boundsString(op.Bounds))
	}
	if op.Reverse {
		sb.WriteString(" reverse:true")
	}
	if op.EstimatedEntries > 0 {
		fmt.Fprintf(sb, " est. entries:%s", humanize.Comma(op.EstimatedEntries))
	}
	if len(op.SatisfiedIDs) > 0 {
		fmt.Fprintf(sb, " satisfies:%d", len(op.SatisfiedIDs))
	}
	if op.Predicate != nil {
		fmt.Fprintf(sb, " predicate:%s", op.Predicate.String())
	}
	if len(op.SortDescriptors) > 0 {
		fmt.Fprintf(sb, " by:%s", sortDescriptorsString(op.SortDescriptors))
	}
	if op.LimitCount != nil {
		fmt.Fprintf(sb, " limit:%d", *op.LimitCount)
	}
	sb.WriteString("\n")

	for _, c := range op.ChildrenOf() {
		writeOperator(sb, c, depth+1)
	}
}

// boundsString renders a Bounds as a conventional interval notation,
// e.g. "[10,50)" or "(-inf,100]".
func boundsString(b *predicate.Bounds) string {
	lower, upper := "-inf", "+inf"
	if b.Lower != nil {
		lower = b.Lower.String()
	}
	if b.Upper != nil {
		upper = b.Upper.String()
	}
	open, shut := "(", ")"
	if b.LowerInclusive {
		open = "["
	}
	if b.UpperInclusive {
		shut = "]"
	}
	return fmt.Sprintf("%s%s,%s%s", open, lower, upper, shut)
}

func sortDescriptorsString(ds []operator.SortDescriptor) string {
	parts := make([]string, len(ds))
	for i, d := range ds {
		dir := "asc"
		if d.Descending {
			dir = "desc"
		}
		parts[i] = fmt.Sprintf("%s %s", d.Field, dir)
	}
	return strings.Join(parts, ",")
}

// ExplainTable renders p as a colorized, column-aligned table — one row
// per operator node — for terminal display by cmd/planner-demo.
// Grounded on the teacher's cmd/datalog CLI's isatty-gated colorized
// output; generalized from a datom-tuple table to an operator-tree
// table.
func ExplainTable(p *Plan, colorEnabled bool) string {
	var sb strings.Builder
	table := tablewriter.NewTable(&sb)
	table.Header([]string{"Node", "Index", "Est. Entries", "Notes"})

	highlight := func(s string) string {
		if !colorEnabled {
			return s
		}
		return color.New(color.FgCyan).Sprint(s)
	}

	var rows func(op *operator.Operator, depth int)
	rows = func(op *operator.Operator, depth int) {
		if op == nil {
			return
		}
		name := strings.Repeat("  ", depth) + op.Kind.String()
		notes := ""
		if op.Predicate != nil {
			notes = op.Predicate.String()
		}
		table.Append([]string{highlight(name), op.IndexName, humanize.Comma(op.EstimatedEntries), notes})
		for _, c := range op.ChildrenOf() {
			rows(c, depth+1)
		}
	}
	rows(p.Root, 0)
	table.Render()
	return sb.String()
}

// ExplainResult is the JSON counterpart to Explain's text output (spec
// §6): estimatedCost, usedIndexes, usedFields, orderingSatisfied, and a
// nested operatorTree.
type ExplainResult struct {
	PlanID              string          `json:"planId"`
	EstimatedCost       float64         `json:"estimatedCost"`
	UsedIndexes         []string        `json:"usedIndexes"`
	UsedFields          []string        `json:"usedFields"`
	OrderingSatisfied   bool            `json:"orderingSatisfied"`
	PostFilterPredicate string          `json:"postFilterPredicate,omitempty"`
	OperatorTree        *OperatorNode   `json:"operatorTree"`
}

// OperatorNode is one JSON node of the operator tree.
type OperatorNode struct {
	Kind             string          `json:"kind"`
	IndexName        string          `json:"indexName,omitempty"`
	Bounds           string          `json:"bounds,omitempty"`
	Reverse          bool            `json:"reverse,omitempty"`
	EstimatedEntries int64           `json:"estimatedEntries,omitempty"`
	SatisfiedCount   int             `json:"satisfiedCount,omitempty"`
	Predicate        string          `json:"predicate,omitempty"`
	SortBy           string          `json:"sortBy,omitempty"`
	Limit            *int            `json:"limit,omitempty"`
	Children         []*OperatorNode `json:"children,omitempty"`
}

// ExplainJSON builds the structured document spec §6 names, parallel
// to Explain's text format; MarshalExplainJSON renders it as JSON.
func ExplainJSON(p *Plan) (ExplainResult, error) {
	r := ExplainResult{
		PlanID:            p.ID,
		EstimatedCost:     p.TotalCost,
		UsedIndexes:       p.UsedIndexes,
		UsedFields:        p.UsedFields,
		OrderingSatisfied: p.OrderingSatisfied,
		OperatorTree:      toOperatorNode(p.Root),
	}
	if p.PostFilterPredicate != nil {
		r.PostFilterPredicate = p.PostFilterPredicate.String()
	}
	return r, nil
}

// MarshalExplainJSON renders p as indented JSON via ExplainJSON.
func MarshalExplainJSON(p *Plan) ([]byte, error) {
	r, err := ExplainJSON(p)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(r, "", "  ")
}

func toOperatorNode(op *operator.Operator) *OperatorNode {
	if op == nil {
		return nil
	}
	n := &OperatorNode{
		Kind:             op.Kind.String(),
		IndexName:        op.IndexName,
		Reverse:          op.Reverse,
		EstimatedEntries: op.EstimatedEntries,
		SatisfiedCount:   len(op.SatisfiedIDs),
		Limit:            op.LimitCount,
	}
	if op.Bounds != nil {
		n.Bounds = boundsString(op.Bounds)
	}
	if op.Predicate != nil {
		n.Predicate = op.Predicate.String()
	}
	if len(op.SortDescriptors) > 0 {
		n.SortBy = sortDescriptorsString(op.SortDescriptors)
	}
	for _, c := range op.ChildrenOf() {
		n.Children = append(n.Children, toOperatorNode(c))
	}
	return n
}
