// Command planner-demo exercises the query planner over a small
// in-memory schema, printing its chosen plan as an indented tree, a
// colorized table, or JSON (spec §6).
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/janusql/planner/hints"
	"github.com/janusql/planner/index"
	"github.com/janusql/planner/operator"
	"github.com/janusql/planner/plan"
	"github.com/janusql/planner/predicate"
	"github.com/janusql/planner/stats"
	"github.com/janusql/planner/value"
)

func main() {
	var explainFormat string
	var weightsPath string
	var forceTableScan bool
	var preferredIndex string
	var help bool

	flag.StringVar(&explainFormat, "explain", "tree", "explain output format: tree, table, or json")
	flag.StringVar(&weightsPath, "weights", "", "path to a YAML cost-weights file (defaults built in)")
	flag.BoolVar(&forceTableScan, "force-table-scan", false, "force the table-scan plan family")
	flag.StringVar(&preferredIndex, "prefer-index", "", "bias the optimizer toward this index name")
	flag.BoolVar(&help, "h", false, "show help")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Plans a small set of demo queries over a sample schema.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if help {
		flag.Usage()
		os.Exit(0)
	}

	weights := plan.DefaultWeights()
	if weightsPath != "" {
		w, err := plan.LoadWeights(weightsPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to load weights: %v\n", err)
			os.Exit(1)
		}
		weights = w
	}

	h := hints.Hints{ForceTableScan: forceTableScan}
	if preferredIndex != "" {
		h.PreferredIndex = &preferredIndex
	}

	indexes := demoIndexes()
	registry := index.NewRegistry()
	provider := stats.NewDefaultProvider()

	colorEnabled := isatty.IsTerminal(os.Stdout.Fd())
	color.NoColor = !colorEnabled

	for _, q := range demoQueries() {
		fmt.Printf("=== %s ===\n", q.label)

		start := time.Now()
		p, err := plan.BuildPlan(q.query, indexes, registry, provider, h, weights)
		elapsed := time.Since(start)
		if err != nil {
			fmt.Fprintf(os.Stderr, "plan error: %v\n\n", err)
			continue
		}

		switch explainFormat {
		case "json":
			out, err := plan.MarshalExplainJSON(p)
			if err != nil {
				fmt.Fprintf(os.Stderr, "explain error: %v\n\n", err)
				continue
			}
			fmt.Println(string(out))
		case "table":
			fmt.Println(plan.ExplainTable(p, colorEnabled))
		default:
			fmt.Println(plan.Explain(p))
		}

		fmt.Printf("planned in %s\n\n", elapsed)
	}
}

type demoQuery struct {
	label string
	query plan.Query
}

// demoIndexes describes a small User schema: a unique scalar index on
// email, a composite on (status, createdAt), a full-text index on bio,
// and a covering index exposing displayName without a record fetch.
func demoIndexes() []index.IndexDescriptor {
	return []index.IndexDescriptor{
		{Name: "idx_user_email", KindIdentifier: index.KindScalar, KeyPaths: []string{"email"}, IsUnique: true},
		{Name: "idx_user_status_created", KindIdentifier: index.KindScalar, KeyPaths: []string{"status", "createdAt"}},
		{Name: "idx_user_bio_fts", KindIdentifier: index.KindFullText, KeyPaths: []string{"bio"}},
		{Name: "idx_user_status_covering", KindIdentifier: index.KindScalar, KeyPaths: []string{"status"}, StoredKeyPaths: []string{"displayName"}},
	}
}

func demoQueries() []demoQuery {
	limit := 20
	return []demoQuery{
		{
			label: "lookup by unique email",
			query: plan.Query{
				TypeName:  "User",
				Predicate: eq("email", value.NewString("ada@example.com")),
			},
		},
		{
			label: "composite filter with sort and limit",
			query: plan.Query{
				TypeName: "User",
				Predicate: predicate.And(
					eq("status", value.NewString("active")),
					gt("createdAt", value.NewTimestamp(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))),
				),
				SortBy: []operator.SortDescriptor{{Field: "createdAt", Descending: true}},
				Limit:  &limit,
			},
		},
		{
			label: "covering scan on status only",
			query: plan.Query{
				TypeName:  "User",
				Predicate: eq("status", value.NewString("active")),
			},
		},
		{
			label: "full-text search with residual filter",
			query: plan.Query{
				TypeName: "User",
				Predicate: predicate.And(
					fullText("bio", "distributed systems"),
					eq("status", value.NewString("active")),
				),
			},
		},
		{
			label: "unindexed field falls back to table scan",
			query: plan.Query{
				TypeName:  "User",
				Predicate: eq("timezone", value.NewString("UTC")),
			},
		},
	}
}

func eq(field string, v value.Value) predicate.Predicate {
	return predicate.Cmp(predicate.FieldComparison{Field: field, Op: predicate.OpEQ, Value: v})
}

func gt(field string, v value.Value) predicate.Predicate {
	return predicate.Cmp(predicate.FieldComparison{Field: field, Op: predicate.OpGT, Value: v})
}

// fullText builds a "contains" comparison: condition.FromComparison
// maps OpContains to a StringPattern/PatternContains condition, which
// FullTextStrategy treats the same as a dedicated text-search condition.
func fullText(field, term string) predicate.Predicate {
	return predicate.Cmp(predicate.FieldComparison{Field: field, Op: predicate.OpContains, Value: value.NewString(term)})
}
