package main

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/internal/analysis"
	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/internal/dictionary"
	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/internal/scorer"
)

// writeTable prints the report as aligned plain-text tables. Undefined values
// print as "-".
func writeTable(out io.Writer, report *analysis.Report, withScores bool) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)

	fmt.Fprintf(tw, "run %s\tregistry %s\tdocuments %d\tgroups %d\t%dms\n\n",
		report.RunID, report.Registry, report.Documents, len(report.Groups), report.DurationMs)

	fmt.Fprintln(tw, "DICTIONARY\tMETRIC\tGROUP\tN\tEXCLUDED\tMEAN\tSTDDEV\tMIN\tMAX")
	for _, s := range report.Summaries {
		writeStat(tw, s.Dictionary, s.Metric, "(all)", s.Overall)
		for _, g := range report.Groups {
			if st, ok := s.Groups[g]; ok {
				writeStat(tw, s.Dictionary, s.Metric, g, st)
			}
		}
	}

	if len(report.Exclusions) > 0 {
		fmt.Fprintln(tw, "\nDICTIONARY\tEXCLUSION\tDOCUMENTS")
		for _, e := range report.Exclusions {
			fmt.Fprintf(tw, "%s\t%s\t%d\n", e.Dictionary, e.Reason, e.Count)
		}
	}

	fmt.Fprintf(tw, "\nGROUP\tDISTINCTIVE TERMS (tf-idf %s)\n", report.Aggregation)
	for _, g := range report.Groups {
		fmt.Fprintf(tw, "%s\t%s\n", g, joinTerms(report.Distinctive[g]))
	}

	dicts := make([]string, 0, len(report.Rated))
	for name := range report.Rated {
		dicts = append(dicts, name)
	}
	sort.Strings(dicts)
	for _, name := range dicts {
		fmt.Fprintf(tw, "\nGROUP\tHIGHEST %s\tLOWEST %s\n", strings.ToUpper(name), strings.ToUpper(name))
		for _, g := range report.Groups {
			ex := report.Rated[name][g]
			fmt.Fprintf(tw, "%s\t%s\t%s\n", g, joinTerms(ex.Highest), joinTerms(ex.Lowest))
		}
	}

	if withScores && len(report.Scores) > 0 {
		writeScores(tw, report.Scores)
	}
	return tw.Flush()
}

func writeScores(tw *tabwriter.Writer, scores []scorer.DocumentScore) {
	header := []string{"DOCUMENT", "GROUP", "TOKENS"}
	for _, r := range scores[0].Results {
		header = append(header, strings.ToUpper(r.Dictionary))
	}
	header = append(header, "NET")
	fmt.Fprintln(tw, "\n"+strings.Join(header, "\t"))

	for _, ds := range scores {
		row := []string{ds.DocumentID, ds.Label, fmt.Sprint(ds.Tokens)}
		for _, r := range ds.Results {
			if r.Kind == dictionary.KindWeighted {
				row = append(row, formatFloat(r.WeightedAverage))
			} else {
				row = append(row, formatFloat(r.Proportion))
			}
		}
		var net *float64
		if ds.Sentiment != nil {
			net = ds.Sentiment.Net
		}
		row = append(row, formatFloat(net))
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
}

func writeStat(tw *tabwriter.Writer, dict, metric, group string, st analysis.Stat) {
	fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\t%s\t%s\t%s\n",
		dict, metric, group, st.N, st.Excluded,
		formatFloat(st.Mean), formatFloat(st.StdDev), formatFloat(st.Min), formatFloat(st.Max))
}

func formatFloat(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.4f", *v)
}

func joinTerms(terms []scorer.TermScore) string {
	if len(terms) == 0 {
		return "-"
	}
	parts := make([]string, len(terms))
	for i, t := range terms {
		parts[i] = fmt.Sprintf("%s (%.3f)", t.Term, t.Score)
	}
	return strings.Join(parts, ", ")
}
