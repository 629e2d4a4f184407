// Package render turns enriched reports into markdown and HTML.
package render

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"goamr/domain/metrics"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

// Options controls report rendering
type Options struct {
	SortKey metrics.SortKey
	// TargetLink formats a link to a target's detail page; nil renders
	// plain target names.
	TargetLink func(targetID string) string
}

// Markdown renders a complete report
func Markdown(report *metrics.Report, opts Options) []byte {
	var b bytes.Buffer

	fmt.Fprintf(&b, "# Model quality report\n\n")
	fmt.Fprintf(&b, "Report `%s` generated %s from `%s` (input `%s`, z = %.3f).\n\n",
		report.ID, report.GeneratedAt.Format("2006-01-02 15:04 MST"), sourceName(report.Source),
		report.InputHash.Short(), report.Z)

	writeSummary(&b, report)
	writeTargets(&b, report, opts)
	writeFindings(&b, report, opts)
	writeUntrained(&b, report)
	writeRejected(&b, report)

	b.WriteString("\n---\n\n")
	b.WriteString("Confusion matrices and ROC curves are reconstructed from summary statistics. ")
	b.WriteString("They are estimates for display and are not measured on held-out predictions.\n")
	return b.Bytes()
}

func sourceName(source string) string {
	if source == "" {
		return "request"
	}
	return source
}

func writeSummary(b *bytes.Buffer, report *metrics.Report) {
	b.WriteString("## Summary\n\n")
	s := report.Summary
	if s == nil {
		fmt.Fprintf(b, "_%s._\n\n", report.SummaryNote)
		return
	}

	b.WriteString("| Metric | Value |\n|---|---|\n")
	fmt.Fprintf(b, "| Trained models | %d |\n", s.ModelCount)
	fmt.Fprintf(b, "| Untrained targets | %d |\n", s.UntrainedCount)
	fmt.Fprintf(b, "| Total samples | %d |\n", s.TotalSamples)
	fmt.Fprintf(b, "| Mean accuracy | %s |\n", pct(s.MeanAccuracy))
	fmt.Fprintf(b, "| Median accuracy | %s |\n", pct(s.MedianAccuracy))
	fmt.Fprintf(b, "| Accuracy range | %s to %s |\n", pct(s.MinAccuracy), pct(s.MaxAccuracy))
	fmt.Fprintf(b, "| Pooled accuracy | %s %s |\n", pct(s.PooledAccuracy), interval(s.PooledAccuracyCI))
	fmt.Fprintf(b, "| Mean AUC | %.3f |\n", s.MeanAUC)
	fmt.Fprintf(b, "| Mean F1 | %.3f |\n", s.MeanF1)

	kinds := make([]string, 0, len(s.WarningCounts))
	for kind := range s.WarningCounts {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	for _, kind := range kinds {
		fmt.Fprintf(b, "| Warnings: %s | %d |\n", kind, s.WarningCounts[kind])
	}
	b.WriteString("\n")
}

func writeTargets(b *bytes.Buffer, report *metrics.Report, opts Options) {
	ranked := report.Ranked(opts.SortKey)
	if len(ranked) == 0 {
		return
	}

	key := opts.SortKey
	if key == "" {
		key = metrics.SortByAccuracy
	}
	fmt.Fprintf(b, "## Models by %s\n\n", key)
	b.WriteString("| # | Target | Tier | Accuracy | F1 | AUC | Samples (R/S) | Flags |\n")
	b.WriteString("|---|---|---|---|---|---|---|---|\n")
	for i, rec := range ranked {
		fmt.Fprintf(b, "| %d | %s | %s | %s %s | %.3f %s | %.3f | %d (%d/%d) | %s |\n",
			i+1, targetName(rec.TargetID, opts), rec.Tier,
			pct(rec.Accuracy), interval(rec.AccuracyCI),
			rec.F1, interval(rec.F1CI), rec.AUC,
			rec.NSamples, rec.NResistant, rec.NSusceptible,
			flags(rec))
	}
	b.WriteString("\n")
}

func writeFindings(b *bytes.Buffer, report *metrics.Report, opts Options) {
	var lines []string
	for _, rec := range report.Ranked(metrics.SortByAccuracy) {
		if rec.ImbalanceWarning != nil {
			lines = append(lines, fmt.Sprintf("- **%s** (%s): %s", targetName(rec.TargetID, opts),
				rec.ImbalanceWarning.Kind, rec.ImbalanceWarning.Message))
		}
		for _, w := range rec.Warnings {
			lines = append(lines, fmt.Sprintf("- **%s** (%s): %s", targetName(rec.TargetID, opts), w.Kind, w.Message))
		}
	}
	if len(lines) == 0 {
		return
	}
	sort.Strings(lines)
	b.WriteString("## Findings\n\n")
	b.WriteString(strings.Join(lines, "\n"))
	b.WriteString("\n\n")
}

func writeUntrained(b *bytes.Buffer, report *metrics.Report) {
	if len(report.Untrained) == 0 {
		return
	}
	b.WriteString("## Untrained targets\n\n| Target | Status | Reason |\n|---|---|---|\n")
	for _, id := range sortedIDs(report.Untrained) {
		rec := report.Untrained[id]
		reason := rec.Reason
		if reason == "" {
			reason = "-"
		}
		fmt.Fprintf(b, "| %s | %s | %s |\n", id, rec.Status, reason)
	}
	b.WriteString("\n")
}

func writeRejected(b *bytes.Buffer, report *metrics.Report) {
	if len(report.Rejected) == 0 {
		return
	}
	b.WriteString("## Rejected records\n\n| Target | Problems |\n|---|---|\n")
	for _, id := range sortedIDs(report.Rejected) {
		fields := report.Rejected[id].Fields
		parts := make([]string, len(fields))
		for i, f := range fields {
			parts[i] = fmt.Sprintf("`%s` %s", f.Field, f.Reason)
		}
		fmt.Fprintf(b, "| %s | %s |\n", id, strings.Join(parts, "; "))
	}
	b.WriteString("\n")
}

// TargetMarkdown renders the detail view of one enriched record
func TargetMarkdown(rec metrics.EnrichedMetricsRecord) []byte {
	var b bytes.Buffer

	fmt.Fprintf(&b, "# %s\n\n", rec.TargetID)
	fmt.Fprintf(&b, "Tier **%s**, %d samples (%d resistant, %d susceptible), %d-fold cross-validation.\n\n",
		rec.Tier, rec.NSamples, rec.NResistant, rec.NSusceptible, rec.FoldCount)

	b.WriteString("## Metrics\n\n| Metric | Value | Interval |\n|---|---|---|\n")
	fmt.Fprintf(&b, "| Accuracy | %s | %s |\n", pct(rec.Accuracy), interval(rec.AccuracyCI))
	fmt.Fprintf(&b, "| F1 | %.3f | %s |\n", rec.F1, interval(rec.F1CI))
	fmt.Fprintf(&b, "| AUC (reported) | %.3f | |\n", rec.AUC)
	fmt.Fprintf(&b, "| AUC (approximated curve) | %.3f | |\n", rec.CurveAUC)
	fmt.Fprintf(&b, "| Precision | %.3f | |\n", rec.Derived.Precision)
	fmt.Fprintf(&b, "| Recall | %.3f | |\n", rec.Derived.Recall)
	fmt.Fprintf(&b, "| Specificity | %.3f | |\n\n", rec.Derived.Specificity)

	heading := "## Confusion matrix (estimated)"
	if !rec.ConfusionConsistent {
		heading = "## Confusion matrix (estimated, low confidence)"
	}
	b.WriteString(heading + "\n\n")
	b.WriteString("| | Predicted resistant | Predicted susceptible |\n|---|---|---|\n")
	fmt.Fprintf(&b, "| Resistant | %d | %d |\n", rec.Confusion.TP, rec.Confusion.FN)
	fmt.Fprintf(&b, "| Susceptible | %d | %d |\n\n", rec.Confusion.FP, rec.Confusion.TN)

	if rec.ImbalanceWarning != nil || len(rec.Warnings) > 0 {
		b.WriteString("## Warnings\n\n")
		if w := rec.ImbalanceWarning; w != nil {
			fmt.Fprintf(&b, "- %s: %s\n", w.Kind, w.Message)
		}
		for _, w := range rec.Warnings {
			fmt.Fprintf(&b, "- %s: %s\n", w.Kind, w.Message)
		}
		b.WriteString("\n")
	}

	if len(rec.TopFeatures) > 0 {
		b.WriteString("## Top features\n\n| Feature | Importance |\n|---|---|\n")
		for _, f := range rec.TopFeatures {
			fmt.Fprintf(&b, "| `%s` | %.4f |\n", f.Feature, f.Importance)
		}
		b.WriteString("\n")
	}

	b.WriteString("## ROC curve (illustrative)\n\n| FPR | TPR |\n|---|---|\n")
	for _, p := range rec.ROCPoints {
		fmt.Fprintf(&b, "| %.3f | %.3f |\n", p.FPR, p.TPR)
	}
	return b.Bytes()
}

// HTML converts markdown to an HTML fragment
func HTML(md []byte) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	renderer := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags})
	return markdown.ToHTML(md, p, renderer)
}

func flags(rec metrics.EnrichedMetricsRecord) string {
	var out []string
	if rec.ImbalanceWarning != nil {
		out = append(out, string(rec.ImbalanceWarning.Kind))
	}
	if !rec.ConfusionConsistent {
		out = append(out, "low confidence")
	}
	if len(out) == 0 {
		return "-"
	}
	return strings.Join(out, ", ")
}

func targetName(id string, opts Options) string {
	if opts.TargetLink == nil {
		return id
	}
	return fmt.Sprintf("[%s](%s)", id, opts.TargetLink(id))
}

func pct(v float64) string {
	return fmt.Sprintf("%.1f%%", v*100)
}

func interval(i metrics.Interval) string {
	return fmt.Sprintf("[%.3f, %.3f]", i.Lo, i.Hi)
}

func sortedIDs[V any](m map[string]V) []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
