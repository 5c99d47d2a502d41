// Package report renders classifier results for humans and spreadsheets.
package report

import (
	"fmt"
	"strings"

	"token-risk-lab/internal/classifier"
	"token-risk-lab/internal/domain"
)

// RenderCollapseMarkdown renders a quantization collapse check as Markdown.
func RenderCollapseMarkdown(info classifier.ModelInfo, r *classifier.CollapseReport) string {
	var sb strings.Builder

	sb.WriteString("# Quantization Collapse Check\n\n")

	sb.WriteString("## Model\n\n")
	sb.WriteString(fmt.Sprintf("- Mode: %s\n", info.Mode))
	if info.Quantization != "" {
		sb.WriteString(fmt.Sprintf("- Quantization: %s\n", info.Quantization))
	}
	if len(info.Architecture) > 0 {
		sb.WriteString(fmt.Sprintf("- Architecture: %s\n", joinInts(info.Architecture)))
	}
	if info.Fingerprint != "" {
		sb.WriteString(fmt.Sprintf("- Fingerprint: %s\n", info.Fingerprint))
	}
	sb.WriteString("\n")

	if r == nil {
		sb.WriteString("No neural model loaded; nothing to check.\n")
		return sb.String()
	}

	sb.WriteString("## Checks\n\n")
	sb.WriteString("| # | Check | Threshold | Actual | Pass |\n")
	sb.WriteString("|---|-------|-----------|--------|------|\n")
	passed := 0
	for i, c := range r.Checks {
		passStr := "PASS"
		if c.Pass {
			passed++
		} else {
			passStr = "FAIL"
		}
		sb.WriteString(fmt.Sprintf("| %d | %s | %s | %s | %s |\n",
			i+1, c.Name, c.Threshold, c.Actual, passStr))
	}
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("Checks: %d/%d passed\n\n", passed, len(r.Checks)))

	sb.WriteString("## Verdict\n\n")
	if r.Collapsed {
		sb.WriteString(fmt.Sprintf("COLLAPSED: the neural model separates the probes by %d points while the rule-based scorer separates them by %d.\n",
			r.NeuralSeparation, r.RuleSeparation))
	} else {
		sb.WriteString("OK: no quantization collapse detected.\n")
	}

	return sb.String()
}

// RenderVerdictMarkdown renders a single classification as Markdown.
// mint may be empty for raw-vector requests.
func RenderVerdictMarkdown(mint string, out *domain.ClassifierOutput) string {
	var sb strings.Builder

	if mint != "" {
		sb.WriteString(fmt.Sprintf("# Risk Verdict: %s\n\n", mint))
	} else {
		sb.WriteString("# Risk Verdict\n\n")
	}

	sb.WriteString(fmt.Sprintf("- Level: **%s**\n", out.RiskLevel))
	sb.WriteString(fmt.Sprintf("- Score: %d/100\n", out.RiskScore))
	sb.WriteString(fmt.Sprintf("- Confidence: %d%%\n", out.Confidence))
	sb.WriteString(fmt.Sprintf("- Mode: %s\n", out.Mode))
	if len(out.Probabilities) == 4 {
		sb.WriteString(fmt.Sprintf("- Probabilities: SAFE %.3f, SUSPICIOUS %.3f, DANGEROUS %.3f, SCAM %.3f\n",
			out.Probabilities[0], out.Probabilities[1], out.Probabilities[2], out.Probabilities[3]))
	}
	sb.WriteString("\n")

	sb.WriteString("## Flags\n\n")
	if len(out.Flags) == 0 {
		sb.WriteString("None.\n\n")
	} else {
		sb.WriteString("| Flag | Severity | Probability |\n")
		sb.WriteString("|------|----------|-------------|\n")
		for _, f := range out.Flags {
			sb.WriteString(fmt.Sprintf("| %s | %s | %.2f |\n", f.Type, f.Severity, f.Probability))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("## Feature Importance\n\n")
	sb.WriteString("| Category | Share |\n")
	sb.WriteString("|----------|-------|\n")
	for _, c := range domain.Categories {
		sb.WriteString(fmt.Sprintf("| %s | %.1f%% |\n", c, out.FeatureImportance[c]*100))
	}

	return sb.String()
}

func joinInts(xs []int) string {
	parts := make([]string, len(xs))
	for i, x := range xs {
		parts[i] = fmt.Sprint(x)
	}
	return strings.Join(parts, "-")
}
