package report

import (
	"fmt"
	"strings"

	"token-risk-lab/internal/domain"
)

// BatchRow is one classified input of a batch run.
type BatchRow struct {
	Source string // file the input came from
	Mint   string
	Output *domain.ClassifierOutput
	Err    error
}

// RenderCSV renders batch results as CSV. Failed rows carry the error text
// and leave the score columns empty.
func RenderCSV(rows []BatchRow) string {
	var sb strings.Builder

	sb.WriteString("source,mint,risk_score,risk_level,confidence,mode,flags,error\n")

	for _, r := range rows {
		if r.Err != nil || r.Output == nil {
			msg := "no output"
			if r.Err != nil {
				msg = r.Err.Error()
			}
			sb.WriteString(fmt.Sprintf("%s,%s,,,,,,%s\n", csvField(r.Source), csvField(r.Mint), csvField(msg)))
			continue
		}

		flagTypes := make([]string, len(r.Output.Flags))
		for i, f := range r.Output.Flags {
			flagTypes[i] = string(f.Type)
		}

		sb.WriteString(fmt.Sprintf("%s,%s,%d,%s,%d,%s,%s,\n",
			csvField(r.Source),
			csvField(r.Mint),
			r.Output.RiskScore,
			r.Output.RiskLevel,
			r.Output.Confidence,
			r.Output.Mode,
			strings.Join(flagTypes, "|"),
		))
	}

	return sb.String()
}

// csvField quotes s when it contains a separator, quote or newline.
func csvField(s string) string {
	if !strings.ContainsAny(s, ",\"\n") {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
