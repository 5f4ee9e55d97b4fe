package report

import (
	"fmt"
	"strings"

	"github.com/sells-group/house-report/internal/model"
)

// NoData replaces the content of every absent section.
const NoData = "Aucune donnée disponible"

var flagMarks = map[model.Flag]string{
	model.FlagWarn: "[attention]",
	model.FlagRisk: "[risque]",
}

// Markdown renders p as a plain Markdown report. Every known section is
// listed; absent ones carry the NoData placeholder.
func Markdown(p *model.HouseProfile) string {
	var b strings.Builder
	if p == nil {
		fmt.Fprintf(&b, "# Rapport immobilier\n\n%s\n", NoData)
		return b.String()
	}

	title := p.Location.Label
	if title == "" {
		title = p.Query.Address
	}
	fmt.Fprintf(&b, "# Rapport immobilier: %s\n", title)
	if !p.Meta.GeneratedAt.IsZero() {
		fmt.Fprintf(&b, "Généré le %s en %d ms\n", p.Meta.GeneratedAt.Format("02/01/2006 15:04"), p.Meta.ProcessingMS)
	}
	b.WriteString("\n")

	for _, pr := range projectors {
		fmt.Fprintf(&b, "## %s\n", pr.title)
		items, notes, ok := pr.build(p)
		if !ok {
			fmt.Fprintf(&b, "%s\n\n", NoData)
			continue
		}
		for _, it := range items {
			fmt.Fprintf(&b, "- **%s**: %s", it.Label, it.Value)
			if mark, ok := flagMarks[it.Flag]; ok {
				fmt.Fprintf(&b, " %s", mark)
			}
			b.WriteString("\n")
			if it.Hint != "" {
				fmt.Fprintf(&b, "  _%s_\n", it.Hint)
			}
		}
		for _, n := range notes {
			fmt.Fprintf(&b, "> %s\n", n)
		}
		b.WriteString("\n")
	}

	if len(p.Meta.Warnings) > 0 {
		b.WriteString("## Sources indisponibles\n")
		for _, w := range p.Meta.Warnings {
			fmt.Fprintf(&b, "- %s\n", w)
		}
		b.WriteString("\n")
	}
	return b.String()
}
