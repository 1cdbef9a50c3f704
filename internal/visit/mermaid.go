// internal/visit/mermaid.go
//
// Mermaid flowchart text for a session journey.
//
// Context
// -------
// The admin detail page embeds the output in a `<pre class="mermaid">`
// block and the API serves it as `journey.mmd`.  One node per step,
// labelled with time and path; edges carry the gap in seconds.
//
// Notes
// -----
//   - A step whose url is NULL is labelled "/" in the diagram, while the
//     journey table keeps UnknownPage.
//   - Brackets, parentheses, and double quotes are stripped from labels.
//   - Oxford commas, two spaces after periods.
package visit

import (
	"fmt"
	"strings"
)

// mermaidUnsafe strips characters that break Mermaid node labels.
var mermaidUnsafe = strings.NewReplacer("[", "", "]", "", "(", "", ")", "", `"`, "")

// Mermaid renders the journey as a left-to-right flowchart.  Each node shows
// the step time and path; edges carry the gap in seconds; the current step
// gets the "current" class.
func (j *Journey) Mermaid() string {
	var b strings.Builder
	b.WriteString("graph LR\n")

	for i, st := range j.Steps {
		node := fmt.Sprintf("step%d", st.Step)
		style := ""
		if st.Current {
			style = ":::current"
		}
		fmt.Fprintf(&b, "    %s[\"%s<br/>%s\"]%s\n", node, st.Time, mermaidUnsafe.Replace(nodePath(st)), style)

		if i+1 < len(j.Steps) && st.SecondsToNext != nil {
			fmt.Fprintf(&b, "    %s -->|%ds| step%d\n", node, *st.SecondsToNext, j.Steps[i+1].Step)
		}
	}

	b.WriteString("\n    classDef current fill:#4ade80,stroke:#22c55e,stroke-width:3px,color:#000\n")
	return b.String()
}

// nodePath is the diagram label for st.
func nodePath(st Step) string {
	if st.FullURL == nil || *st.FullURL == "" {
		return "/"
	}
	return st.Page
}
