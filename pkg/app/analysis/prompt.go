package analysis

import (
	"strings"

	"github.com/ApexGov/inspector/pkg/domain/geo"
	"github.com/ApexGov/inspector/pkg/domain/regulation"
)

const SystemPrompt = "You are an expert government building inspector in Lahore. " +
	"Structure your analysis on the Punjab Building Regulations provided to you."

// Instructions are the fixed rules sent with every remote submission.
var Instructions = []string{
	"If the building is visibly safe (fire extinguishers, clear exits, clean site), return no issues, set confidenceScore to 95 or higher and describe it as compliant.",
	"Otherwise list every visible violation as an issue with title, description, severity (High, Medium or Low) and location.",
	"Cite only regulations from the provided list. Put the regulation id or code reference in regulationReference and use its fineAmount in PKR.",
	"Assess whether the image is an authentic, unmanipulated photograph. Set isAuthenticEvidence to false if it looks AI-generated or edited, and explain briefly in authenticityReasoning.",
	"Reply with a single JSON object with the keys issues, confidenceScore, summaryText, isAuthenticEvidence and authenticityReasoning.",
}

// BuildPrompt renders the user turn: the task, an optional location hint and
// the serialized corpus.
func BuildPrompt(corpus *regulation.Corpus, location *geo.Location) string {
	var b strings.Builder
	b.WriteString("Scan this building for violations or safety compliance.\n")
	if location != nil {
		b.WriteString("Approximate location: ")
		b.WriteString(location.Format())
		if location.InLahore() {
			b.WriteString(" (inside Lahore)")
		}
		b.WriteByte('\n')
	}
	b.WriteString("\n[Punjab Building Regulations]\n")
	b.Write(corpus.JSON())
	b.WriteByte('\n')
	return b.String()
}
