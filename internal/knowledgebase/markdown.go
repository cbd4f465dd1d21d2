package knowledgebase

import "strings"

// Markdown renders the knowledge base document. Outline headings are nested
// one level below their tag so they sit under "Document Structure".
func (kb KnowledgeBase) Markdown() string {
	var b strings.Builder
	b.WriteString("# Knowledge Base\n\n")

	b.WriteString("## Keywords\n")
	b.WriteString(kb.Keywords.String())
	b.WriteString("\n\n")

	b.WriteString("## Relationships\n\n")
	for _, r := range kb.Relationships {
		b.WriteString("### " + r.Entity + "\n")
		b.WriteString("- " + r.Relationship + " " + r.Attribute + "\n")
		b.WriteString("- Description: " + r.Description + "\n\n")
	}

	b.WriteString("## Document Structure\n\n")
	for _, h := range kb.Headings {
		level, err := h.Level()
		if err != nil {
			continue
		}
		b.WriteString(strings.Repeat("#", level+1) + " " + h.Value + "\n")
	}
	return b.String()
}
