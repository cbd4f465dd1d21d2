package knowledgebase

import (
	"github.com/gomutex/godocx"
	"github.com/gomutex/godocx/docx"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	fontName = "Times New Roman"
	fontSize = 12
)

var titleCase = cases.Title(language.English)

// WriteDOCX saves the knowledge base as a Word document at path.
func (kb KnowledgeBase) WriteDOCX(path string) error {
	doc, err := godocx.NewDocument()
	if err != nil {
		return err
	}

	addRun(doc.AddParagraph(""), "Knowledge Base", true, 18)

	addRun(doc.AddParagraph(""), "Keywords", true, 15)
	addRun(doc.AddParagraph(""), kb.Keywords.String(), false, fontSize)

	addRun(doc.AddParagraph(""), "Relationships", true, 15)
	for _, r := range kb.Relationships {
		addRun(doc.AddParagraph(""), titleCase.String(r.Entity), true, 13)
		addRun(doc.AddParagraph(""), "• "+r.Relationship+" "+r.Attribute, false, fontSize)
		p := doc.AddParagraph("")
		addRun(p, "Description: ", true, fontSize)
		addRun(p, r.Description, false, fontSize)
	}

	addRun(doc.AddParagraph(""), "Document Structure", true, 15)
	for _, h := range kb.Headings {
		level, err := h.Level()
		if err != nil {
			continue
		}
		addRun(doc.AddParagraph(""), h.Value, level <= 3, headingSize(level))
	}

	return doc.SaveTo(path)
}

func headingSize(level int) uint64 {
	switch level {
	case 1:
		return 14
	case 2:
		return 13
	default:
		return fontSize
	}
}

func addRun(p *docx.Paragraph, text string, bold bool, size uint64) {
	run := p.AddText(text).Font(fontName).Size(size).Color("000000")
	if bold {
		run.Bold(true)
	}
}
