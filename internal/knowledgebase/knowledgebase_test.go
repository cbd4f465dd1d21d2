package knowledgebase

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"video-insights-go/internal/types"
)

const arrayPayload = `[
  "golang, concurrency, channels",
  [
    {"entity": "goroutine", "relationship": "communicates via", "attribute": "channel", "description": "CSP style"},
    {"entity": "channel", "relationship": "can be", "attribute": "buffered", "description": "has capacity"}
  ],
  [
    {"heading": "h1", "value": "Intro"},
    {"heading": "h2", "value": "Goroutines"}
  ]
]`

func TestDecodeForms(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{"array", arrayPayload, false},
		{"object", `{"keywords":["golang","concurrency"],"relationships":[],"headings":[{"heading":"h3","value":"x"}]}`, false},
		{"two elements", `["a", []]`, true},
		{"scalar", `"a"`, true},
		{"empty", ``, true},
		{"bad heading", `["a", [], [{"heading":"title","value":"x"}]]`, true},
		{"bad relationships", `["a", "nope", []]`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.raw))
			if (err != nil) != tt.wantErr {
				t.Fatalf("Decode() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidFormat) {
				t.Errorf("error = %v, want ErrInvalidFormat", err)
			}
		})
	}
}

func TestDecodeArray(t *testing.T) {
	kb, err := FromResult(types.KnowledgeBaseResult{Payload: json.RawMessage(arrayPayload)})
	if err != nil {
		t.Fatal(err)
	}
	if len(kb.Keywords) != 3 || kb.Keywords[1] != "concurrency" {
		t.Errorf("keywords = %v", kb.Keywords)
	}
	if len(kb.Relationships) != 2 || kb.Relationships[0].Attribute != "channel" {
		t.Errorf("relationships = %+v", kb.Relationships)
	}
	if level, _ := kb.Headings[1].Level(); level != 2 {
		t.Errorf("level = %d", level)
	}
}

func TestMarkdown(t *testing.T) {
	kb, err := Decode([]byte(arrayPayload))
	if err != nil {
		t.Fatal(err)
	}
	want := "# Knowledge Base\n\n" +
		"## Keywords\n" +
		"golang, concurrency, channels\n\n" +
		"## Relationships\n\n" +
		"### goroutine\n- communicates via channel\n- Description: CSP style\n\n" +
		"### channel\n- can be buffered\n- Description: has capacity\n\n" +
		"## Document Structure\n\n" +
		"## Intro\n" +
		"### Goroutines\n"
	if got := kb.Markdown(); got != want {
		t.Errorf("Markdown() =\n%s\nwant\n%s", got, want)
	}
}

func TestJSONRoundTripKeepsKeywordString(t *testing.T) {
	kb, err := Decode([]byte(arrayPayload))
	if err != nil {
		t.Fatal(err)
	}
	b, err := kb.JSON()
	if err != nil {
		t.Fatal(err)
	}
	var obj map[string]any
	if err := json.Unmarshal(b, &obj); err != nil {
		t.Fatal(err)
	}
	if obj["keywords"] != "golang, concurrency, channels" {
		t.Errorf("keywords = %v", obj["keywords"])
	}
}

func TestGraph(t *testing.T) {
	kb, err := Decode([]byte(arrayPayload))
	if err != nil {
		t.Fatal(err)
	}
	g := kb.Graph()
	if len(g.Nodes) != 3 || len(g.Edges) != 2 {
		t.Fatalf("graph = %+v", g)
	}
	if g.Nodes[1].ID != "channel" || g.Nodes[1].Kind != "entity" {
		t.Errorf("channel node = %+v, want promoted to entity", g.Nodes[1])
	}
	if g.Edges[0].Label != "communicates via" {
		t.Errorf("edge = %+v", g.Edges[0])
	}
}

func TestWriteDOCX(t *testing.T) {
	kb, err := Decode([]byte(arrayPayload))
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "kb.docx")
	if err := kb.WriteDOCX(path); err != nil {
		t.Fatalf("WriteDOCX() error = %v", err)
	}
	info, err := os.Stat(path)
	if err != nil || info.Size() == 0 {
		t.Fatalf("docx not written: %v", err)
	}
}
