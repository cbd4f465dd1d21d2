package knowledgebase

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"video-insights-go/internal/types"
)

var ErrInvalidFormat = errors.New("invalid knowledge base format")

// Keywords is serialized as one comma separated string. Decoding also
// accepts a JSON array of strings.
type Keywords []string

func (k Keywords) String() string { return strings.Join(k, ", ") }

func (k Keywords) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

func (k *Keywords) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*k = splitKeywords(s)
		return nil
	}
	var list []string
	if err := json.Unmarshal(b, &list); err != nil {
		return fmt.Errorf("keywords must be a string or a list of strings")
	}
	out := make(Keywords, 0, len(list))
	for _, item := range list {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	*k = out
	return nil
}

func splitKeywords(s string) Keywords {
	out := Keywords{}
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

type Relationship struct {
	Entity       string `json:"entity"`
	Relationship string `json:"relationship"`
	Attribute    string `json:"attribute"`
	Description  string `json:"description"`
}

// Heading is one entry of the document outline. Heading holds an HTML-style
// tag such as "h2".
type Heading struct {
	Heading string `json:"heading"`
	Value   string `json:"value"`
}

// Level returns the numeric level of the tag.
func (h Heading) Level() (int, error) {
	tag := strings.ToLower(strings.TrimSpace(h.Heading))
	if len(tag) != 2 || tag[0] != 'h' {
		return 0, fmt.Errorf("%w: heading tag %q", ErrInvalidFormat, h.Heading)
	}
	n, err := strconv.Atoi(tag[1:])
	if err != nil || n < 1 || n > 6 {
		return 0, fmt.Errorf("%w: heading tag %q", ErrInvalidFormat, h.Heading)
	}
	return n, nil
}

type KnowledgeBase struct {
	Keywords      Keywords       `json:"keywords"`
	Relationships []Relationship `json:"relationships"`
	Headings      []Heading      `json:"headings"`
}

// Decode reads either the three element array
// [keywords, relationships, headings] or an object with those keys.
func Decode(raw []byte) (KnowledgeBase, error) {
	var kb KnowledgeBase
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return kb, fmt.Errorf("%w: empty payload", ErrInvalidFormat)
	}

	switch trimmed[0] {
	case '[':
		var parts []json.RawMessage
		if err := json.Unmarshal(trimmed, &parts); err != nil {
			return kb, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
		}
		if len(parts) != 3 {
			return kb, fmt.Errorf("%w: expected 3 elements, got %d", ErrInvalidFormat, len(parts))
		}
		if err := json.Unmarshal(parts[0], &kb.Keywords); err != nil {
			return kb, fmt.Errorf("%w: keywords: %v", ErrInvalidFormat, err)
		}
		if err := json.Unmarshal(parts[1], &kb.Relationships); err != nil {
			return kb, fmt.Errorf("%w: relationships: %v", ErrInvalidFormat, err)
		}
		if err := json.Unmarshal(parts[2], &kb.Headings); err != nil {
			return kb, fmt.Errorf("%w: headings: %v", ErrInvalidFormat, err)
		}
	case '{':
		if err := json.Unmarshal(trimmed, &kb); err != nil {
			return kb, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
		}
	default:
		return kb, fmt.Errorf("%w: expected a JSON array or object", ErrInvalidFormat)
	}

	for _, h := range kb.Headings {
		if _, err := h.Level(); err != nil {
			return KnowledgeBase{}, err
		}
	}
	return kb, nil
}

// FromResult decodes a synthesis payload.
func FromResult(res types.KnowledgeBaseResult) (KnowledgeBase, error) {
	return Decode(res.Payload)
}

// JSON is the indented object form used for downloads.
func (kb KnowledgeBase) JSON() ([]byte, error) {
	return json.MarshalIndent(kb, "", "  ")
}

// Node and Edge describe the entity graph for external renderers.
type Node struct {
	ID   string `json:"id"`
	Kind string `json:"kind"`
}

type Edge struct {
	From        string `json:"from"`
	To          string `json:"to"`
	Label       string `json:"label"`
	Description string `json:"description"`
}

type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Graph links every entity to its attribute. Nodes are unique and keep first
// appearance order; a name used as both entity and attribute is an entity.
func (kb KnowledgeBase) Graph() Graph {
	g := Graph{Nodes: []Node{}, Edges: []Edge{}}
	index := map[string]int{}
	add := func(id, kind string) {
		if i, ok := index[id]; ok {
			if kind == "entity" {
				g.Nodes[i].Kind = kind
			}
			return
		}
		index[id] = len(g.Nodes)
		g.Nodes = append(g.Nodes, Node{ID: id, Kind: kind})
	}
	for _, r := range kb.Relationships {
		add(r.Entity, "entity")
		add(r.Attribute, "attribute")
		g.Edges = append(g.Edges, Edge{From: r.Entity, To: r.Attribute, Label: r.Relationship, Description: r.Description})
	}
	return g
}
