package compiler

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/tsgonest/tsoapi/internal/metadata"
)

// docComment finds the JSDoc block attached to n: the closest preceding
// `/** */` comment, skipping over decorators. For declarations wrapped in an
// export statement the comment precedes the export.
func docComment(n *sitter.Node, src []byte) metadata.JSDoc {
	for cur := n; cur != nil; {
		prev := cur.PrevSibling()
		for prev != nil && prev.Type() == "decorator" {
			prev = prev.PrevSibling()
		}
		if prev != nil && prev.Type() == "comment" {
			text := prev.Content(src)
			if strings.HasPrefix(text, "/**") {
				return ParseJSDoc(text)
			}
			return metadata.JSDoc{}
		}
		parent := cur.Parent()
		if parent != nil && parent.Type() == "export_statement" {
			cur = parent
			continue
		}
		return metadata.JSDoc{}
	}
	return metadata.JSDoc{}
}

// ParseJSDoc splits a `/** ... */` block into its comment body and tags.
func ParseJSDoc(text string) metadata.JSDoc {
	text = strings.TrimPrefix(text, "/**")
	text = strings.TrimSuffix(text, "*/")

	var doc metadata.JSDoc
	var body []string
	var tag *metadata.JSDocTag
	for _, l := range strings.Split(text, "\n") {
		l = strings.TrimSpace(l)
		l = strings.TrimPrefix(l, "*")
		l = strings.TrimSpace(l)
		if strings.HasPrefix(l, "@") {
			if tag != nil {
				doc.Tags = append(doc.Tags, *tag)
			}
			name, rest, _ := strings.Cut(l[1:], " ")
			tag = &metadata.JSDocTag{Name: name, Text: strings.TrimSpace(rest)}
			continue
		}
		if tag != nil {
			if l != "" {
				tag.Text = strings.TrimSpace(tag.Text + " " + l)
			}
			continue
		}
		body = append(body, l)
	}
	if tag != nil {
		doc.Tags = append(doc.Tags, *tag)
	}
	doc.Comment = strings.TrimSpace(strings.Join(body, "\n"))
	return doc
}
