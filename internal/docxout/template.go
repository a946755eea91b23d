package docxout

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/antchfx/xmlquery"
)

// TemplateInfo is what an export needs to know about a template before
// converting content for it.
type TemplateInfo struct {
	MaxNumID         int  `json:"max_num_id"`
	MaxAbstractNumID int  `json:"max_abstract_num_id"`
	MaxCommentID     int  `json:"max_comment_id"`
	HasNumbering     bool `json:"has_numbering"`
	HasComments      bool `json:"has_comments"`
	HasPlaceholder   bool `json:"has_placeholder"`
}

// InspectTemplate reports the largest numbering and comment ids already used
// by template, so new ids can be allocated above them, and whether any body
// paragraph contains placeholder.
func InspectTemplate(template []byte, placeholder string) (TemplateInfo, error) {
	var info TemplateInfo
	p, err := readPackage(bytes.NewReader(template), int64(len(template)))
	if err != nil {
		return info, fmt.Errorf("%w: %v", ErrInvalidTemplate, err)
	}
	docXML, ok := p[partDocument]
	if !ok {
		return info, fmt.Errorf("%w: missing %s", ErrInvalidTemplate, partDocument)
	}

	if data, ok := p[p.relatedPart(relNumbering, partNumbering)]; ok {
		root, err := xmlquery.Parse(bytes.NewReader(data))
		if err != nil {
			return info, fmt.Errorf("%w: numbering: %v", ErrInvalidTemplate, err)
		}
		info.HasNumbering = true
		if info.MaxNumID, err = maxAttr(root, "num", "numId"); err != nil {
			return info, err
		}
		if info.MaxAbstractNumID, err = maxAttr(root, "abstractNum", "abstractNumId"); err != nil {
			return info, err
		}
	}

	if data, ok := p[p.relatedPart(relComments, partComments)]; ok {
		root, err := xmlquery.Parse(bytes.NewReader(data))
		if err != nil {
			return info, fmt.Errorf("%w: comments: %v", ErrInvalidTemplate, err)
		}
		info.HasComments = true
		if info.MaxCommentID, err = maxAttr(root, "comment", "id"); err != nil {
			return info, err
		}
	}

	if placeholder != "" {
		root, err := xmlquery.Parse(bytes.NewReader(docXML))
		if err != nil {
			return info, fmt.Errorf("%w: document: %v", ErrInvalidTemplate, err)
		}
		info.HasPlaceholder, err = containsText(root, placeholder)
		if err != nil {
			return info, err
		}
	}
	return info, nil
}

// maxAttr is the largest integer value of attr on any element named elem,
// ignoring namespace prefixes.
func maxAttr(root *xmlquery.Node, elem, attr string) (int, error) {
	nodes, err := xmlquery.QueryAll(root, "//*[local-name()='"+elem+"']")
	if err != nil {
		return 0, fmt.Errorf("query %s: %w", elem, err)
	}
	best := 0
	for _, n := range nodes {
		for _, a := range n.Attr {
			if a.Name.Local != attr {
				continue
			}
			v, err := strconv.Atoi(strings.TrimSpace(a.Value))
			if err != nil {
				return 0, fmt.Errorf("%w: %s %s=%q", ErrInvalidTemplate, elem, attr, a.Value)
			}
			best = max(best, v)
		}
	}
	return best, nil
}

// containsText reports whether any paragraph's joined w:t text contains s.
// Word often splits typed text across runs, so runs are joined first.
func containsText(root *xmlquery.Node, s string) (bool, error) {
	paras, err := xmlquery.QueryAll(root, "//*[local-name()='p']")
	if err != nil {
		return false, fmt.Errorf("query paragraphs: %w", err)
	}
	for _, p := range paras {
		texts, err := xmlquery.QueryAll(p, ".//*[local-name()='t']")
		if err != nil {
			return false, fmt.Errorf("query text: %w", err)
		}
		var b strings.Builder
		for _, t := range texts {
			b.WriteString(t.InnerText())
		}
		if strings.Contains(b.String(), s) {
			return true, nil
		}
	}
	return false, nil
}
