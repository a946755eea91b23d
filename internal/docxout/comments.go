package docxout

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"regexp"
	"strconv"
	"unicode/utf8"

	"github.com/dgallion1/chartdocx/internal/doctree"
	"github.com/fumiama/go-docx"
)

type xmlComments struct {
	XMLName  xml.Name     `xml:"w:comments"`
	XMLW     string       `xml:"xmlns:w,attr"`
	Comments []xmlComment `xml:"w:comment"`
}

type xmlComment struct {
	XMLName  xml.Name `xml:"w:comment"`
	ID       int      `xml:"w:id,attr"`
	Author   string   `xml:"w:author,attr"`
	Initials string   `xml:"w:initials,attr,omitempty"`
	P        struct {
		PPr struct {
			Style xmlVal `xml:"w:pStyle"`
		} `xml:"w:pPr"`
		R struct {
			T struct {
				Space string `xml:"xml:space,attr"`
				Text  string `xml:",chardata"`
			} `xml:"w:t"`
		} `xml:"w:r"`
	} `xml:"w:p"`
}

func commentElements(comments []doctree.Comment) []xmlComment {
	out := make([]xmlComment, 0, len(comments))
	for _, c := range comments {
		x := xmlComment{ID: c.ID, Author: c.Author, Initials: initials(c.Author)}
		x.P.PPr.Style = xmlVal{Val: "CommentText"}
		x.P.R.T.Space = "preserve"
		x.P.R.T.Text = c.Text
		out = append(out, x)
	}
	return out
}

func initials(author string) string {
	r, _ := utf8.DecodeRuneInString(author)
	if r == utf8.RuneError {
		return ""
	}
	return string(r)
}

func commentsXML(comments []doctree.Comment) ([]byte, error) {
	return marshalPart(xmlComments{XMLW: docx.XMLNS_W, Comments: commentElements(comments)})
}

var commentsEndRe = regexp.MustCompile(`</w:comments\s*>`)

// mergeComments appends comments to an existing comments part.
func mergeComments(existing []byte, comments []doctree.Comment) ([]byte, error) {
	if len(comments) == 0 {
		return existing, nil
	}
	end := commentsEndRe.FindIndex(existing)
	if end == nil {
		return nil, fmt.Errorf("%w: comments part has no closing tag", ErrInvalidTemplate)
	}
	var buf bytes.Buffer
	buf.Write(existing[:end[0]])
	for _, c := range commentElements(comments) {
		if err := xml.NewEncoder(&buf).Encode(c); err != nil {
			return nil, err
		}
	}
	buf.Write(existing[end[0]:])
	return buf.Bytes(), nil
}

// Body anchors. go-docx marshals unknown paragraph and run children as-is.

type commentRangeStart struct {
	XMLName xml.Name `xml:"w:commentRangeStart"`
	ID      string   `xml:"w:id,attr"`
}

type commentRangeEnd struct {
	XMLName xml.Name `xml:"w:commentRangeEnd"`
	ID      string   `xml:"w:id,attr"`
}

type commentReference struct {
	XMLName xml.Name `xml:"w:commentReference"`
	ID      string   `xml:"w:id,attr"`
}

func referenceRun(id int) *docx.Run {
	return &docx.Run{
		RunProperties: &docx.RunProperties{
			RunStyle: &docx.RunStyle{Val: StyleCommentReference},
		},
		Children: []interface{}{&commentReference{ID: strconv.Itoa(id)}},
	}
}
