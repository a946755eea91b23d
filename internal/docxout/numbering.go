package docxout

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"regexp"
	"strconv"

	"github.com/dgallion1/chartdocx/internal/doctree"
	"github.com/fumiama/go-docx"
)

// maxLevel is the deepest ilvl OOXML allows.
const maxLevel = 8

type xmlNumbering struct {
	XMLName      xml.Name         `xml:"w:numbering"`
	XMLW         string           `xml:"xmlns:w,attr"`
	AbstractNums []xmlAbstractNum `xml:"w:abstractNum"`
	Nums         []xmlNum         `xml:"w:num"`
}

type xmlAbstractNum struct {
	XMLName        xml.Name   `xml:"w:abstractNum"`
	ID             int        `xml:"w:abstractNumId,attr"`
	MultiLevelType xmlVal     `xml:"w:multiLevelType"`
	Levels         []xmlLevel `xml:"w:lvl"`
}

type xmlLevel struct {
	Ilvl    int    `xml:"w:ilvl,attr"`
	Start   xmlVal `xml:"w:start"`
	NumFmt  xmlVal `xml:"w:numFmt"`
	LvlText xmlVal `xml:"w:lvlText"`
	LvlJc   xmlVal `xml:"w:lvlJc"`
	PPr     struct {
		Ind struct {
			Left    int `xml:"w:left,attr"`
			Hanging int `xml:"w:hanging,attr"`
		} `xml:"w:ind"`
	} `xml:"w:pPr"`
}

type xmlNum struct {
	XMLName       xml.Name `xml:"w:num"`
	ID            int    `xml:"w:numId,attr"`
	AbstractNumID xmlVal `xml:"w:abstractNumId"`
}

type xmlVal struct {
	Val string `xml:"w:val,attr"`
}

var (
	orderedFormats = [3]string{"decimal", "lowerLetter", "lowerRoman"}
	bulletGlyphs   = [3]string{"•", "◦", "▪"}
)

func level(ilvl int, ordered bool) xmlLevel {
	l := xmlLevel{
		Ilvl:  ilvl,
		Start: xmlVal{Val: "1"},
		LvlJc: xmlVal{Val: "left"},
	}
	if ordered {
		l.NumFmt = xmlVal{Val: orderedFormats[ilvl%3]}
		l.LvlText = xmlVal{Val: "%" + strconv.Itoa(ilvl+1) + "."}
	} else {
		l.NumFmt = xmlVal{Val: "bullet"}
		l.LvlText = xmlVal{Val: bulletGlyphs[ilvl%3]}
	}
	l.PPr.Ind.Left = 720 * (ilvl + 1)
	l.PPr.Ind.Hanging = 360
	return l
}

func numberingParts(defs []doctree.NumberingDef) ([]xmlAbstractNum, []xmlNum) {
	abstracts := make([]xmlAbstractNum, 0, len(defs))
	nums := make([]xmlNum, 0, len(defs))
	for _, d := range defs {
		a := xmlAbstractNum{ID: d.AbstractID, MultiLevelType: xmlVal{Val: "hybridMultilevel"}}
		for ilvl := 0; ilvl <= maxLevel; ilvl++ {
			a.Levels = append(a.Levels, level(ilvl, d.LevelOrdered(ilvl)))
		}
		abstracts = append(abstracts, a)
		nums = append(nums, xmlNum{ID: d.NumID, AbstractNumID: xmlVal{Val: strconv.Itoa(d.AbstractID)}})
	}
	return abstracts, nums
}

// numberingXML is a complete numbering part for defs.
func numberingXML(defs []doctree.NumberingDef) ([]byte, error) {
	abstracts, nums := numberingParts(defs)
	return marshalPart(xmlNumbering{
		XMLW:         docx.XMLNS_W,
		AbstractNums: abstracts,
		Nums:         nums,
	})
}

var (
	firstNumRe     = regexp.MustCompile(`<w:num[\s>]`)
	numberingEndRe = regexp.MustCompile(`</w:numbering\s*>`)
)

// mergeNumbering splices defs into an existing numbering part. Every
// abstractNum must precede every num, so new abstractNums go before the
// first num and new nums go last.
func mergeNumbering(existing []byte, defs []doctree.NumberingDef) ([]byte, error) {
	if len(defs) == 0 {
		return existing, nil
	}
	abstracts, nums := numberingParts(defs)

	var abs, ns bytes.Buffer
	for _, a := range abstracts {
		if err := xml.NewEncoder(&abs).Encode(a); err != nil {
			return nil, err
		}
	}
	for _, n := range nums {
		if err := xml.NewEncoder(&ns).Encode(n); err != nil {
			return nil, err
		}
	}

	end := numberingEndRe.FindIndex(existing)
	if end == nil {
		return nil, fmt.Errorf("%w: numbering part has no closing tag", ErrInvalidTemplate)
	}
	insertAbs := end[0]
	if loc := firstNumRe.FindIndex(existing); loc != nil {
		insertAbs = loc[0]
	}

	out := make([]byte, 0, len(existing)+abs.Len()+ns.Len())
	out = append(out, existing[:insertAbs]...)
	out = append(out, abs.Bytes()...)
	out = append(out, existing[insertAbs:end[0]]...)
	out = append(out, ns.Bytes()...)
	out = append(out, existing[end[0]:]...)
	return out, nil
}
