package sidecar

import (
	"bytes"
	"encoding/xml"
	"time"

	"pixivdl/internal/artwork"
)

const (
	xmpHeader = "<?xpacket begin='\ufeff' id='W5M0MpCehiHzreSzNTczkc9d'?>\n"
	xmpFooter = "\n<?xpacket end='w'?>\n"
)

type xmpMeta struct {
	XMLName xml.Name `xml:"x:xmpmeta"`
	XMLNSX  string   `xml:"xmlns:x,attr"`
	RDF     xmpRDF   `xml:"rdf:RDF"`
}

type xmpRDF struct {
	XMLNSRDF    string         `xml:"xmlns:rdf,attr"`
	Description xmpDescription `xml:"rdf:Description"`
}

type xmpDescription struct {
	About       string  `xml:"rdf:about,attr"`
	XMLNSDC     string  `xml:"xmlns:dc,attr"`
	XMLNSXMP    string  `xml:"xmlns:xmp,attr"`
	Title       xmpAlt  `xml:"dc:title"`
	Description *xmpAlt `xml:"dc:description,omitempty"`
	Creator     *xmpSeq `xml:"dc:creator,omitempty"`
	Subject     *xmpBag `xml:"dc:subject,omitempty"`
	Source      string  `xml:"dc:source"`
	Identifier  string  `xml:"dc:identifier"`
	CreateDate  string  `xml:"xmp:CreateDate,omitempty"`
	Label       string  `xml:"xmp:Label,omitempty"`
}

type xmpAlt struct {
	Items []xmpLangItem `xml:"rdf:Alt>rdf:li"`
}

type xmpLangItem struct {
	Lang  string `xml:"xml:lang,attr"`
	Value string `xml:",chardata"`
}

type xmpSeq struct {
	Items []string `xml:"rdf:Seq>rdf:li"`
}

type xmpBag struct {
	Items []string `xml:"rdf:Bag>rdf:li"`
}

// renderXMP builds an XMP packet carrying the work's title, caption, artist
// and tags.
func renderXMP(work *artwork.Work, translated bool, locale string) ([]byte, error) {
	desc := xmpDescription{
		XMLNSDC:    "http://purl.org/dc/elements/1.1/",
		XMLNSXMP:   "http://ns.adobe.com/xap/1.0/",
		Title:      xmpAlt{Items: []xmpLangItem{{Lang: "x-default", Value: work.Title}}},
		Source:     work.Referer(),
		Identifier: work.ID,
	}
	if work.Caption != "" {
		desc.Description = &xmpAlt{Items: []xmpLangItem{{Lang: "x-default", Value: work.Caption}}}
	}
	if work.Artist != nil && work.Artist.Name != "" {
		desc.Creator = &xmpSeq{Items: []string{work.Artist.Name}}
	}
	if tags := tagStrings(work, translated, locale); len(tags) > 0 {
		desc.Subject = &xmpBag{Items: tags}
	}
	if work.HasKnownDate() {
		desc.CreateDate = work.Created.Format(time.RFC3339)
	}
	if work.HasTagFold("R-18") || work.HasTagFold("R-18G") {
		desc.Label = "R-18"
	}

	meta := xmpMeta{
		XMLNSX: "adobe:ns:meta/",
		RDF: xmpRDF{
			XMLNSRDF:    "http://www.w3.org/1999/02/22-rdf-syntax-ns#",
			Description: desc,
		},
	}
	body, err := xml.MarshalIndent(meta, "", " ")
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.WriteString(xmpHeader)
	buf.Write(body)
	buf.WriteString(xmpFooter)
	return buf.Bytes(), nil
}

func tagStrings(work *artwork.Work, translated bool, locale string) []string {
	out := make([]string, 0, len(work.Tags))
	for _, tag := range work.Tags {
		if translated {
			out = append(out, tag.Translated(locale))
			continue
		}
		out = append(out, tag.Name)
	}
	return out
}
