// Package feed fetches raw feed documents and turns them into the
// canonical channel/item model. Format detection looks only at the first
// top-level element: <rss> routes to the RSS decoder, <feed> to Atom,
// anything else is rejected.
package feed

import (
	"bytes"
	"encoding/xml"
	"fmt"

	"feedhub/domain"
)

// Parsed is a closed union over the two supported wire formats. Exactly
// one variant is set per successful Identify call.
type Parsed struct {
	RSS  *rssDocument
	Atom *atomDocument
}

// Identify scans data as an XML token stream, decides the format from the
// first start element, and decodes the whole buffer as that format.
func Identify(data []byte) (Parsed, error) {
	decoder := xml.NewDecoder(bytes.NewReader(data))
	for {
		tok, err := decoder.Token()
		if err != nil {
			return Parsed{}, fmt.Errorf("%w: no recognizable top-level element: %v", domain.ErrParse, err)
		}
		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		switch se.Name.Local {
		case "rss":
			var doc rssDocument
			if err := xml.Unmarshal(data, &doc); err != nil {
				return Parsed{}, fmt.Errorf("%w: rss: %v", domain.ErrParse, err)
			}
			return Parsed{RSS: &doc}, nil
		case "feed":
			var doc atomDocument
			if err := xml.Unmarshal(data, &doc); err != nil {
				return Parsed{}, fmt.Errorf("%w: atom: %v", domain.ErrParse, err)
			}
			return Parsed{Atom: &doc}, nil
		default:
			return Parsed{}, fmt.Errorf("%w: unsupported top-level element <%s>", domain.ErrParse, se.Name.Local)
		}
	}
}

type rssDocument struct {
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title       string    `xml:"title"`
	Link        string    `xml:"link"`
	Description string    `xml:"description"`
	Items       []rssItem `xml:"item"`
}

type rssItem struct {
	GUID        string `xml:"guid"`
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	Description string `xml:"description"`
	Content     string `xml:"encoded"`
	PubDate     string `xml:"pubDate"`
}

type atomDocument struct {
	Title    string      `xml:"title"`
	Subtitle string      `xml:"subtitle"`
	Links    []atomLink  `xml:"link"`
	Entries  []atomEntry `xml:"entry"`
}

type atomLink struct {
	Rel  string `xml:"rel,attr"`
	Href string `xml:"href,attr"`
}

type atomEntry struct {
	ID        string     `xml:"id"`
	Title     string     `xml:"title"`
	Links     []atomLink `xml:"link"`
	Summary   string     `xml:"summary"`
	Content   string     `xml:"content"`
	Published string     `xml:"published"`
	Updated   string     `xml:"updated"`
}
