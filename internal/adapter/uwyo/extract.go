package uwyo

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

type blockKind int

const (
	blockHeader blockKind = iota + 1 // <h2>
	blockListing                     // <pre>
)

type block struct {
	kind blockKind
	text string
}

// extractBlocks returns the text of every <h2> and <pre> element in document
// order. Nested markup inside those elements contributes its text only.
func extractBlocks(body string) []block {
	z := html.NewTokenizer(strings.NewReader(body))

	var (
		blocks  []block
		current *block
		depth   int
		buf     strings.Builder
	)
	for {
		switch z.Next() {
		case html.ErrorToken:
			if current != nil {
				current.text = buf.String()
				blocks = append(blocks, *current)
			}
			return blocks

		case html.StartTagToken:
			name, _ := z.TagName()
			kind := kindOf(atom.Lookup(name))
			if kind == 0 {
				continue
			}
			if current == nil {
				current = &block{kind: kind}
				buf.Reset()
				depth = 1
			} else if kind == current.kind {
				depth++
			}

		case html.EndTagToken:
			if current == nil {
				continue
			}
			name, _ := z.TagName()
			if kindOf(atom.Lookup(name)) != current.kind {
				continue
			}
			depth--
			if depth == 0 {
				current.text = buf.String()
				blocks = append(blocks, *current)
				current = nil
			}

		case html.TextToken:
			if current != nil {
				buf.Write(z.Text())
			}
		}
	}
}

func kindOf(a atom.Atom) blockKind {
	switch a {
	case atom.H2:
		return blockHeader
	case atom.Pre:
		return blockListing
	default:
		return 0
	}
}

// headerRe matches the tail of a section header such as
// "72403 IAD Sterling Observations at 12Z 01 Jun 2024".
var headerRe = regexp.MustCompile(`(\d{2})Z\s+(\d{1,2})\s+([A-Za-z]{3})\s+(\d{4})\s*$`)

// parseHeader returns the sounding hour ("12") and observation date.
func parseHeader(text string) (string, time.Time, error) {
	m := headerRe.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return "", time.Time{}, fmt.Errorf("unrecognised sounding header %q", text)
	}
	t, err := time.Parse("2 Jan 2006", m[2]+" "+m[3]+" "+m[4])
	if err != nil {
		return "", time.Time{}, fmt.Errorf("parse sounding header date %q: %w", text, err)
	}
	return m[1], t, nil
}
