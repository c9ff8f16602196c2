package ocr

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// ErrNoPageBox marks hOCR output without page dimensions; word boxes
// cannot be normalized without them.
var ErrNoPageBox = errors.New("hOCR output declares no page bounding box")

// ParseHOCR converts Tesseract hOCR output into a Result with
// fragment boxes normalized to the page size. hOCR is HTML: the page is
// a div of class ocr_page, words are spans of class ocrx_word, and
// coordinates live in the title attribute ("bbox x1 y1 x2 y2; x_wconf 96").
func ParseHOCR(data []byte) (*Result, error) {
	root, err := html.Parse(strings.NewReader(string(data)))
	if err != nil {
		return nil, fmt.Errorf("parsing hOCR: %w", err)
	}

	page := findByClass(root, "ocr_page")
	if page == nil {
		return nil, ErrNoPageBox
	}
	pageBox, ok := parseBBox(nodeAttr(page, "title"))
	if !ok || pageBox[2] == 0 || pageBox[3] == 0 {
		return nil, ErrNoPageBox
	}
	width := pageBox[2] - pageBox[0]
	height := pageBox[3] - pageBox[1]

	res := &Result{Width: width, Height: height}
	var words []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && hasClass(n, "ocrx_word") {
			title := nodeAttr(n, "title")
			text := strings.TrimSpace(textOf(n))
			if text != "" {
				frag := Fragment{Text: text, Confidence: parseWConf(title)}
				if bbox, ok := parseBBox(title); ok {
					frag.Box = Box{
						X: float64(bbox[0]) / float64(width),
						Y: float64(bbox[1]) / float64(height),
						W: float64(bbox[2]-bbox[0]) / float64(width),
						H: float64(bbox[3]-bbox[1]) / float64(height),
					}
				}
				res.Fragments = append(res.Fragments, frag)
				words = append(words, text)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(page)

	res.Text = strings.Join(words, " ")
	return res, nil
}

// parseBBox extracts "bbox x1 y1 x2 y2" from an hOCR title attribute.
func parseBBox(title string) ([4]int, bool) {
	var box [4]int
	for _, part := range strings.Split(title, ";") {
		fields := strings.Fields(strings.TrimSpace(part))
		if len(fields) != 5 || fields[0] != "bbox" {
			continue
		}
		ok := true
		for i := 0; i < 4; i++ {
			v, err := strconv.Atoi(fields[i+1])
			if err != nil {
				ok = false
				break
			}
			box[i] = v
		}
		if ok {
			return box, true
		}
	}
	return box, false
}

// parseWConf extracts the x_wconf confidence value, defaulting to 0.
func parseWConf(title string) float64 {
	for _, part := range strings.Split(title, ";") {
		fields := strings.Fields(strings.TrimSpace(part))
		if len(fields) == 2 && fields[0] == "x_wconf" {
			if v, err := strconv.ParseFloat(fields[1], 64); err == nil {
				return v
			}
		}
	}
	return 0
}

func findByClass(root *html.Node, class string) *html.Node {
	var found *html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if found != nil {
			return
		}
		if n.Type == html.ElementNode && hasClass(n, class) {
			found = n
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return found
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(nodeAttr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func nodeAttr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textOf(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(m *html.Node) {
		if m.Type == html.TextNode {
			b.WriteString(m.Data)
		}
		for c := m.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}
