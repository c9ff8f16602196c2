package ocr

import (
	"encoding/xml"
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyRecoIndex marks a recognition document with no usable text.
var ErrEmptyRecoIndex = errors.New("recognition document holds no text")

// recoIndex mirrors Evernote's recognition XML. Items carry pixel
// coordinates; objWidth/objHeight give the image size those coordinates
// are relative to.
type recoIndex struct {
	XMLName   xml.Name   `xml:"recoIndex"`
	ObjType   string     `xml:"objType,attr,omitempty"`
	ObjWidth  int        `xml:"objWidth,attr,omitempty"`
	ObjHeight int        `xml:"objHeight,attr,omitempty"`
	Items     []recoItem `xml:"item"`
}

type recoItem struct {
	X     int        `xml:"x,attr"`
	Y     int        `xml:"y,attr"`
	W     int        `xml:"w,attr"`
	H     int        `xml:"h,attr"`
	Texts []recoText `xml:"t"`
}

type recoText struct {
	Weight float64 `xml:"w,attr"`
	Value  string  `xml:",chardata"`
}

// ParseRecoIndex decodes a recoIndex document into a Result. For items
// with several candidate readings, the highest-weighted one wins. When
// the document does not declare the image size, fragments keep empty
// boxes and remain searchable but unplaced.
func ParseRecoIndex(data []byte) (*Result, error) {
	var idx recoIndex
	if err := xml.Unmarshal(data, &idx); err != nil {
		return nil, fmt.Errorf("decoding recoIndex: %w", err)
	}

	res := &Result{Width: idx.ObjWidth, Height: idx.ObjHeight}
	var words []string
	for _, item := range idx.Items {
		text, weight := bestReading(item.Texts)
		if text == "" {
			continue
		}
		frag := Fragment{Text: text, Confidence: weight}
		if idx.ObjWidth > 0 && idx.ObjHeight > 0 {
			frag.Box = Box{
				X: float64(item.X) / float64(idx.ObjWidth),
				Y: float64(item.Y) / float64(idx.ObjHeight),
				W: float64(item.W) / float64(idx.ObjWidth),
				H: float64(item.H) / float64(idx.ObjHeight),
			}
		}
		res.Fragments = append(res.Fragments, frag)
		words = append(words, text)
	}

	if len(res.Fragments) == 0 {
		return nil, ErrEmptyRecoIndex
	}
	res.Text = strings.Join(words, " ")
	return res, nil
}

// MarshalRecoIndex encodes a Result as recoIndex XML, the same shape the
// archives use, so cached engine output and archive payloads are
// interchangeable on rerun.
func MarshalRecoIndex(res *Result) ([]byte, error) {
	idx := recoIndex{
		ObjType:   "image",
		ObjWidth:  res.Width,
		ObjHeight: res.Height,
	}
	for _, frag := range res.Fragments {
		item := recoItem{
			Texts: []recoText{{Weight: frag.Confidence, Value: frag.Text}},
		}
		if res.Width > 0 && res.Height > 0 {
			item.X = int(frag.Box.X * float64(res.Width))
			item.Y = int(frag.Box.Y * float64(res.Height))
			item.W = int(frag.Box.W * float64(res.Width))
			item.H = int(frag.Box.H * float64(res.Height))
		}
		idx.Items = append(idx.Items, item)
	}

	data, err := xml.MarshalIndent(idx, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding recoIndex: %w", err)
	}
	return append([]byte(xml.Header), data...), nil
}

// bestReading picks the candidate with the highest weight.
func bestReading(texts []recoText) (string, float64) {
	best, weight := "", -1.0
	for _, t := range texts {
		v := strings.TrimSpace(t.Value)
		if v == "" {
			continue
		}
		if t.Weight > weight {
			best, weight = v, t.Weight
		}
	}
	if weight < 0 {
		weight = 0
	}
	return best, weight
}
