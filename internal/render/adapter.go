package render

import (
	"fmt"
	"html/template"
	"reflect"

	"loan-risk/internal/scoring"
)

// FillTarget is the gauge arc that rotates with the reading.
type FillTarget interface {
	SetRotation(degrees float64)
	SetBackground(color string)
}

// TextTarget shows the formatted percentage.
type TextTarget interface {
	SetText(text string)
}

// LabelTarget shows the tier label in the tier color.
type LabelTarget interface {
	SetText(text string)
	SetColor(color string)
}

// ListTarget receives explanation sentences.
type ListTarget interface {
	Clear()
	Append(sentence scoring.Sentence)
}

// ApplyGauge pushes a reading onto the gauge targets. When any target is
// missing nothing is updated and false is returned; this is not an error.
func ApplyGauge(fill FillTarget, text TextTarget, label LabelTarget, reading scoring.GaugeReading) bool {
	if !present(fill) || !present(text) || !present(label) {
		return false
	}
	fill.SetRotation(reading.Rotation)
	fill.SetBackground(reading.Color)
	text.SetText(reading.DisplayText)
	label.SetText(reading.TierLabel)
	label.SetColor(reading.Color)
	return true
}

// ApplyExplanation replaces the list contents with the given sentences.
func ApplyExplanation(list ListTarget, sentences []scoring.Sentence) bool {
	if !present(list) {
		return false
	}
	list.Clear()
	for _, s := range sentences {
		list.Append(s)
	}
	return true
}

func present(target any) bool {
	if target == nil {
		return false
	}
	v := reflect.ValueOf(target)
	switch v.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Interface:
		return !v.IsNil()
	}
	return true
}

// GaugeFill is the template-side fill element.
type GaugeFill struct {
	Rotation   float64
	Background string
}

func (f *GaugeFill) SetRotation(degrees float64) { f.Rotation = degrees }
func (f *GaugeFill) SetBackground(color string)  { f.Background = color }

// Style returns the inline CSS for the fill element.
func (f *GaugeFill) Style() template.CSS {
	return template.CSS(fmt.Sprintf("transform: rotate(%.4fdeg); background: %s;", f.Rotation, f.Background))
}

// TextNode is a template-side text element with an optional color.
type TextNode struct {
	Text  string
	Color string
}

func (n *TextNode) SetText(text string)   { n.Text = text }
func (n *TextNode) SetColor(color string) { n.Color = color }

// Style returns the inline CSS for the node, empty when no color is set.
func (n *TextNode) Style() template.CSS {
	if n.Color == "" {
		return ""
	}
	return template.CSS("color: " + n.Color + ";")
}

// SentenceList collects explanation sentences as safe HTML.
type SentenceList struct {
	Items []template.HTML
}

func (l *SentenceList) Clear() { l.Items = l.Items[:0] }

// Append adds a sentence. Descriptions are escaped by Sentence.HTML.
func (l *SentenceList) Append(sentence scoring.Sentence) {
	l.Items = append(l.Items, template.HTML(sentence.HTML()))
}
