// =============================================================================
// FEWS-RORB Adapter - PI-XML Input Reader
// =============================================================================
//
// This module exposes typed accessors over the tagged XML files Delft-FEWS
// exports for a model run:
//   - run metadata (runinfo.xml): date-time elements, input/output file
//     lists addressed by tag name and index, and <properties> key lookups
//   - model parameters (params.xml): values addressed by group id,
//     parameter id and value field, with a conditional variant that first
//     locates the group whose condition parameter carries a given string
//   - time-series documents (state and forcing exports): scalar event
//     values and full event series addressed by (locationId, parameterId),
//     with missing-value sentinel substitution
//
// The accessors deliberately return scalars, ordered sequences, or keyed
// series only; everything downstream works on those shapes.
//
// =============================================================================

package fewsxml

import (
	"encoding/xml"
	"fmt"
	"math"
	"os"
	"strconv"
)

// element is a generic XML tree node. FEWS documents are namespaced, so
// lookups match on local names only.
type element struct {
	XMLName  xml.Name
	Attrs    []xml.Attr `xml:",any,attr"`
	Children []element  `xml:",any"`
	Text     string     `xml:",chardata"`
}

// attr returns the value of the named attribute, ignoring namespaces.
func (e *element) attr(name string) (string, bool) {
	for _, a := range e.Attrs {
		if a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}

// childText returns the text of the first direct child with the local name.
func (e *element) childText(name string) (string, bool) {
	for i := range e.Children {
		if e.Children[i].XMLName.Local == name {
			return e.Children[i].Text, true
		}
	}
	return "", false
}

// findAll appends every descendant with the local name, depth first.
func (e *element) findAll(name string, out []*element) []*element {
	for i := range e.Children {
		c := &e.Children[i]
		if c.XMLName.Local == name {
			out = append(out, c)
		}
		out = c.findAll(name, out)
	}
	return out
}

// Document is a parsed FEWS PI-XML input file.
type Document struct {
	path string
	root element
}

// Parse reads and parses one PI-XML file.
func Parse(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	doc := &Document{path: path}
	if err := xml.Unmarshal(data, &doc.root); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return doc, nil
}

// Path returns the source file path, used in error messages downstream.
func (d *Document) Path() string {
	return d.path
}

// =============================================================================
// RUN METADATA ACCESSORS
// =============================================================================

// ElementText returns the text of the index-th descendant with the tag name.
func (d *Document) ElementText(name string, index int) (string, error) {
	elems := d.root.findAll(name, nil)
	if len(elems) == 0 {
		return "", fmt.Errorf("%s: element %q not found", d.path, name)
	}
	if index >= len(elems) {
		return "", fmt.Errorf("%s: index %d out of range for element %q", d.path, index, name)
	}
	if elems[index].Text == "" {
		return "", fmt.Errorf("%s: element %q at index %d has no text", d.path, name, index)
	}
	return elems[index].Text, nil
}

// DateTime combines the date and time attributes of the named element into
// one "YYYY-MM-DD HH:MM:SS" civil stamp.
func (d *Document) DateTime(name string) (string, error) {
	elems := d.root.findAll(name, nil)
	if len(elems) == 0 {
		return "", fmt.Errorf("%s: element %q not found", d.path, name)
	}

	date, okDate := elems[0].attr("date")
	clock, okTime := elems[0].attr("time")
	if !okDate || !okTime {
		return "", fmt.Errorf("%s: element %q is missing date/time attributes", d.path, name)
	}
	return date + " " + clock, nil
}

// PropertyValue looks up a <properties> entry by its key attribute and
// returns its value attribute.
func (d *Document) PropertyValue(key string) (string, error) {
	for _, props := range d.root.findAll("properties", nil) {
		for i := range props.Children {
			c := &props.Children[i]
			if k, _ := c.attr("key"); k == key {
				if v, ok := c.attr("value"); ok && v != "" {
					return v, nil
				}
				return "", fmt.Errorf("%s: property %q has no value attribute", d.path, key)
			}
		}
	}
	return "", fmt.Errorf("%s: property %q not found", d.path, key)
}

// =============================================================================
// PARAMETER ACCESSORS
// =============================================================================

// ParameterValue returns the text of a value field inside the parameter
// addressed by (group id, parameter id).
func (d *Document) ParameterValue(groupID, paramID, field string) (string, error) {
	group, err := d.findGroup(groupID)
	if err != nil {
		return "", err
	}
	return d.parameterField(group, groupID, paramID, field)
}

// ConditionalParameterValue first locates the group (among those sharing
// groupID) whose condition parameter carries the given stringValue, then
// returns the requested field of the search parameter inside that group.
func (d *Document) ConditionalParameterValue(groupID, condParamID, condValue, searchParamID, field string) (string, error) {
	groups := d.root.findAll("group", nil)

	var target *element
	for _, g := range groups {
		if id, _ := g.attr("id"); id != groupID {
			continue
		}
		for _, p := range g.findAll("parameter", nil) {
			if id, _ := p.attr("id"); id != condParamID {
				continue
			}
			if sv, ok := p.childText("stringValue"); ok && sv == condValue {
				target = g
				break
			}
		}
		if target != nil {
			break
		}
	}
	if target == nil {
		return "", fmt.Errorf("%s: group %q with %s=%q not found", d.path, groupID, condParamID, condValue)
	}
	return d.parameterField(target, groupID, searchParamID, field)
}

// findGroup returns the first group with the id.
func (d *Document) findGroup(groupID string) (*element, error) {
	for _, g := range d.root.findAll("group", nil) {
		if id, _ := g.attr("id"); id == groupID {
			return g, nil
		}
	}
	return nil, fmt.Errorf("%s: group %q not found", d.path, groupID)
}

// parameterField extracts one value field from a parameter inside a group.
func (d *Document) parameterField(group *element, groupID, paramID, field string) (string, error) {
	for _, p := range group.findAll("parameter", nil) {
		if id, _ := p.attr("id"); id != paramID {
			continue
		}
		if v, ok := p.childText(field); ok && v != "" {
			return v, nil
		}
		return "", fmt.Errorf("%s: parameter %q in group %q has no %q field", d.path, paramID, groupID, field)
	}
	return "", fmt.Errorf("%s: parameter %q not found in group %q", d.path, paramID, groupID)
}

// ParameterFloat is ParameterValue parsed as float64.
func (d *Document) ParameterFloat(groupID, paramID, field string) (float64, error) {
	text, err := d.ParameterValue(groupID, paramID, field)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: parameter %q in group %q is not numeric: %w", d.path, paramID, groupID, err)
	}
	return v, nil
}

// ConditionalParameterFloat is ConditionalParameterValue parsed as float64.
func (d *Document) ConditionalParameterFloat(groupID, condParamID, condValue, searchParamID, field string) (float64, error) {
	text, err := d.ConditionalParameterValue(groupID, condParamID, condValue, searchParamID, field)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: parameter %q in group %q is not numeric: %w", d.path, searchParamID, groupID, err)
	}
	return v, nil
}

// =============================================================================
// TIME SERIES ACCESSORS
// =============================================================================

// findSeries returns the series block matching (locationId, parameterId)
// together with its header.
func (d *Document) findSeries(locationID, parameterID string) (series, header *element, err error) {
	for _, s := range d.root.findAll("series", nil) {
		var h *element
		for i := range s.Children {
			if s.Children[i].XMLName.Local == "header" {
				h = &s.Children[i]
				break
			}
		}
		if h == nil {
			continue
		}
		loc, _ := h.childText("locationId")
		param, _ := h.childText("parameterId")
		if loc == locationID && param == parameterID {
			return s, h, nil
		}
	}
	return nil, nil, fmt.Errorf("%s: series locationId=%q parameterId=%q not found", d.path, locationID, parameterID)
}

// missVal returns the header's missing-value sentinel, defaulting to -999
// when the header omits it.
func missVal(header *element) float64 {
	if text, ok := header.childText("missVal"); ok {
		if v, err := strconv.ParseFloat(text, 64); err == nil {
			return v
		}
	}
	return -999
}

// EventValue returns the first event value of the (locationId, parameterId)
// series. The header's missing-value sentinel is substituted with NaN so
// callers can apply priority fallbacks.
func (d *Document) EventValue(locationID, parameterID string) (float64, error) {
	s, h, err := d.findSeries(locationID, parameterID)
	if err != nil {
		return 0, err
	}

	events := s.findAll("event", nil)
	if len(events) == 0 {
		return 0, fmt.Errorf("%s: series %s/%s has no events", d.path, locationID, parameterID)
	}

	raw, ok := events[0].attr("value")
	if !ok {
		return 0, fmt.Errorf("%s: series %s/%s event has no value", d.path, locationID, parameterID)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: series %s/%s event value %q: %w", d.path, locationID, parameterID, raw, err)
	}

	if v == missVal(h) {
		return math.NaN(), nil
	}
	return v, nil
}

// SeriesValues returns every event value of the (locationId, parameterId)
// series in document order, with the missing-value sentinel substituted by
// the supplied fill value.
func (d *Document) SeriesValues(locationID, parameterID string, fill float64) ([]float64, error) {
	s, h, err := d.findSeries(locationID, parameterID)
	if err != nil {
		return nil, err
	}

	sentinel := missVal(h)
	events := s.findAll("event", nil)
	if len(events) == 0 {
		return nil, fmt.Errorf("%s: series %s/%s has no events", d.path, locationID, parameterID)
	}

	values := make([]float64, 0, len(events))
	for i, ev := range events {
		raw, ok := ev.attr("value")
		if !ok {
			return nil, fmt.Errorf("%s: series %s/%s event %d has no value", d.path, locationID, parameterID, i)
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("%s: series %s/%s event %d value %q: %w", d.path, locationID, parameterID, i, raw, err)
		}
		if v == sentinel {
			v = fill
		}
		values = append(values, v)
	}
	return values, nil
}

// LocationIDs returns the distinct locationId of every series header in
// document order.
func (d *Document) LocationIDs() []string {
	var ids []string
	seen := make(map[string]struct{})
	for _, h := range d.root.findAll("header", nil) {
		if loc, ok := h.childText("locationId"); ok {
			if _, dup := seen[loc]; !dup {
				seen[loc] = struct{}{}
				ids = append(ids, loc)
			}
		}
	}
	return ids
}
