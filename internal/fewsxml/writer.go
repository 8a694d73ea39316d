// =============================================================================
// FEWS-RORB Adapter - PI-XML Time Series Writer
// =============================================================================
//
// This module serializes time-series tables into the FEWS PI exchange
// format. One <series> block is emitted per named value column; the column
// name "<location>(<parameter>) (<unit>)" supplies the header identifiers.
//
// OUTPUT STRUCTURE:
//
//   <TimeSeries xmlns="http://www.wldelft.nl/fews/PI" ... version="1.2">
//     <daylightSavingObservingTimeZone>AET</daylightSavingObservingTimeZone>
//     <series>
//       <header>
//         <type>instantaneous</type>
//         <locationId>410571</locationId>
//         <parameterId>H.fcst</parameterId>
//         <timeStep unit="second" multiplier="900"/>
//         <startDate date="2024-01-01" time="00:00:00"/>
//         <endDate date="2024-01-01" time="02:00:00"/>
//         <missVal>-99.0</missVal>
//         <units>mSMD</units>
//       </header>
//       <event date="2024-01-01" time="00:00:00" value="543.2"/>
//       ...
//     </series>
//   </TimeSeries>
//
// HEADER CACHE:
//   One header block is built per distinct (locationId, parameterId) pair
//   and reused for later columns of the same pair, so a pair appearing in
//   several write calls against one document keeps the header of its first
//   appearance. The cache belongs to the Writer instance and therefore to
//   exactly one output document; it is never process-global.
//
// Series are streamed one column group at a time to bound memory on long
// forecast horizons.
//
// =============================================================================

package fewsxml

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/H-A-R-C/FEWS-RORB-Adapter/internal/types"
)

// Fixed attributes of every emitted document. The namespace URI and the
// observing time zone are contract points of the downstream platform and
// are written regardless of input.
const (
	piNamespace       = "http://www.wldelft.nl/fews/PI"
	piSchemaLocation  = "http://www.wldelft.nl/fews/PI http://fews.wldelft.nl/schemas/version1.0/pi-schemas/pi_timeseries.xsd"
	observingTimeZone = "AET"

	// Every emitted header carries the instantaneous type, a fixed
	// 15-minute timestep and the platform's missing-value sentinel.
	seriesType      = "instantaneous"
	timeStepSeconds = "900"
	missingValue    = "-99.0"
)

// rootOpenTag is the full root element, matching the platform's schema
// reference byte for byte.
const rootOpenTag = `<TimeSeries xmlns="` + piNamespace +
	`" xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance" xsi:schemaLocation="` +
	piSchemaLocation + `" version="1.2">`

// columnNameRe parses "<location>(<parameter>) (<unit>)"; the space before
// the unit group is optional.
var columnNameRe = regexp.MustCompile(`^\s*([^(]+?)\s*\(([^)]+)\)\s*\((.*?)\)\s*$`)

// headerKey identifies a cached header block.
type headerKey struct {
	location  string
	parameter string
}

// Writer streams time-series tables into one PI-XML document. A Writer is
// scoped to exactly one document write; create a fresh one per output file.
type Writer struct {
	headerCache map[headerKey]string
}

// NewWriter returns a writer with an empty header cache.
func NewWriter() *Writer {
	return &Writer{headerCache: make(map[headerKey]string)}
}

// ParseColumnName splits a column label into location, parameter and unit.
func ParseColumnName(name string) (location, parameter, unit string, err error) {
	m := columnNameRe.FindStringSubmatch(name)
	if m == nil {
		return "", "", "", fmt.Errorf("column name %q does not match <loc>(<param>) (<unit>)", name)
	}
	return strings.TrimSpace(m[1]), m[2], m[3], nil
}

// WriteDocument serializes the table into one PI-XML document at path.
// Columns are written in order, one <series> block each, streamed as they
// are rendered.
func (w *Writer) WriteDocument(path string, table *types.Table) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	buf := bufio.NewWriter(f)
	buf.WriteString("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
	buf.WriteString(rootOpenTag + "\n")
	buf.WriteString("    <daylightSavingObservingTimeZone>" + observingTimeZone + "</daylightSavingObservingTimeZone>\n")

	for _, col := range table.Columns {
		if err := w.writeSeries(buf, col, table.Timestamps); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
	}

	buf.WriteString("</TimeSeries>\n")
	if err := buf.Flush(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	return nil
}

// writeSeries emits one <series> block for a column.
func (w *Writer) writeSeries(buf *bufio.Writer, col types.Column, timestamps []time.Time) error {
	if len(col.Values) != len(timestamps) {
		return fmt.Errorf("column %q has %d values for %d timestamps", col.Name, len(col.Values), len(timestamps))
	}
	if len(timestamps) == 0 {
		return fmt.Errorf("column %q has no samples", col.Name)
	}

	location, parameter, unit, err := ParseColumnName(col.Name)
	if err != nil {
		return err
	}

	buf.WriteString("    <series>\n")
	buf.WriteString(w.headerBlock(location, parameter, unit, timestamps[0], timestamps[len(timestamps)-1]))

	for i, ts := range timestamps {
		buf.WriteString(fmt.Sprintf("        <event date=\"%s\" time=\"%s\" value=\"%s\"/>\n",
			ts.Format("2006-01-02"), ts.Format("15:04:05"), escapeXML(col.Values[i])))
	}

	buf.WriteString("    </series>\n")
	return nil
}

// headerBlock builds or reuses the header for a (location, parameter) pair.
func (w *Writer) headerBlock(location, parameter, unit string, first, last time.Time) string {
	key := headerKey{location: location, parameter: parameter}
	if cached, ok := w.headerCache[key]; ok {
		return cached
	}

	var b strings.Builder
	b.WriteString("        <header>\n")
	b.WriteString("            <type>" + seriesType + "</type>\n")
	b.WriteString("            <locationId>" + escapeXML(location) + "</locationId>\n")
	b.WriteString("            <parameterId>" + escapeXML(parameter) + "</parameterId>\n")
	b.WriteString("            <timeStep unit=\"second\" multiplier=\"" + timeStepSeconds + "\"/>\n")
	b.WriteString(fmt.Sprintf("            <startDate date=%q time=%q/>\n",
		first.Format("2006-01-02"), first.Format("15:04:05")))
	b.WriteString(fmt.Sprintf("            <endDate date=%q time=%q/>\n",
		last.Format("2006-01-02"), last.Format("15:04:05")))
	b.WriteString("            <missVal>" + missingValue + "</missVal>\n")
	b.WriteString("            <units>" + escapeXML(unit) + "</units>\n")
	b.WriteString("        </header>\n")

	w.headerCache[key] = b.String()
	return w.headerCache[key]
}

// escapeXML escapes special characters for XML attribute and text content.
func escapeXML(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '&':
			b.WriteString("&amp;")
		case '<':
			b.WriteString("&lt;")
		case '>':
			b.WriteString("&gt;")
		case '"':
			b.WriteString("&quot;")
		case '\'':
			b.WriteString("&apos;")
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
