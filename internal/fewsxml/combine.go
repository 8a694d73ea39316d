// =============================================================================
// FEWS-RORB Adapter - PI-XML Document Concatenation
// =============================================================================
//
// The post-adapter writes one small PI document per reservoir or per
// rainfall-excess table, then concatenates them into the single combined
// document the platform imports: every input document's <series> elements
// are appended under one shared root and namespace declaration. This is a
// simpler operation layered on top of the per-group serialization, not part
// of the series writer itself.
//
// =============================================================================

package fewsxml

import (
	"bufio"
	"encoding/xml"
	"fmt"
	"os"
)

// combinedDocument captures the series blocks of one input document with
// their inner XML preserved verbatim.
type combinedDocument struct {
	XMLName xml.Name    `xml:"TimeSeries"`
	Series  []rawSeries `xml:"series"`
}

type rawSeries struct {
	Inner string `xml:",innerxml"`
}

// Combine appends the <series> elements of every input document under one
// shared TimeSeries root and writes the combined document to outputPath.
// Input documents must be PI-XML produced by Writer; their series content
// is carried over byte for byte.
func Combine(inputPaths []string, outputPath string) error {
	f, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", outputPath, err)
	}
	defer f.Close()

	buf := bufio.NewWriter(f)
	buf.WriteString("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
	buf.WriteString(rootOpenTag + "\n")
	buf.WriteString("    <daylightSavingObservingTimeZone>" + observingTimeZone + "</daylightSavingObservingTimeZone>\n")

	for _, path := range inputPaths {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}

		var doc combinedDocument
		if err := xml.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}
		if len(doc.Series) == 0 {
			return fmt.Errorf("document %s carries no series", path)
		}

		for _, s := range doc.Series {
			buf.WriteString("    <series>")
			buf.WriteString(s.Inner)
			buf.WriteString("</series>\n")
		}
	}

	buf.WriteString("</TimeSeries>\n")
	if err := buf.Flush(); err != nil {
		return fmt.Errorf("failed to write %s: %w", outputPath, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", outputPath, err)
	}
	return nil
}
