package geo

import (
	"fmt"
	"io"
	"log"
	"math"
	"strconv"
	"strings"

	"degpredict/domain/core"
	"degpredict/domain/expression"
)

const (
	tableBegin = "!series_matrix_table_begin"
	tableEnd   = "!series_matrix_table_end"
)

// SeriesMatrix is the parsed content of a GEO series matrix file.
type SeriesMatrix struct {
	Accession  string
	PlatformID string
	Samples    []expression.Sample
	ProbeIDs   []string
	SampleIDs  []string
	Values     [][]float64 // probes x samples, raw scale
}

// ParseSeriesMatrix reads a series matrix, gzip-compressed or plain.
// Sample metadata comes from the !Sample_* header lines; the value table sits
// between the table begin/end markers.
func ParseSeriesMatrix(r io.Reader) (*SeriesMatrix, error) {
	in, closeFn, err := openMaybeGzip(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open series matrix: %w", err)
	}
	defer closeFn()

	sm := &SeriesMatrix{}
	meta := map[string][]string{}
	var characteristics [][]string

	lines := newLineReader(in)
	inTable := false
	var header []string
	for {
		line, err := lines.next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read series matrix: %w", err)
		}
		if line == "" {
			continue
		}

		if !inTable {
			if strings.EqualFold(line, tableBegin) {
				inTable = true
				continue
			}
			key, fields := splitMeta(line)
			switch key {
			case "!Series_geo_accession":
				if len(fields) > 0 {
					sm.Accession = fields[0]
				}
			case "!Series_platform_id":
				if len(fields) > 0 {
					sm.PlatformID = fields[0]
				}
			case "!Sample_geo_accession", "!Sample_title", "!Sample_source_name_ch1":
				meta[key] = fields
			case "!Sample_characteristics_ch1":
				// repeated once per characteristic
				characteristics = append(characteristics, fields)
			}
			continue
		}

		if strings.EqualFold(line, tableEnd) {
			break
		}
		cells := splitTSV(line)
		if header == nil {
			header = cells
			sm.SampleIDs = header[1:]
			continue
		}
		if len(cells) == 0 || cells[0] == "" {
			continue
		}
		values := make([]float64, len(sm.SampleIDs))
		for j := range values {
			values[j] = math.NaN()
			if j+1 < len(cells) {
				values[j] = parseValue(cells[j+1])
			}
		}
		sm.ProbeIDs = append(sm.ProbeIDs, cells[0])
		sm.Values = append(sm.Values, values)
	}

	if header == nil {
		return nil, core.NewMissingColumnError("series matrix", "value table")
	}
	if len(sm.ProbeIDs) == 0 {
		return nil, fmt.Errorf("%w: series matrix has no probes", core.ErrEmptyMatrix)
	}

	sm.Samples = buildSamples(sm.SampleIDs, meta, characteristics)
	log.Printf("[GEO] Parsed series matrix %s: %d probes x %d samples (platform %s)",
		sm.Accession, len(sm.ProbeIDs), len(sm.SampleIDs), sm.PlatformID)
	return sm, nil
}

// buildSamples aligns header metadata with the table columns. Metadata
// columns are positional; when !Sample_geo_accession is present it is used to
// match them to table columns instead.
func buildSamples(ids []string, meta map[string][]string, characteristics [][]string) []expression.Sample {
	pos := make(map[string]int, len(ids))
	if acc := meta["!Sample_geo_accession"]; len(acc) > 0 {
		for k, id := range acc {
			pos[id] = k
		}
	} else {
		for k, id := range ids {
			pos[id] = k
		}
	}

	at := func(fields []string, k int) string {
		if k >= 0 && k < len(fields) {
			return fields[k]
		}
		return ""
	}

	samples := make([]expression.Sample, len(ids))
	for j, id := range ids {
		k, ok := pos[id]
		if !ok {
			k = -1
		}
		var chars []string
		for _, c := range characteristics {
			if v := at(c, k); v != "" {
				chars = append(chars, v)
			}
		}
		samples[j] = expression.Sample{
			ID:              id,
			Title:           at(meta["!Sample_title"], k),
			Source:          at(meta["!Sample_source_name_ch1"], k),
			Characteristics: strings.Join(chars, "; "),
		}
	}
	return samples
}

// Matrix converts the raw table into an expression matrix, attaching gene
// symbols from the annotation when one is given.
func (s *SeriesMatrix) Matrix(annotation *Annotation) *expression.Matrix {
	m := &expression.Matrix{
		FeatureIDs: append([]string(nil), s.ProbeIDs...),
		SampleIDs:  append([]string(nil), s.SampleIDs...),
		Values:     make([][]float64, len(s.Values)),
	}
	for i, row := range s.Values {
		m.Values[i] = append([]float64(nil), row...)
	}
	if annotation != nil {
		m.Symbols = annotation.Symbols(s.ProbeIDs)
	}
	return m
}

func splitMeta(line string) (string, []string) {
	cells := splitTSV(line)
	if len(cells) == 0 {
		return "", nil
	}
	return cells[0], cells[1:]
}

// splitTSV splits a tab-separated line and strips the double quotes GEO puts
// around text cells.
func splitTSV(line string) []string {
	cells := strings.Split(line, "\t")
	for i, c := range cells {
		cells[i] = strings.TrimSpace(strings.Trim(strings.TrimSpace(c), `"`))
	}
	return cells
}

func parseValue(s string) float64 {
	switch strings.ToLower(s) {
	case "", "null", "na", "nan":
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}
