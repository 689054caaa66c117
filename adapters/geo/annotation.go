package geo

import (
	"fmt"
	"io"
	"log"
	"strings"
)

// SymbolColumns are the platform annotation columns searched for gene
// symbols, in order.
var SymbolColumns = []string{
	"Symbol", "Gene Symbol", "GENE_SYMBOL", "Gene_Symbol",
	"ILMN_Gene", "ORF", "gene_assignment", "Gene",
}

// Annotation maps platform probe IDs to gene symbols.
type Annotation struct {
	column  string
	symbols map[string]string
}

// ParseAnnotation reads a platform annotation table (GPL .annot or a plain
// tab-separated export), gzip-compressed or plain. Lines starting with '#',
// '^' or '!' are skipped; the first remaining line is the header and its
// first column holds the probe ID.
func ParseAnnotation(r io.Reader) (*Annotation, error) {
	in, closeFn, err := openMaybeGzip(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open annotation: %w", err)
	}
	defer closeFn()

	a := &Annotation{symbols: map[string]string{}}
	lines := newLineReader(in)
	symbolCol := -1
	var header []string
	for {
		line, err := lines.next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read annotation: %w", err)
		}
		if line == "" || strings.ContainsAny(line[:1], "#^!") {
			continue
		}
		cells := splitTSV(line)
		if header == nil {
			header = cells
			symbolCol = findSymbolColumn(header)
			if symbolCol < 0 {
				log.Printf("[GEO] WARNING: no gene symbol column found in platform annotation; columns: %v", header)
				return a, nil
			}
			a.column = header[symbolCol]
			log.Printf("[GEO] Found gene symbol column: %s", a.column)
			continue
		}
		if len(cells) <= symbolCol || cells[0] == "" {
			continue
		}
		if sym := FirstSymbol(cells[symbolCol]); sym != "" {
			a.symbols[cells[0]] = sym
		}
	}
	if header == nil {
		return nil, fmt.Errorf("platform annotation has no header row")
	}
	return a, nil
}

func findSymbolColumn(header []string) int {
	for _, name := range SymbolColumns {
		for i, h := range header {
			if h == name {
				return i
			}
		}
	}
	return -1
}

// FirstSymbol takes the first gene of a "///"-separated list. For
// gene_assignment style cells ("accession // SYMBOL // description") the
// symbol field is returned. Empty and placeholder values give "".
func FirstSymbol(cell string) string {
	first := strings.TrimSpace(strings.SplitN(cell, "///", 2)[0])
	if parts := strings.Split(first, " // "); len(parts) >= 2 {
		first = strings.TrimSpace(parts[1])
	}
	switch strings.ToLower(first) {
	case "", "nan", "---", "null":
		return ""
	}
	return first
}

// Column returns the detected symbol column, or "" when none was found.
func (a *Annotation) Column() string { return a.column }

// Len returns the number of probes with a symbol.
func (a *Annotation) Len() int { return len(a.symbols) }

// Symbol returns the gene symbol for probe, falling back to the probe ID.
func (a *Annotation) Symbol(probe string) string {
	if a != nil {
		if s, ok := a.symbols[probe]; ok {
			return s
		}
	}
	return probe
}

// Symbols maps a list of probes, logging how many received a real symbol.
func (a *Annotation) Symbols(probes []string) []string {
	out := make([]string, len(probes))
	mapped := 0
	for i, p := range probes {
		out[i] = a.Symbol(p)
		if out[i] != p {
			mapped++
		}
	}
	log.Printf("[GEO] Mapped %d of %d probes to gene symbols", mapped, len(probes))
	return out
}
