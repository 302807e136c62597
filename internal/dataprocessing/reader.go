package dataprocessing

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// delimiterCandidates is ordered by preference when counts tie.
var delimiterCandidates = []rune{';', ',', '\t', '|'}

// ReadResult is a decoded source table plus what the reader had to do to
// get it.
type ReadResult struct {
	Table       *Table
	Encoding    string
	Delimiter   rune
	SkippedRows int
	PaddedRows  int
}

// ReadTableFile reads and decodes a CSV file into a table of string cells.
func ReadTableFile(path, name string) (*ReadResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return ReadTable(name, data)
}

// ReadTable parses CSV bytes. Encoding and delimiter are detected from the
// data. Malformed lines and lines carrying extra non-empty fields are
// skipped; short lines are padded with nulls. Empty cells are Null.
func ReadTable(name string, data []byte) (*ReadResult, error) {
	decoded, enc, err := DetectAndDecode(data)
	if err != nil {
		return nil, fmt.Errorf("encoding detection failed: %w", err)
	}

	delim := DetectDelimiter(decoded)
	reader := csv.NewReader(bytes.NewReader(decoded))
	reader.Comma = delim
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	headers, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty file: no header row found")
		}
		return nil, fmt.Errorf("failed to read header row: %w", err)
	}
	for i, h := range headers {
		headers[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}

	result := &ReadResult{
		Table:     NewTable(name, headers),
		Encoding:  enc,
		Delimiter: delim,
	}
	width := len(headers)

	for {
		fields, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				result.SkippedRows++
				continue
			}
			return nil, fmt.Errorf("failed to read row: %w", err)
		}

		if len(fields) > width {
			if !allBlank(fields[width:]) {
				result.SkippedRows++
				continue
			}
			fields = fields[:width]
		}
		if len(fields) < width {
			result.PaddedRows++
		}

		row := make([]Value, width)
		for i, f := range fields {
			if f = strings.TrimSpace(f); f != "" {
				row[i] = StringValue(f)
			}
		}
		result.Table.Rows = append(result.Table.Rows, row)
	}

	return result, nil
}

// DetectDelimiter picks the candidate delimiter occurring most often,
// outside quotes, in the header line. Comma is the fallback.
func DetectDelimiter(data []byte) rune {
	line := data
	if i := bytes.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}

	counts := make(map[rune]int, len(delimiterCandidates))
	inQuotes := false
	for _, r := range string(line) {
		if r == '"' {
			inQuotes = !inQuotes
			continue
		}
		if !inQuotes {
			counts[r]++
		}
	}

	best, bestCount := ',', 0
	for _, c := range delimiterCandidates {
		if counts[c] > bestCount {
			best, bestCount = c, counts[c]
		}
	}
	return best
}

func allBlank(fields []string) bool {
	for _, f := range fields {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
