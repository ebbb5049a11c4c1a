// Package sdfparse streams structure-data-file (SDF) records from a
// byte stream, each record a molecule block plus a set of named
// properties.
package sdfparse

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strings"
)

// Record is one parsed SD-file record: the raw molblock text plus its
// property map, including the synthetic properties dataset_name,
// line_number, and record_number.
type Record struct {
	Molblock   string
	Properties map[string]string
}

// Parser streams Records lazily from an underlying reader.
type Parser struct {
	scanner       *bufio.Scanner
	datasetName   string
	lineNumber    int
	recordNumber  int
	nextRecordNum int
	done          bool
}

// OpenFile opens path for reading, transparently gzip-decompressing if
// its name ends in ".gz" or ".zip" (detection is by filename suffix per
// the input record format contract; it is not a general archive
// reader). The caller must call the returned closer when finished.
func OpenFile(path string) (io.Reader, func() error, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}

	if strings.HasSuffix(path, ".gz") || strings.HasSuffix(path, ".zip") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			_ = f.Close()
			return nil, nil, fmt.Errorf("sdfparse: failed to open gzip stream: %w", err)
		}
		closer := func() error {
			gzErr := gz.Close()
			fErr := f.Close()
			if gzErr != nil {
				return gzErr
			}
			return fErr
		}
		return gz, closer, nil
	}

	return f, f.Close, nil
}

// New creates a Parser over r. datasetName is recorded verbatim on
// every produced record. startRecordNumber is the record_number of the
// first record produced (the spec calls this "monotonic from a
// configured start").
func New(r io.Reader, datasetName string, startRecordNumber int) *Parser {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 64*1024*1024)
	return &Parser{
		scanner:       scanner,
		datasetName:   datasetName,
		nextRecordNum: startRecordNumber,
	}
}

// Next returns the next record, or io.EOF once the stream is
// exhausted. IO errors from the underlying reader are propagated
// directly.
func (p *Parser) Next() (*Record, error) {
	if p.done {
		return nil, io.EOF
	}

	startLine := p.lineNumber + 1
	var molLines []string
	sawMolEnd := false

	for p.scan() {
		line := p.currentLine()
		if trimmedEquals(line, "M  END") {
			sawMolEnd = true
			molLines = append(molLines, line)
			break
		}
		if line == "$$$$" {
			// No M  END was found before the terminator; the spec
			// treats the whole region scanned so far as the molblock
			// and reports an empty property map for this record.
			rec := &Record{
				Molblock:   joinLines(molLines),
				Properties: map[string]string{},
			}
			p.setSyntheticProps(rec, startLine)
			return rec, nil
		}
		molLines = append(molLines, line)
	}

	if !sawMolEnd {
		// Reached EOF without a terminator.
		p.done = true
		if len(molLines) == 0 {
			return nil, io.EOF
		}
		rec := &Record{
			Molblock:   joinLines(molLines),
			Properties: map[string]string{},
		}
		p.setSyntheticProps(rec, startLine)
		return rec, nil
	}

	props := map[string]string{}
	for p.scan() {
		line := p.currentLine()
		if line == "$$$$" {
			rec := &Record{Molblock: joinLines(molLines), Properties: props}
			p.setSyntheticProps(rec, startLine)
			return rec, nil
		}
		if strings.HasPrefix(line, ">") {
			name, ok := parsePropertyName(line)
			if !ok {
				// Header without a matching '>': skip this property
				// section (its value lines, until the next blank
				// line, are simply discarded).
				p.skipPropertyValue()
				continue
			}
			value := p.readPropertyValue()
			props[name] = value
		}
		// Any other line between records (blank separators) is ignored.
	}

	// EOF before the terminator: emit what we have.
	p.done = true
	rec := &Record{Molblock: joinLines(molLines), Properties: props}
	p.setSyntheticProps(rec, startLine)
	return rec, nil
}

func (p *Parser) setSyntheticProps(rec *Record, startLine int) {
	rec.Properties["dataset_name"] = p.datasetName
	rec.Properties["line_number"] = fmt.Sprintf("%d", startLine)
	rec.Properties["record_number"] = fmt.Sprintf("%d", p.nextRecordNum)
	p.nextRecordNum++
}

// scan advances the scanner and tracks the line number.
func (p *Parser) scan() bool {
	ok := p.scanner.Scan()
	if ok {
		p.lineNumber++
	}
	return ok
}

func (p *Parser) currentLine() string {
	return normalizeLineEnding(p.scanner.Text())
}

// readPropertyValue reads lines until the next blank line (exclusive),
// joining them with "\n". A property with no value lines at all (the
// next line is immediately blank) yields a single padded blank value
// rather than an absent one.
func (p *Parser) readPropertyValue() string {
	var lines []string
	for p.scan() {
		line := p.currentLine()
		if line == "" {
			break
		}
		lines = append(lines, line)
	}
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n")
}

func (p *Parser) skipPropertyValue() {
	for p.scan() {
		if p.currentLine() == "" {
			break
		}
	}
}

// parsePropertyName extracts the text between the first '<' and its
// matching '>' on a property header line ("> <NAME>" or ">  <NAME>").
// Returns ok=false if there is no matching '>'.
func parsePropertyName(header string) (string, bool) {
	open := strings.IndexByte(header, '<')
	if open < 0 {
		return "", false
	}
	close := strings.IndexByte(header[open+1:], '>')
	if close < 0 {
		return "", false
	}
	return header[open+1 : open+1+close], true
}

func trimmedEquals(line, want string) bool {
	return strings.TrimRight(line, " \t") == want || strings.TrimSpace(line) == strings.TrimSpace(want)
}

func normalizeLineEnding(line string) string {
	return strings.TrimSuffix(line, "\r")
}

func joinLines(lines []string) string {
	return strings.Join(lines, "\n")
}
