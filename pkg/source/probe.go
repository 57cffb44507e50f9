package source

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/ajitpratap0/phaeton/pkg/compression"
	"github.com/ajitpratap0/phaeton/pkg/errors"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// ProbeSize is the number of leading bytes inspected by Probe.
const ProbeSize = 8192

// Metadata is the result of probing a delimited text file.
type Metadata struct {
	Encoding   string   `json:"encoding" yaml:"encoding"`
	Confidence float64  `json:"confidence" yaml:"confidence"`
	Delimiter  rune     `json:"delimiter" yaml:"delimiter"`
	Headers    []string `json:"headers" yaml:"headers"`
}

// Dialect converts probe results into an explicit decoding configuration.
func (m Metadata) Dialect() Dialect {
	return Dialect{Encoding: m.Encoding, Delimiter: m.Delimiter}
}

var delimiterCandidates = []rune{',', ';', '\t', '|', ':'}

// ProbeFile probes the first ProbeSize bytes of a possibly compressed file.
func ProbeFile(path string) (Metadata, error) {
	f, err := os.Open(path) //nolint:gosec // G304: path is supplied by the caller
	if err != nil {
		return Metadata{}, errors.Wrap(err, errors.ErrorTypeIO, "failed to open file for probing")
	}
	defer f.Close()

	alg, _ := compression.FromPath(path)
	r, err := compression.NewReader(f, alg)
	if err != nil {
		return Metadata{}, errors.Wrap(err, errors.ErrorTypeIO, "failed to open decompressor")
	}
	defer r.Close()
	return Probe(r)
}

// Probe guesses encoding, delimiter and header names from a stream prefix.
//
// Encoding: a UTF-8 or UTF-16LE byte order mark wins outright; otherwise
// valid UTF-8 scores 0.9, bytes in 0x80-0x9F suggest windows-1252 (0.7) and
// other high bytes suggest latin-1, read as windows-1252 (0.6).
// Delimiter: the candidate occurring most often in the first line, ties
// resolved in the order , ; tab | :.
func Probe(r io.Reader) (Metadata, error) {
	buf := make([]byte, ProbeSize)
	n, err := io.ReadFull(r, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return Metadata{}, errors.Wrap(err, errors.ErrorTypeIO, "failed to read probe sample")
	}
	buf = buf[:n]

	meta := Metadata{}
	var text string
	switch {
	case bytes.HasPrefix(buf, []byte{0xEF, 0xBB, 0xBF}):
		meta.Encoding, meta.Confidence = "utf-8", 1.0
		text = string(buf[3:])
	case bytes.HasPrefix(buf, []byte{0xFF, 0xFE}):
		meta.Encoding, meta.Confidence = "utf-16le", 1.0
		dec := unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM).NewDecoder()
		out, _ := dec.Bytes(buf)
		text = string(out)
	case utf8.Valid(trimPartialRune(buf)):
		meta.Encoding, meta.Confidence = "utf-8", 0.9
		text = string(buf)
	default:
		meta.Encoding, meta.Confidence = "windows-1252", 0.6
		for _, b := range buf {
			if b >= 0x80 && b <= 0x9F {
				meta.Confidence = 0.7
				break
			}
		}
		out, _ := charmap.Windows1252.NewDecoder().Bytes(buf)
		text = string(out)
	}

	first := firstLine(text)
	meta.Delimiter = detectDelimiter(first)

	cr := csv.NewReader(strings.NewReader(first))
	cr.Comma = meta.Delimiter
	cr.LazyQuotes = true
	if fields, err := cr.Read(); err == nil {
		for i := range fields {
			fields[i] = strings.TrimSpace(fields[i])
		}
		meta.Headers = fields
	}
	return meta, nil
}

func detectDelimiter(line string) rune {
	best, bestCount := ',', 0
	for _, d := range delimiterCandidates {
		if c := strings.Count(line, string(d)); c > bestCount {
			best, bestCount = d, c
		}
	}
	return best
}

func firstLine(text string) string {
	sc := bufio.NewScanner(strings.NewReader(text))
	sc.Buffer(make([]byte, 0, ProbeSize), ProbeSize*4)
	if sc.Scan() {
		return strings.TrimRight(sc.Text(), "\r")
	}
	return ""
}

// trimPartialRune drops an incomplete UTF-8 sequence cut by the sample boundary.
func trimPartialRune(b []byte) []byte {
	for i := 1; i < utf8.UTFMax && i <= len(b); i++ {
		if utf8.RuneStart(b[len(b)-i]) {
			if !utf8.FullRune(b[len(b)-i:]) {
				return b[:len(b)-i]
			}
			break
		}
	}
	return b
}
