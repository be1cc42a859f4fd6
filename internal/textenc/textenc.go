// Package textenc turns raw bytes into text using an ordered list of candidate
// encodings. Decoding never fails: when no candidate fits, invalid sequences are
// replaced with U+FFFD.
package textenc

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/unicode"
)

// Primary is the default encoding for reads, writes and process output.
const Primary = "utf-8"

// Fallbacks is tried in order after the primary encoding. The order is fixed so
// that a given input always resolves to the same encoding.
var Fallbacks = []string{"utf-8", "gbk", "gb18030", "latin-1", "windows-1252"}

// known maps normalized names to decoders. gb2312 is served by the GBK decoder,
// which is a strict superset.
var known = map[string]encoding.Encoding{
	"utf-8":        unicode.UTF8,
	"utf8":         unicode.UTF8,
	"gbk":          simplifiedchinese.GBK,
	"cp936":        simplifiedchinese.GBK,
	"gb2312":       simplifiedchinese.GBK,
	"gb18030":      simplifiedchinese.GB18030,
	"latin-1":      charmap.ISO8859_1,
	"latin1":       charmap.ISO8859_1,
	"iso-8859-1":   charmap.ISO8859_1,
	"windows-1252": charmap.Windows1252,
	"cp1252":       charmap.Windows1252,
}

// canonical collapses aliases so that "latin1" and "iso-8859-1" count as the
// same attempt.
var canonical = map[string]string{
	"utf8":       "utf-8",
	"cp936":      "gbk",
	"gb2312":     "gbk",
	"latin1":     "latin-1",
	"iso-8859-1": "latin-1",
	"cp1252":     "windows-1252",
}

func normalize(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	n = strings.ReplaceAll(n, "_", "-")
	if c, ok := canonical[n]; ok {
		return c
	}
	return n
}

// Lookup resolves an encoding name. Names outside the built-in table are looked
// up in the IANA registry.
func Lookup(name string) (encoding.Encoding, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	n = strings.ReplaceAll(n, "_", "-")
	if enc, ok := known[n]; ok {
		return enc, nil
	}
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil {
		return nil, fmt.Errorf("unknown encoding %q: %w", name, err)
	}
	if enc == nil {
		return nil, fmt.Errorf("unsupported encoding %q", name)
	}
	return enc, nil
}

// Decode converts data to text. encodings lists the preferred encodings, primary
// first; the built-in Fallbacks are tried after them. Unknown names are skipped.
func Decode(data []byte, encodings []string) string {
	return decode(data, encodings, Fallbacks)
}

func decode(data []byte, encodings, fallbacks []string) string {
	if len(data) == 0 {
		return ""
	}

	tried := make(map[string]bool, len(encodings)+len(fallbacks))
	for _, name := range append(append([]string(nil), encodings...), fallbacks...) {
		n := normalize(name)
		if n == "" || tried[n] {
			continue
		}
		tried[n] = true
		if text, ok := DecodeStrict(data, name); ok {
			return text
		}
	}

	return strings.ToValidUTF8(string(data), string(utf8.RuneError))
}

// DecodeStrict decodes data with a single encoding and reports whether every
// byte sequence was valid for it.
func DecodeStrict(data []byte, name string) (string, bool) {
	if normalize(name) == "utf-8" {
		if !utf8.Valid(data) {
			return "", false
		}
		return string(data), true
	}

	enc, err := Lookup(name)
	if err != nil {
		return "", false
	}
	out, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return "", false
	}
	// x/text decoders substitute U+FFFD instead of failing.
	if bytes.ContainsRune(out, utf8.RuneError) {
		return "", false
	}
	return string(out), true
}

// Encode converts text to bytes in the named encoding.
func Encode(text, name string) ([]byte, error) {
	if normalize(name) == "utf-8" {
		return []byte(text), nil
	}
	enc, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	out, err := enc.NewEncoder().Bytes([]byte(text))
	if err != nil {
		return nil, fmt.Errorf("encoding text as %s: %w", name, err)
	}
	return out, nil
}
