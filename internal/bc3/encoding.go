package bc3

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// Codepage names understood by Decode and Encode.
const (
	CodepageWindows1252 = "windows-1252"
	CodepageCP850       = "cp850"
	CodepageCP437       = "cp437"
	CodepageISO88591    = "iso-8859-1"
	CodepageISO885915   = "iso-8859-15"
)

// DefaultCodepages returns the decoder fallback chain used when none is
// configured. Each call returns a fresh slice.
func DefaultCodepages() []string {
	return []string{CodepageWindows1252, CodepageCP850}
}

// lookupCodepage resolves a codepage name (case-insensitive, a few aliases).
func lookupCodepage(name string) (encoding.Encoding, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case CodepageWindows1252, "cp1252", "ansi":
		return charmap.Windows1252, true
	case CodepageCP850, "ibm850", "850":
		return charmap.CodePage850, true
	case CodepageCP437, "ibm437", "437":
		return charmap.CodePage437, true
	case CodepageISO88591, "latin1":
		return charmap.ISO8859_1, true
	case CodepageISO885915, "latin9":
		return charmap.ISO8859_15, true
	}
	return nil, false
}

// Decode turns raw file bytes into text by trying each codepage in order
// until one decodes without error and without replacement characters. It
// returns the text and the name of the codepage that produced it.
//
// A codepage that decodes cleanly is accepted as-is: no further check is
// made that it is the codepage the file was written in.
func Decode(data []byte, codepages []string) (string, string, error) {
	if len(data) == 0 {
		return "", "", ErrEmptyFile
	}
	if len(codepages) == 0 {
		codepages = DefaultCodepages()
	}

	var tried []string
	reason := "no codepage configured"
	for _, name := range codepages {
		tried = append(tried, name)
		enc, ok := lookupCodepage(name)
		if !ok {
			reason = fmt.Sprintf("unknown codepage %q", name)
			continue
		}
		text, err := enc.NewDecoder().String(string(data))
		if err != nil {
			reason = fmt.Sprintf("%s: %v", name, err)
			continue
		}
		if strings.ContainsRune(text, utf8.RuneError) {
			reason = fmt.Sprintf("%s: undefined byte sequence", name)
			continue
		}
		if strings.TrimSpace(text) == "" {
			return "", "", &EncodingError{Tried: tried, Reason: "decoded text is blank"}
		}
		return text, name, nil
	}
	return "", "", &EncodingError{Tried: tried, Reason: reason}
}

// Encode converts exported text into the interchange codepage. Runes the
// codepage cannot represent are replaced rather than rejected.
func Encode(text, codepage string) ([]byte, error) {
	if codepage == "" {
		codepage = CodepageWindows1252
	}
	enc, ok := lookupCodepage(codepage)
	if !ok {
		return nil, fmt.Errorf("bc3: encode: unknown codepage %q", codepage)
	}
	out, err := encoding.ReplaceUnsupported(enc.NewEncoder()).String(text)
	if err != nil {
		return nil, fmt.Errorf("bc3: encode %s: %w", codepage, err)
	}
	return []byte(out), nil
}
