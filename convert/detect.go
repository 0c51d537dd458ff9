package convert

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/h2non/filetype"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/encoding/unicode/utf32"
	"golang.org/x/text/transform"
)

// sniffLen is how many bytes from the beginning of a file participate in
// content detection.
const sniffLen = 512

var svgType = filetype.NewType("svg", "image/svg+xml")

func init() {
	filetype.AddMatcher(svgType, func(buf []byte) bool {
		return bytes.Contains(buf, []byte("<svg"))
	})
}

type srcEncoding int

const (
	encUnknown srcEncoding = iota
	encUTF8
	encUTF16BigEndian
	encUTF16LittleEndian
	encUTF32BigEndian
	encUTF32LittleEndian
)

// NOTE: BOM checks expect the caller to assure proper buffer length.

func isUTF32BigEndianBOM4(buf []byte) bool {
	return buf[0] == 0x00 && buf[1] == 0x00 && buf[2] == 0xFE && buf[3] == 0xFF
}

func isUTF32LittleEndianBOM4(buf []byte) bool {
	return buf[0] == 0xFF && buf[1] == 0xFE && buf[2] == 0x00 && buf[3] == 0x00
}

func isUTF8BOM3(buf []byte) bool {
	return buf[0] == 0xEF && buf[1] == 0xBB && buf[2] == 0xBF
}

func isUTF16BigEndianBOM2(buf []byte) bool {
	return buf[0] == 0xFE && buf[1] == 0xFF
}

func isUTF16LittleEndianBOM2(buf []byte) bool {
	return buf[0] == 0xFF && buf[1] == 0xFE
}

// detectUTF sniffs the byte order mark at the beginning of the buffer. UTF-32
// marks are checked before UTF-16 ones since they share the first two bytes.
func detectUTF(buf []byte) srcEncoding {
	if len(buf) >= 4 && isUTF32BigEndianBOM4(buf) {
		return encUTF32BigEndian
	}
	if len(buf) >= 4 && isUTF32LittleEndianBOM4(buf) {
		return encUTF32LittleEndian
	}
	if len(buf) >= 3 && isUTF8BOM3(buf) {
		return encUTF8
	}
	if len(buf) >= 2 && isUTF16BigEndianBOM2(buf) {
		return encUTF16BigEndian
	}
	if len(buf) >= 2 && isUTF16LittleEndianBOM2(buf) {
		return encUTF16LittleEndian
	}
	return encUnknown
}

// selectReader wraps the reader with a decoding transformer matching the
// detected encoding. The resulting stream is always UTF-8 without BOM.
func selectReader(r io.Reader, enc srcEncoding) io.Reader {
	switch enc {
	case encUnknown:
		return r
	case encUTF8:
		return transform.NewReader(r, unicode.UTF8BOM.NewDecoder())
	case encUTF16BigEndian:
		return transform.NewReader(r, unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewDecoder())
	case encUTF16LittleEndian:
		return transform.NewReader(r, unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder())
	case encUTF32BigEndian:
		return transform.NewReader(r, utf32.UTF32(utf32.BigEndian, utf32.UseBOM).NewDecoder())
	case encUTF32LittleEndian:
		return transform.NewReader(r, utf32.UTF32(utf32.LittleEndian, utf32.UseBOM).NewDecoder())
	default:
		panic(fmt.Sprintf("unsupported source encoding %d", enc))
	}
}

// kindForName picks a candidate input kind from the file name alone.
func kindForName(name string) InputKind {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".css", ".less":
		return InputKindStylesheet
	case ".svg":
		return InputKindVector
	case ".zip":
		return InputKindArchive
	default:
		return InputKindNone
	}
}

func readSniff(r io.Reader) ([]byte, error) {
	buf := make([]byte, sniffLen)
	n, err := io.ReadFull(r, buf)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, err
	}
	return buf[:n], nil
}

// checkContent verifies that file content plausibly matches the kind promised
// by its extension. Returns InputKindNone on mismatch.
func checkContent(kind InputKind, buf []byte) InputKind {
	switch kind {
	case InputKindArchive:
		if !filetype.Is(buf, "zip") {
			return InputKindNone
		}
	case InputKindVector:
		if !filetype.IsType(buf, svgType) {
			return InputKindNone
		}
	case InputKindStylesheet:
		if !looksLikeText(buf) {
			return InputKindNone
		}
	}
	return kind
}

// looksLikeText accepts buffers with a recognizable Unicode BOM or buffers
// free of NUL bytes which no registered binary matcher claims.
func looksLikeText(buf []byte) bool {
	if detectUTF(buf) != encUnknown {
		return true
	}
	if t, err := filetype.Match(buf); err == nil && t != filetype.Unknown {
		return false
	}
	return bytes.IndexByte(buf, 0) < 0
}

// detectFile classifies path for the conversion dispatcher and sniffs text
// encoding for convertible inputs.
func detectFile(path string) (InputKind, srcEncoding, error) {
	kind := kindForName(path)
	if kind == InputKindNone {
		return InputKindNone, encUnknown, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return InputKindNone, encUnknown, err
	}
	defer f.Close()

	buf, err := readSniff(f)
	if err != nil {
		return InputKindNone, encUnknown, err
	}

	kind = checkContent(kind, buf)
	if !kind.Convertible() {
		return kind, encUnknown, nil
	}
	return kind, detectUTF(buf), nil
}

// detectEntry classifies an archive entry. Nested archives are not descended
// into and are reported as InputKindNone.
func detectEntry(f *zip.File) (InputKind, srcEncoding, error) {
	kind := kindForName(f.Name)
	if !kind.Convertible() {
		return InputKindNone, encUnknown, nil
	}

	r, err := f.Open()
	if err != nil {
		return InputKindNone, encUnknown, err
	}
	defer r.Close()

	buf, err := readSniff(r)
	if err != nil {
		return InputKindNone, encUnknown, err
	}

	kind = checkContent(kind, buf)
	if kind == InputKindNone {
		return InputKindNone, encUnknown, nil
	}
	return kind, detectUTF(buf), nil
}
