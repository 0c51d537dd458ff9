package convert

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

// TestDetectUTF tests UTF encoding detection
func TestDetectUTF(t *testing.T) {
	tests := []struct {
		name string
		buf  []byte
		want srcEncoding
	}{
		{
			name: "UTF-8 BOM",
			buf:  []byte{0xEF, 0xBB, 0xBF, 0x00},
			want: encUTF8,
		},
		{
			name: "UTF-16 Big Endian BOM",
			buf:  []byte{0xFE, 0xFF, 0x00, 0x00},
			want: encUTF16BigEndian,
		},
		{
			name: "UTF-16 Little Endian BOM",
			buf:  []byte{0xFF, 0xFE, 0x01, 0x00}, // Different from UTF-32LE
			want: encUTF16LittleEndian,
		},
		{
			name: "UTF-32 Big Endian BOM",
			buf:  []byte{0x00, 0x00, 0xFE, 0xFF},
			want: encUTF32BigEndian,
		},
		{
			name: "UTF-32 Little Endian BOM",
			buf:  []byte{0xFF, 0xFE, 0x00, 0x00},
			want: encUTF32LittleEndian,
		},
		{
			name: "No BOM",
			buf:  []byte{0x00, 0x01, 0x02, 0x03},
			want: encUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := detectUTF(tt.buf)
			if got != tt.want {
				t.Errorf("detectUTF() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestBOMDetectionFunctions tests individual BOM detection functions
func TestBOMDetectionFunctions(t *testing.T) {
	t.Run("isUTF8BOM3", func(t *testing.T) {
		if !isUTF8BOM3([]byte{0xEF, 0xBB, 0xBF}) {
			t.Error("Expected true for UTF-8 BOM")
		}
		if isUTF8BOM3([]byte{0x00, 0x00, 0x00}) {
			t.Error("Expected false for non-BOM")
		}
	})

	t.Run("isUTF16BigEndianBOM2", func(t *testing.T) {
		if !isUTF16BigEndianBOM2([]byte{0xFE, 0xFF}) {
			t.Error("Expected true for UTF-16 BE BOM")
		}
		if isUTF16BigEndianBOM2([]byte{0xFF, 0xFE}) {
			t.Error("Expected false for UTF-16 LE BOM")
		}
	})

	t.Run("isUTF16LittleEndianBOM2", func(t *testing.T) {
		if !isUTF16LittleEndianBOM2([]byte{0xFF, 0xFE}) {
			t.Error("Expected true for UTF-16 LE BOM")
		}
		if isUTF16LittleEndianBOM2([]byte{0xFE, 0xFF}) {
			t.Error("Expected false for UTF-16 BE BOM")
		}
	})

	t.Run("isUTF32BigEndianBOM4", func(t *testing.T) {
		if !isUTF32BigEndianBOM4([]byte{0x00, 0x00, 0xFE, 0xFF}) {
			t.Error("Expected true for UTF-32 BE BOM")
		}
		if isUTF32BigEndianBOM4([]byte{0xFF, 0xFE, 0x00, 0x00}) {
			t.Error("Expected false for UTF-32 LE BOM")
		}
	})

	t.Run("isUTF32LittleEndianBOM4", func(t *testing.T) {
		if !isUTF32LittleEndianBOM4([]byte{0xFF, 0xFE, 0x00, 0x00}) {
			t.Error("Expected true for UTF-32 LE BOM")
		}
		if isUTF32LittleEndianBOM4([]byte{0x00, 0x00, 0xFE, 0xFF}) {
			t.Error("Expected false for UTF-32 BE BOM")
		}
	})
}

// TestKindForName tests extension based classification
func TestKindForName(t *testing.T) {
	tests := []struct {
		name string
		want InputKind
	}{
		{"app.css", InputKindStylesheet},
		{"APP.CSS", InputKindStylesheet},
		{"theme.less", InputKindStylesheet},
		{"logo.svg", InputKindVector},
		{"bundle.zip", InputKindArchive},
		{"notes.txt", InputKindNone},
		{"Makefile", InputKindNone},
		{filepath.Join("assets", "css", "app.css"), InputKindStylesheet},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := kindForName(tt.name); got != tt.want {
				t.Errorf("kindForName(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

// TestDetectFile tests file classification with content verification
func TestDetectFile(t *testing.T) {
	tmpDir := t.TempDir()

	cssContent := []byte("body {\n\tfont-size: 16px;\n\tmargin: 0;\n}\n")
	svgContent := []byte(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="100" height="100">
<rect style="stroke-width: 2px" width="80" height="80"/>
</svg>`)
	pngMagic := []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0x00, 0x00}

	tests := []struct {
		name     string
		filename string
		content  []byte
		wantKind InputKind
		wantEnc  srcEncoding
	}{
		{
			name:     "plain stylesheet",
			filename: "app.css",
			content:  cssContent,
			wantKind: InputKindStylesheet,
			wantEnc:  encUnknown,
		},
		{
			name:     "stylesheet with UTF-8 BOM",
			filename: "app-bom.css",
			content:  append([]byte{0xEF, 0xBB, 0xBF}, cssContent...),
			wantKind: InputKindStylesheet,
			wantEnc:  encUTF8,
		},
		{
			name:     "stylesheet with UTF-16 LE BOM",
			filename: "app-utf16.css",
			content:  []byte{0xFF, 0xFE, 'b', 0x00, 'o', 0x00, 'd', 0x00, 'y', 0x00},
			wantKind: InputKindStylesheet,
			wantEnc:  encUTF16LittleEndian,
		},
		{
			name:     "uppercase extension",
			filename: "app2.CSS",
			content:  cssContent,
			wantKind: InputKindStylesheet,
			wantEnc:  encUnknown,
		},
		{
			name:     "less stylesheet",
			filename: "theme.less",
			content:  []byte("@base: 16px;\nbody { font-size: @base; }\n"),
			wantKind: InputKindStylesheet,
			wantEnc:  encUnknown,
		},
		{
			name:     "stylesheet extension hiding binary content",
			filename: "fake.css",
			content:  pngMagic,
			wantKind: InputKindNone,
			wantEnc:  encUnknown,
		},
		{
			name:     "vector image",
			filename: "logo.svg",
			content:  svgContent,
			wantKind: InputKindVector,
			wantEnc:  encUnknown,
		},
		{
			name:     "vector extension without svg content",
			filename: "fake.svg",
			content:  []byte("just some text"),
			wantKind: InputKindNone,
			wantEnc:  encUnknown,
		},
		{
			name:     "archive extension but invalid content",
			filename: "fake.zip",
			content:  []byte("not a real zip file"),
			wantKind: InputKindNone,
			wantEnc:  encUnknown,
		},
		{
			name:     "unrelated extension",
			filename: "notes.txt",
			content:  cssContent,
			wantKind: InputKindNone,
			wantEnc:  encUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filePath := filepath.Join(tmpDir, tt.filename)
			if err := os.WriteFile(filePath, tt.content, 0644); err != nil {
				t.Fatalf("Failed to create test file: %v", err)
			}

			gotKind, gotEnc, err := detectFile(filePath)
			if err != nil {
				t.Errorf("detectFile() error = %v", err)
				return
			}
			if gotKind != tt.wantKind {
				t.Errorf("detectFile() kind = %v, want %v", gotKind, tt.wantKind)
			}
			if gotEnc != tt.wantEnc {
				t.Errorf("detectFile() encoding = %v, want %v", gotEnc, tt.wantEnc)
			}
		})
	}
}

// TestDetectFile_ValidArchive tests detection of a real zip file
func TestDetectFile_ValidArchive(t *testing.T) {
	tmpDir := t.TempDir()
	zipPath := filepath.Join(tmpDir, "bundle.zip")

	zipFile, err := os.Create(zipPath)
	if err != nil {
		t.Fatalf("Failed to create zip file: %v", err)
	}
	w := zip.NewWriter(zipFile)
	f, err := w.Create("app.css")
	if err != nil {
		t.Fatalf("Failed to create file in zip: %v", err)
	}
	f.Write([]byte("body { margin: 0; }"))
	w.Close()
	zipFile.Close()

	gotKind, gotEnc, err := detectFile(zipPath)
	if err != nil {
		t.Errorf("detectFile() error = %v", err)
	}
	if gotKind != InputKindArchive {
		t.Errorf("detectFile() kind = %v, want %v", gotKind, InputKindArchive)
	}
	if gotEnc != encUnknown {
		t.Errorf("detectFile() encoding = %v, want %v", gotEnc, encUnknown)
	}
}

// TestDetectFile_NonExistent tests with non-existent file
func TestDetectFile_NonExistent(t *testing.T) {
	_, _, err := detectFile("/nonexistent/file.css")
	if err == nil {
		t.Error("Expected error for non-existent file, got nil")
	}
}

// TestDetectEntry tests classification of archive entries
func TestDetectEntry(t *testing.T) {
	tmpDir := t.TempDir()
	zipPath := filepath.Join(tmpDir, "test.zip")

	var inner bytes.Buffer
	iw := zip.NewWriter(&inner)
	fi, err := iw.Create("nested.css")
	if err != nil {
		t.Fatalf("Failed to create nested file: %v", err)
	}
	fi.Write([]byte("p { margin: 0; }"))
	iw.Close()

	zipFile, err := os.Create(zipPath)
	if err != nil {
		t.Fatalf("Failed to create zip file: %v", err)
	}
	w := zip.NewWriter(zipFile)

	entries := []struct {
		name    string
		content []byte
	}{
		{"app.css", []byte("body { font-size: 16px; }")},
		{"app-bom.css", append([]byte{0xEF, 0xBB, 0xBF}, []byte("body { font-size: 16px; }")...)},
		{"logo.svg", []byte(`<svg xmlns="http://www.w3.org/2000/svg"/>`)},
		{"readme.txt", []byte("nothing to convert here")},
		{"inner.zip", inner.Bytes()},
		{"fake.css", []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}},
	}
	for _, e := range entries {
		f, err := w.CreateHeader(&zip.FileHeader{Name: e.name, Method: zip.Store})
		if err != nil {
			t.Fatalf("Failed to create %s in zip: %v", e.name, err)
		}
		if _, err := f.Write(e.content); err != nil {
			t.Fatalf("Failed to write %s to zip: %v", e.name, err)
		}
	}
	w.Close()
	zipFile.Close()

	r, err := zip.OpenReader(zipPath)
	if err != nil {
		t.Fatalf("Failed to open zip: %v", err)
	}
	defer r.Close()

	tests := []struct {
		name     string
		fileIdx  int
		wantKind InputKind
		wantEnc  srcEncoding
	}{
		{
			name:     "stylesheet in archive",
			fileIdx:  0,
			wantKind: InputKindStylesheet,
			wantEnc:  encUnknown,
		},
		{
			name:     "stylesheet with BOM in archive",
			fileIdx:  1,
			wantKind: InputKindStylesheet,
			wantEnc:  encUTF8,
		},
		{
			name:     "vector image in archive",
			fileIdx:  2,
			wantKind: InputKindVector,
			wantEnc:  encUnknown,
		},
		{
			name:     "unrelated file in archive",
			fileIdx:  3,
			wantKind: InputKindNone,
			wantEnc:  encUnknown,
		},
		{
			name:     "nested archive is not descended into",
			fileIdx:  4,
			wantKind: InputKindNone,
			wantEnc:  encUnknown,
		},
		{
			name:     "stylesheet entry hiding binary content",
			fileIdx:  5,
			wantKind: InputKindNone,
			wantEnc:  encUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotKind, gotEnc, err := detectEntry(r.File[tt.fileIdx])
			if err != nil {
				t.Errorf("detectEntry() error = %v", err)
				return
			}
			if gotKind != tt.wantKind {
				t.Errorf("detectEntry() kind = %v, want %v", gotKind, tt.wantKind)
			}
			if gotEnc != tt.wantEnc {
				t.Errorf("detectEntry() encoding = %v, want %v", gotEnc, tt.wantEnc)
			}
		})
	}
}

// TestSelectReader tests reader selection for different encodings
func TestSelectReader(t *testing.T) {
	testData := []byte("test data")
	r := bytes.NewReader(testData)

	tests := []srcEncoding{
		encUnknown,
		encUTF8,
		encUTF16BigEndian,
		encUTF16LittleEndian,
		encUTF32BigEndian,
		encUTF32LittleEndian,
	}

	for i, enc := range tests {
		t.Run(string(rune('0'+i)), func(t *testing.T) {
			result := selectReader(r, enc)
			if result == nil {
				t.Error("selectReader() returned nil")
			}
		})
	}
}

// TestSelectReader_Panic tests that invalid encoding causes panic
func TestSelectReader_Panic(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("Expected panic for invalid encoding, but didn't panic")
		}
	}()

	r := bytes.NewReader([]byte("test"))
	// Use an invalid encoding value
	selectReader(r, srcEncoding(999))
}

// TestSrcEncoding tests srcEncoding constants
func TestSrcEncoding(t *testing.T) {
	// Verify encoding constants are distinct
	encodings := map[srcEncoding]string{
		encUnknown:           "unknown",
		encUTF8:              "utf8",
		encUTF16BigEndian:    "utf16be",
		encUTF16LittleEndian: "utf16le",
		encUTF32BigEndian:    "utf32be",
		encUTF32LittleEndian: "utf32le",
	}

	seen := make(map[srcEncoding]bool)
	for enc := range encodings {
		if seen[enc] {
			t.Errorf("Duplicate encoding value: %v", enc)
		}
		seen[enc] = true
	}

	if len(seen) != 6 {
		t.Errorf("Expected 6 unique encodings, got %d", len(seen))
	}
}

// TestInputKindConvertible tests the Convertible helper
func TestInputKindConvertible(t *testing.T) {
	tests := []struct {
		kind InputKind
		want bool
	}{
		{InputKindNone, false},
		{InputKindStylesheet, true},
		{InputKindVector, true},
		{InputKindArchive, false},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			if got := tt.kind.Convertible(); got != tt.want {
				t.Errorf("Convertible() = %v, want %v", got, tt.want)
			}
		})
	}
}
