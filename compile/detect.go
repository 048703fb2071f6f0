package compile

import (
	"archive/zip"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/h2non/filetype"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/encoding/unicode/utf32"
	"golang.org/x/text/transform"
)

type srcEncoding int

const (
	encUnknown srcEncoding = iota
	encUTF8
	encUTF16BigEndian
	encUTF16LittleEndian
	encUTF32BigEndian
	encUTF32LittleEndian
)

// enough for filetype matchers and any BOM
const headerSize = 262

var markupExtensions = []string{".xaml", ".xml"}

func isMarkupName(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range markupExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

func readHeader(r io.Reader) ([]byte, error) {
	buf := make([]byte, headerSize)
	n, err := io.ReadFull(r, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, err
	}
	return buf[:n], nil
}

func isArchiveFile(path string) (bool, error) {
	if !strings.EqualFold(filepath.Ext(path), ".zip") {
		return false, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	head, err := readHeader(f)
	if err != nil {
		return false, err
	}
	return filetype.Is(head, "zip"), nil
}

func isMarkupFile(path string) (bool, srcEncoding, error) {
	if !isMarkupName(path) {
		return false, encUnknown, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return false, encUnknown, err
	}
	defer f.Close()

	head, err := readHeader(f)
	if err != nil {
		return false, encUnknown, err
	}
	ok, enc := looksLikeMarkup(head)
	return ok, enc, nil
}

func isMarkupInArchive(f *zip.File) (bool, srcEncoding, error) {
	if !isMarkupName(f.FileHeader.Name) {
		return false, encUnknown, nil
	}
	r, err := f.Open()
	if err != nil {
		return false, encUnknown, err
	}
	defer r.Close()

	head, err := readHeader(r)
	if err != nil {
		return false, encUnknown, err
	}
	ok, enc := looksLikeMarkup(head)
	return ok, enc, nil
}

// looksLikeMarkup checks that the first meaningful character of the header
// opens an element or a declaration.
func looksLikeMarkup(head []byte) (bool, srcEncoding) {
	enc := detectUTF(head)
	text, err := io.ReadAll(selectReader(bytes.NewReader(head), enc))
	if err != nil && len(text) == 0 {
		return false, enc
	}
	text = bytes.TrimLeft(text, " \t\r\n\ufeff")
	return len(text) > 0 && text[0] == '<', enc
}

func detectUTF(buf []byte) srcEncoding {
	// UTF-32 first, its little endian BOM starts with the UTF-16 one
	if len(buf) >= 4 {
		switch {
		case isUTF32BigEndianBOM4(buf):
			return encUTF32BigEndian
		case isUTF32LittleEndianBOM4(buf):
			return encUTF32LittleEndian
		}
	}
	if len(buf) >= 3 && isUTF8BOM3(buf) {
		return encUTF8
	}
	if len(buf) >= 2 {
		switch {
		case isUTF16BigEndianBOM2(buf):
			return encUTF16BigEndian
		case isUTF16LittleEndianBOM2(buf):
			return encUTF16LittleEndian
		}
	}
	return encUnknown
}

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

// selectReader strips the BOM and turns wide encodings into UTF-8, the XML
// parser handles declared single byte encodings itself.
func selectReader(r io.Reader, enc srcEncoding) io.Reader {
	switch enc {
	case encUTF8:
		return transform.NewReader(r, unicode.UTF8BOM.NewDecoder())
	case encUTF16BigEndian:
		return transform.NewReader(r, unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM).NewDecoder())
	case encUTF16LittleEndian:
		return transform.NewReader(r, unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM).NewDecoder())
	case encUTF32BigEndian:
		return transform.NewReader(r, utf32.UTF32(utf32.BigEndian, utf32.ExpectBOM).NewDecoder())
	case encUTF32LittleEndian:
		return transform.NewReader(r, utf32.UTF32(utf32.LittleEndian, utf32.ExpectBOM).NewDecoder())
	}
	return r
}
