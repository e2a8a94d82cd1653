// Package archive unpacks downloaded tool distributions into a staging
// directory: a small Extractor interface with three concrete
// implementations chosen by content sniffing.
package archive

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/toolpin/toolpin/internal/turbopath"
)

// Extractor unpacks an archive's contents into destDir, which must
// already exist and be empty.
type Extractor interface {
	// Extract reads the full archive from r and writes its contents
	// under destDir, preserving executable permission bits.
	Extract(r io.Reader, destDir turbopath.AbsoluteSystemPath) error
}

// gzipMagic and zstdMagic are the first bytes used to sniff format;
// zip files are detected by their "PK\x03\x04" local-file-header magic.
var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
	zipMagic  = []byte{0x50, 0x4b, 0x03, 0x04}
)

// ExtractAuto sniffs the archive format from its first bytes and
// dispatches to the matching Extractor.
func ExtractAuto(path turbopath.AbsoluteSystemPath, destDir turbopath.AbsoluteSystemPath) error {
	f, err := os.Open(path.ToString())
	if err != nil {
		return err
	}
	defer f.Close()

	buffered := bufio.NewReader(f)
	header, err := buffered.Peek(4)
	if err != nil && err != io.EOF {
		return fmt.Errorf("reading archive header: %w", err)
	}

	switch {
	case hasPrefix(header, zstdMagic):
		return (&ZstdExtractor{}).Extract(buffered, destDir)
	case hasPrefix(header, gzipMagic):
		return (&TarGzExtractor{}).Extract(buffered, destDir)
	case hasPrefix(header, zipMagic):
		return (&ZipExtractor{}).ExtractFile(path, destDir)
	default:
		return fmt.Errorf("unrecognized archive format for %s", path.ToString())
	}
}

func hasPrefix(b, prefix []byte) bool {
	if len(b) < len(prefix) {
		return false
	}
	for i := range prefix {
		if b[i] != prefix[i] {
			return false
		}
	}
	return true
}
