package archive

import (
	"archive/tar"
	"io"

	"github.com/DataDog/zstd"
	"github.com/toolpin/toolpin/internal/turbopath"
)

// ZstdExtractor unpacks .tar.zst archives, the format a node.distro or
// npm.distro hook can point at.
type ZstdExtractor struct{}

// Extract implements Extractor.
func (ZstdExtractor) Extract(r io.Reader, destDir turbopath.AbsoluteSystemPath) error {
	zr := zstd.NewReader(r)
	defer zr.Close()
	return extractTar(tar.NewReader(zr), destDir)
}
