package archive

import (
	"archive/zip"
	"bytes"
	"io"
	"os"
	"path/filepath"

	"github.com/toolpin/toolpin/internal/turbopath"
)

// ZipExtractor unpacks .zip archives, the default for Windows Node
// distributions.
type ZipExtractor struct{}

// Extract implements Extractor by buffering r fully, since archive/zip
// needs io.ReaderAt; ExtractFile avoids the buffering when a path on
// disk is already available.
func (z ZipExtractor) Extract(r io.Reader, destDir turbopath.AbsoluteSystemPath) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return err
	}
	return extractZip(zr, destDir)
}

// ExtractFile unpacks the zip archive at path directly, without
// buffering it into memory first.
func (z ZipExtractor) ExtractFile(path, destDir turbopath.AbsoluteSystemPath) error {
	zr, err := zip.OpenReader(path.ToString())
	if err != nil {
		return err
	}
	defer zr.Close()
	return extractZip(&zr.Reader, destDir)
}

func extractZip(zr *zip.Reader, destDir turbopath.AbsoluteSystemPath) error {
	base := destDir.ToString()
	for _, f := range zr.File {
		target := filepath.Join(base, filepath.Clean("/"+f.Name)[1:])
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		if err := extractZipFile(f, target); err != nil {
			return err
		}
	}
	return nil
}

func extractZipFile(f *zip.File, target string) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()
	out, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, f.Mode())
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = io.Copy(out, rc)
	return err
}
