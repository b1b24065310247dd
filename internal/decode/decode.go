// Package decode turns a staged feed file into XML ready for extraction,
// decompressing gzip payloads in place.
package decode

import (
	"compress/gzip"
	"io"
	"os"
	"strings"

	"epgmerge/internal/services"
)

// Decompress prepares the staged file at path for XML parsing. Gzip framing
// is detected by the ".gz" extension, not magic bytes: a mislabeled payload
// surfaces later as a parse failure on the same feed. Compressed files are
// expanded to a sibling path with the ".gz" suffix stripped and the archive
// removed; anything else is returned unchanged. A corrupt archive yields an
// ErrDecompress-tagged soft error.
func Decompress(path string) (string, error) {
	if !strings.HasSuffix(path, ".gz") {
		return path, nil
	}

	xmlPath := strings.TrimSuffix(path, ".gz")

	in, err := os.Open(path)
	if err != nil {
		return "", services.Wrap(services.ErrDecompress, "decoder", "open", path, err)
	}

	gz, err := gzip.NewReader(in)
	if err != nil {
		in.Close()
		return "", services.Wrap(services.ErrDecompress, "decoder", "gunzip", path, err)
	}

	out, err := os.Create(xmlPath)
	if err != nil {
		in.Close()
		return "", services.Wrap(services.ErrDecompress, "decoder", "write", xmlPath, err)
	}

	if _, err := io.Copy(out, gz); err != nil {
		out.Close()
		in.Close()
		_ = os.Remove(xmlPath)
		return "", services.Wrap(services.ErrDecompress, "decoder", "gunzip", path, err)
	}
	if err := gz.Close(); err != nil {
		out.Close()
		in.Close()
		_ = os.Remove(xmlPath)
		return "", services.Wrap(services.ErrDecompress, "decoder", "gunzip", path, err)
	}
	if err := out.Close(); err != nil {
		in.Close()
		_ = os.Remove(xmlPath)
		return "", services.Wrap(services.ErrDecompress, "decoder", "write", xmlPath, err)
	}
	in.Close()

	// The archive is already expanded; a failed removal only costs scratch
	// space and the staging directory is cleared after the run.
	_ = os.Remove(path)

	return xmlPath, nil
}
