package zip

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"time"
)

type Asset struct {
	Filename string
	MIME     string
	Data     []byte
	Modified time.Time
}

// Write streams assets into a zip archive on w. Duplicate names are
// rejected so one scene can never overwrite another.
func Write(w io.Writer, assets []Asset) error {
	zw := zip.NewWriter(w)
	seen := make(map[string]struct{}, len(assets))
	for _, asset := range assets {
		if _, dup := seen[asset.Filename]; dup {
			_ = zw.Close()
			return fmt.Errorf("zip: duplicate entry %q", asset.Filename)
		}
		seen[asset.Filename] = struct{}{}

		hdr := &zip.FileHeader{Name: asset.Filename, Method: zip.Store, Modified: asset.Modified}
		if hdr.Modified.IsZero() {
			hdr.Modified = time.Now()
		}
		entry, err := zw.CreateHeader(hdr)
		if err != nil {
			_ = zw.Close()
			return fmt.Errorf("zip: create %s: %w", asset.Filename, err)
		}
		if _, err := entry.Write(asset.Data); err != nil {
			_ = zw.Close()
			return fmt.Errorf("zip: write %s: %w", asset.Filename, err)
		}
	}
	return zw.Close()
}

// ArchiveAssets builds the archive in memory.
func ArchiveAssets(assets []Asset) ([]byte, error) {
	buf := &bytes.Buffer{}
	if err := Write(buf, assets); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
