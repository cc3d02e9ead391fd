package export

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/dgallion1/chatexport/internal/render"
)

// ErrNothingToBundle is returned when no result rendered successfully.
var ErrNothingToBundle = errors.New("no successful renders to bundle")

// bundleEpoch stamps archive entries when no export time is known.
var bundleEpoch = time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC)

// Bundle zips the successful results, in order, into one archive. Failed
// results are skipped.
func Bundle(results []Result, at time.Time) ([]byte, error) {
	if at.IsZero() {
		at = bundleEpoch
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	n := 0
	for _, r := range results {
		if !r.OK() {
			continue
		}
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:     r.Filename,
			Method:   zip.Deflate,
			Modified: at,
		})
		if err != nil {
			return nil, fmt.Errorf("add %s: %w", r.Filename, err)
		}
		if _, err := w.Write(r.Data); err != nil {
			return nil, fmt.Errorf("write %s: %w", r.Filename, err)
		}
		n++
	}
	if n == 0 {
		return nil, ErrNothingToBundle
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close bundle: %w", err)
	}
	return buf.Bytes(), nil
}

// BundleName is the archive filename for a multi-format export.
func BundleName(title string, at time.Time) string {
	name := safeName(title)
	if name == "" {
		name = safeName(render.DefaultTitle)
	}
	if !at.IsZero() {
		name += "_" + at.Format("20060102_150405")
	}
	return name + ".zip"
}
