package boundary

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/addrcluster/internal/model"
)

// FromArchive loads boundaries from a ZIP archive holding a shapefile
// (.shp with its .shx and .dbf) or a single drawing. The first .shp found
// wins; otherwise the first .dxf.
func FromArchive(path string) (Set, error) {
	dir, err := os.MkdirTemp("", "boundary-*")
	if err != nil {
		return nil, eris.Wrap(err, "boundary: create temp dir")
	}
	defer os.RemoveAll(dir) //nolint:errcheck

	files, err := extractArchive(path, dir)
	if err != nil {
		return nil, err
	}

	var shpPath, dxfPath string
	for _, f := range files {
		switch strings.ToLower(filepath.Ext(f)) {
		case ".shp":
			if shpPath == "" {
				shpPath = f
			}
		case ".dxf":
			if dxfPath == "" {
				dxfPath = f
			}
		}
	}

	switch {
	case shpPath != "":
		return FromShapefile(shpPath)
	case dxfPath != "":
		return Load(dxfPath)
	default:
		return nil, eris.Wrapf(model.ErrMalformedDrawing, "boundary: archive %s has no .shp or .dxf file", path)
	}
}

// extractArchive extracts every regular file of the archive into destDir
// and returns their paths.
func extractArchive(zipPath, destDir string) ([]string, error) {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, eris.Wrapf(model.ErrMalformedDrawing, "boundary: open archive %s: %v", zipPath, err)
	}
	defer r.Close() //nolint:errcheck

	var extracted []string
	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		path, err := extractEntry(f, destDir)
		if err != nil {
			return nil, err
		}
		extracted = append(extracted, path)
	}
	return extracted, nil
}

func extractEntry(f *zip.File, destDir string) (string, error) {
	destPath := filepath.Join(destDir, f.Name)
	if !strings.HasPrefix(filepath.Clean(destPath), filepath.Clean(destDir)+string(os.PathSeparator)) {
		return "", eris.Errorf("boundary: illegal archive path %q", f.Name)
	}
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return "", eris.Wrap(err, "boundary: create archive directory")
	}

	rc, err := f.Open()
	if err != nil {
		return "", eris.Wrap(err, "boundary: open archive entry")
	}
	defer rc.Close() //nolint:errcheck

	out, err := os.Create(destPath)
	if err != nil {
		return "", eris.Wrap(err, "boundary: create file")
	}
	defer out.Close() //nolint:errcheck

	if _, err := io.Copy(out, rc); err != nil {
		return "", eris.Wrap(err, "boundary: write file")
	}
	return destPath, nil
}
