package loader

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Gobusters/ectologger"
)

// ExtractArchive unpacks every file of a zip archive into dir and returns the
// member name to extracted path mapping. Members that would land outside dir
// are refused.
func ExtractArchive(ctx context.Context, logger ectologger.Logger, zipPath, dir string) (map[string]string, error) {
	log := logger.WithContext(ctx).WithFields(map[string]any{"archive": zipPath, "dir": dir})

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", dir, err)
	}

	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive %s: %w", zipPath, err)
	}
	defer r.Close()

	log.Infof("Found %d files in archive", len(r.File))

	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}

	extracted := make(map[string]string, len(r.File))
	for _, f := range r.File {
		target := filepath.Join(root, filepath.FromSlash(f.Name))
		if target != root && !strings.HasPrefix(target, root+string(os.PathSeparator)) {
			return nil, fmt.Errorf("archive member %q escapes %s", f.Name, dir)
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return nil, err
			}
			continue
		}

		if err := extractMember(f, target); err != nil {
			return nil, fmt.Errorf("failed to extract %s: %w", f.Name, err)
		}
		extracted[f.Name] = target
	}

	log.Infof("Successfully extracted %d files", len(extracted))
	return extracted, nil
}

func extractMember(f *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}

	src, err := f.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.Create(target)
	if err != nil {
		return err
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return err
	}
	return dst.Close()
}

// FindMember returns the extracted path of the first member, in name order,
// whose extension matches ext (case-insensitive).
func FindMember(members map[string]string, ext string) (string, bool) {
	names := make([]string, 0, len(members))
	for name := range members {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if strings.EqualFold(filepath.Ext(name), ext) {
			return members[name], true
		}
	}
	return "", false
}
