package deploy

import (
	"bytes"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// normalize strips a UTF-8 BOM and converts CRLF to LF, so guard detection
// is insensitive to how the file was last saved.
func normalize(content []byte) []byte {
	if len(content) >= 3 && content[0] == 0xEF && content[1] == 0xBB && content[2] == 0xBF {
		content = content[3:]
	}
	return bytes.ReplaceAll(content, []byte("\r\n"), []byte("\n"))
}

func isShebang(content []byte) bool {
	return len(content) >= 2 && content[0] == '#' && content[1] == '!'
}

// hasGuard checks whether content already carries marker, in any of the
// comment styles injectGuard would have used for path.
func hasGuard(path string, content []byte, marker string) bool {
	b := normalize(content)
	base := strings.ToLower(filepath.Base(path))
	ext := strings.ToLower(filepath.Ext(path))

	if ext == ".json" {
		return bytes.Contains(b, []byte(marker))
	}

	candidates := []string{marker}
	switch {
	case base == "dockerfile":
		candidates = append(candidates, "# "+marker)
	case markupExts[ext]:
		candidates = append(candidates, "<!-- "+marker+" -->")
	case ext == ".css" || ext == ".scss":
		candidates = append(candidates, "/* "+marker+" */")
	case hashCommentExts[ext]:
		candidates = append(candidates, "# "+marker)
	default:
		candidates = append(candidates, "// "+marker)
	}
	for _, cand := range candidates {
		if bytes.Contains(b, []byte(cand)) {
			return true
		}
	}
	return false
}

var hashCommentExts = map[string]bool{
	".sh": true, ".bash": true, ".zsh": true, ".env": true,
	".yml": true, ".yaml": true, ".toml": true, ".ini": true, ".conf": true,
	".py": true, ".rb": true,
}

var markupExts = map[string]bool{".html": true, ".htm": true, ".xml": true, ".md": true}

// injectGuardForExt prepends marker to content as a comment in a style
// chosen by path's extension, unless content already carries the marker.
func injectGuardForExt(path string, content []byte, marker string) []byte {
	if marker == "" || hasGuard(path, content, marker) {
		return content
	}

	base := strings.ToLower(filepath.Base(path))
	ext := strings.ToLower(filepath.Ext(path))

	if ext == ".json" {
		return content
	}
	if base == "dockerfile" {
		return []byte("# " + marker + "\n" + string(content))
	}

	addLineTop := func(prefix string) []byte {
		return []byte(prefix + marker + "\n" + string(content))
	}
	addAfterShebang := func(prefix string) []byte {
		idx := bytes.IndexByte(content, '\n')
		if idx == -1 {
			return append(content, []byte("\n"+prefix+marker+"\n")...)
		}
		she := content[:idx+1]
		rest := content[idx+1:]
		return append(append(append([]byte{}, she...), []byte(prefix+marker+"\n")...), rest...)
	}

	switch {
	case hashCommentExts[ext]:
		if isShebang(content) {
			return addAfterShebang("# ")
		}
		return addLineTop("# ")
	case markupExts[ext]:
		return []byte("<!-- " + marker + " -->\n" + string(content))
	case ext == ".css" || ext == ".scss":
		return []byte("/* " + marker + " */\n" + string(content))
	default:
		return addLineTop("// ")
	}
}

// canOverwrite reports whether path may be written to: it doesn't exist
// yet, or it exists and already carries the guard marker.
func canOverwrite(path, marker string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return true, nil
		}
		return false, err
	}
	if info.IsDir() {
		return false, &pathIsDirError{path}
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return false, err
	}
	return hasGuard(path, b, marker), nil
}

type pathIsDirError struct{ path string }

func (e *pathIsDirError) Error() string { return "output path is a directory: " + e.path }

// fastEqual reports whether the file at path already holds exactly newBytes.
func fastEqual(path string, newBytes []byte) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if int64(len(newBytes)) != info.Size() {
		return false, nil
	}
	old, err := os.ReadFile(path)
	if err != nil {
		return false, err
	}
	return bytes.Equal(old, newBytes), nil
}

// writeIfChanged atomically writes newBytes to path (via a sibling temp
// file + rename) only if the existing content differs. Reports whether a
// write actually happened.
func writeIfChanged(path string, newBytes []byte, mode os.FileMode) (bool, error) {
	same, err := fastEqual(path, newBytes)
	if err != nil {
		return false, err
	}
	if same {
		return false, nil
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return false, err
	}

	f, err := os.CreateTemp(dir, ".vg-*")
	if err != nil {
		return false, err
	}
	tmp := f.Name()
	defer func() { _ = os.Remove(tmp) }()

	if _, err := f.Write(newBytes); err != nil {
		_ = f.Close()
		return false, err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return false, err
	}
	if err := f.Close(); err != nil {
		return false, err
	}
	if err := os.Chmod(tmp, mode); err != nil {
		return false, err
	}
	return true, os.Rename(tmp, path)
}

// PruneEmptyDirs removes empty directories under root, deepest-first.
func PruneEmptyDirs(root string) error {
	var dirs []string
	err := filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			dirs = append(dirs, p)
		}
		return nil
	})
	if err != nil {
		return err
	}
	sort.Slice(dirs, func(i, j int) bool { return len(dirs[i]) > len(dirs[j]) })
	for _, d := range dirs {
		if d == root {
			continue
		}
		entries, err := os.ReadDir(d)
		if err != nil {
			continue
		}
		if len(entries) == 0 {
			_ = os.Remove(d)
		}
	}
	return nil
}
