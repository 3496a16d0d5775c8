package util

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ListSourceFiles returns the files a stage should process for path: path
// itself when it is a file, otherwise every regular file directly inside the
// directory whose extension is ext. Sub directories are ignored and the
// result is sorted so multi-file output never depends on directory order.
func ListSourceFiles(path, ext string) (files []string, isDir bool, err error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, false, err
	}
	if !info.IsDir() {
		if filepath.Ext(path) != ext {
			return nil, false, fmt.Errorf("%s is not a %s file", path, ext)
		}
		return []string{path}, false, nil
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, true, err
	}
	for _, entry := range entries {
		// Ignore sub path
		if entry.IsDir() || filepath.Ext(entry.Name()) != ext {
			continue
		}
		files = append(files, filepath.Join(path, entry.Name()))
	}
	sort.Strings(files)
	return files, true, nil
}

// BaseName strips the directory and the extension: "dir/Main.jack" -> "Main".
func BaseName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// SiblingPath replaces the extension of path with ext, keeping the directory.
func SiblingPath(path, ext string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ext
}

// InputOutput merges the `in [out]` positional arguments of a tool into the paths given by flags. A positional
// argument wins over its flag.
func InputOutput(args []string, input, output string) (string, string, error) {
	if len(args) > 2 {
		return "", "", fmt.Errorf("expect at most an input and an output path, got %d arguments", len(args))
	}
	if len(args) > 0 {
		input = args[0]
	}
	if len(args) > 1 {
		output = args[1]
	}
	return input, output, nil
}

// WriteFileAtomic writes data to a temporary file next to path and renames it
// into place, so a reader never observes a partially written output.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err = tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err = os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err = os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
