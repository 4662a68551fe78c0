package bridge

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// ---------------------------------------------------------------------------
// Library location: platform naming and search order
// ---------------------------------------------------------------------------

// LibraryFilename maps a bare library name onto the platform's shared
// library filename: lib<name>.so, lib<name>.dylib, or <name>.dll.
func LibraryFilename(name string) string {
	switch runtime.GOOS {
	case "darwin":
		return "lib" + name + ".dylib"
	case "windows":
		return name + ".dll"
	default:
		return "lib" + name + ".so"
	}
}

// libraryPathEnv names the environment variable the dynamic linker
// consults on this platform.
func libraryPathEnv() string {
	switch runtime.GOOS {
	case "darwin":
		return "DYLD_LIBRARY_PATH"
	case "windows":
		return "PATH"
	default:
		return "LD_LIBRARY_PATH"
	}
}

// systemLibraryDirs lists the platform's default library directories in
// search order.
func systemLibraryDirs() []string {
	switch runtime.GOOS {
	case "darwin":
		return []string{"/usr/local/lib", "/opt/homebrew/lib", "/usr/lib"}
	case "windows":
		if root := os.Getenv("SystemRoot"); root != "" {
			return []string{filepath.Join(root, "System32")}
		}
		return nil
	default:
		return []string{"/usr/local/lib", "/usr/lib", "/lib"}
	}
}

// LocateLibrary resolves a library name to a loadable path. A literal
// path that exists is returned untouched. Otherwise the platform
// filename is searched through, in order: the extra paths, the current
// directory, the system library directories, and the directories in the
// platform's library-path environment variable. When the name already
// carries an extension or a directory component it is also tried
// verbatim in each directory.
func LocateLibrary(name string, extraPaths []string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("%w: empty library name", ErrLoadFailed)
	}
	if fileExists(name) {
		return name, nil
	}

	candidates := []string{LibraryFilename(name)}
	if strings.ContainsRune(name, '.') || filepath.Base(name) != name {
		candidates = append([]string{name}, candidates...)
	}

	dirs := make([]string, 0, len(extraPaths)+8)
	dirs = append(dirs, extraPaths...)
	dirs = append(dirs, ".")
	dirs = append(dirs, systemLibraryDirs()...)
	dirs = append(dirs, filepath.SplitList(os.Getenv(libraryPathEnv()))...)

	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		for _, cand := range candidates {
			p := filepath.Join(dir, cand)
			if fileExists(p) {
				return p, nil
			}
		}
	}
	return "", fmt.Errorf("%w: %s not found in %d search directories", ErrLoadFailed, name, len(dirs))
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
