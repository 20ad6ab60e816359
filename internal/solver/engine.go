package solver

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/nextmv-io/sdk"
)

// ErrEngineUnavailable means the nextmv engine plugin is not installed. The
// SDK exits the process when it cannot find the plugin, so Solve checks first.
var ErrEngineUnavailable = errors.New("nextmv engine plugin not found")

// engineFile is the plugin file name the SDK looks for.
func engineFile() string {
	return fmt.Sprintf("nextmv-sdk-%s-%s-%s-%s.so", sdk.VERSION, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// enginePaths lists the locations searched by the SDK, in its order.
func enginePaths() []string {
	name := engineFile()
	var paths []string
	if lib := os.Getenv("NEXTMV_LIBRARY_PATH"); lib != "" {
		paths = append(paths, filepath.Join(lib, name))
	} else if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".nextmv", "lib", name))
	}
	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, name))
	}
	if exe, err := os.Executable(); err == nil {
		paths = append(paths, filepath.Join(filepath.Dir(exe), name))
	}
	return paths
}

// EnginePath returns the plugin the SDK would load.
func EnginePath() (string, error) {
	paths := enginePaths()
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: looked in %q", ErrEngineUnavailable, paths)
}
