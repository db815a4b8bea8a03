package onnx

import (
	"errors"
	"fmt"
	"os"
)

// DetectLibrary resolves the ONNX Runtime shared library path. An explicit
// path wins; otherwise the VOXTTS_ORT_LIB and ORT_LIBRARY_PATH environment
// variables are consulted, then common system locations.
func DetectLibrary(explicit string) (string, error) {
	path := explicit
	if path == "" {
		path = os.Getenv("VOXTTS_ORT_LIB")
	}

	if path == "" {
		path = os.Getenv("ORT_LIBRARY_PATH")
	}

	if path == "" {
		candidates := []string{
			"/usr/lib/libonnxruntime.so",
			"/usr/local/lib/libonnxruntime.so",
			"/usr/lib/x86_64-linux-gnu/libonnxruntime.so",
			"/opt/homebrew/lib/libonnxruntime.dylib",
		}
		for _, c := range candidates {
			_, err := os.Stat(c)
			if err == nil {
				path = c
				break
			}
		}
	}

	if path == "" {
		return "", errors.New("unable to detect ONNX Runtime library path")
	}

	_, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("onnx runtime library path check failed: %w", err)
	}

	return path, nil
}
