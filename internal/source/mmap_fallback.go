//go:build !unix

package source

import "os"

// Open reads path into memory and wraps it as a Source. Non-unix platforms
// have no portable mmap in this module's dependency set, so this falls back
// to a single resident read; mmap_unix.go is the primary implementation.
func Open(path string) (Source, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return &buffer{b: b}, nil
}
