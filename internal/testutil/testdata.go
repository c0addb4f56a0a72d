package testutil

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/goccy/go-json"
)

// Fixture returns the raw bytes of a file in the testdata directory.
func Fixture(filename string) ([]byte, error) {
	_, currentFile, _, _ := runtime.Caller(0)
	dir := filepath.Join(filepath.Dir(currentFile), "testdata")
	return os.ReadFile(filepath.Join(dir, filename))
}

// LoadJSON reads a testdata file and unmarshals it into target. The raw bytes are
// returned as well, for tests that feed them to a message decoder.
func LoadJSON(filename string, target any) ([]byte, error) {
	data, err := Fixture(filename)
	if err != nil {
		return nil, err
	}
	if target != nil {
		if err := json.Unmarshal(data, target); err != nil {
			return nil, err
		}
	}
	return data, nil
}
