// Package snapshot compares values against JSON golden files
package snapshot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Dir is where golden files are kept, relative to the package under test
var Dir = "testdata"

var (
	lock  sync.Mutex
	calls = make(map[string]int)
)

// Validate compares obj, encoded as indented JSON, with the calling test's next golden file.
// A missing file is written instead, as is every file when UPDATE_SNAPSHOTS is set.
func Validate(t testing.TB, obj interface{}, msgAndArgs ...interface{}) {
	t.Helper()

	filename := nextFilename(t.Name())

	actual, err := json.MarshalIndent(obj, "", "  ")
	require.NoError(t, err)

	expects, err := os.ReadFile(filename)
	if os.IsNotExist(err) || os.Getenv("UPDATE_SNAPSHOTS") != "" {
		write(t, filename, actual)
		return
	}
	require.NoError(t, err)

	if !assert.Equal(t, strings.Trim(string(expects), "\n"), string(actual), msgAndArgs...) {
		t.Logf("snapshot %s", filename)
	}
}

func nextFilename(testName string) string {
	lock.Lock()
	defer lock.Unlock()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(testName)
	call := calls[name]
	calls[name] = call + 1

	return filepath.Join(Dir, fmt.Sprintf("%s-%d.json", name, call))
}

func write(t testing.TB, filename string, b []byte) {
	t.Helper()

	logrus.WithField("filename", filename).Info("writing snapshot file")
	require.NoError(t, os.MkdirAll(filepath.Dir(filename), 0o755))
	require.NoError(t, os.WriteFile(filename, append(b, '\n'), 0o644))
}
