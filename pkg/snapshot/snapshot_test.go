package snapshot

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name  string `json:"name"`
	Chips int64  `json:"chips"`
}

func TestValidate(t *testing.T) {
	a := assert.New(t)

	orig := Dir
	Dir = t.TempDir()
	defer func() { Dir = orig }()

	Validate(t, sample{Name: "p1", Chips: 100})
	Validate(t, sample{Name: "p2", Chips: 200})

	b, err := os.ReadFile(filepath.Join(Dir, "TestValidate-0.json"))
	require.NoError(t, err)
	a.Equal("{\n  \"name\": \"p1\",\n  \"chips\": 100\n}\n", string(b))

	_, err = os.Stat(filepath.Join(Dir, "TestValidate-1.json"))
	a.NoError(err)

	// the second pass compares against what was written
	lock.Lock()
	delete(calls, "TestValidate")
	lock.Unlock()

	Validate(t, sample{Name: "p1", Chips: 100})
	Validate(t, sample{Name: "p2", Chips: 200})
}

func TestNextFilename(t *testing.T) {
	a := assert.New(t)
	a.Equal(filepath.Join(Dir, "TestX_sub_case-0.json"), nextFilename("TestX/sub case"))
	a.Equal(filepath.Join(Dir, "TestX_sub_case-1.json"), nextFilename("TestX/sub case"))
}
