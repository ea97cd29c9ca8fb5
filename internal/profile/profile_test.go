package profile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_ValidFixture(t *testing.T) {
	p, err := Load("../../testdata/profile.yaml")
	require.NoError(t, err)
	assert.Equal(t, "Jordan Rivera", p.Name)
	assert.NotEmpty(t, p.Skills["languages"])
	assert.NotEmpty(t, p.Projects)
	assert.NotEmpty(t, p.Experience)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_MissingName(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "profile.yaml")
	require.NoError(t, os.WriteFile(path, []byte("bio: no name here\n"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "missing required field")
}

func TestAllSkills_Deduplicates(t *testing.T) {
	p := &Profile{
		Skills: map[string][]string{
			"languages": {"Go", "Python"},
			"backend":   {"Go", "gRPC"},
		},
	}
	skills := p.AllSkills()
	assert.Len(t, skills, 3)
}
