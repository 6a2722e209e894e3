package treeio

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.te.io/tescenario/lib"
)

const sampleYAML = `
maintainer: alice@example.com
runs:
  - session:
      name: Group
      vars:
        - name: x
          values: ["a", "b", "c"]
      children:
        - script:
            name: s1
            executable: /bin/s1
            args:
              - name: y
                values: ["0", "1"]
        - package:
            name: Pkg
            path: suites/pkg
            session:
              name: PkgSession
              children:
                - script:
                    name: s2
                    executable: /bin/s2
`

func TestYAMLLoaderLoad(t *testing.T) {
	t.Parallel()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/suite.yaml", []byte(sampleYAML), 0o644))

	tree, err := YAMLLoader{}.Load(fs, "/suite.yaml")
	require.NoError(t, err)
	require.Len(t, tree.Configs, 1)

	cfg := tree.Configs[0]
	assert.Equal(t, "alice@example.com", cfg.Maintainer)
	require.Len(t, cfg.Runs, 1)

	sess, ok := cfg.Runs[0].(*lib.Session)
	require.True(t, ok)
	assert.Equal(t, "Group", sess.Name)
	require.Len(t, sess.Vars, 1)
	assert.Equal(t, "x", sess.Vars[0].Name)
	require.Len(t, sess.Children, 2)

	script, ok := sess.Children[0].(*lib.Script)
	require.True(t, ok)
	assert.Equal(t, "s1", script.Name)
	assert.Equal(t, "/bin/s1", script.Executable)

	pkg, ok := sess.Children[1].(*lib.Package)
	require.True(t, ok)
	assert.Equal(t, "Pkg", pkg.Name)
	assert.Equal(t, "PkgSession", pkg.Sess.Name)
	require.Len(t, pkg.Sess.Children, 1)
}

func TestYAMLLoaderMissingFile(t *testing.T) {
	t.Parallel()
	fs := afero.NewMemMapFs()
	_, err := YAMLLoader{}.Load(fs, "/missing.yaml")
	assert.Error(t, err)
}
