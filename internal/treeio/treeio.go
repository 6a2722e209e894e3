// Package treeio is the external configuration-loading collaborator:
// spec.md §1 deliberately keeps "it does not own the wire format of any
// file" out of the core, so this package defines only the boundary
// (TreeLoader) plus a YAML-backed default implementation suitable for
// local use and tests, in place of the original XML-based config parser
// (original_source/engine/tester/config_parse.c, consulted only for the
// shape of tree it must produce).
package treeio

import (
	"fmt"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"go.te.io/tescenario/lib"
)

// TreeLoader builds a ConfigTree from whatever config source a suite
// names. The core never parses configuration itself (spec.md §1
// Non-goals); it only consumes the tree a TreeLoader hands back.
type TreeLoader interface {
	Load(fs afero.Fs, path string) (*lib.ConfigTree, error)
}

// YAMLLoader reads a small YAML document describing one Config root's
// run-item tree. It is the default, in-tree TreeLoader: good enough for
// local suites and for driving tests without touching a real filesystem
// (afero.MemMapFs), with room for a remote/XML-backed TreeLoader to be
// swapped in later without touching internal/prepare or internal/walker.
type YAMLLoader struct{}

type docConfig struct {
	Maintainer string      `yaml:"maintainer"`
	Runs       []docRunner `yaml:"runs"`
}

type docRunner struct {
	Script  *docScript  `yaml:"script,omitempty"`
	Session *docSession `yaml:"session,omitempty"`
	Package *docPackage `yaml:"package,omitempty"`
}

type docVarArg struct {
	Name      string   `yaml:"name"`
	List      string   `yaml:"list,omitempty"`
	Preferred int      `yaml:"preferred,omitempty"`
	Values    []string `yaml:"values,omitempty"`
}

type docScript struct {
	Name       string      `yaml:"name"`
	Executable string      `yaml:"executable"`
	Objective  string      `yaml:"objective,omitempty"`
	Reqs       []string    `yaml:"reqs,omitempty"`
	Args       []docVarArg `yaml:"args,omitempty"`
	Iterate    uint64      `yaml:"iterate,omitempty"`
}

type docSession struct {
	Name         string      `yaml:"name"`
	Vars         []docVarArg `yaml:"vars,omitempty"`
	Children     []docRunner `yaml:"children,omitempty"`
	Prologue     *docScript  `yaml:"prologue,omitempty"`
	Epilogue     *docScript  `yaml:"epilogue,omitempty"`
	Keepalive    *docScript  `yaml:"keepalive,omitempty"`
	Exception    *docScript  `yaml:"exception,omitempty"`
	Iterate      uint64      `yaml:"iterate,omitempty"`
	Simultaneous bool        `yaml:"simultaneous,omitempty"`
}

type docPackage struct {
	Name    string     `yaml:"name"`
	Path    string     `yaml:"path"`
	Session docSession `yaml:"session"`
}

// Load reads the YAML document at path (through fs) and builds one
// ConfigTree with a single Config root.
func (YAMLLoader) Load(fs afero.Fs, path string) (*lib.ConfigTree, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("treeio: reading %q: %w", path, err)
	}
	var doc docConfig
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("treeio: parsing %q: %w", path, err)
	}

	arena := lib.NewItemArena()
	runs := make([]lib.RunItem, 0, len(doc.Runs))
	for _, r := range doc.Runs {
		item, err := buildRunner(arena, lib.NoSession, r)
		if err != nil {
			return nil, err
		}
		runs = append(runs, item)
	}

	cfg := &lib.Config{Maintainer: doc.Maintainer, Runs: runs}
	return &lib.ConfigTree{Configs: []*lib.Config{cfg}, Arena: arena}, nil
}

func buildRunner(arena *lib.ItemArena, enclosing int, r docRunner) (lib.RunItem, error) {
	switch {
	case r.Script != nil:
		return buildScript(enclosing, r.Script), nil
	case r.Session != nil:
		return buildSession(arena, enclosing, r.Session)
	case r.Package != nil:
		return buildPackage(arena, enclosing, r.Package)
	default:
		return nil, fmt.Errorf("treeio: run-item has none of script/session/package")
	}
}

func buildVarArg(d docVarArg) lib.VarArg {
	values := make([]lib.Value, 0, len(d.Values))
	for _, v := range d.Values {
		values = append(values, lib.NewPlainValue(v))
	}
	return lib.VarArg{Name: d.Name, List: d.List, Preferred: d.Preferred, Values: values}
}

func buildScript(enclosing int, d *docScript) *lib.Script {
	args := make([]lib.VarArg, 0, len(d.Args))
	for _, a := range d.Args {
		args = append(args, buildVarArg(a))
	}
	reqs := make([]lib.Requirement, 0, len(d.Reqs))
	for _, id := range d.Reqs {
		reqs = append(reqs, lib.Requirement{ID: id})
	}
	return &lib.Script{
		Name:        d.Name,
		Executable:  d.Executable,
		Objective:   d.Objective,
		Reqs:        reqs,
		Args:        args,
		Iterate:     d.Iterate,
		EnclosingID: enclosing,
	}
}

func buildSession(arena *lib.ItemArena, enclosing int, d *docSession) (*lib.Session, error) {
	sess := &lib.Session{
		Name:         d.Name,
		Iterate:      d.Iterate,
		Simultaneous: d.Simultaneous,
		EnclosingID:  enclosing,
	}
	id := arena.Add(sess)

	for _, v := range d.Vars {
		sess.Vars = append(sess.Vars, buildVarArg(v))
	}
	if d.Prologue != nil {
		sess.Prologue = buildScript(id, d.Prologue)
	}
	if d.Epilogue != nil {
		sess.Epilogue = buildScript(id, d.Epilogue)
	}
	if d.Keepalive != nil {
		sess.Keepalive = buildScript(id, d.Keepalive)
	}
	if d.Exception != nil {
		sess.Exception = buildScript(id, d.Exception)
	}
	for _, c := range d.Children {
		child, err := buildRunner(arena, id, c)
		if err != nil {
			return nil, err
		}
		sess.Children = append(sess.Children, child)
	}
	return sess, nil
}

func buildPackage(arena *lib.ItemArena, enclosing int, d *docPackage) (*lib.Package, error) {
	sess, err := buildSession(arena, enclosing, &d.Session)
	if err != nil {
		return nil, err
	}
	return &lib.Package{Name: d.Name, Path: d.Path, Sess: sess, EnclosingID: enclosing}, nil
}
