// Package trc implements the expected-results cross-check ("testing
// results comparator"): a database keyed by test path plus tag set,
// mapping to an expected TesterStatus, consulted after the reducer has
// produced an observed status (spec.md §1, SPEC_FULL.md §4.8).
package trc

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"go.te.io/tescenario/lib"
)

// Expectation is what the database records for one (path, tag-set) key.
// Mixed means "expected status varies by factors this database does not
// model" — it is never allowed to upgrade a group's expected status
// (spec.md §9 Open Question).
type Expectation struct {
	Status lib.TesterStatus
	Mixed  bool
}

// entry is the on-disk shape of one database row.
type entry struct {
	Path   string   `yaml:"path"`
	Tags   []string `yaml:"tags"`
	Status string   `yaml:"status"`
	Mixed  bool     `yaml:"mixed"`
}

// document is the top-level YAML document shape.
type document struct {
	Entries []entry `yaml:"entries"`
}

// key is the lookup key: a test path plus its tag set, order-independent.
type key struct {
	path string
	tags string
}

func makeKey(path string, tags []string) key {
	sorted := append([]string(nil), tags...)
	sort.Strings(sorted)
	return key{path: path, tags: strings.Join(sorted, ",")}
}

// Database is an in-memory, YAML-backed expected-results store.
type Database struct {
	Tag     string
	entries map[key]Expectation
}

// NewDatabase returns an empty database for tag (the active --trc-tag, if
// any — stored for callers that want to report which tag selected a
// lookup, not used to filter entries itself since entries are tag-scoped
// by their own Tags field).
func NewDatabase(tag string) *Database {
	return &Database{Tag: tag, entries: map[key]Expectation{}}
}

// LoadFile reads a YAML TRC database from path.
func LoadFile(path string) (*Database, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("trc: reading database %q: %w", path, err)
	}
	return Load(data)
}

// Load parses a YAML TRC database from an in-memory document.
func Load(data []byte) (*Database, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("trc: parsing database: %w", err)
	}
	db := NewDatabase("")
	for _, e := range doc.Entries {
		status, err := parseStatus(e.Status)
		if err != nil {
			return nil, fmt.Errorf("trc: entry %q: %w", e.Path, err)
		}
		db.entries[makeKey(e.Path, e.Tags)] = Expectation{Status: status, Mixed: e.Mixed}
	}
	return db, nil
}

// Put records an expectation directly, for tests and programmatic setup.
func (db *Database) Put(path string, tags []string, exp Expectation) {
	db.entries[makeKey(path, tags)] = exp
}

// Lookup returns the expectation for (path, tags), and whether one exists.
// An unlisted (path, tags) pair has no expectation: callers should treat
// that as "no cross-check possible", not as an implicit Passed.
func (db *Database) Lookup(path string, tags []string) (Expectation, bool) {
	exp, ok := db.entries[makeKey(path, tags)]
	return exp, ok
}

var statusByName = func() map[string]lib.TesterStatus {
	m := map[string]lib.TesterStatus{}
	for s := lib.StatusIncomplete; s <= lib.StatusError; s++ {
		m[s.String()] = s
	}
	return m
}()

func parseStatus(name string) (lib.TesterStatus, error) {
	s, ok := statusByName[name]
	if !ok {
		return 0, fmt.Errorf("unknown status %q", name)
	}
	return s, nil
}

// Verdict is the outcome of cross-checking one iteration's observed
// status against its TRC expectation.
type Verdict struct {
	Iteration  uint64
	Got        lib.TesterStatus
	Expected   lib.TesterStatus
	Mixed      bool
	Unexpected bool
}

// Match cross-checks got against db's expectation for (path, tags) at
// iteration idx. When no expectation is on record, or the expectation is
// Mixed, Unexpected is always false (a mixed or absent expectation makes
// no claim to contradict).
func (db *Database) Match(path string, tags []string, idx uint64, got lib.TesterStatus) Verdict {
	exp, ok := db.Lookup(path, tags)
	if !ok {
		return Verdict{Iteration: idx, Got: got}
	}
	v := Verdict{Iteration: idx, Got: got, Expected: exp.Status, Mixed: exp.Mixed}
	if !exp.Mixed && got != exp.Status {
		v.Unexpected = true
	}
	return v
}

// JoinExpected is the group-level analog of lib.JoinStatus for expected
// statuses: Mixed entries never upgrade the group's expected status
// (spec.md §9 Open Question, resolved "do not upgrade").
func JoinExpected(group Expectation, next Expectation) Expectation {
	if next.Mixed {
		return group
	}
	if lib.JoinStatus(group.Status, next.Status) != group.Status {
		return Expectation{Status: lib.JoinStatus(group.Status, next.Status)}
	}
	return group
}
