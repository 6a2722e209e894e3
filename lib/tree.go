package lib

// Numbering holds the fields the preparation pass (internal/prepare) fills
// on every RunItem (spec.md §3 "RunItem numbering fields").
type Numbering struct {
	// NArgs is this item's own argument count (a Script's Args, a
	// Session's Vars); inherited session variables are not counted.
	NArgs uint64
	// NIters is the number of iterations of this item alone, accounting
	// for list-grouped arguments.
	NIters uint64
	// Weight is the number of iterations one iteration of this item
	// contributes to its parent (sum of children's NIters*Weight for
	// a session; always 1 for a script).
	Weight uint64
}

// ItemArena holds Sessions so that a RunItem's enclosing-session
// back-reference can be a flat index rather than a self-referential
// pointer (spec.md §9 "Parent back-pointers").
type ItemArena struct {
	sessions []*Session
}

// NewItemArena returns an empty arena.
func NewItemArena() *ItemArena { return &ItemArena{} }

// Add registers s and returns its arena id.
func (a *ItemArena) Add(s *Session) int {
	a.sessions = append(a.sessions, s)
	return len(a.sessions) - 1
}

// Session looks up the session registered under id, or nil for id == -1.
func (a *ItemArena) Session(id int) *Session {
	if id < 0 || id >= len(a.sessions) {
		return nil
	}
	return a.sessions[id]
}

// NoSession is the back-reference value used by top-level RunItems, which
// have no enclosing session.
const NoSession = -1

// RunItem is the tagged-variant node of the config tree described in
// spec.md §3: a Script, Session, or Package. Modeled as a closed interface
// (spec.md §9 "Dynamic dispatch ... sum-typed") instead of a discriminated
// struct, so a type switch stands in for the tag.
type RunItem interface {
	// ItemName returns the RunItem's explicit name (may be empty for an
	// unnamed, transparent session).
	ItemName() string
	// GetNumbering returns the mutable numbering fields filled by
	// internal/prepare.
	GetNumbering() *Numbering
	// CtxID is the arena id of the enclosing Session, or NoSession.
	CtxID() int
}

// VarArg is a named parameter of a session (variable) or run item
// (argument). All VarArgs sharing a non-empty List name iterate in
// lock-step (spec.md §3 invariant 4).
type VarArg struct {
	Name string
	// List is the symbolic lock-step group name, or "" if this VarArg is
	// not grouped with any other.
	List string
	// Preferred is 1-based: Preferred == 0 means "no preference"; Preferred
	// == k names its value at index k-1: when a path constraint on this
	// argument selects that value, iteration indices beyond the argument's
	// own value count are selected along with it (spec.md §4.2). 1-based
	// so the Go zero value naturally means "unset", avoiding an explicit
	// sentinel every caller would otherwise have to remember to set.
	Preferred int
	Values    []Value
}

// ValueCount is the number of iterations this VarArg alone contributes,
// ignoring any list it may belong to (list-length accounting is done by
// internal/prepare, which knows about sibling list members).
func (v VarArg) ValueCount() uint64 {
	if len(v.Values) == 0 {
		return 1
	}
	return uint64(len(v.Values))
}

// Script is a leaf RunItem: one test executable plus its arguments.
type Script struct {
	Numbering
	Name        string
	Executable  string
	Objective   string
	Reqs        []Requirement
	Args        []VarArg
	Iterate     uint64
	Attrs       map[string]string
	EnclosingID int
}

func (s *Script) ItemName() string        { return s.Name }
func (s *Script) GetNumbering() *Numbering { return &s.Numbering }
func (s *Script) CtxID() int              { return s.EnclosingID }

// Session is an inner RunItem grouping children with optional service
// items and variables (spec.md §3, GLOSSARY "Session").
type Session struct {
	Numbering
	Name        string
	Vars        []VarArg
	Children    []RunItem
	Prologue    *Script
	Epilogue    *Script
	Keepalive   *Script
	Exception   *Script
	Iterate     uint64
	EnclosingID int

	// Inheritable service hooks (spec.md §4.1 "Inheritance").
	ExceptionHanddown Handdown
	KeepaliveHanddown Handdown
	TrackConf         TrackConf
	TrackConfHanddown Handdown

	// Simultaneous is parsed and stored but never read by internal/walker
	// (spec.md §9 Open Question): it is informational, for an external
	// parallel executor.
	Simultaneous bool

	// Effective{Exception,Keepalive,TrackConf} are filled by
	// internal/prepare.resolveInheritance: the hook/attribute actually in
	// force for this session once handdown from ancestors is resolved, so
	// internal/walker never has to re-derive inheritance at run time.
	EffectiveException *Script
	EffectiveKeepalive *Script
	EffectiveTrackConf TrackConf
}

func (s *Session) ItemName() string         { return s.Name }
func (s *Session) GetNumbering() *Numbering { return &s.Numbering }
func (s *Session) CtxID() int               { return s.EnclosingID }

// Package is a named top-level grouping: a RunItem whose children live
// under a single Session (spec.md §3).
type Package struct {
	Numbering
	Name        string
	Path        string
	Sess        *Session
	EnclosingID int
}

func (p *Package) ItemName() string         { return p.Name }
func (p *Package) GetNumbering() *Numbering { return &p.Numbering }
func (p *Package) CtxID() int               { return p.EnclosingID }

// Config is one maintainer-owned root of the ConfigTree.
type Config struct {
	Maintainer string
	TargetReq  ReqExpr
	Runs       []RunItem
	TotalIters uint64
}

// ConfigTree is an ordered sequence of Config roots, built once by the
// external XML-configuration collaborator (internal/treeio.TreeLoader) and
// mutated only by internal/prepare (numbering) and internal/walker
// (per-run transient scratch fields), per spec.md §3 Lifecycle.
type ConfigTree struct {
	Configs []*Config
	Arena   *ItemArena
}
