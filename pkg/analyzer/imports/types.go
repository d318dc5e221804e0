package imports

// Kind is the syntactic form of an import binding.
type Kind string

const (
	KindDefault    Kind = "default"
	KindNamed      Kind = "named"
	KindNamespace  Kind = "namespace"
	KindRequire    Kind = "require"
	KindSideEffect Kind = "side-effect"
)

// Binding is one local name introduced by an import statement.
type Binding struct {
	Name     string `json:"name"`
	Imported string `json:"imported,omitempty"`
	Kind     Kind   `json:"kind"`
	Source   string `json:"source"`
	Line     int    `json:"line"`
	Column   int    `json:"column"`

	// Statement span, 1-based inclusive lines and byte offsets.
	StartLine int    `json:"start_line"`
	EndLine   int    `json:"end_line"`
	StartByte uint32 `json:"-"`
	EndByte   uint32 `json:"-"`
}

// UnusedImport is an import binding whose local name is never referenced.
type UnusedImport struct {
	Binding
	Scope string `json:"scope"`
}

// FileResult holds the import analysis of one file.
type FileResult struct {
	Path          string         `json:"path"`
	TotalBindings int            `json:"total_bindings"`
	SideEffects   int            `json:"side_effect_imports"`
	Unused        []UnusedImport `json:"unused"`
}

// Report aggregates import analysis across files.
type Report struct {
	Files   []FileResult `json:"files"`
	Summary Summary      `json:"summary"`
}

// Summary counts unused imports across a report.
type Summary struct {
	TotalFiles      int `json:"total_files"`
	FilesWithUnused int `json:"files_with_unused"`
	TotalBindings   int `json:"total_bindings"`
	TotalUnused     int `json:"total_unused"`
}

// NewReport builds a report and its summary from per-file results.
func NewReport(files []FileResult) *Report {
	r := &Report{Files: files}
	r.Summary.TotalFiles = len(files)
	for _, f := range files {
		r.Summary.TotalBindings += f.TotalBindings
		r.Summary.TotalUnused += len(f.Unused)
		if len(f.Unused) > 0 {
			r.Summary.FilesWithUnused++
		}
	}
	return r
}
