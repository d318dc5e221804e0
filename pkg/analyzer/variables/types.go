package variables

// Kind classifies a declared binding.
type Kind string

const (
	KindVariable  Kind = "variable"
	KindFunction  Kind = "function"
	KindClass     Kind = "class"
	KindParameter Kind = "parameter"
)

// Declaration is a binding harvested from the syntax tree.
type Declaration struct {
	Name   string `json:"name"`
	Kind   Kind   `json:"kind"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
	Scope  string `json:"scope"`
}

// UnusedVariable is a declaration whose name never appears as a reference.
type UnusedVariable struct {
	Name   string `json:"name"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
	Kind   Kind   `json:"kind"`
	Scope  string `json:"scope"`
}

// Result is the unused-variable analysis of one file.
type Result struct {
	Path            string           `json:"path"`
	UnusedVariables []UnusedVariable `json:"unused_variables"`
	TotalVariables  int              `json:"total_variables"`
	SafeToRemove    []UnusedVariable `json:"safe_to_remove"`
	RequiresReview  []UnusedVariable `json:"requires_review"`
}

// Report aggregates results across files.
type Report struct {
	Files   []Result `json:"files"`
	Summary Summary  `json:"summary"`
}

// Summary counts analysis outcomes across a report.
type Summary struct {
	TotalFiles     int          `json:"total_files"`
	TotalVariables int          `json:"total_variables"`
	TotalUnused    int          `json:"total_unused"`
	SafeToRemove   int          `json:"safe_to_remove"`
	RequiresReview int          `json:"requires_review"`
	ByKind         map[Kind]int `json:"by_kind"`
}

// NewReport builds a report and its summary.
func NewReport(files []Result) *Report {
	r := &Report{Files: files, Summary: Summary{ByKind: make(map[Kind]int)}}
	r.Summary.TotalFiles = len(files)
	for _, f := range files {
		r.Summary.TotalVariables += f.TotalVariables
		r.Summary.TotalUnused += len(f.UnusedVariables)
		r.Summary.SafeToRemove += len(f.SafeToRemove)
		r.Summary.RequiresReview += len(f.RequiresReview)
		for _, u := range f.UnusedVariables {
			r.Summary.ByKind[u.Kind]++
		}
	}
	return r
}

func (u UnusedVariable) key() string {
	return declKey(u.Name, u.Line)
}
