// Package todo finds actionable TODO-style comments in source files.
package todo

// Type is the comment tag that introduced a TODO item.
type Type string

const (
	TypeTODO  Type = "TODO"
	TypeFIXME Type = "FIXME"
	TypeHACK  Type = "HACK"
	TypeNOTE  Type = "NOTE"
)

// Weight is the base confidence that a comment of this type is actionable.
func (t Type) Weight() float64 {
	switch t {
	case TypeTODO:
		return 0.8
	case TypeFIXME:
		return 0.7
	case TypeHACK:
		return 0.6
	case TypeNOTE:
		return 0.5
	default:
		return 0.4
	}
}

// Item is one actionable comment found in a source file.
type Item struct {
	ID         string   `json:"id"`
	FilePath   string   `json:"file_path"`
	Line       int      `json:"line"`
	Column     int      `json:"column"`
	Content    string   `json:"content"`
	Type       Type     `json:"type"`
	Confidence float64  `json:"confidence"`
	Context    []string `json:"context,omitempty"`
}

// Summary aggregates a scan.
type Summary struct {
	TotalItems    int            `json:"total_items"`
	FilesScanned  int            `json:"files_scanned"`
	FilesWithTodo int            `json:"files_with_todos"`
	ByType        map[string]int `json:"by_type"`
	ByFile        map[string]int `json:"by_file"`
}

// Summarize counts items by type and file.
func Summarize(items []Item, filesScanned int) Summary {
	s := Summary{
		FilesScanned: filesScanned,
		ByType:       make(map[string]int),
		ByFile:       make(map[string]int),
	}
	for _, item := range items {
		s.TotalItems++
		s.ByType[string(item.Type)]++
		s.ByFile[item.FilePath]++
	}
	s.FilesWithTodo = len(s.ByFile)
	return s
}
