package transform

import (
	"context"
	"fmt"
	"sort"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/panbanda/sweep/pkg/parser"
)

// debugMethods are the console methods treated as leftover debugging.
// warn and error are deliberate output and stay.
var debugMethods = map[string]bool{
	"log":   true,
	"debug": true,
	"trace": true,
	"dir":   true,
	"table": true,
}

// RemoveConsoleLog deletes console.log style statements. Only statements
// that sit directly in a block are removed; an unbraced `if (x) console.log()`
// would lose its body.
func RemoveConsoleLog(_ context.Context, req Request) (*Result, error) {
	result, err := parser.ParseSource(req.Path, req.Content)
	if err != nil {
		return nil, err
	}

	stmts := parser.FindNodes(result.Root(), result.Source, func(n *sitter.Node) bool {
		return n.Type() == "expression_statement" && isDebugCall(n, result.Source) && inBlock(n)
	})
	if len(stmts) == 0 {
		return &Result{Summary: "no console statements found"}, nil
	}
	stmts = outermost(stmts)

	out := append([]byte(nil), req.Content...)
	for i := len(stmts) - 1; i >= 0; i-- {
		st := stmts[i]
		start, end := parser.ExpandToLine(out, int(st.StartByte()), int(st.EndByte()))
		out = append(out[:start:start], out[end:]...)
	}
	return &Result{
		Content: string(out),
		Changed: true,
		Summary: fmt.Sprintf("removed %d console statement(s)", len(stmts)),
	}, nil
}

// outermost sorts nodes by position and drops any nested inside another.
func outermost(nodes []*sitter.Node) []*sitter.Node {
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].StartByte() < nodes[j].StartByte() })
	kept := nodes[:0]
	var end uint32
	for _, n := range nodes {
		if len(kept) > 0 && n.StartByte() < end {
			continue
		}
		kept = append(kept, n)
		end = n.EndByte()
	}
	return kept
}

func isDebugCall(stmt *sitter.Node, source []byte) bool {
	if stmt.NamedChildCount() == 0 {
		return false
	}
	call := stmt.NamedChild(0)
	if call.Type() != "call_expression" {
		return false
	}
	fn := call.ChildByFieldName("function")
	if fn == nil || fn.Type() != "member_expression" {
		return false
	}
	obj, prop := fn.ChildByFieldName("object"), fn.ChildByFieldName("property")
	if obj == nil || prop == nil {
		return false
	}
	return parser.GetNodeText(obj, source) == "console" && debugMethods[parser.GetNodeText(prop, source)]
}

func inBlock(n *sitter.Node) bool {
	p := n.Parent()
	if p == nil {
		return false
	}
	switch p.Type() {
	case "program", "statement_block", "switch_case", "switch_default":
		return true
	}
	return false
}
