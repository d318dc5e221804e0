package transform

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panbanda/sweep/pkg/analyzer/stubs"
	"github.com/panbanda/sweep/pkg/errctx"
	"github.com/panbanda/sweep/pkg/parser"
	"github.com/panbanda/sweep/pkg/pattern"
	"github.com/panbanda/sweep/pkg/todo"
)

const initSource = `function init() {
  // TODO: add comment about initialization
  setup();
}
`

func request(path, src string, line int, todoText string, extracted map[string]string) Request {
	return Request{
		Path:      path,
		Content:   []byte(src),
		Todo:      todo.Item{FilePath: path, Line: line, Content: todoText},
		Extracted: extracted,
	}
}

func TestAddCommentAboveTodo(t *testing.T) {
	r := NewRegistry()
	req := request("app.ts", initSource, 2, "TODO: add comment about initialization", map[string]string{"topic": "initialization"})

	res, err := r.Execute(context.Background(), pattern.ActionAddComment, req)
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Equal(t, "function init() {\n  // Initialization\n  // TODO: add comment about initialization\n  setup();\n}\n", res.Content)
	assert.Contains(t, res.Diff, "+   // Initialization")
	assert.Contains(t, res.Diff, "app.ts +1 -0")
}

func TestAddCommentRemovesResolvedTodo(t *testing.T) {
	req := request("app.ts", initSource, 2, "TODO: add comment about initialization", map[string]string{"topic": "initialization"})
	req.RemoveTodo = true

	res, err := NewRegistry().Execute(context.Background(), pattern.ActionAddComment, req)
	require.NoError(t, err)
	assert.Equal(t, "function init() {\n  // Initialization\n  setup();\n}\n", res.Content)
}

func TestAddCommentDescribesNextDeclaration(t *testing.T) {
	src := "// TODO: add comment\nexport function loadConfig() {}\n"
	res, err := AddComment(context.Background(), request("a.ts", src, 1, "TODO: add comment", map[string]string{"topic": ""}))
	require.NoError(t, err)
	assert.Equal(t, "// Function loadConfig\n"+src, res.Content)
}

func TestAddCommentJSX(t *testing.T) {
	src := "const App = () => (\n  <div>\n    {/* TODO: add comment about layout */}\n  </div>\n);\n"
	res, err := AddComment(context.Background(), request("App.tsx", src, 3, "TODO: add comment about layout", map[string]string{"topic": "layout"}))
	require.NoError(t, err)
	assert.Contains(t, res.Content, "    {/* Layout */}\n    {/* TODO")
}

func TestAddCommentLineOutOfRange(t *testing.T) {
	_, err := AddComment(context.Background(), request("a.ts", initSource, 99, "TODO", nil))
	assert.ErrorIs(t, err, ErrLineOutOfRange)
}

func TestRename(t *testing.T) {
	src := "const tmp = load();\nconst view = { tmp };\nconsole.log(tmp, obj.tmp);\n"
	rename := func(oldName, newName string) (*Result, error) {
		return Rename(context.Background(), request("a.js", src, 1, "TODO", map[string]string{"oldName": oldName, "newName": newName}))
	}

	res, err := rename("tmp", "buffer")
	require.NoError(t, err)
	assert.Equal(t, "const buffer = load();\nconst view = { tmp: buffer };\nconsole.log(buffer, obj.tmp);\n", res.Content)
	assert.Equal(t, "renamed tmp to buffer (3 references)", res.Summary)

	_, err = rename("tmp", "view")
	assert.ErrorIs(t, err, ErrNameInUse)

	_, err = rename("tmp", "class")
	assert.ErrorIs(t, err, ErrInvalidName)

	_, err = rename("", "x")
	assert.ErrorIs(t, err, ErrMissingTarget)

	res, err = rename("zzz", "yyy")
	require.NoError(t, err)
	assert.False(t, res.Changed)
}

func TestRenameKeepsModuleNames(t *testing.T) {
	rename := func(src string) (*Result, error) {
		return Rename(context.Background(), request("a.js", src, 1, "TODO", map[string]string{"oldName": "foo", "newName": "bar"}))
	}

	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "named import gains an alias",
			src:  "import { foo } from './a';\nfoo();\n",
			want: "import { foo as bar } from './a';\nbar();\n",
		},
		{
			name: "aliased import keeps its source name",
			src:  "import { foo as x } from './a';\nconst foo = x;\nfoo();\n",
			want: "import { foo as x } from './a';\nconst bar = x;\nbar();\n",
		},
		{
			name: "import alias is the local binding",
			src:  "import { thing as foo } from './a';\nfoo();\n",
			want: "import { thing as bar } from './a';\nbar();\n",
		},
		{
			name: "plain export keeps its exported name",
			src:  "const foo = 1;\nexport { foo };\n",
			want: "const bar = 1;\nexport { bar as foo };\n",
		},
		{
			name: "aliased export renames the local side only",
			src:  "import { foo } from './a';\nexport { foo as baz };\nfoo();\n",
			want: "import { foo as bar } from './a';\nexport { bar as baz };\nbar();\n",
		},
		{
			name: "re-export is untouched",
			src:  "export { foo } from './a';\nconst foo = 2;\n",
			want: "export { foo } from './a';\nconst bar = 2;\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := rename(tt.src)
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Content)
		})
	}
}

func TestRenameRefusesExportedDeclarations(t *testing.T) {
	for _, src := range []string{
		"export const foo = 1;\n",
		"export function foo() {}\n",
		"export class foo {}\n",
	} {
		_, err := Rename(context.Background(), request("a.js", src, 1, "TODO", map[string]string{"oldName": "foo", "newName": "bar"}))
		assert.ErrorIs(t, err, ErrExported, src)
	}
}

func TestFixFormatting(t *testing.T) {
	src := "const a = 1;   \n\n\n\nconst b = `x   \n  y`;\t\n\n"
	res, err := FixFormatting(context.Background(), request("a.js", src, 1, "TODO", nil))
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Equal(t, "const a = 1;\n\nconst b = `x   \n  y`;\n", res.Content)

	res, err = FixFormatting(context.Background(), request("a.js", res.Content, 1, "TODO", nil))
	require.NoError(t, err)
	assert.False(t, res.Changed)
}

func TestRemoveConsoleLog(t *testing.T) {
	src := `function f(x) {
  console.log('start');
  if (x) console.log('inline');
  console.warn('keep');
  return x;
}
`
	res, err := RemoveConsoleLog(context.Background(), request("a.js", src, 1, "TODO", nil))
	require.NoError(t, err)
	assert.Equal(t, "function f(x) {\n  if (x) console.log('inline');\n  console.warn('keep');\n  return x;\n}\n", res.Content)
	assert.Equal(t, "removed 1 console statement(s)", res.Summary)

	res, err = RemoveConsoleLog(context.Background(), request("a.js", "const a = 1;\n", 1, "TODO", nil))
	require.NoError(t, err)
	assert.False(t, res.Changed)
}

func TestAddTypeAnnotation(t *testing.T) {
	src := "// TODO: add type annotation for count\nlet count = 0;\nlet y: number = 1;\nlet z = compute();\nfunction f(name = 'x') {}\n"
	annotate := func(path string, extracted map[string]string) (*Result, error) {
		return AddTypeAnnotation(context.Background(), request(path, src, 1, "TODO: add type annotation", extracted))
	}

	res, err := annotate("a.ts", map[string]string{"target": "count", "typeName": ""})
	require.NoError(t, err)
	assert.Contains(t, res.Content, "let count: number = 0;")

	res, err = annotate("a.ts", map[string]string{"target": "", "typeName": ""})
	require.NoError(t, err)
	assert.Contains(t, res.Content, "let count: number = 0;")

	res, err = annotate("a.ts", map[string]string{"target": "name", "typeName": ""})
	require.NoError(t, err)
	assert.Contains(t, res.Content, "function f(name: string = 'x') {}")

	res, err = annotate("a.ts", map[string]string{"target": "z", "typeName": "Result"})
	require.NoError(t, err)
	assert.Contains(t, res.Content, "let z: Result = compute();")

	res, err = annotate("a.ts", map[string]string{"target": "y"})
	require.NoError(t, err)
	assert.False(t, res.Changed)

	res, err = annotate("a.ts", map[string]string{"target": "z", "typeName": "Map<string, User[]> | null."})
	require.NoError(t, err)
	assert.Contains(t, res.Content, "let z: Map<string, User[]> | null = compute();")

	for _, bad := range []string{"Result = evil(); let q", "string // later", "{ a: 1 }"} {
		_, err = annotate("a.ts", map[string]string{"target": "z", "typeName": bad})
		assert.ErrorIs(t, err, ErrInvalidType, bad)
	}

	_, err = annotate("a.ts", map[string]string{"target": "z"})
	assert.ErrorIs(t, err, ErrCannotInfer)

	_, err = annotate("a.ts", map[string]string{"target": "missing"})
	assert.ErrorIs(t, err, ErrMissingTarget)

	_, err = annotate("a.js", map[string]string{"target": "count"})
	assert.ErrorIs(t, err, parser.ErrUnsupportedFile)
}

func TestRemoveUnusedImports(t *testing.T) {
	src := "import { useState, useEffect } from 'react';\n\nexport function Counter() {\n  useEffect(() => {}, []);\n}\n"
	res, err := RemoveUnusedImports(context.Background(), request("Counter.tsx", src, 1, "TODO", nil))
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.NotContains(t, res.Content, "import")
	assert.Equal(t, "removed 1 import statement(s) for unused useState", res.Summary)

	res, err = RemoveUnusedImports(context.Background(), request("Counter.tsx", res.Content, 1, "TODO", nil))
	require.NoError(t, err)
	assert.False(t, res.Changed)
}

func TestRemoveUnusedVariables(t *testing.T) {
	src := "function run() {\n  const unused = 1;\n  const used = 2;\n  return used;\n}\nrun();\n"
	res, err := RemoveUnusedVariables(context.Background(), request("a.js", src, 1, "TODO", nil))
	require.NoError(t, err)
	assert.Equal(t, "function run() {\n  const used = 2;\n  return used;\n}\nrun();\n", res.Content)
	assert.Equal(t, "removed 1 unused variable(s)", res.Summary)
}

func TestImplementFunction(t *testing.T) {
	src := "export function validateEmail(email: string): boolean {\n  // TODO: implement validateEmail\n}\n"
	want := "export function validateEmail(email: string): boolean {\n  return email != null;\n}\n"

	for _, name := range []string{"validateEmail", "somethingElse", ""} {
		t.Run("name="+name, func(t *testing.T) {
			req := request("email.ts", src, 2, "TODO: implement validateEmail", map[string]string{"functionName": name})
			req.RemoveTodo = true
			res, err := NewRegistry().Execute(context.Background(), pattern.ActionImplementFunction, req)
			require.NoError(t, err)
			assert.Equal(t, want, res.Content)
			assert.True(t, strings.HasPrefix(res.Summary, "implemented validateEmail as validator"))
		})
	}

	req := request("email.ts", "const x = 1;\n", 1, "TODO: implement nothing", map[string]string{"functionName": "nothing"})
	req.Strategy = stubs.StrategyConservative
	_, err := ImplementFunction(context.Background(), req)
	assert.ErrorIs(t, err, stubs.ErrStubNotFound)
}

func TestFlagForReview(t *testing.T) {
	res, err := NewRegistry().Execute(context.Background(), pattern.ActionFlagForReview, request("a.js", initSource, 2, "TODO", nil))
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.False(t, res.Changed)
	assert.Equal(t, initSource, res.Content)
}

func TestRegistryUnsupportedActionIsFatal(t *testing.T) {
	_, err := NewRegistry().Execute(context.Background(), "explode", request("a.js", initSource, 2, "TODO", nil))
	assert.True(t, errors.Is(err, ErrUnsupportedAction))
	assert.True(t, errctx.IsFatal(err))
}

func TestRegistryHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewRegistry().Execute(ctx, pattern.ActionAddComment, request("a.js", initSource, 2, "TODO", nil))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRegistryAbandonsHungExecutor(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	r := NewRegistry()
	r.Register(pattern.ActionAddComment, ExecutorFunc(func(context.Context, Request) (*Result, error) {
		<-release
		return &Result{Changed: true}, nil
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err := r.Execute(ctx, pattern.ActionAddComment, request("a.js", initSource, 2, "TODO", nil))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestRegistrySupportsEveryAction(t *testing.T) {
	r := NewRegistry()
	for _, a := range pattern.ActionTypes() {
		assert.True(t, r.Supports(a), a)
	}
}

func TestDiff(t *testing.T) {
	out := Diff("a.ts", "a\nb\nc\n", "a\nB\nc\n")
	assert.True(t, strings.HasPrefix(out, "a.ts +1 -1\n"))
	assert.Contains(t, out, "- b\n")
	assert.Contains(t, out, "+ B\n")
	assert.Contains(t, out, "  a\n")
	assert.Contains(t, out, "  c\n")
}
