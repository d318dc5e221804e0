package watch

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panbanda/sweep/internal/cache"
	"github.com/panbanda/sweep/pkg/session"
)

type fakeSessions struct {
	requests []session.Request
	result   *session.Result
	err      error
	sess     *session.Session
}

func (f *fakeSessions) StartSession(_ context.Context, req session.Request) (*session.Result, error) {
	f.requests = append(f.requests, req)
	return f.result, f.err
}

func (f *fakeSessions) Get(context.Context, string) (*session.Session, error) {
	if f.sess == nil {
		return nil, session.ErrNotFound
	}
	return f.sess, nil
}

func TestRunner_HandleBatch(t *testing.T) {
	ws := t.TempDir()
	a := filepath.Join(ws, "src", "a.ts")
	require.NoError(t, os.MkdirAll(filepath.Dir(a), 0o755))
	require.NoError(t, os.WriteFile(a, []byte("// TODO: add comment\n"), 0o644))

	written := []byte("// Comment\n// TODO: add comment\n")
	fake := &fakeSessions{
		result: &session.Result{SessionID: "abc", Status: session.StatusCompleted, ActionsExecuted: 1},
		sess: &session.Session{ID: "abc", Actions: []*session.Action{{
			Changes: &session.Changes{FilePath: a, AfterChecksum: cache.HashBytes(written)},
		}}},
	}
	r := NewRunner(fake, ws, session.Request{DryRun: true, MaxActions: 3})
	r.SetOutput(io.Discard)

	r.HandleBatch(context.Background(), []string{a, filepath.Join(ws, "gone.ts")})

	require.Len(t, fake.requests, 1)
	req := fake.requests[0]
	assert.Equal(t, ws, req.WorkspacePath)
	assert.Equal(t, []string{"src/a.ts"}, req.FilePatterns)
	assert.True(t, req.DryRun)
	assert.Equal(t, 3, req.MaxActions)
	assert.Len(t, r.Results(), 1)

	// The session's own write does not start another session.
	require.NoError(t, os.WriteFile(a, written, 0o644))
	r.HandleBatch(context.Background(), []string{a})
	assert.Len(t, fake.requests, 1)

	// A later edit by someone else does.
	require.NoError(t, os.WriteFile(a, []byte("// TODO: fix formatting\n"), 0o644))
	r.HandleBatch(context.Background(), []string{a})
	assert.Len(t, fake.requests, 2)
}

func TestRunner_HandleBatch_SessionError(t *testing.T) {
	ws := t.TempDir()
	a := filepath.Join(ws, "a.ts")
	require.NoError(t, os.WriteFile(a, []byte("x"), 0o644))

	fake := &fakeSessions{err: errors.New("boom")}
	r := NewRunner(fake, ws, session.Request{})
	r.SetOutput(io.Discard)

	r.HandleBatch(context.Background(), []string{a})
	assert.Len(t, fake.requests, 1)
	assert.Empty(t, r.Results())
}

func TestEscapeGlob(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"src/a.ts", "src/a.ts"},
		{"src/[id]/page.tsx", `src/\[id\]/page.tsx`},
		{"a*b?.js", `a\*b\?.js`},
		{"{x}.ts", `\{x\}.ts`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, escapeGlob(tt.in), tt.in)
	}
}
