package clone

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/CodeMonkeyCybersecurity/harvest/pkg/config"
	cerr "github.com/cockroachdb/errors"
	gogit "github.com/go-git/go-git/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap/zaptest"
)

func setupLogger(t *testing.T) {
	t.Helper()
	t.Cleanup(otelzap.ReplaceGlobals(otelzap.New(zaptest.NewLogger(t))))
}

func TestParseRepoList(t *testing.T) {
	setupLogger(t)

	input := strings.Join([]string{
		"1\thttps://github.com/acme/widgets\t42",
		"",
		"no-url-column",
		"2\thttps://github.com/acme/gadgets/",
		"  3\tgit@github.com:acme/sprockets  ",
		"4\t",
	}, "\n")

	entries, err := ParseRepoList(context.Background(), strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, Entry{
		URL:      "https://github.com/acme/widgets",
		CloneURL: "https://github.com/acme/widgets.git",
		Name:     "widgets",
		Line:     1,
	}, entries[0])
	assert.Equal(t, "gadgets", entries[1].Name)
	assert.Equal(t, 4, entries[1].Line)
	assert.Equal(t, "git@github.com:acme/sprockets.git", entries[2].CloneURL)
	assert.Equal(t, "sprockets", entries[2].Name)
}

func TestDirName(t *testing.T) {
	tests := map[string]string{
		"https://github.com/acme/widgets":     "widgets",
		"https://github.com/acme/widgets.git": "widgets",
		"https://github.com/acme/widgets/":    "widgets",
		"git@host:widgets":                    "widgets",
		"/srv/git/widgets":                    "widgets",
	}
	for url, want := range tests {
		t.Run(url, func(t *testing.T) {
			assert.Equal(t, want, DirName(url))
		})
	}
}

func TestReadRepoList_Missing(t *testing.T) {
	_, err := ReadRepoList(context.Background(), filepath.Join(t.TempDir(), "missing.tsv"))
	assert.Error(t, err)
}

type fakeClone struct {
	calls []string
	fail  map[string]error
}

func (f *fakeClone) clone(_ context.Context, dest string, opts *gogit.CloneOptions) error {
	f.calls = append(f.calls, opts.URL)
	if err := f.fail[opts.URL]; err != nil {
		return err
	}
	return os.MkdirAll(dest, 0755)
}

func entriesFor(urls ...string) []Entry {
	var entries []Entry
	for i, url := range urls {
		entries = append(entries, Entry{URL: url, CloneURL: url + ".git", Name: DirName(url), Line: i + 1})
	}
	return entries
}

func TestCloner_ContinuesPastFailures(t *testing.T) {
	setupLogger(t)
	target := filepath.Join(t.TempDir(), "repos")

	fake := &fakeClone{fail: map[string]error{
		"https://example.com/acme/broken.git": errors.New("connection refused"),
	}}
	c := NewCloner(target, 0, 0)
	c.clone = fake.clone

	summary, err := c.Run(context.Background(), entriesFor(
		"https://example.com/acme/one",
		"https://example.com/acme/broken",
		"https://example.com/acme/two",
	))
	require.NoError(t, err)

	assert.Equal(t, []string{
		"https://example.com/acme/one.git",
		"https://example.com/acme/broken.git",
		"https://example.com/acme/two.git",
	}, fake.calls)
	assert.Equal(t, []string{"one", "two"}, summary.Cloned)
	assert.Equal(t, []string{"broken"}, summary.Failed)
	require.Error(t, summary.Errors)
	assert.Contains(t, summary.Errors.Error(), "connection refused")

	assert.DirExists(t, filepath.Join(target, "one"))
	assert.DirExists(t, filepath.Join(target, "two"))
}

func TestCloner_ExistingDestinationFails(t *testing.T) {
	setupLogger(t)
	target := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(target, "one"), 0755))

	fake := &fakeClone{}
	c := NewCloner(target, 0, 0)
	c.clone = fake.clone

	summary, err := c.Run(context.Background(), entriesFor("https://example.com/acme/one"))
	require.NoError(t, err)
	assert.Empty(t, fake.calls)
	assert.Equal(t, []string{"one"}, summary.Failed)
	assert.True(t, cerr.Is(summary.Errors, ErrDestinationExists))
}

func TestCloner_PassesDepth(t *testing.T) {
	setupLogger(t)

	var depth int
	c := NewClonerFromConfig(&config.Clone{TargetDir: t.TempDir(), Depth: 5})
	c.clone = func(_ context.Context, dest string, opts *gogit.CloneOptions) error {
		depth = opts.Depth
		return nil
	}

	_, err := c.Run(context.Background(), entriesFor("https://example.com/acme/one"))
	require.NoError(t, err)
	assert.Equal(t, 5, depth)
}

func TestCloner_Cancelled(t *testing.T) {
	setupLogger(t)

	fake := &fakeClone{}
	c := NewCloner(t.TempDir(), time.Hour, 0)
	c.clone = fake.clone

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Run(ctx, entriesFor("https://example.com/acme/one", "https://example.com/acme/two"))
	require.Error(t, err)
	assert.Empty(t, fake.calls)
}

func TestCloner_PacesClones(t *testing.T) {
	setupLogger(t)

	fake := &fakeClone{}
	c := NewCloner(t.TempDir(), 50*time.Millisecond, 0)
	c.clone = fake.clone

	start := time.Now()
	_, err := c.Run(context.Background(), entriesFor(
		"https://example.com/acme/one",
		"https://example.com/acme/two",
		"https://example.com/acme/three",
	))
	require.NoError(t, err)
	assert.Len(t, fake.calls, 3)
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
}
