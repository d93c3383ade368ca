// pkg/clone/list.go

package clone

import (
	"bufio"
	"context"
	"io"
	"os"
	"path"
	"strings"

	cerr "github.com/cockroachdb/errors"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// Entry is one repository to clone.
type Entry struct {
	// URL is the repository URL as listed, without the .git suffix.
	URL string
	// CloneURL is URL with .git appended.
	CloneURL string
	// Name is the directory the clone lands in under the target directory.
	Name string
	Line int
}

// ReadRepoList reads a repository list file. See ParseRepoList.
func ReadRepoList(ctx context.Context, file string) ([]Entry, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, cerr.WithHint(
			cerr.Wrapf(err, "open repository list %s", file),
			"the list must be a tab-separated file whose second column is a repository URL")
	}
	defer f.Close()

	return ParseRepoList(ctx, f)
}

// ParseRepoList parses tab-separated lines whose second column is a
// repository URL. Blank lines are ignored; lines without a second column are
// skipped with a warning.
func ParseRepoList(ctx context.Context, r io.Reader) ([]Entry, error) {
	logger := otelzap.Ctx(ctx)

	var entries []Entry
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		cols := strings.Split(line, "\t")
		if len(cols) < 2 || strings.TrimSpace(cols[1]) == "" {
			logger.Warn("Skipping repository list line without a URL column",
				zap.Int("line", lineNo), zap.String("content", line))
			continue
		}

		url := strings.TrimSpace(cols[1])
		entries = append(entries, Entry{
			URL:      url,
			CloneURL: url + ".git",
			Name:     DirName(url),
			Line:     lineNo,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, cerr.Wrap(err, "read repository list")
	}
	return entries, nil
}

// DirName returns the directory name git clone would pick for url: the last
// path element without a trailing slash or .git suffix.
func DirName(url string) string {
	name := strings.TrimSuffix(strings.TrimRight(url, "/"), ".git")
	name = path.Base(name)
	if i := strings.LastIndex(name, ":"); i >= 0 {
		name = name[i+1:]
	}
	return name
}
