// pkg/harvest/repos.go

package harvest

import (
	"bufio"
	"os"
	"path/filepath"
	"sort"
	"strings"

	cerr "github.com/cockroachdb/errors"
)

// DiscoverRepositories lists the immediate subdirectories of dir, sorted by
// name. Symlinks to directories count as directories.
func DiscoverRepositories(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, cerr.WithHint(
			cerr.Wrapf(err, "list repositories in %s", dir),
			"REPOS_DIR must be a readable directory with one checkout per subdirectory")
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			names = append(names, entry.Name())
			continue
		}
		if entry.Type()&os.ModeSymlink != 0 {
			if info, err := os.Stat(filepath.Join(dir, entry.Name())); err == nil && info.IsDir() {
				names = append(names, entry.Name())
			}
		}
	}
	sort.Strings(names)
	return names, nil
}

// ReadAllowList reads one repository name per line. Names are trimmed and
// blank lines are ignored.
func ReadAllowList(path string) (map[string]struct{}, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, cerr.Wrapf(err, "open repository list %s", path)
	}
	defer f.Close()

	allowed := make(map[string]struct{})
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		name := strings.TrimSpace(scanner.Text())
		if name == "" {
			continue
		}
		allowed[name] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return nil, cerr.Wrapf(err, "read repository list %s", path)
	}
	return allowed, nil
}

// SelectRepositories returns the repositories under dir, restricted to the
// allow-list when allowListPath is set. Order is preserved.
func SelectRepositories(dir, allowListPath string) ([]string, error) {
	names, err := DiscoverRepositories(dir)
	if err != nil {
		return nil, err
	}
	if allowListPath == "" {
		return names, nil
	}

	allowed, err := ReadAllowList(allowListPath)
	if err != nil {
		return nil, err
	}

	selected := names[:0]
	for _, name := range names {
		if _, ok := allowed[name]; ok {
			selected = append(selected, name)
		}
	}
	return selected, nil
}
