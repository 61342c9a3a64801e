package secret

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// Store holds named secrets as env-file-format files under a directory.
// A secret named "openrouter" lives at <dir>/openrouter.env and its keys
// become environment variables in the session that references it.
type Store struct {
	Dir string
}

var nameRe = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]*$`)

func NewStore(dir string) *Store {
	return &Store{Dir: dir}
}

func (s *Store) path(name string) string {
	return filepath.Join(s.Dir, name+".env")
}

// Create writes a named secret from KEY=VALUE pairs, replacing any
// existing secret with the same name.
func (s *Store) Create(name string, pairs []string) error {
	if !nameRe.MatchString(name) {
		return fmt.Errorf("invalid secret name %q", name)
	}
	if len(pairs) == 0 {
		return fmt.Errorf("secret %q: at least one KEY=VALUE pair is required", name)
	}
	var b strings.Builder
	for _, p := range pairs {
		eqIdx := strings.IndexByte(p, '=')
		if eqIdx <= 0 {
			return fmt.Errorf("secret %q: %q is not KEY=VALUE", name, p)
		}
		b.WriteString(p)
		b.WriteByte('\n')
	}
	if err := os.MkdirAll(s.Dir, 0o700); err != nil {
		return fmt.Errorf("creating secret dir: %w", err)
	}
	if err := os.WriteFile(s.path(name), []byte(b.String()), 0o600); err != nil {
		return fmt.Errorf("writing secret %q: %w", name, err)
	}
	return nil
}

// List returns the names of stored secrets, sorted.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.Dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading secret dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".env") {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), ".env"))
	}
	sort.Strings(names)
	return names, nil
}

// Resolve returns the env vars held by a named secret.
func (s *Store) Resolve(name string) (map[string]string, error) {
	vars, err := ParseEnvFile(s.path(name))
	if err != nil {
		return nil, fmt.Errorf("secret %q: %w", name, err)
	}
	return vars, nil
}

// ResolveAll merges the env vars of several named secrets. Later names
// win on key collisions.
func (s *Store) ResolveAll(names []string) (map[string]string, error) {
	merged := map[string]string{}
	for _, name := range names {
		vars, err := s.Resolve(name)
		if err != nil {
			return nil, err
		}
		for k, v := range vars {
			merged[k] = v
		}
	}
	return merged, nil
}
