package migration

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var fileNamePattern = regexp.MustCompile(`^(\d+)_([a-zA-Z0-9_-]+)\.sql$`)

// FSScanner reads migration files from a directory of an fs.FS.
type FSScanner struct {
	files fs.FS
	dir   string
}

// NewScanner creates a scanner over dir inside files.
func NewScanner(files fs.FS, dir string) *FSScanner {
	if dir == "" {
		dir = "."
	}
	return &FSScanner{files: files, dir: dir}
}

// Scan returns the migrations sorted by numeric version.
func (s *FSScanner) Scan() ([]Migration, error) {
	entries, err := fs.ReadDir(s.files, s.dir)
	if err != nil {
		return nil, stepError("", s.dir, "read directory", err)
	}

	var migrations []Migration
	seen := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		version, description, err := ParseFileName(entry.Name())
		if err != nil {
			return nil, stepError("", entry.Name(), "validate filename", err)
		}
		if existing, ok := seen[version]; ok {
			return nil, stepError(version, entry.Name(), "check duplicates",
				fmt.Errorf("%w: version %s found in both %s and %s", ErrDuplicateVersion, version, existing, entry.Name()))
		}
		seen[version] = entry.Name()

		filePath := path.Join(s.dir, entry.Name())
		body, err := fs.ReadFile(s.files, filePath)
		if err != nil {
			return nil, stepError(version, filePath, "read file", err)
		}
		if strings.TrimSpace(string(body)) == "" {
			return nil, stepError(version, filePath, "read file", fmt.Errorf("%w: empty migration", ErrInvalidMigrationFile))
		}

		sum := sha256.Sum256(body)
		migrations = append(migrations, Migration{
			Version:     version,
			Description: strings.ReplaceAll(description, "_", " "),
			SQL:         string(body),
			FilePath:    filePath,
			Checksum:    hex.EncodeToString(sum[:]),
		})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return versionNumber(migrations[i].Version) < versionNumber(migrations[j].Version)
	})
	return migrations, nil
}

// ParseFileName splits a migration file name into version and description.
func ParseFileName(name string) (string, string, error) {
	matches := fileNamePattern.FindStringSubmatch(name)
	if len(matches) != 3 {
		return "", "", fmt.Errorf("%w: filename %q does not match {version}_{description}.sql", ErrInvalidMigrationFile, name)
	}
	return matches[1], matches[2], nil
}

func versionNumber(version string) int {
	n, err := strconv.Atoi(version)
	if err != nil {
		return -1
	}
	return n
}
