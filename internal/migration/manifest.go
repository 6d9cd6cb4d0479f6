package migration

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strconv"
	"strings"
)

// Manifest identifies the embedded schema: the highest migration version and
// a checksum over every up migration. The bootstrap state row must match it
// before the API serves traffic.
type Manifest struct {
	Version  uint
	Checksum string
	Files    []string
}

func (m Manifest) SchemaVersion() string {
	return strconv.FormatUint(uint64(m.Version), 10)
}

func LoadManifest() (Manifest, error) {
	entries, err := fs.ReadDir(embeddedMigrations, migrationsDir)
	if err != nil {
		return Manifest{}, fmt.Errorf("list migrations: %w", err)
	}

	var m Manifest
	for _, entry := range entries {
		name := strings.TrimSpace(entry.Name())
		if entry.IsDir() || !strings.HasSuffix(name, ".up.sql") {
			continue
		}
		version, ok := parseMigrationVersion(name)
		if !ok {
			return Manifest{}, fmt.Errorf("invalid migration filename: %s", name)
		}
		m.Version = max(m.Version, version)
		m.Files = append(m.Files, name)
	}
	if m.Version == 0 {
		return Manifest{}, errors.New("no embedded migrations found")
	}
	sort.Strings(m.Files)

	hasher := sha256.New()
	for _, name := range m.Files {
		content, err := embeddedMigrations.ReadFile(migrationsDir + "/" + name)
		if err != nil {
			return Manifest{}, fmt.Errorf("read migration %s: %w", name, err)
		}
		_, _ = hasher.Write([]byte(name))
		_, _ = hasher.Write([]byte{0})
		_, _ = hasher.Write(content)
		_, _ = hasher.Write([]byte{0})
	}
	m.Checksum = hex.EncodeToString(hasher.Sum(nil))
	return m, nil
}

func parseMigrationVersion(name string) (uint, bool) {
	value, _, found := strings.Cut(name, "_")
	if !found || strings.TrimSpace(value) == "" {
		return 0, false
	}
	parsed, err := strconv.ParseUint(strings.TrimSpace(value), 10, 64)
	if err != nil || parsed == 0 {
		return 0, false
	}
	return uint(parsed), true
}
