// Package profile models a named sync profile: its resolved
// configuration, directory layout, and validation rules. Parsing uses
// godotenv's key=value reader rather than a hand-written scanner, and
// validation mirrors the original tool's exact default and synonym
// tables.
package profile

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	"github.com/nullpilot/retainsync/internal/errs"
)

// localhostSynonyms are RemoteHost values that mean "the remote is a
// local path", not an actual SSH host.
var localhostSynonyms = map[string]bool{
	"localhost": true,
	"127.0.0.1": true,
	"":          true,
}

var requiredKeys = []string{
	"LocalDir", "RemoteHost", "RemoteUser", "Port", "RemoteDir", "StorageLimit",
}

var boolTrueValues = map[string]bool{"yes": true, "true": true}
var boolFalseValues = map[string]bool{"no": true, "false": true}

// Profile is a fully-resolved, validated sync profile.
type Profile struct {
	Name string

	LocalDir          string
	RemoteHost        string
	RemoteUser        string
	Port              string
	RemoteDir         string
	StorageLimitBytes int64

	SshfsOptions    string
	TrashDirs       []string
	DeleteAlways    bool
	SyncExtraFiles  bool
	InflatePriority bool
	AccountForSize  bool

	ExcludePatterns []string
}

// IsLocalRemote reports whether RemoteHost is a localhost synonym,
// meaning the remote directory is a plain local path rather than an
// SSH-mounted one.
func (p *Profile) IsLocalRemote() bool {
	return localhostSynonyms[p.RemoteHost]
}

// LoadConfig reads a profile's config file (plain key=value, parsed with
// godotenv) and returns the typed, defaulted, validated values. registry
// is consulted to reject a LocalDir that overlaps another known
// profile's.
func LoadConfig(name, configPath string, registry *Registry) (*Profile, error) {
	raw, err := godotenv.Read(configPath)
	if err != nil {
		return nil, errs.NewInput("reading config for profile %q: %v", name, err)
	}

	return buildProfile(name, raw, registry)
}

func buildProfile(name string, raw map[string]string, registry *Registry) (*Profile, error) {
	for _, key := range requiredKeys {
		if _, ok := raw[key]; !ok {
			if key == "RemoteUser" || key == "Port" {
				// These two are only required for a non-local remote;
				// checked explicitly below once RemoteHost is known.
				continue
			}
			return nil, errs.NewInput("profile %q: missing required config key %q", name, key)
		}
	}

	p := &Profile{
		Name:       name,
		LocalDir:   expandTilde(raw["LocalDir"]),
		RemoteHost: raw["RemoteHost"],
		RemoteUser: raw["RemoteUser"],
		Port:       raw["Port"],
		RemoteDir:  expandTilde(raw["RemoteDir"]),

		SshfsOptions:    getOrDefault(raw, "SshfsOptions", "reconnect,ServerAliveInterval=5,ServerAliveCountMax=3"),
		SyncExtraFiles:  true,
		InflatePriority: true,
		AccountForSize:  true,
	}

	if !p.IsLocalRemote() {
		if p.RemoteUser == "" {
			return nil, errs.NewInput("profile %q: RemoteUser is required when RemoteHost is not local", name)
		}
		if p.Port == "" {
			return nil, errs.NewInput("profile %q: Port is required when RemoteHost is not local", name)
		}
	}

	limit, err := ParseStorageLimit(raw["StorageLimit"])
	if err != nil {
		return nil, errs.NewInput("profile %q: %v", name, err)
	}
	p.StorageLimitBytes = limit

	trashDirsRaw, err := defaultTrashDirsValue(raw)
	if err != nil {
		return nil, err
	}
	p.TrashDirs = splitTrashDirs(trashDirsRaw)

	for key, dest := range map[string]*bool{
		"DeleteAlways":    &p.DeleteAlways,
		"SyncExtraFiles":  &p.SyncExtraFiles,
		"InflatePriority": &p.InflatePriority,
		"AccountForSize":  &p.AccountForSize,
	} {
		if v, ok := raw[key]; ok {
			b, err := parseBool(key, v)
			if err != nil {
				return nil, errs.NewInput("profile %q: %v", name, err)
			}
			*dest = b
		}
	}

	if registry != nil {
		if err := registry.CheckOverlap(p); err != nil {
			return nil, err
		}
	}

	return p, nil
}

func defaultTrashDirsValue(raw map[string]string) (string, error) {
	if v, ok := raw["TrashDirs"]; ok {
		return v, nil
	}

	dir, err := DefaultTrashDir()
	if err != nil {
		return "", errs.NewInput("resolving default TrashDirs: %v", err)
	}

	return dir, nil
}

func splitTrashDirs(value string) []string {
	if value == "" {
		return nil
	}

	parts := strings.Split(value, ":")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, expandTilde(p))
		}
	}

	return out
}

func parseBool(key, value string) (bool, error) {
	lower := strings.ToLower(strings.TrimSpace(value))

	if boolTrueValues[lower] {
		return true, nil
	}
	if boolFalseValues[lower] {
		return false, nil
	}

	return false, errs.NewInput("invalid boolean value for %s: %q (expected yes/true/no/false)", key, value)
}

func getOrDefault(raw map[string]string, key, def string) string {
	if v, ok := raw[key]; ok {
		return v
	}

	return def
}

func expandTilde(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}

	return path
}
