package main

import (
	"github.com/nullpilot/retainsync/internal/profile"
)

// buildRegistry loads every known profile except exclude, without
// overlap-validating them against each other again, for use as the
// overlap-check registry when loading or creating a different profile.
// A profile that fails to load (missing/corrupt config) is silently
// skipped: it cannot meaningfully contribute a LocalDir to check against.
func buildRegistry(exclude string) (*profile.Registry, error) {
	registry := profile.NewRegistry()

	names, err := profile.ListProfileNames()
	if err != nil {
		return nil, err
	}

	for _, name := range names {
		if name == exclude {
			continue
		}

		configPath, err := profile.ConfigPath(name)
		if err != nil {
			continue
		}

		p, err := profile.LoadConfig(name, configPath, nil)
		if err != nil {
			continue
		}

		registry.Register(p)
	}

	return registry, nil
}

// loadNamedProfile resolves and validates the named profile's config,
// checking it for LocalDir overlap against every other known profile.
func loadNamedProfile(name string) (*profile.Profile, error) {
	registry, err := buildRegistry(name)
	if err != nil {
		return nil, err
	}

	configPath, err := profile.ConfigPath(name)
	if err != nil {
		return nil, err
	}

	return profile.LoadConfig(name, configPath, registry)
}

// remoteRootFor resolves the filesystem path the remote tree operates
// over: the configured RemoteDir directly for a local remote, or the
// profile's sshfs mountpoint otherwise (mounting it is an external
// collaborator's job, out of this program's scope).
func remoteRootFor(p *profile.Profile, name string) (string, error) {
	if p.IsLocalRemote() {
		return p.RemoteDir, nil
	}

	return profile.MountDir(name)
}
