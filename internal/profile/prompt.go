package profile

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strings"
)

// promptOrder is requiredKeys' display order, with the two host-only keys
// kept adjacent to RemoteHost for a sensible prompt flow.
var promptOrder = []string{"LocalDir", "RemoteHost", "RemoteUser", "Port", "RemoteDir", "StorageLimit"}

// Prompt interactively fills in any of requiredKeys missing from raw,
// reading lines from in and writing prompts to out. It mirrors the
// original tool's config-prompting fallback: RemoteUser and Port are
// skipped when the just-entered RemoteHost is a localhost synonym, since
// a local remote needs neither.
func Prompt(raw map[string]string, in io.Reader, out io.Writer) (map[string]string, error) {
	filled := make(map[string]string, len(raw))
	for k, v := range raw {
		filled[k] = v
	}

	reader := bufio.NewReader(in)

	for _, key := range promptOrder {
		if _, ok := filled[key]; ok {
			continue
		}

		if (key == "RemoteUser" || key == "Port") && localhostSynonyms[filled["RemoteHost"]] {
			continue
		}

		fmt.Fprintf(out, "%s: ", key)

		line, err := reader.ReadString('\n')
		if err != nil && err != io.EOF {
			return nil, fmt.Errorf("profile: read %s: %w", key, err)
		}

		filled[key] = strings.TrimSpace(line)
	}

	return filled, nil
}

// missingKeys reports which of requiredKeys (respecting the same
// localhost skip rule Prompt uses) are absent from raw.
func missingKeys(raw map[string]string) []string {
	var missing []string

	for _, key := range requiredKeys {
		if _, ok := raw[key]; ok {
			continue
		}
		if (key == "RemoteUser" || key == "Port") && localhostSynonyms[raw["RemoteHost"]] {
			continue
		}
		missing = append(missing, key)
	}

	sort.Strings(missing)
	return missing
}

// NeedsPrompt reports whether raw is missing any key Prompt would ask for.
func NeedsPrompt(raw map[string]string) bool {
	return len(missingKeys(raw)) > 0
}

// WriteConfig serializes raw as the plain key=value format godotenv.Read
// expects, one key per line, sorted for a stable diff-friendly file.
func WriteConfig(w io.Writer, raw map[string]string) error {
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if _, err := fmt.Fprintf(w, "%s=%s\n", k, raw[k]); err != nil {
			return err
		}
	}

	return nil
}
