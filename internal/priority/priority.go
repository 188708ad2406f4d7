// Package priority implements the two-stage storage-budget solver of
// spec §4.7, a direct port of original_source/zielen/commands/sync.py's
// _prioritize_dirs/_prioritize_files. Stage 1 greedily selects whole
// directories by a size-adjusted priority score, honoring subtree
// containment; stage 2 optionally fills remaining budget with loose
// files outside any selected directory.
package priority

import (
	"sort"

	mapset "github.com/deckarep/golang-set/v2"
)

// Input is everything the solver needs, already read out of the profile
// database and the remote tree by the orchestrator. Paths are relative,
// slash-separated.
type Input struct {
	StorageLimit   int64
	SymlinkBlock   int64
	AccountForSize bool
	SyncExtraFiles bool

	// ProfileDirs and ProfileFiles are the profile DB's tracked directory
	// and file entries, keyed by relpath, valued by priority.
	ProfileDirs  map[string]float64
	ProfileFiles map[string]float64

	// RemoteFileSizes is the size-on-disk (bytes) of every file path
	// known to the remote tree. Directory sizes are derived by summing
	// the sizes of the files found beneath them.
	RemoteFileSizes map[string]int64
}

// Result is the set of paths the solver chose to keep materialized.
type Result struct {
	SelectedDirs  mapset.Set[string]
	SelectedFiles mapset.Set[string]
}

// Materialized returns the union of SelectedDirs and SelectedFiles: every
// relative path that must stay a real file/directory in the local tree.
// Everything else tracked becomes a symlink.
func (r Result) Materialized() mapset.Set[string] {
	return r.SelectedDirs.Union(r.SelectedFiles)
}

type scored struct {
	path     string
	priority float64
	size     int64
}

// Solve runs both stages of the solver over in and returns the selected
// directories and loose files.
func Solve(in Input) Result {
	selectedDirs, selectedFiles, remaining := solveDirs(in)

	if in.SyncExtraFiles {
		extra := solveFiles(in, selectedDirs, selectedFiles, remaining)
		selectedFiles = selectedFiles.Union(extra)
	}

	return Result{SelectedDirs: selectedDirs, SelectedFiles: selectedFiles}
}

// subtreeSize sums the remote size-on-disk of every tracked file under
// prefix (itself included, for a file path; for a directory, every path
// equal to or nested under it).
func subtreeSize(prefix string, sizes map[string]int64) int64 {
	var total int64
	for path, size := range sizes {
		if underPrefix(path, prefix) {
			total += size
		}
	}
	return total
}

func underPrefix(path, prefix string) bool {
	if path == prefix {
		return true
	}
	return len(path) > len(prefix) && path[:len(prefix)] == prefix && path[len(prefix)] == '/'
}

func adjustedPriority(priority float64, size int64, accountForSize bool) float64 {
	if !accountForSize {
		return priority
	}
	if size == 0 {
		// Preserve the original's divide-by-zero guard: an empty
		// subtree/file gets priority 0 rather than +Inf or a crash.
		return 0
	}
	return priority / float64(size)
}

func sortedScored(entries map[string]float64, sizeOf func(path string) int64, accountForSize bool) []scored {
	paths := make([]string, 0, len(entries))
	for p := range entries {
		paths = append(paths, p)
	}
	sort.Strings(paths) // deterministic base ordering before the priority sort

	out := make([]scored, 0, len(paths))
	for _, p := range paths {
		size := sizeOf(p)
		out = append(out, scored{
			path:     p,
			priority: adjustedPriority(entries[p], size, accountForSize),
			size:     size,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].priority > out[j].priority
	})

	return out
}

func solveDirs(in Input) (selectedDirs, selectedFiles mapset.Set[string], remaining int64) {
	selectedDirs = mapset.NewSet[string]()
	selectedFiles = mapset.NewSet[string]()
	selectedSubdirs := mapset.NewSet[string]()

	dirSizes := make(map[string]int64, len(in.ProfileDirs))
	for d := range in.ProfileDirs {
		dirSizes[d] = subtreeSize(d, in.RemoteFileSizes)
	}

	ordered := sortedScored(in.ProfileDirs, func(p string) int64 { return dirSizes[p] }, in.AccountForSize)

	remaining = in.StorageLimit - int64(len(in.ProfileFiles))*in.SymlinkBlock

	for _, d := range ordered {
		if selectedSubdirs.Contains(d.path) {
			continue
		}
		if d.size > in.StorageLimit {
			continue
		}

		containedFiles := mapset.NewSet[string]()
		containedDirs := mapset.NewSet[string]()
		for f := range in.ProfileFiles {
			if underPrefix(f, d.path) {
				containedFiles.Add(f)
			}
		}
		for sd := range in.ProfileDirs {
			if sd != d.path && underPrefix(sd, d.path) {
				containedDirs.Add(sd)
			}
		}

		var subdirsSize int64
		for sd := range containedDirs.Iter() {
			if selectedDirs.Contains(sd) {
				subdirsSize += dirSizes[sd]
			}
		}

		newlyMaterialized := containedFiles.Difference(selectedFiles).Cardinality()
		newRemaining := remaining - d.size + subdirsSize + int64(newlyMaterialized)*in.SymlinkBlock

		if newRemaining > 0 {
			selectedSubdirs = selectedSubdirs.Union(containedDirs)
			selectedFiles = selectedFiles.Union(containedFiles)
			selectedDirs = selectedDirs.Difference(containedDirs)
			selectedDirs.Add(d.path)
			remaining = newRemaining
		}
	}

	return selectedDirs, selectedFiles, remaining
}

func solveFiles(in Input, selectedDirs, alreadySelected mapset.Set[string], remaining int64) mapset.Set[string] {
	loose := map[string]float64{}
	for f, priority := range in.ProfileFiles {
		if alreadySelected.Contains(f) {
			continue
		}
		if isUnderAnySelectedDir(f, selectedDirs) {
			continue
		}
		loose[f] = priority
	}

	ordered := sortedScored(loose, func(p string) int64 { return in.RemoteFileSizes[p] }, in.AccountForSize)

	selected := mapset.NewSet[string]()
	for _, f := range ordered {
		newRemaining := remaining - f.size + in.SymlinkBlock
		if newRemaining > 0 {
			selected.Add(f.path)
			remaining = newRemaining
		}
	}

	return selected
}

func isUnderAnySelectedDir(path string, selectedDirs mapset.Set[string]) bool {
	for d := range selectedDirs.Iter() {
		if underPrefix(path, d) {
			return true
		}
	}
	return false
}
