package profile

import (
	"regexp"
	"strconv"

	"github.com/nullpilot/retainsync/internal/errs"
)

// storageLimitPattern matches an integer followed by one of the unit
// suffixes. Every suffix, decimal-looking or not (KB as much as KiB), is
// interpreted as a binary (1024-based) multiplier — see ParseStorageLimit.
var storageLimitPattern = regexp.MustCompile(`^([0-9]+)(K|KB|KiB|M|MB|MiB|G|GB|GiB)$`)

const (
	unitK = 1 << 10
	unitM = 1 << 20
	unitG = 1 << 30
)

// ParseStorageLimit parses the StorageLimit config grammar:
// <integer>(K|KB|KiB|M|MB|MiB|G|GB|GiB). Every spelling of a unit,
// including the SI-looking "KB"/"MB"/"GB", is interpreted as the binary
// (1024-based) multiplier — unlike humanize.ParseBytes, which treats
// "KB" as decimal and only "KiB" as binary. This grammar must match the
// one users of this tool have always depended on, so it is parsed by
// hand rather than delegated to a library with different unit rules.
func ParseStorageLimit(raw string) (int64, error) {
	m := storageLimitPattern.FindStringSubmatch(raw)
	if m == nil {
		return 0, errs.NewInput("invalid StorageLimit value %q: expected <integer>(K|KB|KiB|M|MB|MiB|G|GB|GiB)", raw)
	}

	value, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, errs.NewInput("invalid StorageLimit value %q: %v", raw, err)
	}

	var multiplier int64
	switch m[2] {
	case "K", "KB", "KiB":
		multiplier = unitK
	case "M", "MB", "MiB":
		multiplier = unitM
	case "G", "GB", "GiB":
		multiplier = unitG
	}

	return value * multiplier, nil
}
