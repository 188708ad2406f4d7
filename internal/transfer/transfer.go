// Package transfer wraps the external rsync-like bulk-copy tool spec
// §1 treats as an out-of-scope collaborator. It is grounded on
// original_source/retainsync/io/transfer.py's rsync_cmd: temporary
// --files-from/--exclude-from lists, a progress channel read while the
// child process runs, and the "last five lines of stderr" error
// presentation spec §7 requires for transport failures.
package transfer

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/nullpilot/retainsync/internal/errs"
)

// Progress reports fractional completion (0.0-1.0) of an in-flight
// transfer, read off rsync's --info=progress2 output.
type Progress struct {
	Fraction float64
	Message  string
}

// Tool performs a one-way bulk copy from srcRoot to dstRoot, restricted
// to the given relative files (or the whole tree when files is nil),
// skipping anything matched by exclude. progress, if non-nil, receives
// updates for the duration of the call; it is always closed before
// Transfer returns.
type Tool interface {
	Transfer(ctx context.Context, srcRoot, dstRoot string, files, exclude []string, msg string, progress chan<- Progress) error
}

// Rsync shells out to the real rsync binary, matching the original
// tool's transport.
type Rsync struct {
	// BinaryPath overrides the "rsync" lookup on PATH; empty uses PATH.
	BinaryPath string
}

// NewRsync returns an Rsync tool using the "rsync" binary on PATH.
func NewRsync() *Rsync {
	return &Rsync{BinaryPath: "rsync"}
}

// Transfer runs rsync(1) from srcRoot to dstRoot. files, when non-nil,
// is written to a temporary --files-from list; exclude to a temporary
// --exclude-from list. Both lists use rsync's leading-slash-anchored
// relative path convention. A non-zero exit produces an
// *errs.TransferError carrying the last five lines of stderr, per
// spec §7.
func (r *Rsync) Transfer(ctx context.Context, srcRoot, dstRoot string, files, exclude []string, msg string, progress chan<- Progress) error {
	if progress != nil {
		defer close(progress)
	}

	bin := r.BinaryPath
	if bin == "" {
		bin = "rsync"
	}

	args := []string{"--archive", "--info=progress2"}

	if len(exclude) > 0 {
		excludeFile, cleanup, err := writeTempList(exclude)
		if err != nil {
			return fmt.Errorf("transfer: write exclude list: %w", err)
		}
		defer cleanup()
		args = append(args, "--exclude-from="+excludeFile)
	}

	if files != nil {
		filesFile, cleanup, err := writeTempList(files)
		if err != nil {
			return fmt.Errorf("transfer: write files list: %w", err)
		}
		defer cleanup()
		args = append(args, "--files-from="+filesFile)
	}

	args = append(args, srcRoot+"/", dstRoot+"/")

	cmd := exec.CommandContext(ctx, bin, args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("transfer: stdout pipe: %w", err)
	}

	var stderrLines []string
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("transfer: stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("transfer: start rsync: %w", err)
	}

	showBar := isatty.IsTerminal(os.Stdout.Fd())

	stderrDone := make(chan struct{})
	go func() {
		defer close(stderrDone)
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
			stderrLines = append(stderrLines, scanner.Text())
		}
	}()

	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		fraction, ok := parseProgress2Percent(line)
		if !ok {
			continue
		}

		if progress != nil {
			progress <- Progress{Fraction: fraction, Message: msg}
		}
		_ = showBar // terminal rendering itself is the CLI's concern, not this package's
	}

	<-stderrDone

	waitErr := cmd.Wait()
	if waitErr != nil {
		return &errs.TransferError{
			Message: "the file transfer failed to complete",
			Stderr:  lastN(stderrLines, 5),
		}
	}

	return nil
}

// parseProgress2Percent extracts the percentage field from an
// rsync --info=progress2 status line, e.g.:
//
//	      1,048,576 100%    2.00MB/s    0:00:00 (xfr#1, to-chk=0/1)
func parseProgress2Percent(line string) (float64, bool) {
	fields := strings.Fields(line)
	for _, f := range fields {
		if strings.HasSuffix(f, "%") {
			value, err := strconv.ParseFloat(strings.TrimSuffix(f, "%"), 64)
			if err != nil {
				return 0, false
			}
			return value / 100, true
		}
	}
	return 0, false
}

func lastN(lines []string, n int) []string {
	if len(lines) <= n {
		return lines
	}
	return lines[len(lines)-n:]
}

// writeTempList writes one path per line (each forced to start with "/",
// rsync's relative-to-root convention) to a fresh temporary file, created
// with exclusive-create semantics and unlinked by the returned cleanup
// func once the caller is done with its path.
func writeTempList(paths []string) (path string, cleanup func(), err error) {
	f, err := os.CreateTemp("", "retain-sync-*.list")
	if err != nil {
		return "", nil, err
	}

	var b strings.Builder
	for _, p := range paths {
		b.WriteString("/")
		b.WriteString(strings.TrimPrefix(p, "/"))
		b.WriteString("\n")
	}

	if _, err := f.WriteString(b.String()); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", nil, err
	}

	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", nil, err
	}

	return f.Name(), func() { os.Remove(f.Name()) }, nil
}
