package fspolicy

import (
	"context"
	"os/exec"
	"path/filepath"
	"strings"
)

// par2Verifier runs the external par2 CLI the same way the teacher's
// ffprobe.Prober wraps ffprobe: os/exec.CommandContext, binary name
// resolved once and trimmed, context-cancellable.
type par2Verifier struct {
	binary string
}

func newPar2Verifier(binary string) par2Verifier {
	bin := strings.TrimSpace(binary)
	if bin == "" {
		bin = "par2"
	}
	return par2Verifier{binary: bin}
}

// verifyAndRepair runs `par2 repair` against every .par2 index found under
// dir. A directory with no recovery sets is a no-op, not an error — par2
// is opt-in per FsPolicy and most releases don't carry recovery blocks.
func (p par2Verifier) verifyAndRepair(ctx context.Context, dir string) error {
	indexes, err := filepath.Glob(filepath.Join(dir, "*.par2"))
	if err != nil {
		return err
	}
	for _, idx := range indexes {
		if strings.Contains(strings.ToLower(filepath.Base(idx)), ".vol") {
			continue // volume blocks, not the main index
		}
		cmd := exec.CommandContext(ctx, p.binary, "repair", idx)
		cmd.Dir = dir
		if out, err := cmd.CombinedOutput(); err != nil {
			return &par2Error{index: idx, output: string(out), cause: err}
		}
	}
	return nil
}

type par2Error struct {
	index  string
	output string
	cause  error
}

func (e *par2Error) Error() string {
	return "par2 repair failed for " + e.index + ": " + e.cause.Error() + ": " + e.output
}

func (e *par2Error) Unwrap() error { return e.cause }
