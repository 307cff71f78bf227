// Package deps resolves the external binaries pixivdl shells out to.
package deps

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// Check resolves command. A value containing a path separator must name an
// executable file; a bare name is looked up in PATH and Command is replaced
// by the resolved path.
func Check(name, command, description string, required bool) Status {
	status := Status{
		Name:        name,
		Command:     strings.TrimSpace(command),
		Description: description,
		Optional:    !required,
	}
	bin := status.Command
	switch {
	case bin == "":
		status.Detail = "command not configured"
	case strings.ContainsRune(bin, filepath.Separator):
		info, err := os.Stat(bin)
		switch {
		case err != nil:
			status.Detail = fmt.Sprintf("binary %q not found", bin)
		case info.IsDir() || info.Mode().Perm()&0o111 == 0:
			status.Detail = fmt.Sprintf("binary %q is not executable", bin)
		default:
			status.Available = true
		}
	default:
		resolved, err := exec.LookPath(bin)
		if err != nil {
			status.Detail = fmt.Sprintf("binary %q not found", bin)
			break
		}
		status.Command = resolved
		status.Available = true
	}
	return status
}
