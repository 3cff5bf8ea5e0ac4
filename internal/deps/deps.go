// Package deps reports which external programs voxchunk relies on are
// installed.
package deps

import (
	"context"
	"os/exec"
	"strings"
	"time"
)

// Status represents the installation status of a dependency
type Status struct {
	Name      string
	Purpose   string
	Required  bool
	Installed bool
	Path      string
	Version   string
}

type tool struct {
	name        string
	versionArgs []string
	purpose     string
	required    bool
}

var tools = []tool{
	{"pw-record", []string{"--version"}, "microphone capture", true},
	{"pw-cli", []string{"--version"}, "audio server access check", true},
	{"notify-send", []string{"--version"}, "desktop notifications", false},
}

var lookPath = exec.LookPath

// Check reports the status of every external tool.
func Check(ctx context.Context) []Status {
	out := make([]Status, 0, len(tools))
	for _, t := range tools {
		out = append(out, check(ctx, t))
	}
	return out
}

// Missing returns the required tools that are not installed.
func Missing(statuses []Status) []string {
	var missing []string
	for _, s := range statuses {
		if s.Required && !s.Installed {
			missing = append(missing, s.Name)
		}
	}
	return missing
}

func check(ctx context.Context, t tool) Status {
	status := Status{Name: t.name, Purpose: t.purpose, Required: t.required}

	path, err := lookPath(t.name)
	if err != nil {
		return status
	}
	status.Installed = true
	status.Path = path

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	// first non-empty line of the version output
	output, err := exec.CommandContext(ctx, path, t.versionArgs...).CombinedOutput()
	if err == nil {
		for _, line := range strings.Split(string(output), "\n") {
			if line = strings.TrimSpace(line); line != "" {
				status.Version = line
				break
			}
		}
	}
	return status
}
