package cfx

import (
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strings"

	"golang.org/x/mod/semver"
)

// MinVersion is the oldest CFX release the session format is known to work
// with.
const MinVersion = "19.0"

var versionRegex = regexp.MustCompile(`(\d+)\.(\d+)`)

// QueryVersion runs cfx5pre -help and extracts the release number from the
// banner. The result is stored on the Installation.
func (inst *Installation) QueryVersion(ctx context.Context) (string, error) {
	cmd := exec.CommandContext(ctx, inst.PreBin, "-help")
	// cfx5pre prints the banner and exits nonzero on -help; the output is
	// still what we want.
	out, _ := cmd.CombinedOutput()

	version, err := ParseVersion(string(out))
	if err != nil {
		return "", err
	}
	inst.Version = version
	return version, nil
}

// ParseVersion extracts a MAJOR.MINOR release number from tool output.
func ParseVersion(output string) (string, error) {
	m := versionRegex.FindStringSubmatch(output)
	if m == nil {
		return "", fmt.Errorf("no version number in output: %q", firstLine(output))
	}
	return m[1] + "." + m[2], nil
}

// CompareVersions compares two CFX release strings (e.g. "23.1" vs "19.0").
// Returns -1, 0 or +1 like strings.Compare.
func CompareVersions(a, b string) int {
	return semver.Compare(canonical(a), canonical(b))
}

// IsSupported reports whether a release is at least MinVersion.
func IsSupported(version string) bool {
	return CompareVersions(version, MinVersion) >= 0
}

// canonical converts a CFX release string to a semver tag.
func canonical(v string) string {
	v = strings.TrimPrefix(v, "v")
	if strings.Count(v, ".") < 2 {
		v += ".0"
	}
	return "v" + v
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
