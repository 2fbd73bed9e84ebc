package distribution

import (
	"fmt"
	"runtime"
)

// DefaultHostTriple returns the target triple for the machine this
// process runs on, or an error when no catalog triple maps to it.
func DefaultHostTriple() (string, error) {
	switch runtime.GOOS + "/" + runtime.GOARCH {
	case "linux/amd64":
		return "x86_64-unknown-linux-gnu", nil
	case "linux/arm64":
		return "aarch64-unknown-linux-gnu", nil
	case "darwin/amd64":
		return "x86_64-apple-darwin", nil
	case "darwin/arm64":
		return "aarch64-apple-darwin", nil
	case "windows/amd64":
		return "x86_64-pc-windows-msvc", nil
	case "windows/386":
		return "i686-pc-windows-msvc", nil
	default:
		return "", fmt.Errorf("no known target triple for %s/%s", runtime.GOOS, runtime.GOARCH)
	}
}
