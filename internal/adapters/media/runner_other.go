//go:build !unix

package media

import "os/exec"

// killGroup keeps the default Cancel, which kills only the direct child.
func killGroup(*exec.Cmd) {}
