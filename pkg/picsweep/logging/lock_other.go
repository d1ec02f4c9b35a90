//go:build !(linux || darwin || freebsd || netbsd || openbsd || dragonfly)

package logging

import "os"

// No advisory locking; the in-process mutex still serializes writes.
func lockFile(*os.File) error { return nil }

func unlockFile(*os.File) {}
