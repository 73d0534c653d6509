package ballot

import (
	"fmt"
	"runtime"
)

// Set at build time with -ldflags "-X github.com/axiomesh/ballot.CurrentVersion=..."
var (
	CurrentVersion = "dev"
	CurrentBranch  = "unknown"
	CurrentCommit  = "unknown"
	BuildDate      = "unknown"

	GoVersion = runtime.Version()
	Platform  = fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH)
)
