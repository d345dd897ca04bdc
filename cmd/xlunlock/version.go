package main

import (
	"context"
	"fmt"
	"io"
	"runtime/debug"

	"github.com/urfave/cli/v3"
)

type buildInfo struct {
	Version   string
	GoVersion string
	Commit    string
	BuildTime string
	Modified  bool
}

// readBuildInfo reports what the Go toolchain embedded in the binary.
// Fields stay "unknown" when the binary was built without module or VCS data.
func readBuildInfo() buildInfo {
	bi := buildInfo{Version: "unknown", GoVersion: "unknown", Commit: "unknown", BuildTime: "unknown"}

	info, ok := debug.ReadBuildInfo()
	if !ok {
		return bi
	}
	bi.Version = info.Main.Version
	bi.GoVersion = info.GoVersion
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			bi.Commit = setting.Value
		case "vcs.time":
			bi.BuildTime = setting.Value
		case "vcs.modified":
			bi.Modified = setting.Value == "true"
		}
	}
	return bi
}

func (bi buildInfo) write(w io.Writer) {
	fmt.Fprintf(w, "xlunlock %s\n", bi.Version)
	fmt.Fprintf(w, "go: %s\n", bi.GoVersion)
	if bi.Commit != "unknown" {
		dirty := ""
		if bi.Modified {
			dirty = " (dirty)"
		}
		fmt.Fprintf(w, "commit: %s%s\n", bi.Commit, dirty)
	}
	if bi.BuildTime != "unknown" {
		fmt.Fprintf(w, "built: %s\n", bi.BuildTime)
	}
}

var versionCommand = &cli.Command{
	Name:  "version",
	Usage: "Print version and build information",
	Action: func(ctx context.Context, command *cli.Command) error {
		readBuildInfo().write(command.Root().Writer)
		return nil
	},
}
