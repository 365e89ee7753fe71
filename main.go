package main

import "github.com/cliff-rosen/orchestrator-sub003/cmd"

// Version can be set during build with -ldflags
var version = "dev"

func main() {
	cmd.SetVersion(version)
	cmd.Execute()
}
