package main

import "github.com/oshokin/sos-button/cmd/sos-watcher/cmd"

func main() {
	cmd.Execute()
}
