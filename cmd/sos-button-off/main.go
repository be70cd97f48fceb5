package main

import "github.com/oshokin/sos-button/cmd/sos-button-off/cmd"

func main() {
	cmd.Execute()
}
