package main

import "github.com/oshokin/sos-button/cmd/sos-server/cmd"

func main() {
	cmd.Execute()
}
