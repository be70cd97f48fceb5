package main

import "github.com/oshokin/sos-button/cmd/sos-button-on/cmd"

func main() {
	cmd.Execute()
}
