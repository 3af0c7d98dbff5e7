package main

import "github.com/kozaktomas/face-session/cmd"

func main() {
	cmd.Execute()
}
