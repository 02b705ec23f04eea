package main

import "github.com/corewave/agentcore/cmd/agentctl/cmd"

func main() {
	cmd.Execute()
}
