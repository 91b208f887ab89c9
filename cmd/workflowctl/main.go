package main

import "github.com/flowcraft/workflowengine/cmd/workflowctl/cmd"

func main() {
	cmd.Execute()
}
