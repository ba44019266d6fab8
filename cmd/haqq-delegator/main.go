package main

import "github.com/tessellated-io/haqq-delegator/cmd/haqq-delegator/cmd"

func main() {
	cmd.Execute()
}
