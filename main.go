package main

import "github.com/open-crosspost/scheduler-service/cmd"

func main() {
	cmd.Execute()
}
