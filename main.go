package main

import "github.com/vidtrace/vidtrace/cmd"

func main() {
	cmd.Execute()
}
