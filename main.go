package main

import "github.com/fakeyudi/gitmind/cmd"

func main() {
	cmd.Execute()
}
