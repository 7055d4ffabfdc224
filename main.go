package main

import "github.com/ngld/knossos/packages/shellhooks/cmd"

func main() {
	cmd.Execute()
}
