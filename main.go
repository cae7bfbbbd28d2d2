package main

import "github.com/xvierd/focusos/cmd"

func main() {
	cmd.Execute()
}
