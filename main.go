package main

import "github.com/theirongolddev/convgauge/cmd"

func main() {
	cmd.Execute()
}
