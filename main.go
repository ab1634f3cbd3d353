package main

import "github.com/mawngo/kcluster/cmd"

func main() {
	cmd.NewCLI().Execute()
}
