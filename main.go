package main

import "github.com/veltabank/bankweb/cmd"

func main() {
	cmd.Execute()
}
