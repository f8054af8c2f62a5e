package main

import "github.com/Zahur13/ConnectSphere/cmd"

func main() {
	cmd.Run()
}
