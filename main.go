package main

import "nathanbeddoewebdev/actionmgr/cmd"

func main() {
	cmd.Execute()
}
