package main

import "vybe/cmd"

func main() {
	cmd.Execute()
}
