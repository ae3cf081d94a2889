package main

import "reward-tracker/cmd"

func main() {
	cmd.Execute()
}
