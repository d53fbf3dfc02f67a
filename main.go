package main

import "github.com/Mohsinsiddi/ykp/cmd"

func main() {
	cmd.Execute()
}
