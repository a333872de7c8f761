/*
	Copyright 2023 Markus Papenbrock
*/

package main

import "github.com/mpapenbr/ovalrace/cmd"

func main() {
	cmd.Execute()
}
