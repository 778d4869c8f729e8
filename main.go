// The main package for the jobradar executable.
package main

import (
	"github.com/kallodavid/jobradar/cmd"
)

func main() {
	cmd.Execute()
}
