// Command casegen generates C++ or Go sources from a class design.
package main

import "github.com/syssam/casegen/internal/cmd"

func main() {
	cmd.Execute()
}
