// Command loopgen generates loops from the command line. See "loopgen --help".
package main

import "github.com/samirrijal/circlerun/cmd/loopgen/cmd"

func main() {
	cmd.Execute()
}
