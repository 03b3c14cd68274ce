// Command vclock runs virtual clocks from the terminal.
package main

import "github.com/sarchlab/vclock/cli"

func main() {
	cli.Execute()
}
