// Cachesim replays a memory access trace on a set-associative cache.
package main

import "github.com/sarchlab/cachesim/cachesim/cmd"

func main() {
	cmd.Execute()
}
