// Command aethera is the command-line interface and HTTP API for the
// AETHERA environmental impact assessment platform.
package main

import "github.com/aethera-eia/aethera/aetherautil"

func main() {
	aetherautil.Execute()
}
