// Command mirror inspects and edits mirrored records.
package main

import "github.com/mesh-intelligence/mirrors/internal/cli"

func main() {
	cli.Execute()
}
