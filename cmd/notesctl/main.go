// Command notesctl is the operator CLI of the notebook server: it applies
// migrations, rebuilds the search index and prints analytics summaries
// straight from the database file.
package main

import "github.com/sakif/notebook/cmd/notesctl/cmd"

func main() {
	cmd.Execute()
}
