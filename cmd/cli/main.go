// log2sql - convert log files into SQL rows
//
// log2sql matches each line of its inputs against a template, converts the
// captured values to the column types of a data description, and prints the
// resulting INSERT statements or writes them into a SQLite database.
package main

import (
	"os"

	"github.com/ccollicutt/log2sql/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
