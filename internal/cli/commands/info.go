package commands

import (
	"io"

	"github.com/spf13/cobra"
)

const infoText = `Template (--template)

  Each input line is searched for the template. Text outside brackets must
  appear exactly as written. A placeholder [name:kind] captures a value for
  the column called name:

    string  a word, or text in single or double quotes (quotes are removed)
    word    a run of non-whitespace characters
    date    a date, read with --date (default %Y-%m-%d)
    time    a time, read with --time (default %H:%M:%S)
    json    a JSON object whose keys become further fields

  [name] is the same as [name:string]. [:kind] or [] gets the name FieldN,
  where N is the placeholder's position. Field names are compared without
  case unless --case is given.

Data description (--data)

  The table and its columns, written like a CREATE TABLE statement:

    TABLE(NAME TYPE, ...)

  TYPE is one of:

    STRING       stored as text
    INTEGER      stored as an integer
    NUMBER(a.b)  stored as a number rounded to b decimal places
    REAL         stored as a floating point number
    DATE         stored as YYYY-MM-DD
    TIME         stored as HH:MM:SS
    DATETIME     stored as YYYY-MM-DD HH:MM:SS, built from the first date
                 field and the first time field of the template

  With an existing table every column must already exist in it.

Duplicate removal (--sql only)

  After all input is written, rows that repeat an earlier DATETIME are
  deleted (--keep skips this), then rows whose previous and next rows hold
  the same values in every other column (--midpoints skips this).
`

// NewInfoCommand creates the info command.
func NewInfoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Describe the template and data description formats",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			_, _ = io.WriteString(cmd.OutOrStdout(), infoText)
		},
	}
}
