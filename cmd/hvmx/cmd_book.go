package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/scoobiii/HVMx/internal/bookio"
)

// bookCmd groups book file operations.
var bookCmd = &cobra.Command{
	Use:   "book",
	Short: "Inspect and create book files",
}

var bookShowCmd = &cobra.Command{
	Use:   "show",
	Short: "List the definitions in the book",
	RunE: func(cmd *cobra.Command, args []string) error {
		bk, err := loadBook()
		if err != nil {
			return err
		}
		for _, name := range bk.Names() {
			def, ok := bk.Get(name)
			if !ok {
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%-16s arity=%d slots=%d root=%s\n",
				name, def.Arity, len(def.Slots), bookio.FormatPort(bk, def.Root))
		}
		return nil
	},
}

var bookInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write the built-in demo book to a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := bookio.Save(demoBook(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote demo book to %s\n", args[0])
		return nil
	},
}

func init() {
	bookCmd.AddCommand(bookShowCmd)
	bookCmd.AddCommand(bookInitCmd)
}
