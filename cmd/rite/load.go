package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/chazu/rite/catalog"
	"github.com/chazu/rite/loader"
	"github.com/chazu/rite/vm"
)

func newLoadCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "load <file>...",
		Short: "Load each image into its own runtime and resolve its symbols",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store := catalog.NewImageStore()
			symbols := vm.NewSymbolTable()
			out := cmd.OutOrStdout()

			for _, path := range args {
				data, err := os.ReadFile(path)
				if err != nil {
					return err
				}
				_, image := store.Put(data)

				opts, _ := root.config.LoaderOptions()
				v := vm.NewWithSymbols(symbols)
				if err := v.LoadImage(image, opts...); err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}

				refs, err := resolveAll(v)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				fmt.Fprintf(out, "%s: records=%d symbols=%d\n", path, v.Program().Count(), refs)
				v.Teardown()
			}
			fmt.Fprintf(out, "images=%d distinct=%d interned=%d\n", len(args), store.Len(), symbols.Len())
			return nil
		},
	}
}

// resolveAll interns every symbol of every record in the program and
// returns how many references it resolved.
func resolveAll(v *vm.VM) (int, error) {
	var (
		refs int
		err  error
	)
	v.Program().Walk(func(r *loader.Irep, _ int) {
		for i := 0; i < r.Symbols.Len() && err == nil; i++ {
			_, err = v.Symbol(r, i)
			refs++
		}
	})
	return refs, err
}
