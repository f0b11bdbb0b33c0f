package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	vmerrors "github.com/vango-dev/vmsync/internal/errors"
)

func errorsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "errors [code...]",
		Short: "Explain vmsync error codes",
		Long: `List the error codes vmsync reports, or explain specific ones.

Examples:
  vmsync errors
  vmsync errors E021 E061`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				listErrorCodes(os.Stdout)
				return nil
			}
			return explainErrorCodes(os.Stdout, args)
		},
	}
}

func listErrorCodes(w io.Writer) {
	for _, code := range vmerrors.GetAllCodes() {
		tmpl, _ := vmerrors.GetTemplate(code)
		fmt.Fprintf(w, "%s  %-9s  %s\n", code, tmpl.Category, tmpl.Message)
	}
}

func explainErrorCodes(w io.Writer, codes []string) error {
	for _, code := range codes {
		code = strings.ToUpper(code)
		if _, ok := vmerrors.GetTemplate(code); !ok {
			return fmt.Errorf("unknown error code %q (run 'vmsync errors' for the list)", code)
		}
		fmt.Fprint(w, vmerrors.New(code).Format())
	}
	return nil
}
