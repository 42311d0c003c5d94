package main

import (
	"github.com/spf13/cobra"

	"treeservice/domain/expression"
)

type evalOutput struct {
	Expression string   `json:"expression"`
	Bound      bool     `json:"bound"`
	Resolved   bool     `json:"resolved"`
	Value      bool     `json:"value"`
	Keys       []string `json:"keys,omitempty"`
	Error      string   `json:"error,omitempty"`
}

func newEvalCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "eval [condition]",
		Short: "Evaluate one condition against an attribute file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			attrs, bound, err := readAttributes(configPath)
			if err != nil {
				return err
			}
			evalCtx := expression.Unbound()
			if bound {
				evalCtx = expression.Bound(attrs)
			}

			text := args[0]
			res := expression.Evaluate(text, evalCtx)
			out := evalOutput{
				Expression: text,
				Bound:      bound,
				Resolved:   res.IsResolved(),
				Value:      res.Value(),
			}
			if parsed, err := expression.Parse(text); err == nil {
				out.Keys = parsed.Keys()
			}
			if res.Err() != nil {
				out.Error = res.Err().Error()
			}
			return writeJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "JSON file of configuration attributes")
	return cmd
}
