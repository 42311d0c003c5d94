// Command treectl evaluates conditions and resolves tree documents offline,
// using the same engine as the service.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"

	"treeservice/domain/core/valueobjects"
)

var codec = sonic.ConfigStd

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "treectl",
		Short:         "Evaluate conditions and resolve decision trees locally",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newEvalCmd(), newResolveCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// readAttributes loads a JSON object of attribute values. An empty path
// means no configuration.
func readAttributes(path string) (valueobjects.Attributes, bool, error) {
	if path == "" {
		return nil, false, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, false, fmt.Errorf("read config: %w", err)
	}
	var attrs valueobjects.Attributes
	if err := codec.Unmarshal(raw, &attrs); err != nil {
		return nil, false, fmt.Errorf("parse config %s: %w", path, err)
	}
	return attrs, true, nil
}

func writeJSON(w io.Writer, v interface{}) error {
	out, err := codec.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}
