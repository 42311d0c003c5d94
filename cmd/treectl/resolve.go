package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"treeservice/application/commands"
	"treeservice/application/queries"
	"treeservice/domain/core/entities"
	"treeservice/domain/core/valueobjects"
	"treeservice/domain/expression"
	"treeservice/domain/resolution"
)

// treeDocument is a self-contained tree: its nodes, its root and
// optionally the configuration to resolve against.
type treeDocument struct {
	RootNodeID string                   `json:"rootNodeId"`
	Nodes      []commands.NodeInput     `json:"nodes"`
	Config     *valueobjects.Attributes `json:"config,omitempty"`
}

type resolveOutput struct {
	RootNodeID string             `json:"rootNodeId"`
	Mode       resolution.Mode    `json:"mode"`
	Nodes      []queries.NodeView `json:"nodes"`
}

func newResolveCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "resolve [tree.json]",
		Short: "Resolve a tree document and print every reachable node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read tree: %w", err)
			}
			var doc treeDocument
			if err := codec.Unmarshal(raw, &doc); err != nil {
				return fmt.Errorf("parse tree %s: %w", args[0], err)
			}

			evalCtx := expression.Unbound()
			if doc.Config != nil {
				evalCtx = expression.Bound(*doc.Config)
			}
			// A config file on the command line wins over the embedded one.
			if attrs, ok, err := readAttributes(configPath); err != nil {
				return err
			} else if ok {
				evalCtx = expression.Bound(attrs)
			}

			loader := make(resolution.MapLoader, len(doc.Nodes))
			for i, in := range doc.Nodes {
				n, err := entities.NewNode(in.ID, in.Title, in.Description, in.ModelAttributes, in.ConditionAttribute, in.Children)
				if err != nil {
					return fmt.Errorf("nodes[%d]: %w", i, err)
				}
				loader[n.ID()] = n
			}

			res, err := resolution.Resolve(cmd.Context(), loader, doc.RootNodeID, evalCtx)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), resolveOutput{
				RootNodeID: doc.RootNodeID,
				Mode:       res.Mode(),
				Nodes:      queries.ResolvedNodeViews(res),
			})
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "JSON file of configuration attributes")
	return cmd
}
