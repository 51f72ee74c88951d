package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MeghVyas3132/REX/internal/engine"
	"github.com/MeghVyas3132/REX/internal/nodes"
)

// NewValidateCmd создаёт команду проверки workflow без выполнения.
func NewValidateCmd(registryFn func() *nodes.Registry, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "validate FILE",
		Short: "Validate a workflow file",
		Long: `Check graph structure (unique IDs, edge endpoints, acyclicity),
node subtypes and node configuration without running anything.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()

			wf, err := engine.LoadWorkflowFile(args[0])
			if err != nil {
				return err
			}

			err = engine.ValidateWithRegistry(wf, registryFn())

			if out.IsJSON() {
				result := map[string]any{
					"valid": err == nil,
					"name":  wf.Name,
					"nodes": len(wf.Nodes),
					"edges": len(wf.Edges),
				}
				var verr *engine.ValidationError
				if errors.As(err, &verr) {
					result["error"] = verr.Error()
					result["node_id"] = verr.NodeID
					result["field"] = verr.Field
				}
				out.JSON(result)
				return err
			}

			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Workflow %q is valid (%d nodes, %d edges)", wf.Name, len(wf.Nodes), len(wf.Edges)))
			return nil
		},
	}
}

// NewNodesCmd создаёт команду вывода каталога subtype'ов.
func NewNodesCmd(registryFn func() *nodes.Registry, clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var remote bool

	cmd := &cobra.Command{
		Use:   "nodes",
		Short: "List available node subtypes",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()

			var infos []NodeInfo
			if remote {
				list, err := clientFn().ListNodes()
				if err != nil {
					return err
				}
				infos = list
			} else {
				for _, info := range registryFn().Catalog() {
					infos = append(infos, NodeInfo{
						Subtype:     info.Subtype,
						Kind:        string(info.Kind),
						Description: info.Description,
					})
				}
			}

			headers := []string{"SUBTYPE", "KIND", "DESCRIPTION"}
			rows := make([][]string, len(infos))
			for i, n := range infos {
				kind := n.Kind
				if kind == "" {
					kind = "-"
				}
				rows[i] = []string{n.Subtype, kind, n.Description}
			}

			out.Print(headers, rows, infos)
			return nil
		},
	}

	cmd.Flags().BoolVar(&remote, "remote", false, "Query the API server instead of the local registry")

	return cmd
}
