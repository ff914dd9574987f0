package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var toolsJSON bool

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List registered tools",
	Long:  `List every registered tool with its parameters and batch capability.`,
	RunE:  runTools,
}

func init() {
	toolsCmd.Flags().BoolVar(&toolsJSON, "json", false, "print descriptors as JSON")
	rootCmd.AddCommand(toolsCmd)
}

func runTools(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.close()

	if toolsJSON {
		descriptors := make([]map[string]any, 0)
		for _, name := range rt.registry.Names() {
			desc, _ := rt.registry.Descriptor(name)
			params := make([]map[string]any, 0, len(desc.Parameters))
			for _, p := range desc.Parameters {
				params = append(params, map[string]any{
					"name":        p.Name,
					"type":        p.Type,
					"description": p.Description,
					"required":    p.Required,
					"default":     p.Default,
				})
			}
			descriptors = append(descriptors, map[string]any{
				"name":        desc.Name,
				"description": desc.Description,
				"batchable":   desc.Batchable,
				"parameters":  params,
			})
		}
		printJSON(descriptors)
		return nil
	}

	for _, name := range rt.registry.Names() {
		desc, _ := rt.registry.Descriptor(name)
		marker := ""
		if desc.Batchable {
			marker = " [batchable]"
		}
		fmt.Printf("%s%s - %s\n", desc.Name, marker, desc.Description)
		for _, p := range desc.Parameters {
			required := "optional"
			if p.Required {
				required = "required"
			}
			fmt.Printf("    %s (%s, %s): %s\n", p.Name, p.Type, required, p.Description)
		}
	}
	return nil
}
