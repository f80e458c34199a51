package cli

import (
	"github.com/spf13/cobra"

	"github.com/custodia-labs/tinyrag/internal/adapters/driving/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Model Context Protocol integration",
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Expose retrieval and cited answers to MCP clients",
	Long: `Serve the index to AI assistants over the Model Context Protocol.

Tools:
  retrieve    knowledge context and references for a query
  ask         a cited answer from the configured chat model
  documents   indexed documents, optionally filtered by path prefix

Resources:
  tinyrag://documents          every indexed document as JSON
  tinyrag://documents/{path}   the stored chunks of one document

The server speaks JSON-RPC over stdio unless --addr is given, in which case
it serves the streamable HTTP transport on that address.

Assistant configuration:
  {
    "mcpServers": {
      "tinyrag": {"command": "/path/to/tinyrag", "args": ["mcp", "serve"]}
    }
  }`,
	Example: `  tinyrag mcp serve
  tinyrag mcp serve --addr localhost:8181`,
	Args: cobra.NoArgs,
	RunE: runMCPServe,

	Annotations: longRunning,
}

func init() {
	mcpServeCmd.Flags().String("addr", "", "serve HTTP on this address instead of stdio")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	addr, _ := cmd.Flags().GetString("addr")

	svc, err := openServices(cmd.Context())
	if err != nil {
		return err
	}
	defer closeServices(svc)

	server, err := mcp.NewServer(&mcp.Ports{
		Retrieval: svc.Retrieval,
		Chat:      svc.Chat,
		Document:  svc.Documents,
	})
	if err != nil {
		return err
	}

	if addr == "" {
		return server.Run(cmd.Context())
	}
	cmd.PrintErrf("MCP server listening on http://%s\n", addr)
	return server.RunHTTP(cmd.Context(), addr)
}
