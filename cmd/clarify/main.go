// Command clarify runs the clarification workflow from the terminal, as an
// HTTP API or as an MCP server.
package main

func main() {
	Execute()
}
