package tools

// Tool names. These are the only names an agent may call.
const (
	ToolReadFile            = "read_file"
	ToolWriteFile           = "write_file"
	ToolListFile            = "list_file"
	ToolGetCurrentDirectory = "get_current_directory"
	ToolRunCmd              = "run_cmd"
)

//nolint:gochecknoglobals // read-only tool sets
var (
	// AllTools lists every tool in canonical order.
	AllTools = []string{
		ToolReadFile,
		ToolWriteFile,
		ToolListFile,
		ToolGetCurrentDirectory,
		ToolRunCmd,
	}

	// CoderTools is the toolset of the coding agent.
	CoderTools = AllTools

	// DebuggerTools is the toolset of the review agent; it inspects but never writes.
	DebuggerTools = []string{
		ToolReadFile,
		ToolListFile,
		ToolGetCurrentDirectory,
		ToolRunCmd,
	}
)
