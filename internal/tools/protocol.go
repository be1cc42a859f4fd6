package tools

// Tool names served by the envop operator MCP server.
const (
	ToolFileRead  = "file_read"
	ToolFileWrite = "file_write"
	ToolPathStat  = "path_stat"
	ToolShellExec = "shell_exec"
)

// TimeoutPrefix starts the error text of a shell_exec call that timed out.
const TimeoutPrefix = "timeout: "

// PathStat is the JSON text returned by path_stat.
type PathStat struct {
	Exists      bool `json:"exists"`
	IsDirectory bool `json:"is_directory"`
}

// ShellExecResult is the JSON text returned by shell_exec.
type ShellExecResult struct {
	ExitCode int    `json:"exit_code"`
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
}
