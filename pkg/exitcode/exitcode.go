// Package exitcode provides standardized exit codes for apexcat
package exitcode

// Exit codes for the apexcat CLI
const (
	Success          = 0
	GeneralError     = 1
	ConfigError      = 2
	NotFound         = 3 // a required catalogue or theme document is missing
	ParseError       = 4 // a document is not a JSON object
	ConsistencyError = 5 // source tree contradicts itself (theme referenced but absent)
	FileSystemError  = 6
	NetworkError     = 7
	PolicyError      = 8
)

// String returns a human-readable description of the exit code
func String(code int) string {
	switch code {
	case Success:
		return "Success"
	case GeneralError:
		return "General error"
	case ConfigError:
		return "Configuration error"
	case NotFound:
		return "Document not found"
	case ParseError:
		return "Document parse error"
	case ConsistencyError:
		return "Catalogue consistency error"
	case FileSystemError:
		return "File system error"
	case NetworkError:
		return "Network error"
	case PolicyError:
		return "Policy evaluation error"
	default:
		return "Unknown error"
	}
}
