package exitcodes

// Exit codes for the dirsweep binaries
// These codes form the operational contract with cron jobs and operators
const (
	Success         = 0 // Successful execution
	InvalidConfig   = 2 // Configuration file or flags invalid
	SafetyViolation = 3 // Safety validator blocked an operation
	RuntimeError    = 4 // Runtime error during execution
)
