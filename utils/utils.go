package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Commands understood by the CLI
var commands = []string{"cull", "init-config"}

// ParseArguments converts command-line arguments into a map of flags and values
func ParseArguments() map[string]string {
	return ParseArgs(os.Args[1:])
}

// ParseArgs converts argv (without the program name) into a map of flags and
// values. The first known command is stored under "command" and the first
// bare argument under "folder".
func ParseArgs(argv []string) map[string]string {
	args := make(map[string]string)

	// First, identify the command
	commandIndex := -1
	for i, arg := range argv {
		if isCommand(arg) {
			args["command"] = arg
			commandIndex = i
			break
		}
	}

	// Process all arguments, skipping the command
	for i := 0; i < len(argv); i++ {
		if i == commandIndex {
			continue
		}

		arg := argv[i]

		// Handle flags with equals sign (--key=value)
		if strings.HasPrefix(arg, "--") && strings.Contains(arg, "=") {
			parts := strings.SplitN(arg, "=", 2)
			flagName := strings.TrimPrefix(parts[0], "--")
			args[flagName] = parts[1]
			continue
		}

		// Handle flags without equals sign (--key value)
		if strings.HasPrefix(arg, "--") {
			flagName := strings.TrimPrefix(arg, "--")

			// Check if this is a boolean flag (no value)
			if i+1 >= len(argv) || strings.HasPrefix(argv[i+1], "--") || i+1 == commandIndex || isBoolFlag(flagName) ||
				(flagName == "audit-db" && !isDatabasePath(argv[i+1])) {
				args[flagName] = "true"
			} else {
				args[flagName] = argv[i+1]
				i++
			}
			continue
		}

		if arg == "-v" {
			args["verbose"] = "true"
			continue
		}

		// A bare argument names the folder
		if _, ok := args["folder"]; !ok {
			args["folder"] = arg
		}
	}

	return args
}

func isCommand(arg string) bool {
	for _, c := range commands {
		if arg == c {
			return true
		}
	}
	return false
}

// Flags that never take a value
func isBoolFlag(name string) bool {
	switch name {
	case "dry-run", "verbose", "debug", "ai", "ai-cull", "no-faces", "help":
		return true
	}
	return false
}

// isDatabasePath reports whether a bare --audit-db should take arg as its
// value; anything else is left for the folder
func isDatabasePath(arg string) bool {
	switch strings.ToLower(filepath.Ext(arg)) {
	case ".db", ".sqlite", ".sqlite3":
		return true
	}
	return false
}

// IsSet reports whether a boolean flag was given and not set to false
func IsSet(args map[string]string, name string) bool {
	v, ok := args[name]
	if !ok {
		return false
	}
	b, err := strconv.ParseBool(v)
	return err != nil || b
}

// GetDefaultDatabasePath returns the default path for the audit database file
func GetDefaultDatabasePath() string {
	exePath, err := os.Executable()
	if err != nil {
		return "photocull.db"
	}

	return filepath.Join(filepath.Dir(exePath), "photocull.db")
}

// PrintUsage outputs the command-line usage instructions
func PrintUsage() {
	fmt.Printf("Usage:\n")
	fmt.Printf("  %s cull --folder=PATH [--dry-run] [--verbose] [--ai] [--ollama-model=NAME] [--ollama-url=URL]\n", os.Args[0])
	fmt.Printf("       [--config=PATH] [--workers=N] [--threshold=BITS] [--gap=SECONDS] [--no-faces] [--logfile=PATH] [--audit-db[=PATH]]\n")
	fmt.Printf("  %s init-config [--config=PATH]\n", os.Args[0])
	fmt.Printf("\nParameters:\n")
	fmt.Printf("  --folder       : Folder with .jpg/.jpeg/.raf photos (not recursive)\n")
	fmt.Printf("  --dry-run      : Rate photos but do not write XMP sidecars\n")
	fmt.Printf("  --verbose      : Print per-photo measurements and verdicts\n")
	fmt.Printf("  --ai           : Score with an Ollama vision model instead of local analysis\n")
	fmt.Printf("  --ollama-model : Vision model name (default: llava)\n")
	fmt.Printf("  --ollama-url   : Ollama API URL (default: http://localhost:11434)\n")
	fmt.Printf("  --config       : YAML config file (default: ./photocull.yaml, ~/.photocull/config.yaml)\n")
	fmt.Printf("  --workers      : Parallel analysis workers (default: 3/4 of CPUs)\n")
	fmt.Printf("  --threshold    : Duplicate Hamming distance threshold in bits (0-64, default: 10)\n")
	fmt.Printf("  --gap          : Maximum seconds between shots of one series (default: 3.0)\n")
	fmt.Printf("  --no-faces     : Skip face and eye analysis\n")
	fmt.Printf("  --logfile      : Also write the log to this file\n")
	fmt.Printf("  --audit-db     : Export verdicts to SQLite (default: %s)\n", GetDefaultDatabasePath())
	fmt.Printf("                   a value without '=' must end in .db, .sqlite or .sqlite3\n")
	fmt.Printf("\nExamples:\n")
	fmt.Printf("  %s cull --folder=/photos/2024-06-01 --dry-run --verbose\n", os.Args[0])
	fmt.Printf("  %s cull /photos/2024-06-01 --ai --ollama-model=llava:13b\n", os.Args[0])
}

// ParseThreshold parses and validates a Hamming distance threshold
func ParseThreshold(thresholdStr string) (int, error) {
	parsed, err := strconv.Atoi(thresholdStr)
	if err != nil || parsed < 0 || parsed > 64 {
		return 0, fmt.Errorf("invalid threshold value '%s', must be 0-64", thresholdStr)
	}
	return parsed, nil
}

// ParseWorkers parses and validates a worker count
func ParseWorkers(workersStr string) (int, error) {
	parsed, err := strconv.Atoi(workersStr)
	if err != nil || parsed < 1 {
		return 0, fmt.Errorf("invalid workers value '%s', must be a positive integer", workersStr)
	}
	return parsed, nil
}

// ParseGap parses and validates a series gap in seconds
func ParseGap(gapStr string) (float64, error) {
	parsed, err := strconv.ParseFloat(gapStr, 64)
	if err != nil || parsed < 0 {
		return 0, fmt.Errorf("invalid gap value '%s', must be non-negative seconds", gapStr)
	}
	return parsed, nil
}
