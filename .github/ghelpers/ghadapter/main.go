package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
)

// Runs a command that prints a JSON object and appends its top-level fields to
// $GITHUB_OUTPUT. Exit code 1 means "images differ" for compare, so the output is still
// recorded and the exit code is passed through.
func main() {
	if len(os.Args) < 2 {
		os.Exit(2)
	}

	var args []string
	if len(os.Args) > 2 {
		args = os.Args[2:]
	}

	cmd := exec.Command(os.Args[1], args...)
	cmd.Stdin = os.Stdin
	cmd.Stderr = os.Stderr

	exitCode := 0
	output, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) || exitErr.ExitCode() != 1 {
			os.Exit(2)
		}
		exitCode = 1
	}
	_, _ = os.Stdout.Write(output)

	if githubOutput := os.Getenv("GITHUB_OUTPUT"); githubOutput != "" {
		f, err := os.OpenFile(githubOutput, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			os.Exit(2)
		}
		if err := writeOutputs(f, output); err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
		_ = f.Close()
	}

	os.Exit(exitCode)
}

func writeOutputs(w io.Writer, output []byte) error {
	var result map[string]json.RawMessage
	if err := json.Unmarshal(output, &result); err != nil {
		return fmt.Errorf("failed to parse output: %w", err)
	}

	keys := make([]string, 0, len(result))
	for key := range result {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := string(result[key])
		var s string
		if err := json.Unmarshal(result[key], &s); err == nil {
			value = s
		}
		if _, err := fmt.Fprintf(w, "%s=%s\n", key, value); err != nil {
			return err
		}
	}
	return nil
}
