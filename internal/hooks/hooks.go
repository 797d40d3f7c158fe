// Package hooks provides a hook subsystem for extensibility.
//
// Executable scripts placed under <hooks_dir>/<point>/ run with alert
// metadata in the environment at lifecycle points: pre-record, post-record,
// post-acknowledge, post-retract, and cleanup. A failing pre-record hook can
// abort the write when the failure mode is "abort".
package hooks

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dosewatch/alertkit/internal/config"
)

// getHooksDir returns the hooks directory path.
func getHooksDir() string {
	// Environment variable has highest precedence
	if dir := os.Getenv("ALERTKIT_HOOKS_DIR"); dir != "" {
		return dir
	}
	if dir := config.Get("hooks_dir", ""); dir != "" {
		return dir
	}
	if configDir := os.Getenv("XDG_CONFIG_HOME"); configDir != "" {
		return filepath.Join(configDir, "alertkit", "hooks")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "alertkit", "hooks")
}

// getFailureMode returns the failure mode (abort, warn, ignore).
func getFailureMode() string {
	if mode := os.Getenv("ALERTKIT_HOOKS_FAILURE_MODE"); mode != "" {
		return mode
	}
	return config.Get("hooks_failure_mode", "warn")
}

func enabled() bool {
	if v := os.Getenv("ALERTKIT_HOOKS_ENABLED"); v != "" {
		return v == "1" || v == "true" || v == "yes" || v == "on"
	}
	return config.GetBool("hooks_enabled", true)
}

// runHook executes a hook script synchronously.
func runHook(scriptPath, scriptName string, envMap map[string]string, failureMode string) error {
	start := time.Now()
	cmd := exec.Command(scriptPath)
	cmd.Env = os.Environ()
	for k, v := range envMap {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
	}
	output, err := cmd.CombinedOutput()
	duration := time.Since(start)
	if len(output) > 0 {
		os.Stderr.Write(output)
	}
	if err != nil {
		switch failureMode {
		case "abort":
			return fmt.Errorf("hook %s failed: %v, output: %s", scriptName, err, output)
		case "warn":
			fmt.Fprintf(os.Stderr, "warning: hook %s failed: %v, output: %s\n", scriptName, err, output)
		case "ignore":
			// do nothing
		}
	} else {
		fmt.Fprintf(os.Stderr, "  Hook completed in %.2fs\n", duration.Seconds())
	}
	return nil
}

// Run executes hooks for a hook point with environment variables.
func Run(hookPoint string, envVars ...string) error {
	if !enabled() {
		return nil
	}
	hookDir := filepath.Join(getHooksDir(), hookPoint)
	files, err := os.ReadDir(hookDir)
	if err != nil {
		// Directory doesn't exist -> no hooks
		return nil
	}

	envMap := make(map[string]string)
	envMap["HOOK_POINT"] = hookPoint
	envMap["HOOK_TIMESTAMP"] = time.Now().Format(time.RFC3339)
	for _, v := range envVars {
		parts := strings.SplitN(v, "=", 2)
		if len(parts) == 2 {
			envMap[parts[0]] = parts[1]
		}
	}

	type scriptInfo struct {
		path string
		name string
	}
	scripts := []scriptInfo{}
	for _, f := range files {
		if f.IsDir() {
			continue
		}
		scriptPath := filepath.Join(hookDir, f.Name())
		info, err := os.Stat(scriptPath)
		if err != nil || info.Mode()&0111 == 0 {
			// Not executable
			continue
		}
		scripts = append(scripts, scriptInfo{path: scriptPath, name: f.Name()})
	}
	sort.Slice(scripts, func(i, j int) bool {
		return scripts[i].name < scripts[j].name
	})
	if len(scripts) == 0 {
		return nil
	}

	fmt.Fprintf(os.Stderr, "Running %s hooks (%d script(s))\n", hookPoint, len(scripts))

	failureMode := getFailureMode()
	for _, script := range scripts {
		fmt.Fprintf(os.Stderr, "  Executing hook: %s\n", script.name)
		if err := runHook(script.path, script.name, envMap, failureMode); err != nil {
			if failureMode == "abort" {
				return err
			}
			// warn or ignore: continue
		}
	}
	return nil
}
