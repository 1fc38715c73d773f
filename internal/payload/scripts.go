package payload

import (
	"embed"
	"fmt"
	"os"
	"path"
	"path/filepath"
)

//go:embed scripts/*.js
var scripts embed.FS

// Built-in device scripts.
const (
	BootstrapScript = "setlogserver.js"
	LoaderScript    = "loader.js"
)

// Files the loader fetches from the log server's /probe/ route.
const (
	ProbeModule  = "ghostprobe.wasm"
	ProbeRuntime = "wasm_exec.js"
)

// Script returns a built-in script.
func Script(name string) ([]byte, error) {
	data, err := scripts.ReadFile(path.Join("scripts", name))
	if err != nil {
		return nil, fmt.Errorf("no built-in script %q: %w", name, err)
	}
	return data, nil
}

// Load reads the script at file, or the built-in script when file is empty.
func Load(file, builtin string) ([]byte, error) {
	if file == "" {
		return Script(builtin)
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read payload: %w", err)
	}
	return data, nil
}

// CheckProbeDir reports whether dir holds the js/wasm build the loader needs.
func CheckProbeDir(dir string) error {
	for _, name := range []string{ProbeModule, ProbeRuntime} {
		p := filepath.Join(dir, name)
		info, err := os.Stat(p)
		if err != nil {
			return fmt.Errorf("probe build missing %s (run make wasm): %w", p, err)
		}
		if info.IsDir() || info.Size() == 0 {
			return fmt.Errorf("probe build file %s is empty", p)
		}
	}
	return nil
}
