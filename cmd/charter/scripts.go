package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/firstpersontravel/charter-sub005/core"
)

// ReadScript parses a JSON or YAML script, by extension.
func ReadScript(filename string) (*core.ScriptContent, error) {
	bs, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		return core.ParseScriptYAML(bs)
	case ".json":
		return core.ParseScript(bs)
	}
	return nil, fmt.Errorf("%s: expected .json, .yaml or .yml", filename)
}

// ScriptName is the file name without its extension.
func ScriptName(filename string) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// ReadScripts parses every script in the directory.
func ReadScripts(dir string) (map[string]*core.ScriptContent, error) {
	var files []string
	for _, pat := range []string{"*.json", "*.yaml", "*.yml"} {
		fs, err := filepath.Glob(filepath.Join(dir, pat))
		if err != nil {
			return nil, err
		}
		files = append(files, fs...)
	}
	sort.Strings(files)

	acc := make(map[string]*core.ScriptContent, len(files))
	for _, filename := range files {
		c, err := ReadScript(filename)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filename, err)
		}
		name := ScriptName(filename)
		if _, have := acc[name]; have {
			return nil, fmt.Errorf("%s: duplicate script name %q", filename, name)
		}
		acc[name] = c
	}
	return acc, nil
}
