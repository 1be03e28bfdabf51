package cli

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/presetmd-dev/presetmd/internal/config"
	"github.com/presetmd-dev/presetmd/internal/engine"
	"github.com/presetmd-dev/presetmd/internal/fetch"
	"github.com/presetmd-dev/presetmd/internal/gitutil"
	"github.com/presetmd-dev/presetmd/internal/paths"
	"github.com/presetmd-dev/presetmd/internal/registry"
)

func resolveProjectRoot(args []string) (string, error) {
	if len(args) > 0 {
		abs, err := filepath.Abs(args[0])
		if err != nil {
			return "", fmt.Errorf("failed to resolve path %q: %w", args[0], err)
		}
		return abs, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to resolve working directory: %w", err)
	}
	return cwd, nil
}

func newEngine() (*engine.Engine, error) {
	cfgPath, err := paths.ConfigPath()
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	return engine.New(cfg, fetch.NewGitHub(http.DefaultClient), gitutil.Inspector{}), nil
}

// parseMemberFlag parses one --member value of the form
// host/owner/collection:name.
func parseMemberFlag(raw string) (registry.Member, error) {
	location, name, ok := strings.Cut(raw, ":")
	if !ok || location == "" || name == "" {
		return registry.Member{}, fmt.Errorf("invalid --member %q (want host/owner/collection:name)", raw)
	}
	return registry.Member{SourceLocation: location, Name: name}, nil
}

func printResult(res *engine.Result) {
	switch res.Op {
	case "lock":
		fmt.Printf("Pinned %d presets at %s\n", res.Members, res.Version)
	case "unlock":
		fmt.Printf("Unlocked: tracking collection head again (%d presets)\n", res.Members)
	default:
		fmt.Printf("Synced %d presets into %s\n", res.Members, res.AggregatePath)
	}
}
