package explorer

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/dialog"

	"projectsearch/internal/search"
)

// ShowInExplorer opens the file location in the platform file manager
func ShowInExplorer(path string, window fyne.Window) {
	absPath, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		search.LogError("Failed to get absolute path: %v", err)
		dialog.ShowError(fmt.Errorf("Failed to get file path: %v", err), window)
		return
	}

	if _, err := os.Stat(absPath); err != nil {
		search.LogError("File no longer exists or inaccessible: %v", err)
		dialog.ShowError(fmt.Errorf("File no longer exists or inaccessible: %v", err), window)
		return
	}

	name, args := revealCommand(runtime.GOOS, absPath, os.Getenv)
	if err := exec.Command(name, args...).Run(); err != nil {
		search.LogError("Failed to open file manager: %v", err)
		dialog.ShowError(fmt.Errorf("Failed to open file manager: %v", err), window)
	}
}

// revealCommand returns the command selecting absPath in the file manager of goos
func revealCommand(goos, absPath string, getenv func(string) string) (string, []string) {
	switch goos {
	case "windows":
		cmdPath := getenv("COMSPEC")
		if cmdPath == "" {
			cmdPath = `C:\Windows\System32\cmd.exe`
		}
		winPath := strings.ReplaceAll(absPath, "/", "\\")
		return cmdPath, []string{"/c", "start", "explorer.exe", "/select,", winPath}
	case "darwin":
		return "open", []string{"-R", absPath}
	default:
		// xdg-open cannot select a file, open its directory instead
		return "xdg-open", []string{filepath.Dir(absPath)}
	}
}
