package ui

import (
	"fmt"
	"strconv"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"projectsearch/internal/config"
	"projectsearch/internal/util"
)

// SettingsPanel contains all settings-related widgets
type SettingsPanel struct {
	BatchSizeEntry    *widget.Entry
	CrowdEntry        *widget.Entry
	PreviewEntry      *widget.Entry
	WorkersEntry      *widget.Entry
	ExcludeGlobsEntry *widget.Entry
	SourceDirsEntry   *widget.Entry
	UseMMapCheck      *widget.Check
	MinMMapSizeEntry  *widget.Entry
}

// CreateSettingsPanel creates and returns settings panel widgets
func CreateSettingsPanel() *SettingsPanel {
	panel := &SettingsPanel{
		BatchSizeEntry:    widget.NewEntry(),
		CrowdEntry:        widget.NewEntry(),
		PreviewEntry:      widget.NewEntry(),
		WorkersEntry:      widget.NewEntry(),
		ExcludeGlobsEntry: widget.NewEntry(),
		SourceDirsEntry:   widget.NewEntry(),
		UseMMapCheck:      widget.NewCheck("Use memory mapping", nil),
		MinMMapSizeEntry:  widget.NewEntry(),
	}

	panel.WorkersEntry.SetPlaceHolder("Number of CPU cores")
	panel.ExcludeGlobsEntry.SetPlaceHolder("**/generated/**, **/*.min.js")
	panel.SourceDirsEntry.SetPlaceHolder("Extra source directories")
	panel.MinMMapSizeEntry.SetPlaceHolder("1KB, 1.5MB, 2GB")

	panel.Load(config.Defaults())
	return panel
}

// Load fills the widgets from settings
func (p *SettingsPanel) Load(s config.Settings) {
	p.BatchSizeEntry.SetText(strconv.Itoa(s.BatchSize))
	p.CrowdEntry.SetText(strconv.Itoa(s.CrowdThreshold))
	p.PreviewEntry.SetText(strconv.Itoa(s.PreviewRadius))
	if s.Workers > 0 {
		p.WorkersEntry.SetText(strconv.Itoa(s.Workers))
	} else {
		p.WorkersEntry.SetText("")
	}
	p.ExcludeGlobsEntry.SetText(strings.Join(s.ExcludeGlobs, ", "))
	p.SourceDirsEntry.SetText(strings.Join(s.SourceDirs, ", "))
	p.UseMMapCheck.SetChecked(s.UseMMap)
	p.MinMMapSizeEntry.SetText(formatSize(s.MMapMinSize))
}

// Apply overlays the widget values on base and validates the result
func (p *SettingsPanel) Apply(base config.Settings) (config.Settings, error) {
	s := base
	var err error
	if s.BatchSize, err = intField(p.BatchSizeEntry.Text, "batch size", base.BatchSize); err != nil {
		return base, err
	}
	if s.CrowdThreshold, err = intField(p.CrowdEntry.Text, "crowd threshold", base.CrowdThreshold); err != nil {
		return base, err
	}
	if s.PreviewRadius, err = intField(p.PreviewEntry.Text, "preview radius", base.PreviewRadius); err != nil {
		return base, err
	}
	if s.Workers, err = intField(p.WorkersEntry.Text, "workers", 0); err != nil {
		return base, err
	}
	s.ExcludeGlobs = util.SplitCommaList(p.ExcludeGlobsEntry.Text)
	s.SourceDirs = util.SplitCommaList(p.SourceDirsEntry.Text)
	s.UseMMap = p.UseMMapCheck.Checked
	if text := strings.TrimSpace(p.MinMMapSizeEntry.Text); text != "" {
		size, err := util.ParseSize(text)
		if err != nil {
			return base, fmt.Errorf("mmap min size: %w", err)
		}
		s.MMapMinSize = size
	}
	return s, s.Validate()
}

// GetContent returns the container with all settings panel widgets
func (p *SettingsPanel) GetContent() *fyne.Container {
	return container.NewVBox(
		widget.NewLabel("Results:"),
		widget.NewLabel("Batch size:"),
		p.BatchSizeEntry,
		widget.NewLabel("Crowded after matches:"),
		p.CrowdEntry,
		widget.NewLabel("Preview radius:"),
		p.PreviewEntry,
		widget.NewSeparator(),
		widget.NewLabel("Processing:"),
		widget.NewLabel("Workers:"),
		p.WorkersEntry,
		widget.NewLabel("Exclude globs:"),
		p.ExcludeGlobsEntry,
		widget.NewLabel("Source directories:"),
		p.SourceDirsEntry,
		widget.NewSeparator(),
		widget.NewLabel("Memory Mapping:"),
		p.UseMMapCheck,
		p.MinMMapSizeEntry,
	)
}

func intField(text, name string, fallback int) (int, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(text)
	if err != nil {
		return fallback, fmt.Errorf("%s: invalid number %q", name, text)
	}
	return n, nil
}

// formatSize is the inverse of util.ParseSize for whole units
func formatSize(n int64) string {
	units := []struct {
		suffix string
		size   int64
	}{
		{"GB", 1024 * 1024 * 1024},
		{"MB", 1024 * 1024},
		{"KB", 1024},
	}
	for _, u := range units {
		if n >= u.size && n%u.size == 0 {
			return fmt.Sprintf("%d%s", n/u.size, u.suffix)
		}
	}
	return strconv.FormatInt(n, 10)
}
