package ui

import (
	"errors"
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"projectsearch/internal/project"
	"projectsearch/internal/search"
	"projectsearch/internal/util"
)

// Scope picker labels, in the order of search.Scope
var scopeLabels = []string{"All", "Module", "File Names", "Directory", "Custom", "Current File"}

// SearchPanel contains all search-related widgets
type SearchPanel struct {
	QueryEntry       *widget.Entry
	ReplaceEntry     *widget.Entry
	MaskEntry        *widget.Entry
	ExcludeEntry     *widget.Entry
	CaseCheck        *widget.Check
	WordCheck        *widget.Check
	RegexCheck       *widget.Check
	ScopeSelect      *widget.Select
	CustomScope      *widget.Select
	ModuleSelect     *widget.Select
	TargetLabel      *widget.Label
	TargetDirectory  string
	CurrentFile      string
	ProjectLabel     *widget.Label
	OnProjectChanged func(root string)

	window      fyne.Window
	pickDirBtn  *widget.Button
	pickFileBtn *widget.Button
	openBtn     *widget.Button
	searchBtn   *widget.Button
	stopBtn     *widget.Button
}

// CreateSearchPanel creates and returns search panel widgets
func CreateSearchPanel(window fyne.Window) *SearchPanel {
	panel := &SearchPanel{
		QueryEntry:   widget.NewEntry(),
		ReplaceEntry: widget.NewEntry(),
		MaskEntry:    widget.NewEntry(),
		ExcludeEntry: widget.NewEntry(),
		CaseCheck:    widget.NewCheck("Match case", nil),
		WordCheck:    widget.NewCheck("Words", nil),
		RegexCheck:   widget.NewCheck("Regex", nil),
		CustomScope:  widget.NewSelect(search.CustomScopeLabels(), nil),
		ModuleSelect: widget.NewSelect(nil, nil),
		TargetLabel:  widget.NewLabel(""),
		ProjectLabel: widget.NewLabel("No project opened"),
		window:       window,
	}

	panel.QueryEntry.SetPlaceHolder("Text to find")
	panel.ReplaceEntry.SetPlaceHolder("Replace with (preview only)")
	panel.MaskEntry.SetPlaceHolder("File mask: *.kt, *.java")
	panel.ExcludeEntry.SetPlaceHolder("Exclude paths containing: /generated/")
	panel.TargetLabel.Wrapping = fyne.TextWrapWord
	panel.ProjectLabel.Wrapping = fyne.TextWrapWord
	panel.CustomScope.SetSelected(search.AllPlaces.Label())
	panel.ModuleSelect.PlaceHolder = "Select module"

	panel.ScopeSelect = widget.NewSelect(scopeLabels, func(string) { panel.updateScopeWidgets() })

	panel.openBtn = widget.NewButton("Open Project", func() {
		d := dialog.NewFolderOpen(func(uri fyne.ListableURI, err error) {
			if err != nil {
				search.LogError("Failed to open directory: %v", err)
				dialog.ShowError(err, window)
				return
			}
			if uri == nil {
				return
			}
			if panel.OnProjectChanged != nil {
				panel.OnProjectChanged(uri.Path())
			}
		}, window)
		d.Resize(fyne.NewSize(500, 400))
		d.Show()
	})

	panel.pickDirBtn = widget.NewButton("Choose Directory", func() {
		d := dialog.NewFolderOpen(func(uri fyne.ListableURI, err error) {
			if err != nil {
				search.LogError("Failed to open directory: %v", err)
				dialog.ShowError(err, window)
				return
			}
			if uri == nil {
				return
			}
			panel.TargetDirectory = uri.Path()
			search.LogInfo("Search directory: %s", uri.Path())
			panel.updateTargetLabel()
		}, window)
		d.Resize(fyne.NewSize(500, 400))
		d.Show()
	})

	panel.pickFileBtn = widget.NewButton("Choose File", func() {
		d := dialog.NewFileOpen(func(rc fyne.URIReadCloser, err error) {
			if err != nil {
				search.LogError("Failed to open file: %v", err)
				dialog.ShowError(err, window)
				return
			}
			if rc == nil {
				return
			}
			panel.CurrentFile = rc.URI().Path()
			rc.Close()
			panel.updateTargetLabel()
		}, window)
		d.Resize(fyne.NewSize(500, 400))
		d.Show()
	})

	panel.ScopeSelect.SetSelected(scopeLabels[search.ScopeAll])
	return panel
}

// AddSearchButton adds the search button to the panel
func (p *SearchPanel) AddSearchButton(btn *widget.Button) {
	p.searchBtn = btn
}

// AddStopButton adds the stop button to the panel
func (p *SearchPanel) AddStopButton(btn *widget.Button) {
	p.stopBtn = btn
}

// SetProject shows the project name and offers its modules
func (p *SearchPanel) SetProject(proj *project.Project) {
	p.ProjectLabel.SetText(fmt.Sprintf("Project: %s\n%s", proj.Name(), proj.ProjectRoot()))
	var labels []string
	for _, m := range proj.Modules() {
		labels = append(labels, m.Label)
	}
	p.ModuleSelect.Options = labels
	p.ModuleSelect.ClearSelected()
	p.ModuleSelect.Refresh()
}

// Scope returns the selected scope
func (p *SearchPanel) Scope() search.Scope {
	return scopeFromLabel(p.ScopeSelect.Selected)
}

// Config builds the search request from the widgets
func (p *SearchPanel) Config(proj *project.Project) (search.SearchConfig, error) {
	cfg := search.SearchConfig{
		Query:           p.QueryEntry.Text,
		Replacement:     p.ReplaceEntry.Text,
		Scope:           p.Scope(),
		FileMasks:       util.SplitCommaList(p.MaskEntry.Text),
		ExcludePatterns: util.SplitCommaList(p.ExcludeEntry.Text),
		CaseSensitive:   p.CaseCheck.Checked,
		WholeWord:       p.WordCheck.Checked,
		UseRegex:        p.RegexCheck.Checked,
		TargetDirectory: p.TargetDirectory,
		CurrentFile:     p.CurrentFile,
	}
	if cs, err := search.ParseCustomScope(p.CustomScope.Selected); err == nil {
		cfg.CustomScope = cs
	}

	switch cfg.Scope {
	case search.ScopeModule:
		if proj == nil || p.ModuleSelect.Selected == "" {
			return cfg, errors.New("select a module to search")
		}
		dir, ok := proj.ModuleDir(p.ModuleSelect.Selected)
		if !ok {
			return cfg, fmt.Errorf("unknown module: %s", p.ModuleSelect.Selected)
		}
		cfg.TargetModule = dir
	case search.ScopeDirectory:
		if cfg.TargetDirectory == "" {
			return cfg, errors.New("choose a directory to search")
		}
	case search.ScopeCurrentFile:
		if cfg.CurrentFile == "" {
			return cfg, errors.New("choose a file to search")
		}
	}
	return cfg, nil
}

// GetContent returns the container with all search panel widgets
func (p *SearchPanel) GetContent() *fyne.Container {
	return container.NewVBox(
		p.openBtn,
		p.ProjectLabel,
		widget.NewSeparator(),
		p.QueryEntry,
		p.ReplaceEntry,
		container.NewGridWithColumns(3, p.CaseCheck, p.WordCheck, p.RegexCheck),
		p.MaskEntry,
		p.ExcludeEntry,
		widget.NewLabel("Scope:"),
		p.ScopeSelect,
		p.CustomScope,
		p.ModuleSelect,
		container.NewGridWithColumns(2, p.pickDirBtn, p.pickFileBtn),
		p.TargetLabel,
		p.searchBtn,
		p.stopBtn,
	)
}

func (p *SearchPanel) updateScopeWidgets() {
	scope := p.Scope()
	show := func(o fyne.CanvasObject, visible bool) {
		if visible {
			o.Show()
		} else {
			o.Hide()
		}
	}
	show(p.CustomScope, scope == search.ScopeCustom)
	show(p.ModuleSelect, scope == search.ScopeModule)
	show(p.pickDirBtn, scope == search.ScopeDirectory)
	show(p.pickFileBtn, scope == search.ScopeCurrentFile)
	p.updateTargetLabel()
}

func (p *SearchPanel) updateTargetLabel() {
	switch p.Scope() {
	case search.ScopeDirectory:
		p.TargetLabel.SetText(targetText("Directory", p.TargetDirectory))
	case search.ScopeCurrentFile:
		p.TargetLabel.SetText(targetText("File", p.CurrentFile))
	default:
		p.TargetLabel.SetText("")
	}
}

func targetText(kind, path string) string {
	if path == "" {
		return kind + ": none selected"
	}
	return kind + ": " + path
}

func scopeFromLabel(label string) search.Scope {
	for i, l := range scopeLabels {
		if l == label {
			return search.Scope(i)
		}
	}
	return search.ScopeAll
}
