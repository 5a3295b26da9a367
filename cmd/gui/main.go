package main

import (
	"fmt"
	"image/color"
	"os"
	"reflect"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"projectsearch/cmd/gui/explorer"
	"projectsearch/cmd/gui/ui"
	"projectsearch/internal/config"
	"projectsearch/internal/project"
	"projectsearch/internal/search"
)

// searchTheme wraps the default theme with a softer button fill and a distinct highlight colour
type searchTheme struct {
	base fyne.Theme
}

func (t *searchTheme) Color(n fyne.ThemeColorName, v fyne.ThemeVariant) color.Color {
	switch n {
	case theme.ColorNameButton:
		r, g, b, _ := t.base.Color(n, v).RGBA()
		return color.NRGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8), A: 180}
	case theme.ColorNamePrimary:
		// match highlight and the search button
		return color.NRGBA{R: 200, G: 120, B: 30, A: 255}
	}
	return t.base.Color(n, v)
}

func (t *searchTheme) Icon(n fyne.ThemeIconName) fyne.Resource { return t.base.Icon(n) }
func (t *searchTheme) Font(s fyne.TextStyle) fyne.Resource     { return t.base.Font(s) }
func (t *searchTheme) Size(n fyne.ThemeSizeName) float32       { return t.base.Size(n) }

// controller owns the opened project and the session searching it
type controller struct {
	mu       sync.Mutex
	project  *project.Project
	base     config.Settings
	session  *search.Session
	opts     search.Options
	onStatus func(string)
}

// open loads the project at root together with its config file
func (c *controller) open(root string) (*project.Project, config.Settings, error) {
	settings := config.Defaults()
	if path, ok := config.Find(root); ok {
		f, err := config.Load(path)
		if err != nil {
			return nil, settings, fmt.Errorf("load config %s: %w", path, err)
		}
		if err := settings.Apply(f); err != nil {
			return nil, settings, fmt.Errorf("config %s: %w", path, err)
		}
	}
	proj, err := project.Open(root, settings.SourceDirs)
	if err != nil {
		return nil, settings, err
	}

	c.mu.Lock()
	old := c.session
	c.project = proj
	c.base = settings
	c.session = nil
	c.mu.Unlock()
	if old != nil {
		old.Stop()
	}
	search.LogInfo("Opened project %s (%d modules)", proj.ProjectRoot(), len(proj.Modules()))
	return proj, settings, nil
}

// sessionFor returns the current session, replacing it when the options changed
func (c *controller) sessionFor(opts search.Options) *search.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session != nil && reflect.DeepEqual(c.opts, opts) {
		return c.session
	}
	if c.session != nil {
		c.session.Stop()
	}
	c.session = search.NewSession(c.project, opts)
	c.session.OnStatus(c.onStatus)
	c.opts = opts
	return c.session
}

func (c *controller) stop() {
	c.mu.Lock()
	s := c.session
	c.mu.Unlock()
	if s != nil {
		search.LogInfo("Search stop requested by user")
		s.Stop()
	}
}

func (c *controller) current() (*project.Project, config.Settings) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.project, c.base
}

func main() {
	if err := search.InitLogger("", search.INFO); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: logging disabled: %v\n", err)
	}
	defer search.CloseLogger()

	a := app.New()
	a.Settings().SetTheme(&searchTheme{base: a.Settings().Theme()})

	w := a.NewWindow(fmt.Sprintf("Project Search v%s", search.Version))

	searchPanel := ui.CreateSearchPanel(w)
	settingsPanel := ui.CreateSettingsPanel()
	results := ui.CreateResultsList(func(path string) {
		go explorer.ShowInExplorer(path, w)
	})

	progress := widget.NewProgressBarInfinite()
	progress.Hide()
	statusLabel := widget.NewLabel("")

	searchBtn := widget.NewButton("Start Search", nil)
	searchBtn.Importance = widget.HighImportance
	searchPanel.AddSearchButton(searchBtn)

	ctl := &controller{}
	ctl.onStatus = func(status string) {
		statusLabel.SetText(status)
		if status == search.StatusSearching {
			progress.Show()
			progress.Start()
			return
		}
		progress.Stop()
		progress.Hide()
		results.Flush()
	}

	stopBtn := widget.NewButton("Stop Search", ctl.stop)
	searchPanel.AddStopButton(stopBtn)

	openProject := func(root string) {
		proj, settings, err := ctl.open(root)
		if err != nil {
			search.LogError("Failed to open project %s: %v", root, err)
			dialog.ShowError(err, w)
			return
		}
		searchPanel.SetProject(proj)
		settingsPanel.Load(settings)
		searchPanel.CaseCheck.SetChecked(settings.CaseSensitive)
		searchPanel.WordCheck.SetChecked(settings.WholeWord)
		searchPanel.RegexCheck.SetChecked(settings.Regex)
		results.SetRoot(proj.ProjectRoot())
		results.Reset()
		statusLabel.SetText("")
	}
	searchPanel.OnProjectChanged = openProject

	searchBtn.OnTapped = func() {
		proj, base := ctl.current()
		if proj == nil {
			dialog.ShowInformation("No project", "Open a project folder first", w)
			return
		}
		settings, err := settingsPanel.Apply(base)
		if err != nil {
			dialog.ShowError(err, w)
			return
		}
		cfg, err := searchPanel.Config(proj)
		if err != nil {
			dialog.ShowError(err, w)
			return
		}
		if len(cfg.FileMasks) == 0 {
			cfg.FileMasks = settings.Masks
		}
		if len(cfg.ExcludePatterns) == 0 {
			cfg.ExcludePatterns = settings.Exclude
		}
		if cfg.CurrentFile != "" {
			proj.SetOpenFiles([]string{cfg.CurrentFile})
		}

		search.LogInfo("Starting search: %q scope=%v", cfg.Query, cfg.Scope)
		sink := results.Reset()
		ctl.sessionFor(settings.Options()).Start(cfg, sink)
	}

	advanced := widget.NewAccordion(widget.NewAccordionItem("Advanced Settings", settingsPanel.GetContent()))
	advanced.Close(0)

	inputs := container.NewVBox(
		searchPanel.GetContent(),
		widget.NewSeparator(),
		advanced,
		widget.NewSeparator(),
		statusLabel,
		progress,
	)

	split := container.NewHSplit(container.NewVScroll(inputs), results.List)
	split.SetOffset(0.3)

	w.SetContent(split)
	w.Resize(fyne.NewSize(1000, 650))
	w.SetCloseIntercept(func() {
		ctl.stop()
		a.Quit()
	})

	// Batches arrive on the search goroutine; the list is repainted at most every 100ms
	go func() {
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for range ticker.C {
			results.Flush()
		}
	}()

	root := "."
	if len(os.Args) > 1 {
		root = os.Args[1]
	}
	if _, err := os.Stat(root); err == nil {
		openProject(root)
	}

	w.ShowAndRun()
}
