package setup

import (
	"strconv"
	"strings"
	"time"

	"slidewake/internal/core/model"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/widget"
)

const (
	policyFirstSlideLabel = "Longer first slide"
	policyUniformLabel    = "Same for every slide"

	maxDwellSeconds = 3600
)

// Window handles the slideshow setup UI.
type Window struct {
	window     fyne.Window
	settings   Settings
	onSave     func(Settings)
	onCancel   func()
	title      *widget.Entry
	folder     *widget.Label
	urls       *widget.Entry
	policy     *widget.Select
	firstDwell *widget.Entry
	dwell      *widget.Entry
	keepAwake  *widget.Check
	fullscreen *widget.Check
	saveButton *widget.Button
	mediaDir   string
}

// New creates a setup window. onSave runs when the user starts the show.
func New(app fyne.App, settings Settings, onSave func(Settings)) *Window {
	window := app.NewWindow("Slidewake Setup")
	window.SetCloseIntercept(window.Hide)

	setup := &Window{
		window:     window,
		settings:   settings,
		onSave:     onSave,
		title:      widget.NewEntry(),
		folder:     widget.NewLabel(""),
		urls:       widget.NewMultiLineEntry(),
		firstDwell: widget.NewEntry(),
		dwell:      widget.NewEntry(),
		keepAwake:  widget.NewCheck("Keep the screen awake", nil),
		fullscreen: widget.NewCheck("Start fullscreen", nil),
	}
	setup.title.SetPlaceHolder("Shown at the bottom of every slide")
	setup.urls.SetPlaceHolder("https://example.com/slide.jpg\none media URL per line")
	setup.urls.SetMinRowsVisible(3)
	setup.policy = widget.NewSelect([]string{policyFirstSlideLabel, policyUniformLabel}, setup.onPolicyChanged)

	chooseFolder := widget.NewButton("Choose folder…", setup.chooseFolder)

	form := container.NewVBox(
		widget.NewLabelWithStyle("Slideshow", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		widget.NewLabel("Title"),
		setup.title,
		container.NewBorder(nil, nil, widget.NewLabel("Media folder"), chooseFolder, setup.folder),
		widget.NewLabel("Extra media"),
		setup.urls,
		widget.NewLabelWithStyle("Timing", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		setup.policy,
		container.NewHBox(widget.NewLabel("First slide"), setup.firstDwell, widget.NewLabel("sec")),
		container.NewHBox(widget.NewLabel("Other slides"), setup.dwell, widget.NewLabel("sec")),
		widget.NewLabelWithStyle("Display", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		setup.keepAwake,
		setup.fullscreen,
	)

	setup.saveButton = widget.NewButton("Start slideshow", setup.handleSave)
	setup.saveButton.Importance = widget.HighImportance
	cancelButton := widget.NewButton("Cancel", func() {
		window.Hide()
		if setup.onCancel != nil {
			setup.onCancel()
		}
	})
	buttons := container.NewHBox(cancelButton, layout.NewSpacer(), setup.saveButton)

	window.SetContent(container.NewBorder(nil, buttons, nil, nil, form))
	window.Resize(fyne.NewSize(480, 560))

	setup.UpdateSettings(settings)
	return setup
}

// Show displays the setup window.
func (setup *Window) Show() {
	setup.window.Show()
	setup.window.RequestFocus()
}

// SetOnCancel registers a callback for the Cancel button.
func (setup *Window) SetOnCancel(onCancel func()) {
	setup.onCancel = onCancel
}

// UpdateSettings replaces window values.
func (setup *Window) UpdateSettings(settings Settings) {
	setup.settings = settings
	setup.mediaDir = settings.MediaDir
	setup.title.SetText(settings.Title)
	setup.folder.SetText(folderLabel(settings.MediaDir))
	setup.urls.SetText(strings.Join(settings.Media, "\n"))
	setup.firstDwell.SetText(strconv.Itoa(int(settings.FirstDwell / time.Second)))
	setup.dwell.SetText(strconv.Itoa(int(settings.Dwell / time.Second)))
	if settings.DwellPolicy == model.DwellUniform {
		setup.policy.SetSelected(policyUniformLabel)
	} else {
		setup.policy.SetSelected(policyFirstSlideLabel)
	}
	setup.keepAwake.SetChecked(settings.KeepAwake)
	setup.fullscreen.SetChecked(settings.Fullscreen)
}

func (setup *Window) chooseFolder() {
	dialog.ShowFolderOpen(func(uri fyne.ListableURI, err error) {
		if err != nil {
			dialog.ShowError(err, setup.window)
			return
		}
		if uri == nil {
			return
		}
		setup.mediaDir = uri.Path()
		setup.folder.SetText(folderLabel(setup.mediaDir))
	}, setup.window)
}

func (setup *Window) onPolicyChanged(label string) {
	if label == policyUniformLabel {
		setup.firstDwell.Disable()
		return
	}
	setup.firstDwell.Enable()
}

func (setup *Window) handleSave() {
	settings := setup.settings

	settings.Title = strings.TrimSpace(setup.title.Text)
	settings.MediaDir = setup.mediaDir
	settings.Media = splitLines(setup.urls.Text)

	settings.DwellPolicy = model.DwellFirstSlide
	if setup.policy.Selected == policyUniformLabel {
		settings.DwellPolicy = model.DwellUniform
	}
	if seconds, ok := parseSeconds(setup.firstDwell.Text); ok {
		settings.FirstDwell = time.Duration(seconds) * time.Second
	}
	if seconds, ok := parseSeconds(setup.dwell.Text); ok {
		settings.Dwell = time.Duration(seconds) * time.Second
	}

	settings.KeepAwake = setup.keepAwake.Checked
	settings.Fullscreen = setup.fullscreen.Checked

	setup.settings = settings
	if setup.onSave != nil {
		setup.onSave(settings)
	}
	setup.window.Hide()
}

func folderLabel(dir string) string {
	if dir == "" {
		return "(none)"
	}
	return dir
}

func splitLines(text string) []string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	return lines
}

func parseSeconds(value string) (int, bool) {
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || parsed <= 0 || parsed > maxDwellSeconds {
		return 0, false
	}
	return parsed, true
}
