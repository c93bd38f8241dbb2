package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"slices"

	"slidewake/internal/cache"
	"slidewake/internal/core/guard"
	"slidewake/internal/core/media"
	"slidewake/internal/core/rotator"
	"slidewake/internal/library"
	"slidewake/internal/loader"
	"slidewake/internal/logging"
	"slidewake/internal/platform"
	"slidewake/internal/status"
	"slidewake/internal/storage"
	"slidewake/internal/ui/animation"
	"slidewake/internal/ui/keepalive"
	"slidewake/internal/ui/setup"
	"slidewake/internal/ui/slideshow"
	"slidewake/internal/ui/tray"
	"slidewake/resources"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/driver/desktop"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// session holds every component of one running slideshow. Fields other than
// the components themselves are touched only on the UI goroutine.
type session struct {
	ctx          context.Context
	log          zerolog.Logger
	group        *errgroup.Group
	settings     setup.Settings
	settingsPath string

	fyneApp   fyne.App
	rotator   *rotator.Rotator
	guard     *guard.Guard
	keepAlive *keepalive.Element
	show      *slideshow.Window
	setup     *setup.Window
	tray      *tray.Manager
	autostart platform.Service

	watchCancel context.CancelFunc
}

func runSlideshow(ctx context.Context, settings setup.Settings, settingsPath string) error {
	log := logging.FromContext(ctx)

	instance, err := platform.AcquireSingleInstance(appName)
	if errors.Is(err, platform.ErrAlreadyRunning) {
		log.Info().Msg("already running, brought the existing slideshow forward")
		return nil
	}
	if err != nil {
		return fmt.Errorf("single instance: %w", err)
	}
	defer func() {
		_ = instance.Release()
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	group, groupCtx := errgroup.WithContext(ctx)

	store, db := openCacheOrNetwork(ctx, settings)
	if db != nil {
		defer db.Close()
	}
	client := &http.Client{Transport: cache.NewTransport(store)}
	if remote := settings.CacheConfig("").Media; store != nil && len(remote) > 0 {
		group.Go(func() error {
			prefetch(groupCtx, store, remote)
			return nil
		})
	}

	mediaLoader := loader.New(ctx, loader.Options{Client: client})
	defer func() {
		if err := mediaLoader.Close(); err != nil {
			log.Warn().Err(err).Msg("remove spilled media")
		}
	}()

	fyneApp := app.NewWithID(appID)
	icon := resources.MustLogo(resources.LogoFile)
	fyneApp.SetIcon(icon)

	presentation := settings.PresentationConfig()
	engine := animation.New(animation.DefaultConfig(), nil)

	guardConfig := settings.GuardConfig()
	keepAlive := keepalive.New(ctx, engine)
	awake := guard.New(ctx, platform.NewScreenLock(ctx, appName, guardConfig.Reason), keepAlive, guard.Options{
		Interval: guardConfig.WatchdogInterval,
	})
	slides := rotator.New(ctx, rotator.PolicyFromConfig(settings.RotatorConfig()), rotator.Options{})

	current := &session{
		ctx:          ctx,
		log:          log.With().Str("component", "app").Logger(),
		group:        group,
		settings:     settings,
		settingsPath: settingsPath,
		fyneApp:      fyneApp,
		rotator:      slides,
		guard:        awake,
		keepAlive:    keepAlive,
		autostart:    platform.NewService(),
	}
	current.show = slideshow.New(ctx, fyneApp, slideshow.Options{
		Config:        presentation,
		Loader:        mediaLoader,
		Engine:        engine,
		KeepAlive:     keepAlive.Object(),
		OnInteraction: awake.Interaction,
	})
	current.setup = setup.New(fyneApp, settings, current.applySettings)

	renderEvents := slides.Subscribe(16)
	statusEvents := slides.Subscribe(4)
	group.Go(func() error {
		return current.show.Run(groupCtx, renderEvents)
	})

	if desktopApp, ok := fyneApp.(desktop.App); ok {
		desktopApp.SetSystemTrayIcon(icon)
		current.tray = tray.New(desktopApp, current.trayCallbacks())
		current.tray.SetKeepAwake(settings.KeepAwake)
		if enabled, err := current.autostart.AutostartEnabled(appName); err == nil {
			current.tray.SetAutostart(enabled)
		}
		group.Go(func() error {
			current.followStatus(groupCtx, statusEvents)
			return nil
		})
	} else {
		log.Debug().Msg("system tray unsupported on this platform")
	}

	activity := platform.NewActivityWatcher(ctx, platform.NewIdleProvider(), awake.Interaction, platform.ActivityOptions{})
	group.Go(func() error {
		return activity.Run(groupCtx)
	})
	group.Go(func() error {
		err := instance.Serve(groupCtx, func() {
			fyne.Do(current.show.Show)
		})
		if err != nil {
			log.Warn().Err(err).Msg("single instance listener stopped")
		}
		return nil
	})

	if settings.StatusAddr != "" {
		server := status.NewServer(ctx, settings.StatusAddr, slides, awake, status.Options{
			Version:         version,
			CacheGeneration: settings.CacheGeneration,
		})
		if err := server.Start(ctx); err != nil {
			log.Warn().Err(err).Msg("status API disabled")
		} else {
			defer func() {
				_ = server.Stop()
			}()
		}
	}

	lifecycle := fyneApp.Lifecycle()
	lifecycle.SetOnStarted(func() {
		keepAlive.Attach()
		current.applyGuard()
	})
	lifecycle.SetOnEnteredForeground(awake.Visible)

	stopped := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			fyne.Do(fyneApp.Quit)
		case <-stopped:
		}
	}()

	current.mount()
	current.show.Show()
	if len(settings.Media) == 0 && settings.MediaDir == "" {
		current.setup.Show()
	}

	log.Info().Str("version", version).Str("settings", settingsPath).Msg("slideshow started")
	fyneApp.Run()
	close(stopped)

	cancel()
	awake.Close()
	engine.StopAll()
	slides.Close()
	current.show.Close()
	if err := group.Wait(); err != nil {
		log.Warn().Err(err).Msg("background task failed")
	}
	log.Info().Msg("slideshow stopped")
	return nil
}

// mount builds the playlist from settings and hands it to the rotator.
// A media folder is watched and remounted on every change.
func (current *session) mount() {
	if current.watchCancel != nil {
		current.watchCancel()
		current.watchCancel = nil
	}

	title := current.settings.Title
	extras := current.settings.Media
	if current.settings.MediaDir == "" {
		current.rotator.Mount(media.NewPlaylist(title, extras...))
		return
	}

	watchCtx, cancel := context.WithCancel(current.ctx)
	mountFolder := folderMounter(watchCtx, title, extras, current.rotator.Mount)
	onChange := func(folder *media.Playlist) {
		// Checked on the UI goroutine, where watchCancel runs.
		fyne.Do(func() { mountFolder(folder) })
	}
	watcher := library.NewWatcher(current.ctx, current.settings.MediaDir, title, onChange, library.WatcherOptions{})

	folder, err := watcher.Load()
	if err != nil {
		cancel()
		current.log.Error().Err(err).Str("dir", current.settings.MediaDir).Msg("media folder unreadable")
	}
	current.rotator.Mount(media.NewPlaylist(title, slices.Concat(folder.Entries(), extras)...))
	if err != nil {
		return
	}

	current.watchCancel = cancel
	current.group.Go(func() error {
		if err := watcher.Run(watchCtx); err != nil {
			current.log.Warn().Err(err).Msg("media folder watch stopped")
		}
		return nil
	})
}

// folderMounter appends extras to every rescanned folder and mounts the
// result. Rescans that finish after ctx is cancelled are dropped so a folder
// that is no longer selected cannot replace the current playlist.
func folderMounter(ctx context.Context, title string, extras []string, mount func(*media.Playlist)) func(*media.Playlist) {
	return func(folder *media.Playlist) {
		if ctx.Err() != nil {
			return
		}
		mount(media.NewPlaylist(title, slices.Concat(folder.Entries(), extras)...))
	}
}

// applySettings takes a setup window submission.
func (current *session) applySettings(updated setup.Settings) {
	current.settings = updated
	if err := storage.SaveSettings(current.settingsPath, updated); err != nil {
		current.log.Error().Err(err).Msg("save settings")
	}

	current.rotator.SetPolicy(rotator.PolicyFromConfig(updated.RotatorConfig()))
	current.applyGuard()
	if current.tray != nil {
		current.tray.SetKeepAwake(updated.KeepAwake)
	}
	current.mount()
	current.show.Show()
	current.show.SetFullScreen(updated.Fullscreen)
}

func (current *session) applyGuard() {
	enabled := current.settings.GuardConfig().Enabled
	current.guard.SetActive(current.ctx, enabled)
	if !enabled {
		current.keepAlive.Stop()
	}
}

func (current *session) trayCallbacks() tray.Callbacks {
	return tray.Callbacks{
		OnShow:  current.show.Show,
		OnSetup: current.setup.Show,
		OnToggleFullscreen: func() {
			current.show.SetFullScreen(!current.show.Window().FullScreen())
		},
		OnToggleKeepAwake: func(enabled bool) {
			current.settings.KeepAwake = enabled
			current.applyGuard()
			if err := storage.SaveSettings(current.settingsPath, current.settings); err != nil {
				current.log.Error().Err(err).Msg("save settings")
			}
		},
		OnToggleAutostart: func(enabled bool) {
			if err := current.setAutostart(enabled); err != nil {
				current.log.Error().Err(err).Msg("update autostart")
				current.tray.SetAutostart(!enabled)
			}
		},
		OnQuit: current.fyneApp.Quit,
	}
}

func (current *session) setAutostart(enabled bool) error {
	if !enabled {
		return current.autostart.DisableAutostart(appName)
	}
	execPath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve executable: %w", err)
	}
	return current.autostart.EnableAutostart(appName, execPath, autostartArgs(current.settingsPath))
}

// followStatus mirrors rotator progress into the tray label.
func (current *session) followStatus(ctx context.Context, events <-chan rotator.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-events:
			if !ok {
				return
			}
			label := tray.Describe(current.rotator.Snapshot())
			fyne.Do(func() {
				current.tray.SetStatus(label)
			})
		}
	}
}

// openCacheOrNetwork opens the offline cache. Failure leaves the slideshow
// on the network alone.
func openCacheOrNetwork(ctx context.Context, settings setup.Settings) (*cache.Store, *sql.DB) {
	store, db, err := openCache(ctx, settings)
	if err != nil {
		logging.FromContext(ctx).Warn().Err(err).Msg("offline cache unavailable, using network only")
		return nil, nil
	}
	return store, db
}

// prefetch fills the current generation and drops older ones.
func prefetch(ctx context.Context, store *cache.Store, remote []string) {
	log := logging.FromContext(ctx)
	report, err := store.Install(ctx, nil, remote)
	if err != nil {
		log.Warn().Err(err).Msg("cache install interrupted")
		return
	}
	if _, err := store.Activate(ctx); err != nil {
		log.Warn().Err(err).Msg("cache activation failed")
		return
	}
	log.Info().Int("stored", report.Stored).Int("failed", report.Failed).Msg("offline cache ready")
}

// autostartArgs pins the login launch to the settings file in use.
func autostartArgs(settingsPath string) []string {
	if settingsPath == "" {
		return nil
	}
	return []string{"--config", settingsPath}
}
