package tray

import (
	"context"
	"errors"
	"fmt"

	"github.com/Bibek004/Quick-Music/internal/app"
	"github.com/Bibek004/Quick-Music/internal/logging"
	"github.com/Bibek004/Quick-Music/internal/recognize"
	"github.com/getlantern/systray"
	"github.com/ncruces/zenity"
	"github.com/pkg/browser"
	"github.com/rs/zerolog"
)

const appName = "Quick-Music"

type UI struct {
	app     *app.App
	version string
	commit  string
	log     zerolog.Logger
	ctx     context.Context

	// Menu items
	mIdentify  *systray.MenuItem
	mLastMatch *systray.MenuItem
	mDevices   *systray.MenuItem
	mLibrary   *systray.MenuItem
	mAddSong   *systray.MenuItem
	mCopyMatch *systray.MenuItem
}

// Status update methods for the app to call
func (u *UI) SetIdle() {
	u.updateStatus("idle")
}

func (u *UI) SetListening() {
	u.updateStatus("listening")
}

func (u *UI) SetIdentifying() {
	u.updateStatus("identifying")
}

func (u *UI) SetError() {
	u.updateStatus("error")
}

func New(application *app.App, log zerolog.Logger, version, commit string) *UI {
	return &UI{
		app:     application,
		version: version,
		commit:  commit,
		log:     log,
		ctx:     context.Background(),
	}
}

// Run blocks on the tray event loop. It must be called from the main thread.
func (u *UI) Run(ctx context.Context) error {
	u.ctx = ctx
	systray.Run(u.onReady, u.onExit)
	return nil
}

func (u *UI) onReady() {
	u.updateStatus("idle")
	systray.SetTooltip("Identify the song that is playing")

	u.mIdentify = systray.AddMenuItem("Identify Song", "Listen and look up the song")
	u.mLastMatch = systray.AddMenuItem(matchTitle(nil), "Open the last match")
	u.mLastMatch.Disable()
	systray.AddSeparator()

	u.mDevices = systray.AddMenuItem("Microphone", "Select audio device")
	u.buildDeviceMenu()

	u.mLibrary = systray.AddMenuItem(libraryTitle(-1), "Refresh the song library")
	u.mAddSong = systray.AddMenuItem("Add Song from YouTube…", "Fingerprint a YouTube video")
	u.mCopyMatch = systray.AddMenuItemCheckbox("Copy Match to Clipboard", "Copy matched song names", u.app.CopyToClipboard())

	systray.AddSeparator()
	mLogs := systray.AddMenuItem("Open Logs", "View application logs")
	mAbout := systray.AddMenuItem("About", "About "+appName)
	mQuit := systray.AddMenuItem("Quit", "Exit application")

	go u.start()
	go u.refreshLibrary()

	// Event loop
	go u.handleEvents(mLogs, mAbout, mQuit)
}

func (u *UI) handleEvents(mLogs, mAbout, mQuit *systray.MenuItem) {
	for {
		select {
		case <-u.mIdentify.ClickedCh:
			go u.identify()
		case <-u.mLastMatch.ClickedCh:
			u.openLastMatch()
		case <-u.mLibrary.ClickedCh:
			go u.refreshLibrary()
		case <-u.mAddSong.ClickedCh:
			go u.addSong()
		case <-u.mCopyMatch.ClickedCh:
			u.toggleCopyMatch()
		case <-mLogs.ClickedCh:
			u.openLogs()
		case <-mAbout.ClickedCh:
			u.showAbout()
		case <-mQuit.ClickedCh:
			systray.Quit()
			return
		}
	}
}

func (u *UI) buildDeviceMenu() {
	devices, err := u.app.ListDevices()
	if err != nil {
		u.log.Error().Err(err).Msg("Failed to list audio devices")
		return
	}

	current := u.app.DeviceID()
	deviceItems := make(map[string]*systray.MenuItem)

	for _, dev := range devices {
		item := u.mDevices.AddSubMenuItem(dev.Name, "")
		if dev.ID == current || (current == "" && dev.Default) {
			item.Check()
		}
		deviceItems[dev.ID] = item

		go func(deviceID, deviceName string, menuItem *systray.MenuItem) {
			for {
				<-menuItem.ClickedCh
				if err := u.app.SetDevice(deviceID); err != nil {
					u.log.Error().Err(err).Str("device", deviceName).Msg("Failed to change audio device")
					continue
				}
				for id, itm := range deviceItems {
					if id != deviceID {
						itm.Uncheck()
					}
				}
				menuItem.Check()
				u.log.Info().Str("device", deviceName).Msg("Changed audio device (applies on restart)")
			}
		}(dev.ID, dev.Name, item)
	}
}

// start acquires the microphone. Identify stays disabled until it is held;
// a failure leaves it disabled since the error is sticky.
func (u *UI) start() {
	u.mIdentify.Disable()
	if err := u.app.Start(u.ctx); err != nil {
		u.log.Error().Err(err).Msg("Microphone unavailable")
		systray.SetTooltip(err.Error())
		return
	}
	u.mIdentify.Enable()
}

func (u *UI) identify() {
	u.mIdentify.Disable()
	defer u.mIdentify.Enable()

	res, err := u.app.Identify(u.ctx)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			u.log.Error().Err(err).Msg("Identify failed")
			systray.SetTooltip(err.Error())
		}
		return
	}

	systray.SetTooltip(resultText(res))
	if res.Matched {
		u.mLastMatch.SetTitle(matchTitle(res))
		if res.URL != "" {
			u.mLastMatch.Enable()
		}
	}
}

func (u *UI) openLastMatch() {
	res := u.app.LastMatch()
	if res == nil || res.URL == "" {
		return
	}
	if err := browser.OpenURL(res.URL); err != nil {
		u.log.Error().Err(err).Str("url", res.URL).Msg("Failed to open match")
	}
}

func (u *UI) refreshLibrary() {
	songs, err := u.app.Songs(u.ctx)
	if err != nil {
		u.log.Warn().Err(err).Msg("Failed to load song library")
		u.mLibrary.SetTitle(libraryTitle(-1))
		return
	}
	u.mLibrary.SetTitle(libraryTitle(len(songs)))
}

func (u *UI) addSong() {
	url, err := zenity.Entry("YouTube URL of the song to add:", zenity.Title(appName))
	if err != nil {
		if !errors.Is(err, zenity.ErrCanceled) {
			u.log.Error().Err(err).Msg("Failed to show add song dialog")
		}
		return
	}

	name, err := u.app.AddSong(u.ctx, url, "")
	if err != nil {
		u.log.Error().Err(err).Str("url", url).Msg("Failed to add song")
		zenity.Error(err.Error(), zenity.Title(appName))
		return
	}
	zenity.Info(fmt.Sprintf("Added %q to the library.", name), zenity.Title(appName))
	u.refreshLibrary()
}

func (u *UI) toggleCopyMatch() {
	enabled := !u.app.CopyToClipboard()
	if err := u.app.SetCopyToClipboard(enabled); err != nil {
		u.log.Error().Err(err).Msg("Failed to save config")
	}
	if enabled {
		u.mCopyMatch.Check()
		u.log.Info().Msg("Enabled copying matches to clipboard")
	} else {
		u.mCopyMatch.Uncheck()
		u.log.Info().Msg("Disabled copying matches to clipboard")
	}
}

func (u *UI) openLogs() {
	if err := browser.OpenFile(logging.Path()); err != nil {
		u.log.Error().Err(err).Msg("Failed to open log file")
	}
}

func (u *UI) showAbout() {
	text := fmt.Sprintf("%s %s (%s)\nIdentify the song that is playing", appName, u.version, u.commit)
	if err := zenity.Info(text, zenity.Title("About "+appName)); err != nil {
		u.log.Warn().Err(err).Msg("Failed to show about dialog")
	}
}

func (u *UI) onExit() {
	if err := u.app.Shutdown(context.Background()); err != nil {
		u.log.Error().Err(err).Msg("Shutdown error")
	}
}

// updateStatus sets the tray title with the note emoji and status indicator
func (u *UI) updateStatus(status string) {
	systray.SetTitle(fmt.Sprintf("🎵 %s", emojiForStatus(status)))
}

// emojiForStatus returns the appropriate status emoji
func emojiForStatus(status string) string {
	switch status {
	case "listening":
		return "🔴" // Red - microphone gate open
	case "identifying":
		return "🟡" // Yellow - waiting on the service
	case "idle":
		return "🟢" // Green - ready/idle
	case "error":
		return "⚪️" // White - error
	default:
		return "🟢"
	}
}

func matchTitle(res *recognize.Result) string {
	if res == nil || !res.Matched {
		return "No match yet"
	}
	return "Last: " + res.Name
}

func libraryTitle(n int) string {
	switch {
	case n < 0:
		return "Library: unavailable"
	case n == 1:
		return "Library: 1 song"
	default:
		return fmt.Sprintf("Library: %d songs", n)
	}
}

func resultText(res *recognize.Result) string {
	if res == nil || !res.Matched {
		return "No match found"
	}
	if res.URL == "" {
		return "Matched " + res.Name
	}
	return fmt.Sprintf("Matched %s (%s)", res.Name, res.URL)
}
