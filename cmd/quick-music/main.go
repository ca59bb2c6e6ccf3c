package main

import (
	"os"

	"github.com/Bibek004/Quick-Music/internal/ui"
	"github.com/alecthomas/kong"
)

var (
	// Version is set via ldflags at build time
	Version = "dev"
	// Commit is set via ldflags at build time
	Commit = "unknown"
)

// Globals override the config file for a single run.
type Globals struct {
	Config   string `help:"Config file path (defaults to the platform config dir)" type:"path"`
	Backend  string `help:"Audio backend: portaudio, miniaudio or synthetic"`
	Device   string `help:"Input device name"`
	LogLevel string `help:"Log level (debug, info, warn, error)"`
	Server   string `help:"Recognition service base URL"`
}

var cli struct {
	Globals

	Tray     TrayCmd     `cmd:"" default:"1" help:"Run the menu bar app"`
	Identify IdentifyCmd `cmd:"" help:"Listen once and identify the song"`
	Record   RecordCmd   `cmd:"" help:"Record a clip to a WAV file"`
	Inspect  InspectCmd  `cmd:"" help:"Show the header and levels of a WAV file"`
	Songs    SongsCmd    `cmd:"" help:"List the songs the service knows"`
	Add      AddCmd      `cmd:"" help:"Add a song from a YouTube URL"`
	Devices  DevicesCmd  `cmd:"" help:"List audio input devices"`
}

func main() {
	ctx := kong.Parse(&cli,
		kong.Name("quick-music"),
		kong.Description("Identify the song that is playing"),
		kong.UsageOnError(),
	)

	if err := ctx.Run(&cli.Globals); err != nil {
		ui.Error("%v", err)
		os.Exit(1)
	}
}
