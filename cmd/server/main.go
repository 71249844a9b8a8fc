package main

import (
	"context"
	"os"
	"runtime"
	"syscall"

	"facecam/internal/app"
	"facecam/internal/config"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

const version = "0.1.0"

// Signals that cancel the command context and run the shutdown path.
var shutdownSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}

// HighGUI window events have to be pumped from the main thread.
func init() {
	runtime.LockOSThread()
}

func newServerCmd() *cobra.Command {
	var (
		configFile string
		port       int
		camera     int
		showWindow bool
	)

	cmd := &cobra.Command{
		Use:   "facecam",
		Short: "Camera face detection server",
		Long: `Captures frames from a local camera, highlights faces with a Haar or LBP
cascade and streams the annotated video to the browser. Frames can be saved
under a person's name into the image directory.`,
		Example: `  # Serve on the default port with camera 0
  facecam

  # Use the second camera and also open a native window
  facecam --camera 1 --window`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if configFile != "" {
				os.Setenv("CONFIG_FILE", configFile)
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			if flags.Changed("port") {
				cfg.Port = port
			}
			if flags.Changed("camera") {
				cfg.DeviceIndex = camera
			}
			if flags.Changed("window") {
				cfg.ShowWindow = showWindow
			}

			application, err := app.NewApp(cfg)
			if err != nil {
				return err
			}
			return application.Run(cmd.Context())
		},
	}

	cmd.Flags().StringVarP(&configFile, "config", "c", "", "YAML configuration file")
	cmd.Flags().IntVarP(&port, "port", "p", 8080, "Port to listen on")
	cmd.Flags().IntVar(&camera, "camera", 0, "Camera device index")
	cmd.Flags().BoolVar(&showWindow, "window", false, "Show the annotated video in a native window")

	return cmd
}

func main() {
	if err := fang.Execute(
		context.Background(),
		newServerCmd(),
		fang.WithVersion(version),
		fang.WithNotifySignal(shutdownSignals...),
	); err != nil {
		os.Exit(1)
	}
}
