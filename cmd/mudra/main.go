package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/plugin"
	"github.com/ayusman/mudra/internal/server"
	"github.com/ayusman/mudra/internal/store"
	"github.com/ayusman/mudra/internal/tray"
)

func main() {
	configPath := flag.String("config", config.DefaultPath(), "path to the JSON config file")
	addr := flag.String("addr", "", "listen address for the settings UI (overrides config)")
	cameraID := flag.Int("camera", -1, "camera device index (overrides config)")
	noTray := flag.Bool("no-tray", false, "run without the menu bar icon")
	flag.Parse()

	fmt.Println("Mudra - Hand Gesture Control")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *addr != "" {
		cfg.SetListenAddr(*addr)
	}
	if *cameraID >= 0 {
		cfg.SetCameraID(*cameraID)
	}

	if err := os.MkdirAll(cfg.GetDataDir(), 0755); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	st, err := store.New(cfg.GetDatabasePath())
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer st.Close()

	plugins := plugin.NewManager(cfg.GetPluginDir())
	if err := plugins.Discover(); err != nil {
		log.Printf("Plugin discovery failed: %v", err)
	}
	log.Printf("Loaded %d plugins from %s", len(plugins.List()), plugins.PluginDir())

	var det detector.Detector
	if mp, err := detector.NewMediaPipeDetector(detector.DefaultConfig()); err == nil {
		det = mp
	} else {
		log.Printf("MediaPipe unavailable (%v), using mock detector", err)
		det = detector.NewMockDetector()
	}

	a := app.New(app.Config{
		Store:    st,
		Plugins:  plugins,
		Executor: plugin.NewExecutor(cfg.GetPluginTimeout()),
		Camera: capture.NewCameraWithConfig(capture.Config{
			DeviceID: cfg.GetCameraID(),
			FPS:      cfg.GetFPS(),
		}),
		Detector:       det,
		Calibration:    cfg.GetCalibration(),
		SampleInterval: cfg.GetSampleInterval(),
	})
	defer a.Close()

	if _, err := a.LoadActiveProfile(); err != nil {
		log.Fatalf("Failed to load profile: %v", err)
	}

	hub := server.NewEventHub()
	a.AddObserver(hub)
	a.Calibration().AddObserver(hub)

	webDir := findWebDir(cfg.GetDataDir())
	if webDir != "" {
		fmt.Printf("Serving static files from: %s\n", webDir)
	}

	srv := server.New(server.Config{
		StaticDir: webDir,
		Store:     st,
		Runtime:   a,
		Plugins:   plugins,
		Events:    hub,
	})

	listenAddr := cfg.GetListenAddr()
	go func() {
		fmt.Printf("Starting server on %s\n", listenAddr)
		if err := srv.ListenAndServe(listenAddr); err != nil {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	if err := a.Start(); err != nil {
		log.Printf("Detection pipeline not started: %v", err)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	if *noTray {
		<-quit
	} else {
		t := tray.New()
		t.OnToggle(a.SetEnabled)
		t.OnSettings(func() {
			if err := openBrowser(settingsURL(listenAddr)); err != nil {
				log.Printf("Failed to open settings: %v", err)
			}
		})
		a.AddObserver(t)
		a.Calibration().AddObserver(t)
		go func() {
			<-quit
			t.Quit()
		}()
		// Blocks until Quit is clicked or a signal arrives.
		t.Run()
	}

	log.Println("Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown: %v", err)
	}
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and <dataDir>/web.
// Returns the first existing directory or empty string if none found.
func findWebDir(dataDir string) string {
	relativePaths := []string{"web", "../web", "../../web"}
	for _, p := range relativePaths {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			absPath, err := filepath.Abs(p)
			if err == nil {
				return absPath
			}
			return p
		}
	}

	dataWebDir := filepath.Join(dataDir, "web")
	if info, err := os.Stat(dataWebDir); err == nil && info.IsDir() {
		return dataWebDir
	}

	return ""
}

// settingsURL turns a listen address into a browsable URL.
func settingsURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		addr = "127.0.0.1" + addr
	}
	return "http://" + addr + "/"
}

func openBrowser(url string) error {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", url).Start()
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
	default:
		return exec.Command("xdg-open", url).Start()
	}
}
