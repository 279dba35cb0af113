// Package main provides the media and volume plugin for mudra.
// It maps actions to AppleScript on macOS and to playerctl/pactl on Linux.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
)

// defaultStep is the volume change in percent when the binding sets none.
const defaultStep = 10

// Request represents the input from the plugin executor.
type Request struct {
	Action  string          `json:"action"`
	Gesture string          `json:"gesture"`
	Time    string          `json:"time"`
	Config  json.RawMessage `json:"config"`
}

// Response represents the output to the plugin executor.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// actionConfig is the per-binding configuration.
type actionConfig struct {
	Step int `json:"step"`
}

// command is one program invocation.
type command struct {
	name string
	args []string
}

// actionHandler builds the command for an action on the current platform.
type actionHandler func(goos string, cfg actionConfig) (command, error)

// actionHandlers maps action names to their handler functions.
var actionHandlers = map[string]actionHandler{
	"volume-up":      volumeUp,
	"volume-down":    volumeDown,
	"mute":           mute,
	"play-pause":     playPause,
	"next-track":     nextTrack,
	"previous-track": previousTrack,
}

// run executes a command. Tests replace it.
var run = func(c command) error {
	output, err := exec.Command(c.name, c.args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, string(output))
	}
	return nil
}

func main() {
	json.NewEncoder(os.Stdout).Encode(handle(os.Stdin, runtime.GOOS))
}

// handle decodes one request and performs it.
func handle(r io.Reader, goos string) Response {
	var req Request
	if err := json.NewDecoder(r).Decode(&req); err != nil {
		return errorResponse(fmt.Sprintf("failed to decode request: %v", err))
	}

	handler, ok := actionHandlers[req.Action]
	if !ok {
		return errorResponse(fmt.Sprintf("unknown action: %s", req.Action))
	}

	cfg := actionConfig{Step: defaultStep}
	if len(req.Config) > 0 {
		if err := json.Unmarshal(req.Config, &cfg); err != nil {
			return errorResponse(fmt.Sprintf("invalid config: %v", err))
		}
		if cfg.Step <= 0 || cfg.Step > 100 {
			return errorResponse(fmt.Sprintf("step must be between 1 and 100, got %d", cfg.Step))
		}
	}

	c, err := handler(goos, cfg)
	if err != nil {
		return errorResponse(fmt.Sprintf("action %s failed: %v", req.Action, err))
	}
	if err := run(c); err != nil {
		return errorResponse(fmt.Sprintf("action %s failed: %v", req.Action, err))
	}
	return Response{Success: true}
}

func errorResponse(msg string) Response {
	return Response{Success: false, Error: msg}
}

func unsupported(goos string) error {
	return fmt.Errorf("unsupported platform %s", goos)
}

func appleScript(script string) command {
	return command{name: "osascript", args: []string{"-e", script}}
}

// mediaKey presses a media key through System Events.
func mediaKey(code int) command {
	return appleScript(fmt.Sprintf("tell application \"System Events\"\n\tkey code %d\nend tell", code))
}

func volumeUp(goos string, cfg actionConfig) (command, error) {
	switch goos {
	case "darwin":
		return appleScript(fmt.Sprintf("set volume output volume ((output volume of (get volume settings)) + %d)", cfg.Step)), nil
	case "linux":
		return command{name: "pactl", args: []string{"set-sink-volume", "@DEFAULT_SINK@", fmt.Sprintf("+%d%%", cfg.Step)}}, nil
	}
	return command{}, unsupported(goos)
}

func volumeDown(goos string, cfg actionConfig) (command, error) {
	switch goos {
	case "darwin":
		return appleScript(fmt.Sprintf("set volume output volume ((output volume of (get volume settings)) - %d)", cfg.Step)), nil
	case "linux":
		return command{name: "pactl", args: []string{"set-sink-volume", "@DEFAULT_SINK@", fmt.Sprintf("-%d%%", cfg.Step)}}, nil
	}
	return command{}, unsupported(goos)
}

func mute(goos string, _ actionConfig) (command, error) {
	switch goos {
	case "darwin":
		return appleScript("set volume output muted (not (output muted of (get volume settings)))"), nil
	case "linux":
		return command{name: "pactl", args: []string{"set-sink-mute", "@DEFAULT_SINK@", "toggle"}}, nil
	}
	return command{}, unsupported(goos)
}

func playPause(goos string, _ actionConfig) (command, error) {
	return player(goos, 100, "play-pause")
}

func nextTrack(goos string, _ actionConfig) (command, error) {
	return player(goos, 101, "next")
}

func previousTrack(goos string, _ actionConfig) (command, error) {
	return player(goos, 98, "previous")
}

func player(goos string, keyCode int, verb string) (command, error) {
	switch goos {
	case "darwin":
		return mediaKey(keyCode), nil
	case "linux":
		return command{name: "playerctl", args: []string{verb}}, nil
	}
	return command{}, unsupported(goos)
}
