package notify

import (
	"log"
	"os/exec"
)

const appName = "voxchunk"

type Notifier interface {
	RecordingStarted()
	RecordingStopped()
	Error(msg string)
	Notify(title, message string)
}

// New returns the notifier for a notifications.type value. Unknown types
// fall back to Log.
func New(kind string) Notifier {
	switch kind {
	case "desktop":
		return Desktop{}
	case "none":
		return Nop{}
	default:
		return Log{}
	}
}

// runCommand is swapped in tests.
var runCommand = func(name string, args ...string) error {
	return exec.Command(name, args...).Run()
}

type Desktop struct{}

func (d Desktop) RecordingStarted() {
	d.Notify("Recording Started", "Capturing microphone audio")
}

func (d Desktop) RecordingStopped() {
	d.Notify("Recording Stopped", "Pending uploads will still be transcribed")
}

func (Desktop) Error(msg string) {
	if err := runCommand("notify-send", "-a", appName, "-u", "critical", "voxchunk Error", msg); err != nil {
		log.Printf("Failed to send error notification: %v", err)
	}
}

func (Desktop) Notify(title, message string) {
	if err := runCommand("notify-send", "-a", appName, "voxchunk: "+title, message); err != nil {
		log.Printf("Failed to send notification: %v", err)
	}
}

// Log writes notifications to the standard logger.
type Log struct{}

func (l Log) RecordingStarted() { l.Notify("Recording Started", "Capturing microphone audio") }
func (l Log) RecordingStopped() { l.Notify("Recording Stopped", "Pending uploads will still be transcribed") }

func (Log) Error(msg string) {
	log.Printf("voxchunk Error: %s", msg)
}

func (Log) Notify(title, message string) {
	log.Printf("voxchunk: %s - %s", title, message)
}

// Nop is a Notifier that does absolutely nothing.
type Nop struct{}

func (Nop) RecordingStarted()            {}
func (Nop) RecordingStopped()            {}
func (Nop) Error(msg string)             {}
func (Nop) Notify(title, message string) {}
