package board

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// HatProductPath is where the Raspberry Pi firmware exposes the HAT EEPROM.
const HatProductPath = "/proc/device-tree/hat/product"

// Detect tells the Navio generation from the HAT EEPROM.
// Navio2 identifies itself; Navio+ carries no matching product string.
func Detect() (Kind, error) {
	return detectFrom(HatProductPath)
}

func detectFrom(path string) (Kind, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Auto, fmt.Errorf("detect board: %w", err)
	}
	product := string(bytes.TrimRight(data, "\x00\n "))
	if strings.Contains(product, "Navio 2") {
		return Navio2, nil
	}
	return NavioPlus, nil
}

// ErrNotRoot is returned by Precheck for unprivileged processes.
var ErrNotRoot = fmt.Errorf("not root, launch with sudo %s", filepath.Base(os.Args[0]))

// ErrAutopilotRunning is returned by Precheck when ArduPilot owns the board.
var ErrAutopilotRunning = fmt.Errorf("ArduPilot is already running")

// autopilotThread is the name of a thread every ArduPilot build starts.
const autopilotThread = "ap-timer"

// Precheck makes sure the process may drive the board directly.
func Precheck() error {
	return precheck("/proc", os.Geteuid())
}

func precheck(procRoot string, euid int) error {
	if euid != 0 {
		return ErrNotRoot
	}
	running, err := autopilotRunning(procRoot)
	if err != nil {
		return err
	}
	if running {
		return ErrAutopilotRunning
	}
	return nil
}

func autopilotRunning(procRoot string) (bool, error) {
	matches, err := filepath.Glob(filepath.Join(procRoot, "[0-9]*", "task", "*", "comm"))
	if err != nil {
		return false, err
	}
	for _, fn := range matches {
		data, err := os.ReadFile(fn)
		if err != nil {
			// processes come and go during the scan.
			continue
		}
		if strings.TrimSpace(string(data)) == autopilotThread {
			return true, nil
		}
	}
	return false, nil
}
