package navio2

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/robotalks/navio.go/pkg/rc"
)

// NumRCChannels is the number of channels decoded by RCIO.
const NumRCChannels = 16

// Input implements rc.Input over /sys/kernel/rcio/rcin.
// Channel files are kept open and re-read from offset 0.
type Input struct {
	Dir string

	lock  sync.Mutex
	files map[int]*os.File
	buf   [16]byte
}

// NewInput creates an Input under the sysfs root.
func NewInput(sysfsRoot string) *Input {
	return &Input{Dir: filepath.Join(sysfsRoot, "kernel", "rcio", "rcin")}
}

// Initialize implements rc.Input.
func (in *Input) Initialize() error {
	in.lock.Lock()
	defer in.lock.Unlock()
	if in.files != nil {
		return nil
	}
	files := make(map[int]*os.File)
	for ch := 0; ch < NumRCChannels; ch++ {
		f, err := os.Open(filepath.Join(in.Dir, fmt.Sprintf("ch%d", ch)))
		if err != nil {
			if os.IsNotExist(err) && ch > 0 {
				break
			}
			for _, opened := range files {
				opened.Close()
			}
			return err
		}
		files[ch] = f
	}
	in.files = files
	return nil
}

// Read implements rc.Input.
func (in *Input) Read(channel int) (rc.Sample, error) {
	in.lock.Lock()
	defer in.lock.Unlock()
	if in.files == nil {
		return rc.Failed(channel, rc.ErrNotInitialized)
	}
	f := in.files[channel]
	if f == nil {
		return rc.Failed(channel, fmt.Errorf("no such channel"))
	}
	n, err := f.ReadAt(in.buf[:], 0)
	if n == 0 && err != nil {
		return rc.Failed(channel, err)
	}
	v, err := strconv.Atoi(strings.TrimSpace(string(in.buf[:n])))
	if err != nil {
		return rc.Failed(channel, err)
	}
	return rc.Sample(v), nil
}

// Close releases channel files.
func (in *Input) Close() error {
	in.lock.Lock()
	defer in.lock.Unlock()
	for _, f := range in.files {
		f.Close()
	}
	in.files = nil
	return nil
}
