// Package sound manages the on-disk sound assets referenced by alerts.
// Each alert-issuing subsystem vends its own sound files; the manager copies
// them into one shared directory under an owner-prefixed name so two
// subsystems shipping "alarm.mp3" never collide.
package sound

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dosewatch/alertkit/internal/alert"
	"github.com/dosewatch/alertkit/internal/logging"
)

// Vendor supplies the sounds an alert-issuing subsystem may reference,
// together with the directory its source files live in.
type Vendor interface {
	Sounds() []alert.Sound
	SoundsBaseDir() string
}

// NamespacedName returns the shared-directory filename for a vendor sound:
// "<owner>-<filename>".
func NamespacedName(owner, filename string) string {
	return owner + "-" + filename
}

// Manager installs vendor sound files into the shared sounds directory.
type Manager struct {
	dir    string
	logger logging.Logger
}

// NewManager builds a manager rooted at dir.
func NewManager(dir string, logger logging.Logger) (*Manager, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("sound manager: directory cannot be empty")
	}
	if logger == nil {
		logger = logging.GetGlobal()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("sound manager: create directory: %w", err)
	}
	return &Manager{dir: dir, logger: logger}, nil
}

// Dir returns the shared sounds directory.
func (m *Manager) Dir() string {
	return m.dir
}

// Path returns where the installed copy of a vendor sound lives.
func (m *Manager) Path(owner, filename string) string {
	return filepath.Join(m.dir, NamespacedName(owner, filename))
}

// Install copies the vendor's named sounds into the shared directory. A file
// is copied when the installed copy is missing or older than the source;
// up-to-date files are left alone so repeated registration stays cheap.
// Sounds without a file component, silence and vibrate, are skipped.
func (m *Manager) Install(owner string, vendor Vendor) error {
	if strings.TrimSpace(owner) == "" {
		return fmt.Errorf("sound manager: owner cannot be empty")
	}
	for _, s := range vendor.Sounds() {
		filename := s.Filename()
		if filename == "" {
			continue
		}
		src := filepath.Join(vendor.SoundsBaseDir(), filename)
		dst := m.Path(owner, filename)
		copied, err := copyIfNewer(src, dst)
		if err != nil {
			return fmt.Errorf("sound manager: install %s for %s: %w", filename, owner, err)
		}
		if copied {
			m.logger.Info("installed sound asset", "owner", owner, "file", filename)
		}
	}
	return nil
}

func copyIfNewer(src, dst string) (bool, error) {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return false, err
	}
	dstInfo, err := os.Stat(dst)
	if err == nil && !srcInfo.ModTime().After(dstInfo.ModTime()) {
		return false, nil
	}
	if err != nil && !os.IsNotExist(err) {
		return false, err
	}

	in, err := os.Open(src)
	if err != nil {
		return false, err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return false, err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return false, err
	}
	if err := out.Close(); err != nil {
		return false, err
	}
	return true, nil
}
