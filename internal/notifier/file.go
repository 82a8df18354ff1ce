package notifier

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/afero"

	"github.com/tonakai-s/toktok/internal/domain"
	"github.com/tonakai-s/toktok/pkg/logger"
)

const fileTimeLayout = "2006-01-02T15:04:05"

// FileNotifier дописывает строку об инциденте в файл
type FileNotifier struct {
	base
	fs    afero.Fs
	path  string
	clock clockwork.Clock

	mu sync.Mutex
}

// NewFileNotifier создает notifier и проверяет, что файл можно открыть на запись
func NewFileNotifier(fs afero.Fs, path string, clock clockwork.Clock, log logger.Logger) (*FileNotifier, error) {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := fs.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory for %s: %w", path, err)
		}
	}
	f, err := fs.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open notification file %s: %w", path, err)
	}
	f.Close()

	return &FileNotifier{
		base:  newBase("file", log),
		fs:    fs,
		path:  path,
		clock: clock,
	}, nil
}

// Notify дописывает строку "<время> - Service: <имя> - Status <статус>: <сообщение>"
func (n *FileNotifier) Notify(_ context.Context, result domain.CheckerResult) error {
	line := fmt.Sprintf("%s - Service: %s - Status %s: %s\n",
		n.clock.Now().Format(fileTimeLayout), result.ServiceName, result.Status, result.Message)

	n.mu.Lock()
	defer n.mu.Unlock()

	f, err := n.fs.OpenFile(n.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return n.fail(result, err)
	}
	defer f.Close()

	if _, err := f.WriteString(line); err != nil {
		return n.fail(result, err)
	}

	n.delivered(result)
	return nil
}
