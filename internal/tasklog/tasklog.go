// Package tasklog ежедневные файловые журналы результатов по каждой задаче.
package tasklog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/robfig/cron/v3"
	"github.com/spf13/afero"

	"github.com/tonakai-s/toktok/internal/domain"
	"github.com/tonakai-s/toktok/pkg/errors"
	"github.com/tonakai-s/toktok/pkg/logger"
)

const (
	dateLayout = "2006-01-02"
	lineLayout = "2006-01-02 15:04:05"
)

// DefaultDir каталог журналов, если он не задан в конфигурации
func DefaultDir() string {
	return filepath.Join(os.TempDir(), "toktok")
}

// Manager создает и ротирует журналы задач
type Manager struct {
	fs     afero.Fs
	dir    string
	clock  clockwork.Clock
	logger logger.Logger

	mu    sync.Mutex
	sinks map[string]*Sink
}

// NewManager создает менеджер и корневой каталог журналов
func NewManager(fs afero.Fs, dir string, clock clockwork.Clock, log logger.Logger) (*Manager, error) {
	if dir == "" {
		dir = DefaultDir()
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if log == nil {
		log = logger.NewNop()
	}

	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfig, "failed to create task log directory").WithDetails(dir)
	}

	return &Manager{
		fs:     fs,
		dir:    dir,
		clock:  clock,
		logger: log.With(logger.String("component", "tasklog")),
		sinks:  make(map[string]*Sink),
	}, nil
}

// Dir корневой каталог журналов
func (m *Manager) Dir() string {
	return m.dir
}

// Sink возвращает журнал задачи, создавая каталог и файл текущего дня
func (m *Manager) Sink(task string) (*Sink, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sinks[task]; ok {
		return s, nil
	}

	s := &Sink{manager: m, task: task}
	if err := s.open(m.clock.Now()); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfig, "failed to create task log").WithDetails(task)
	}

	m.sinks[task] = s
	return s, nil
}

// Path путь к файлу журнала задачи за дату date (YYYY-MM-DD)
func (m *Manager) Path(task, date string) string {
	return filepath.Join(m.dir, task, fmt.Sprintf("%s-%s.log", date, task))
}

// Rotate переоткрывает журналы, у которых сменилась дата
func (m *Manager) Rotate() {
	m.mu.Lock()
	sinks := make([]*Sink, 0, len(m.sinks))
	for _, s := range m.sinks {
		sinks = append(sinks, s)
	}
	m.mu.Unlock()

	sort.Slice(sinks, func(i, j int) bool { return sinks[i].task < sinks[j].task })

	now := m.clock.Now()
	for _, s := range sinks {
		s.mu.Lock()
		if err := s.rotateIfNeeded(now); err != nil {
			m.logger.Error("Failed to rotate task log", logger.String("task", s.task), logger.Error(err))
		}
		s.mu.Unlock()
	}
}

// RunRotation запускает ежедневную ротацию и блокируется до отмены ctx
func (m *Manager) RunRotation(ctx context.Context) error {
	c := cron.New()
	if _, err := c.AddFunc("@daily", m.Rotate); err != nil {
		return fmt.Errorf("failed to schedule task log rotation: %w", err)
	}

	c.Start()
	m.logger.Info("Task log rotation started", logger.String("dir", m.dir))

	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}

// Close закрывает все открытые файлы
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var firstErr error
	for _, s := range m.sinks {
		s.mu.Lock()
		if err := s.closeFile(); err != nil && firstErr == nil {
			firstErr = err
		}
		s.mu.Unlock()
	}
	return firstErr
}

// Sink журнал одной задачи, реализует domain.ResultSink
type Sink struct {
	manager *Manager
	task    string

	mu   sync.Mutex
	file afero.File
	date string
}

// Log дописывает строку с результатом. Ошибки записи только логируются.
func (s *Sink) Log(result domain.CheckerResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.manager.clock.Now()
	if err := s.rotateIfNeeded(now); err != nil {
		s.manager.logger.Error("Failed to open task log", logger.String("task", s.task), logger.Error(err))
		return
	}

	line := fmt.Sprintf("[%s] %s - %s\n", now.Format(lineLayout), result.Status, result.Message)
	if _, err := s.file.Write([]byte(line)); err != nil {
		s.manager.logger.Error("Failed to write task log",
			logger.String("task", s.task),
			logger.String("execution_id", result.ExecutionID),
			logger.Error(err),
		)
	}
}

// Path текущий файл журнала
func (s *Sink) Path() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.manager.Path(s.task, s.date)
}

func (s *Sink) rotateIfNeeded(now time.Time) error {
	if s.file != nil && s.date == now.Format(dateLayout) {
		return nil
	}
	return s.open(now)
}

func (s *Sink) open(now time.Time) error {
	date := now.Format(dateLayout)
	m := s.manager

	if err := m.fs.MkdirAll(filepath.Join(m.dir, s.task), 0o755); err != nil {
		return err
	}

	file, err := m.fs.OpenFile(m.Path(s.task, date), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}

	if err := s.closeFile(); err != nil {
		m.logger.Warn("Failed to close previous task log", logger.String("task", s.task), logger.Error(err))
	}

	s.file = file
	s.date = date
	return nil
}

func (s *Sink) closeFile() error {
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}
