// 配置文件变更监听器实现。
//
// 轮询文件修改时间，合并防抖窗口内的事件后回调。
package config

import (
	"context"
	"fmt"
	"os"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"
)

// FileWatcher 轮询一组文件的修改时间并在变化时回调
type FileWatcher struct {
	mu sync.RWMutex

	paths         []string
	pollInterval  time.Duration
	debounceDelay time.Duration

	running  bool
	stopChan chan struct{}
	done     chan struct{}

	callbacks []func(event FileEvent)
	logger    *zap.Logger

	// 只由轮询 goroutine 访问
	lastModTimes map[string]time.Time
}

// FileEvent 文件变更事件
type FileEvent struct {
	Path      string    `json:"path"`
	Op        FileOp    `json:"op"`
	Timestamp time.Time `json:"timestamp"`
}

// FileOp 文件操作类型
type FileOp int

const (
	FileOpCreate FileOp = iota
	FileOpWrite
	FileOpRemove
)

func (op FileOp) String() string {
	switch op {
	case FileOpCreate:
		return "CREATE"
	case FileOpWrite:
		return "WRITE"
	case FileOpRemove:
		return "REMOVE"
	default:
		return "UNKNOWN"
	}
}

// WatcherOption 配置 FileWatcher
type WatcherOption func(*FileWatcher)

// WithDebounceDelay 设置防抖窗口
func WithDebounceDelay(d time.Duration) WatcherOption {
	return func(w *FileWatcher) {
		w.debounceDelay = d
	}
}

// WithPollInterval 设置轮询间隔
func WithPollInterval(d time.Duration) WatcherOption {
	return func(w *FileWatcher) {
		w.pollInterval = d
	}
}

// WithWatcherLogger 设置日志
func WithWatcherLogger(logger *zap.Logger) WatcherOption {
	return func(w *FileWatcher) {
		if logger != nil {
			w.logger = logger.With(zap.String("component", "config_watcher"))
		}
	}
}

// NewFileWatcher 创建文件监听器；文件不存在时只告警，创建后会收到 CREATE 事件
func NewFileWatcher(paths []string, opts ...WatcherOption) (*FileWatcher, error) {
	w := &FileWatcher{
		paths:         append([]string(nil), paths...),
		pollInterval:  time.Second,
		debounceDelay: 100 * time.Millisecond,
		lastModTimes:  make(map[string]time.Time),
		logger:        zap.NewNop(),
	}

	for _, opt := range opts {
		opt(w)
	}

	for _, path := range w.paths {
		if _, err := os.Stat(path); err != nil {
			if os.IsNotExist(err) {
				w.logger.Warn("config file does not exist, will watch for creation",
					zap.String("path", path))
			} else {
				return nil, fmt.Errorf("failed to stat path %s: %w", path, err)
			}
		}
	}

	return w, nil
}

// OnChange 注册变更回调
func (w *FileWatcher) OnChange(callback func(FileEvent)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, callback)
}

// Start 开始监听，ctx 取消或 Stop 后退出
func (w *FileWatcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("watcher already running")
	}
	w.running = true
	w.stopChan = make(chan struct{})
	w.done = make(chan struct{})
	w.mu.Unlock()

	for _, path := range w.paths {
		if info, err := os.Stat(path); err == nil {
			w.lastModTimes[path] = info.ModTime()
		}
	}

	go w.loop(ctx)

	w.logger.Info("file watcher started",
		zap.Strings("paths", w.paths),
		zap.Duration("poll_interval", w.pollInterval),
		zap.Duration("debounce_delay", w.debounceDelay))

	return nil
}

// Stop 停止监听并等待后台 goroutine 退出
func (w *FileWatcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	close(w.stopChan)
	w.running = false
	done := w.done
	w.mu.Unlock()

	<-done
	w.logger.Info("file watcher stopped")
	return nil
}

// loop 在单个 goroutine 内完成轮询与防抖，避免共享待派发事件
func (w *FileWatcher) loop(ctx context.Context) {
	defer close(w.done)

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	pending := make(map[string]FileEvent)
	var debounce <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopChan:
			return
		case <-ticker.C:
			events := w.checkFiles()
			if len(events) == 0 {
				continue
			}
			// 只有本轮发现新事件才重置防抖窗口
			for _, evt := range events {
				pending[evt.Path] = evt
			}
			debounce = time.After(w.debounceDelay)
		case <-debounce:
			w.dispatch(pending)
			pending = make(map[string]FileEvent)
			debounce = nil
		}
	}
}

// checkFiles 比较修改时间，返回本轮发现的事件
func (w *FileWatcher) checkFiles() []FileEvent {
	var events []FileEvent
	now := time.Now()

	for _, path := range w.paths {
		info, err := os.Stat(path)
		if err != nil {
			if os.IsNotExist(err) {
				if _, existed := w.lastModTimes[path]; existed {
					delete(w.lastModTimes, path)
					events = append(events, FileEvent{Path: path, Op: FileOpRemove, Timestamp: now})
				}
			}
			continue
		}

		lastMod, existed := w.lastModTimes[path]
		switch {
		case !existed:
			w.lastModTimes[path] = info.ModTime()
			events = append(events, FileEvent{Path: path, Op: FileOpCreate, Timestamp: now})
		case !info.ModTime().Equal(lastMod):
			w.lastModTimes[path] = info.ModTime()
			events = append(events, FileEvent{Path: path, Op: FileOpWrite, Timestamp: now})
		}
	}

	return events
}

func (w *FileWatcher) dispatch(events map[string]FileEvent) {
	w.mu.RLock()
	callbacks := slices.Clone(w.callbacks)
	w.mu.RUnlock()

	for path, evt := range events {
		w.logger.Debug("dispatching file event",
			zap.String("path", path),
			zap.String("op", evt.Op.String()))
		for _, cb := range callbacks {
			cb(evt)
		}
	}
}

// Paths 返回监听的路径
func (w *FileWatcher) Paths() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return append([]string(nil), w.paths...)
}

// IsRunning 报告是否正在监听
func (w *FileWatcher) IsRunning() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.running
}
