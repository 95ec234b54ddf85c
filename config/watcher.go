// 配置文件重载监听器实现。
//
// 以轮询方式检测配置文件的修改时间，防抖后重新加载并回调。
package config

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
)

// --- 监听器类型定义 ---

// ReloadFunc 在配置成功重新加载后调用
type ReloadFunc func(oldConfig, newConfig *Config)

// Watcher 监听 Loader 的配置文件，变化时重新加载。
// 重新加载或校验失败时保留当前配置。
type Watcher struct {
	mu sync.RWMutex

	loader       *Loader
	pollInterval time.Duration
	debounce     time.Duration
	logger       *zap.Logger

	current   *Config
	lastMod   time.Time
	callbacks []ReloadFunc

	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// WatcherOption configures the Watcher
type WatcherOption func(*Watcher)

// WithPollInterval 设置轮询间隔
func WithPollInterval(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.pollInterval = d
	}
}

// WithDebounceDelay 设置防抖延迟
func WithDebounceDelay(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.debounce = d
	}
}

// WithWatcherLogger 设置日志记录器
func WithWatcherLogger(logger *zap.Logger) WatcherOption {
	return func(w *Watcher) {
		w.logger = logger
	}
}

// --- 监听器实现 ---

// NewWatcher 创建监听器。loader 必须设置了配置文件路径，initial 为当前生效配置。
func NewWatcher(loader *Loader, initial *Config, opts ...WatcherOption) (*Watcher, error) {
	if loader == nil || loader.ConfigPath() == "" {
		return nil, fmt.Errorf("watcher requires a loader with a config path")
	}
	if initial == nil {
		return nil, fmt.Errorf("watcher requires an initial config")
	}

	w := &Watcher{
		loader:       loader,
		pollInterval: time.Second,
		debounce:     100 * time.Millisecond,
		logger:       zap.NewNop(),
		current:      initial,
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.With(zap.String("component", "config_watcher"))

	if info, err := os.Stat(loader.ConfigPath()); err == nil {
		w.lastMod = info.ModTime()
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to stat path %s: %w", loader.ConfigPath(), err)
	} else {
		w.logger.Warn("config file does not exist, will watch for creation",
			zap.String("path", loader.ConfigPath()))
	}

	return w, nil
}

// OnReload 注册重载回调
func (w *Watcher) OnReload(fn ReloadFunc) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, fn)
}

// Current 返回当前生效的配置
func (w *Watcher) Current() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// Start 启动轮询，ctx 取消或调用 Stop 时退出
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("watcher already running")
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	w.mu.Unlock()

	go w.pollLoop(ctx)

	w.logger.Info("config watcher started",
		zap.String("path", w.loader.ConfigPath()),
		zap.Duration("poll_interval", w.pollInterval))
	return nil
}

// Stop 停止轮询并等待其退出
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	close(w.stopCh)
	done := w.doneCh
	w.mu.Unlock()

	<-done
	w.logger.Info("config watcher stopped")
	return nil
}

// IsRunning 返回是否正在运行
func (w *Watcher) IsRunning() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.running
}

func (w *Watcher) pollLoop(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			if w.changed() {
				pending = time.After(w.debounce)
			}
		case <-pending:
			pending = nil
			if err := w.Reload(); err != nil {
				w.logger.Error("config reload failed, keeping current config", zap.Error(err))
			}
		}
	}
}

// changed 检查文件修改时间是否前进
func (w *Watcher) changed() bool {
	info, err := os.Stat(w.loader.ConfigPath())
	if err != nil {
		return false
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if !info.ModTime().After(w.lastMod) {
		return false
	}
	w.lastMod = info.ModTime()
	return true
}

// Reload 立即重新加载并校验配置，成功后替换当前配置并触发回调
func (w *Watcher) Reload() error {
	next, err := w.loader.Load()
	if err != nil {
		return err
	}
	if err := next.Validate(); err != nil {
		return err
	}

	w.mu.Lock()
	prev := w.current
	w.current = next
	callbacks := make([]ReloadFunc, len(w.callbacks))
	copy(callbacks, w.callbacks)
	w.mu.Unlock()

	w.logger.Info("config reloaded", zap.String("path", w.loader.ConfigPath()))
	for _, cb := range callbacks {
		cb(prev, next)
	}
	return nil
}
