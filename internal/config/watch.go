package config

import (
	"log/slog"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Watcher re-reads the config file on change and hands the freshly decoded config
// to onChange. Only settings that are safe to swap at runtime (currently the log
// level) should be applied by the callback; everything else requires a restart.
type Watcher struct {
	v        *viper.Viper
	onChange func(*Config)
}

// Watch starts watching the config file used by Load. It returns nil when no config
// file was found, since there is nothing to watch.
func Watch(configPath string, onChange func(*Config)) (*Watcher, error) {
	v, err := newViper(configPath)
	if err != nil {
		return nil, err
	}
	if v.ConfigFileUsed() == "" {
		return nil, nil
	}

	w := &Watcher{v: v, onChange: onChange}
	v.OnConfigChange(w.handle)
	v.WatchConfig()
	slog.Info("watching config file for changes", "path", v.ConfigFileUsed())
	return w, nil
}

func (w *Watcher) handle(e fsnotify.Event) {
	if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
		return
	}
	cfg, err := decode(w.v)
	if err != nil {
		slog.Warn("config reload rejected", "path", e.Name, "error", err)
		return
	}
	slog.Info("config file changed", "path", e.Name)
	w.onChange(cfg)
}
