package config

import (
	"encoding/json"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/go-ini/ini"
	"github.com/xiaonanln/gozone/engine/gzlog"
)

const (
	_DEFAULT_CONFIG_FILE      = "gozone.ini"
	_DEFAULT_LOG_LEVEL        = "debug"
	_DEFAULT_TICK_INTERVAL_MS = 100
)

var (
	configFilePath = _DEFAULT_CONFIG_FILE
	goZoneConfig   *GoZoneConfig
	configLock     sync.Mutex
)

// ZoneConfig defines fields of zone tracking config
type ZoneConfig struct {
	LogFile   string
	LogStderr bool
	LogLevel  string
}

// DemoConfig defines fields of demo config
type DemoConfig struct {
	TickInterval time.Duration
	RunSeconds   int
}

// GoZoneConfig defines the total gozone config file structure
type GoZoneConfig struct {
	Zone ZoneConfig
	Demo DemoConfig
}

// SetConfigFile sets the config file path (gozone.ini by default)
func SetConfigFile(f string) {
	configFilePath = f
}

// GetConfigDir returns the directory of gozone.ini
func GetConfigDir() string {
	dir, _ := path.Split(configFilePath)
	return dir
}

// GetConfigFilePath returns the config file path
func GetConfigFilePath() string {
	return configFilePath
}

// Get returns the total gozone config
func Get() *GoZoneConfig {
	configLock.Lock()
	defer configLock.Unlock()
	if goZoneConfig == nil {
		goZoneConfig = readGoZoneConfig()
	}
	return goZoneConfig
}

// Reload forces gozone to reload the whole config
func Reload() *GoZoneConfig {
	configLock.Lock()
	goZoneConfig = nil
	configLock.Unlock()

	return Get()
}

// GetZone returns the zone tracking config
func GetZone() *ZoneConfig {
	return &Get().Zone
}

// GetDemo returns the demo config
func GetDemo() *DemoConfig {
	return &Get().Demo
}

// DumpPretty format config to string in pretty format
func DumpPretty(cfg interface{}) string {
	s, err := json.MarshalIndent(cfg, "", "    ")
	if err != nil {
		return err.Error()
	}
	return string(s)
}

func readGoZoneConfig() *GoZoneConfig {
	config := GoZoneConfig{}
	gzlog.Infof("Using config file: %s", configFilePath)
	iniFile, err := ini.Load(configFilePath)
	checkConfigError(err, "")
	readZoneConfig(iniFile.Section("gozone"), &config.Zone)
	readDemoConfig(iniFile.Section("demo"), &config.Demo)

	for _, sec := range iniFile.Sections() {
		secName := strings.ToLower(sec.Name())
		if secName == "default" || secName == "gozone" || secName == "demo" {
			continue
		}
		gzlog.Errorf("unknown section: %s", secName)
	}
	return &config
}

func readZoneConfig(sec *ini.Section, zc *ZoneConfig) {
	zc.LogFile = ""
	zc.LogStderr = true
	zc.LogLevel = _DEFAULT_LOG_LEVEL

	for _, key := range sec.Keys() {
		name := strings.ToLower(key.Name())
		if name == "log_file" {
			zc.LogFile = key.MustString(zc.LogFile)
		} else if name == "log_stderr" {
			zc.LogStderr = key.MustBool(zc.LogStderr)
		} else if name == "log_level" {
			zc.LogLevel = key.MustString(zc.LogLevel)
		} else {
			gzlog.Panicf("section %s has unknown key: %s", sec.Name(), key.Name())
		}
	}
}

func readDemoConfig(sec *ini.Section, dc *DemoConfig) {
	dc.TickInterval = time.Millisecond * _DEFAULT_TICK_INTERVAL_MS
	dc.RunSeconds = 10

	for _, key := range sec.Keys() {
		name := strings.ToLower(key.Name())
		if name == "tick_interval_ms" {
			dc.TickInterval = time.Millisecond * time.Duration(key.MustInt(_DEFAULT_TICK_INTERVAL_MS))
		} else if name == "run_seconds" {
			dc.RunSeconds = key.MustInt(dc.RunSeconds)
		} else {
			gzlog.Panicf("section %s has unknown key: %s", sec.Name(), key.Name())
		}
	}
}

func checkConfigError(err error, msg string) {
	if err != nil {
		if msg == "" {
			msg = err.Error()
		}
		gzlog.Panicf("read config error: %s", msg)
	}
}
