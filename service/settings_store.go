package service

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/difyz9/notetts/model"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// 可以覆盖凭据的环境变量，也可以写在配置文件同目录的 .env 中
const (
	EnvKey      = "NOTETTS_KEY"
	EnvSecretID = "NOTETTS_SECRET_ID"
	EnvFolderID = "NOTETTS_FOLDER_ID"
	EnvRegion   = "NOTETTS_REGION"
)

// SettingsStore 配置文件的读写，设置的唯一持有者
type SettingsStore struct {
	mu     sync.RWMutex
	path   string
	config model.Config

	// file 保存覆盖前的凭据，env 保存覆盖值；写回文件时不落盘环境变量中的密钥
	file model.Settings
	env  model.Settings
}

// LoadSettingsStore 加载配置文件；文件不存在时使用默认配置
func LoadSettingsStore(path string) (*SettingsStore, error) {
	config, err := loadConfig(path)
	if errors.Is(err, os.ErrNotExist) {
		config = DefaultConfig()
	} else if err != nil {
		return nil, err
	}

	store := &SettingsStore{path: path, config: *config, file: config.Settings}
	if err := store.applyEnv(); err != nil {
		return nil, err
	}
	store.config.Settings.Normalize()
	return store, nil
}

// loadConfig 加载配置文件
func loadConfig(configPath string) (*model.Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}
	return config, nil
}

// applyEnv 用环境变量和 .env 覆盖凭据，进程环境变量优先
func (s *SettingsStore) applyEnv() error {
	dotenv, err := godotenv.Read(filepath.Join(filepath.Dir(s.path), ".env"))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("读取 .env 失败: %w", err)
	}
	lookup := func(name string) string {
		if v, ok := os.LookupEnv(name); ok {
			return v
		}
		return dotenv[name]
	}

	settings := &s.config.Settings
	if v := lookup(EnvKey); v != "" {
		settings.Key, s.env.Key = v, v
	}
	if v := lookup(EnvSecretID); v != "" {
		settings.SecretID, s.env.SecretID = v, v
	}
	if v := lookup(EnvFolderID); v != "" {
		settings.FolderID, s.env.FolderID = v, v
	}
	if v := lookup(EnvRegion); v != "" {
		settings.Region, s.env.Region = v, v
	}
	return nil
}

// Path 配置文件路径
func (s *SettingsStore) Path() string {
	return s.path
}

// Config 当前配置的副本
func (s *SettingsStore) Config() model.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config
}

// Settings 当前设置的副本
func (s *SettingsStore) Settings() model.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config.Settings
}

// Update 修改设置并重新计算派生字段，不写文件
func (s *SettingsStore) Update(fn func(*model.Settings)) model.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.config.Settings)
	s.config.Settings.Normalize()
	return s.config.Settings
}

// Save 把当前配置写回文件
func (s *SettingsStore) Save() error {
	s.mu.RLock()
	config := s.config
	s.mu.RUnlock()

	restore := func(current *string, env, file string) {
		if env != "" && *current == env {
			*current = file
		}
	}
	restore(&config.Settings.Key, s.env.Key, s.file.Key)
	restore(&config.Settings.SecretID, s.env.SecretID, s.file.SecretID)
	restore(&config.Settings.FolderID, s.env.FolderID, s.file.FolderID)
	restore(&config.Settings.Region, s.env.Region, s.file.Region)

	return writeConfig(s.path, &config)
}

func writeConfig(path string, config *model.Config) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("创建配置目录失败: %w", err)
		}
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("序列化配置失败: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("写入配置文件失败: %w", err)
	}
	return nil
}
