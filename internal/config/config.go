package config

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/pelletier/go-toml/v2"

	"caseboard/internal/parser"
)

// AppConfig 应用配置
type AppConfig struct {
	Server ServerConfig                 `toml:"server"`
	Data   DataConfig                   `toml:"data"`
	Import ImportConfig                 `toml:"import"`
	Sheets map[string]*parser.ColumnMap `toml:"sheets"` // 按 sheet 名配置的列映射
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port    int  `toml:"port"`
	DevMode bool `toml:"dev_mode"`
}

// DataConfig 数据配置
type DataConfig struct {
	DataDir               string `toml:"data_dir"`
	AutoBackup            bool   `toml:"auto_backup"`
	BackupIntervalMinutes int    `toml:"backup_interval_minutes"`
	MaxBackups            int    `toml:"max_backups"`
	RetentionDays         int    `toml:"retention_days"` // 执行状态保留天数
}

// ImportConfig 导入配置
type ImportConfig struct {
	GroupBy         string `toml:"group_by"` // module/sheet
	BatchSize       int    `toml:"batch_size"`
	OverwriteStates bool   `toml:"overwrite_states"`
	MaxIDLength     int    `toml:"max_id_length"`
	MaxTitleLength  int    `toml:"max_title_length"`
	MaxModuleLength int    `toml:"max_module_length"`
}

// ValidationRules 由配置生成行级校验规则，未配置的上限用默认值
func (c *ImportConfig) ValidationRules() parser.ValidationRules {
	rules := parser.DefaultValidationRules()
	if c.MaxIDLength > 0 {
		rules.MaxLengths[parser.FieldID] = c.MaxIDLength
	}
	if c.MaxTitleLength > 0 {
		rules.MaxLengths[parser.FieldTitle] = c.MaxTitleLength
	}
	if c.MaxModuleLength > 0 {
		rules.MaxLengths[parser.FieldModule] = c.MaxModuleLength
	}
	return rules
}

// LoadConfigInfo 配置加载元信息
type LoadConfigInfo struct {
	PortSpecified bool
}

// DefaultConfig 默认配置
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:    20482,
			DevMode: false,
		},
		Data: DataConfig{
			DataDir:               "data",
			AutoBackup:            true,
			BackupIntervalMinutes: 30,
			MaxBackups:            5,
			RetentionDays:         30,
		},
		Import: ImportConfig{
			GroupBy:         "module",
			BatchSize:       200,
			OverwriteStates: false,
			MaxIDLength:     50,
			MaxTitleLength:  200,
			MaxModuleLength: 100,
		},
	}
}

func isPortSpecifiedInToml(data []byte) bool {
	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return false
	}

	serverAny, ok := raw["server"]
	if !ok {
		return false
	}

	serverMap, ok := serverAny.(map[string]any)
	if !ok {
		return false
	}

	_, ok = serverMap["port"]
	return ok
}

// GetExeDir 获取可执行文件所在目录
func GetExeDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	return filepath.Dir(exe), nil
}

// LoadConfigWithInfo 从 config.toml 加载配置并返回元信息
func LoadConfigWithInfo() (*AppConfig, LoadConfigInfo, error) {
	info := LoadConfigInfo{}
	config := DefaultConfig()

	exeDir, err := GetExeDir()
	if err != nil {
		// 无法获取可执行文件目录，使用当前目录
		exeDir = "."
	}

	configPath := filepath.Join(exeDir, "config.toml")

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			// 配置文件不存在，使用默认配置
			applyEnvOverrides(config)
			return config, info, nil
		}
		return nil, info, err
	}

	info.PortSpecified = isPortSpecifiedInToml(data)

	if err := toml.Unmarshal(data, config); err != nil {
		return nil, info, err
	}

	applyEnvOverrides(config)
	return config, info, nil
}

// applyEnvOverrides 环境变量覆盖（用于 E2E / 本地运行）
func applyEnvOverrides(config *AppConfig) {
	if v := os.Getenv("CASEBOARD_DATA_DIR"); v != "" {
		config.Data.DataDir = v
	}
	if v := os.Getenv("CASEBOARD_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil && port > 0 {
			config.Server.Port = port
		}
	}
}

// LoadConfig 从 config.toml 加载配置
// 配置文件位于可执行文件同目录下
func LoadConfig() (*AppConfig, error) {
	config, _, err := LoadConfigWithInfo()
	return config, err
}

// SaveConfig 保存配置到 config.toml
func SaveConfig(config *AppConfig) error {
	exeDir, err := GetExeDir()
	if err != nil {
		exeDir = "."
	}

	configPath := filepath.Join(exeDir, "config.toml")

	data, err := toml.Marshal(config)
	if err != nil {
		return err
	}

	return os.WriteFile(configPath, data, 0644)
}

// EnsureDataDir 确保数据目录存在
// 数据目录位于可执行文件同目录下；绝对路径原样使用
func EnsureDataDir(config *AppConfig) (string, error) {
	dataDir := config.Data.DataDir
	if !filepath.IsAbs(dataDir) {
		exeDir, err := GetExeDir()
		if err != nil {
			exeDir = "."
		}
		dataDir = filepath.Join(exeDir, dataDir)
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return "", err
	}

	// 创建子目录
	subdirs := []string{"uploads", "exports"}
	for _, subdir := range subdirs {
		path := filepath.Join(dataDir, subdir)
		if err := os.MkdirAll(path, 0755); err != nil {
			return "", err
		}
	}

	return dataDir, nil
}

// Retention 执行状态保留期
func (c *AppConfig) Retention() int {
	if c.Data.RetentionDays <= 0 {
		return 30
	}
	return c.Data.RetentionDays
}
