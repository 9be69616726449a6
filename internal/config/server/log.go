package server

type LogServerConfig struct {
	Level      string                  `mapstructure:"level"       yaml:"level"       validate:"omitempty,oneof=DEBUG INFO WARN ERROR FATAL debug info warn error fatal"`
	TimeFormat string                  `mapstructure:"time_format" yaml:"time_format"`
	File       string                  `mapstructure:"file"        yaml:"file"`
	NoColor    bool                    `mapstructure:"no_color"    yaml:"no_color"`
	JSON       bool                    `mapstructure:"json"        yaml:"json"`
	NoTerminal bool                    `mapstructure:"no_terminal" yaml:"no_terminal"`
	Rotation   LogServerRotationConfig `mapstructure:"rotation"    yaml:"rotation"`
}

type LogServerRotationConfig struct {
	MaxSize    int  `mapstructure:"max_size"     yaml:"max_size"     validate:"gte=0"`
	MaxBackups int  `mapstructure:"max_backups"  yaml:"max_backups"  validate:"gte=0"`
	MaxAge     int  `mapstructure:"max_age"      yaml:"max_age"      validate:"gte=0"`
	Compress   bool `mapstructure:"compress"     yaml:"compress"`
}
