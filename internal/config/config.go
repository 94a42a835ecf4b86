package config

import (
	"github.com/greenfund/gfs/internal/logger"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Chain    ChainConfig    `mapstructure:"chain"`
	Rail     RailConfig     `mapstructure:"rail"`
	Task     TaskConfig     `mapstructure:"task"`
	Monitor  MonitorConfig  `mapstructure:"monitor"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

// RedisConfig redis配置，用于同步租约。Addr为空时退化为进程内租约
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// ChainConfig 链配置
type ChainConfig struct {
	ChainId       int64  `mapstructure:"chain_id"`      // 链ID
	RpcUrl        string `mapstructure:"rpc_url"`       // RPC节点URL
	PrivateKey    string `mapstructure:"private_key"`   // 私钥
	ContractAddr  string `mapstructure:"contract_addr"` // 众筹合约地址
	ABIPath       string `mapstructure:"abi_path"`      // ABI文件路径
	StartBlock    int64  `mapstructure:"start_block"`   // 起始区块号
	Confirmations int    `mapstructure:"confirmations"` // 确认区块数
}

// RailConfig 跨链支付通道配置
type RailConfig struct {
	EVMConnector   string `mapstructure:"evm_connector"`   // EVM连接器合约地址
	BitcoinGateway string `mapstructure:"bitcoin_gateway"` // 比特币网关地址
	SolanaGateway  string `mapstructure:"solana_gateway"`  // Solana网关程序地址
	TONGateway     string `mapstructure:"ton_gateway"`     // TON网关合约地址
	WalletRelayUrl string `mapstructure:"wallet_relay_url"` // 非EVM钱包中继服务地址，空则不启用对应通道
}

type TaskConfig struct {
	DeployInterval    int `mapstructure:"deploy_interval"`    // 秒
	StatusInterval    int `mapstructure:"status_interval"`    // 秒
	ExpiryInterval    int `mapstructure:"expiry_interval"`    // 秒
	ReconcileInterval int `mapstructure:"reconcile_interval"` // 秒
}

type MonitorConfig struct {
	Interval  int `mapstructure:"interval"`   // 轮询间隔（秒）
	BatchSize int `mapstructure:"batch_size"` // 每次处理的区块数
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // 日志级别: debug, info, warn, error, fatal
	Output string `mapstructure:"output"` // 输出目标: stdout, file
	File   string `mapstructure:"file"`   // 日志文件路径（当output为file时使用）
}

func Load() *Config {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/gfs")

	// 设置默认值
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.mode", "debug")
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "")
	viper.SetDefault("database.dbname", "greenfund")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("redis.addr", "")
	viper.SetDefault("rail.wallet_relay_url", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("chain.start_block", 0)
	viper.SetDefault("chain.confirmations", 12)
	viper.SetDefault("task.deploy_interval", 60)
	viper.SetDefault("task.status_interval", 60)
	viper.SetDefault("task.expiry_interval", 3600)
	viper.SetDefault("task.reconcile_interval", 300)
	viper.SetDefault("monitor.interval", 60)
	viper.SetDefault("monitor.batch_size", 100)
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.output", "stdout")
	viper.SetDefault("log.file", "logs/app.log")

	// 自动读取环境变量
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		logger.Warn("Warning: Could not read config file: %v", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		logger.Fatal("Unable to decode config into struct: %v", err)
	}

	return &config
}
