package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Configはアプリ全体の設定
type Config struct {
	Port  string // サーバーポート（8080）
	GoEnv string // dev/prod

	DatabaseURL      string // あれば最優先
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresHost     string
	PostgresPort     int
	PostgresSSLMode  string

	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration

	JWTSecret string // JWT署名シークレット

	FEURL             string // 決済後のリダイレクト先
	PaymentReturnPath string

	DefaultLocationCode string // 在庫を引く拠点

	VNPay VNPayConfig
	MoMo  MoMoConfig

	KafkaBrokers    []string // 空ならイベント送信しない
	KafkaOrderTopic string

	RedisAddr       string // 空ならレート制限なし
	RedisPassword   string
	OrderRateLimit  int
	OrderRateWindow time.Duration

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
}

type VNPayConfig struct {
	TmnCode    string
	HashSecret string
	PayURL     string
	ReturnURL  string
}

// 認証情報が揃っていれば有効
func (c VNPayConfig) Enabled() bool {
	return c.TmnCode != "" && c.HashSecret != ""
}

type MoMoConfig struct {
	PartnerCode string
	AccessKey   string
	SecretKey   string
	Endpoint    string
	ReturnURL   string
	IPNURL      string
}

func (c MoMoConfig) Enabled() bool {
	return c.PartnerCode != "" && c.AccessKey != "" && c.SecretKey != ""
}

func (c Config) IsDev() bool {
	return c.GoEnv == "dev"
}

// Loadは .env（あれば）と環境変数から読む
func Load() (Config, error) {
	//.envは任意
	_ = godotenv.Load()
	_ = godotenv.Load("../.env")

	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults(v)

	cfg := Config{
		Port:  v.GetString("PORT"),
		GoEnv: v.GetString("GO_ENV"),

		DatabaseURL:      v.GetString("DATABASE_URL"),
		PostgresUser:     v.GetString("POSTGRES_USER"),
		PostgresPassword: v.GetString("POSTGRES_PASSWORD"),
		PostgresDB:       v.GetString("POSTGRES_DB"),
		PostgresHost:     v.GetString("POSTGRES_HOST"),
		PostgresPort:     v.GetInt("POSTGRES_PORT"),
		PostgresSSLMode:  v.GetString("POSTGRES_SSLMODE"),

		DBMaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
		DBMaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
		DBConnMaxLifetime: v.GetDuration("DB_CONN_MAX_LIFETIME"),

		JWTSecret: v.GetString("JWT_SECRET"),

		FEURL:             strings.TrimRight(v.GetString("FE_URL"), "/"),
		PaymentReturnPath: v.GetString("PAYMENT_RETURN_PATH"),

		DefaultLocationCode: v.GetString("DEFAULT_LOCATION_CODE"),

		VNPay: VNPayConfig{
			TmnCode:    v.GetString("VNPAY_TMN_CODE"),
			HashSecret: v.GetString("VNPAY_HASH_SECRET"),
			PayURL:     v.GetString("VNPAY_PAY_URL"),
			ReturnURL:  v.GetString("VNPAY_RETURN_URL"),
		},
		MoMo: MoMoConfig{
			PartnerCode: v.GetString("MOMO_PARTNER_CODE"),
			AccessKey:   v.GetString("MOMO_ACCESS_KEY"),
			SecretKey:   v.GetString("MOMO_SECRET_KEY"),
			Endpoint:    v.GetString("MOMO_ENDPOINT"),
			ReturnURL:   v.GetString("MOMO_RETURN_URL"),
			IPNURL:      v.GetString("MOMO_IPN_URL"),
		},

		KafkaBrokers:    splitList(v.GetString("KAFKA_BROKERS")),
		KafkaOrderTopic: v.GetString("KAFKA_ORDER_TOPIC"),

		RedisAddr:       v.GetString("REDIS_ADDR"),
		RedisPassword:   v.GetString("REDIS_PASSWORD"),
		OrderRateLimit:  v.GetInt("ORDER_RATE_LIMIT"),
		OrderRateWindow: v.GetDuration("ORDER_RATE_WINDOW"),

		HTTPReadTimeout:  v.GetDuration("HTTP_READ_TIMEOUT"),
		HTTPWriteTimeout: v.GetDuration("HTTP_WRITE_TIMEOUT"),
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("GO_ENV", "dev")
	v.SetDefault("POSTGRES_HOST", "localhost")
	v.SetDefault("POSTGRES_PORT", 5432)
	v.SetDefault("POSTGRES_SSLMODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 25)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_CONN_MAX_LIFETIME", "30m")
	v.SetDefault("PAYMENT_RETURN_PATH", "/checkout/result")
	v.SetDefault("DEFAULT_LOCATION_CODE", "MAIN")
	v.SetDefault("VNPAY_PAY_URL", "https://sandbox.vnpayment.vn/paymentv2/vpcpay.html")
	v.SetDefault("MOMO_ENDPOINT", "https://test-payment.momo.vn/v2/gateway/api/create")
	v.SetDefault("KAFKA_ORDER_TOPIC", "order-events")
	v.SetDefault("ORDER_RATE_LIMIT", 10)
	v.SetDefault("ORDER_RATE_WINDOW", "1m")
	v.SetDefault("HTTP_READ_TIMEOUT", "10s")
	v.SetDefault("HTTP_WRITE_TIMEOUT", "30s")
}

// 必須チェック
func (c Config) validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT is required")
	}
	if c.DatabaseURL == "" {
		if c.PostgresUser == "" {
			return fmt.Errorf("POSTGRES_USER is required")
		}
		if c.PostgresDB == "" {
			return fmt.Errorf("POSTGRES_DB is required")
		}
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.FEURL == "" {
		return fmt.Errorf("FE_URL is required")
	}
	if c.DefaultLocationCode == "" {
		return fmt.Errorf("DEFAULT_LOCATION_CODE is required")
	}
	if c.OrderRateLimit <= 0 || c.OrderRateWindow <= 0 {
		return fmt.Errorf("ORDER_RATE_LIMIT and ORDER_RATE_WINDOW must be positive")
	}
	return nil
}

// DSNは DATABASE_URL 優先、無ければ POSTGRES_* から組み立てる
func (c Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.PostgresHost, c.PostgresPort, c.PostgresUser, c.PostgresPassword, c.PostgresDB, c.PostgresSSLMode,
	)
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
