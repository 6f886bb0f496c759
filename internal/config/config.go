package config

import (
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Port     string
	MongoURI string
	MongoDB  string

	PrivateKeyPath    string
	PublicKeyPath     string
	KeyID             string
	TokenTTLHours     int
	TokenHistoryLimit int
	OTPTTLMinutes     int
	OTPRateLimit      int // per client IP per minute; 0 disables

	RedisAddr           string
	UserCacheTTLSeconds int

	RabbitURL         string
	RabbitExchange    string
	RabbitQueue       string
	RabbitConcurrency int

	MailTransport   string // direct | queue | log
	SMTPHost        string
	SMTPPort        int
	SMTPUser        string
	SMTPPassword    string
	MailFrom        string
	MailSenderLabel string

	StorageBackend string // disk | s3
	UploadDir      string
	S3Region       string
	S3Endpoint     string
	S3Bucket       string
	S3AccessKey    string
	S3SecretKey    string

	LogProd   bool
	DDEnabled bool
	DDService string
}

func Load() Config {
	return Config{
		Port:     getenv("APP_PORT", "3000"),
		MongoURI: getenv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:  getenv("MONGO_DB", "doux_event"),

		PrivateKeyPath:    getenv("JWT_PRIVATE_KEY", "./keys/private.key"),
		PublicKeyPath:     getenv("JWT_PUBLIC_KEY", "./keys/public.key"),
		KeyID:             getenv("JWT_KID", "main"),
		TokenTTLHours:     atoi(getenv("TOKEN_TTL_HOURS", "24")),
		TokenHistoryLimit: atoi(getenv("TOKEN_HISTORY_LIMIT", "0")),
		OTPTTLMinutes:     atoi(getenv("OTP_TTL_MINUTES", "5")),
		OTPRateLimit:      atoi(getenv("OTP_RATE_LIMIT", "0")),

		RedisAddr:           getenv("REDIS_ADDR", ""),
		UserCacheTTLSeconds: atoi(getenv("USER_CACHE_TTL_SECONDS", "30")),

		RabbitURL:         getenv("RABBIT_URL", ""),
		RabbitExchange:    getenv("RABBIT_EXCHANGE", "notify.events"),
		RabbitQueue:       getenv("RABBIT_QUEUE", "mailq"),
		RabbitConcurrency: atoi(getenv("RABBIT_CONCURRENCY", "4")),

		MailTransport:   strings.ToLower(getenv("MAIL_TRANSPORT", "direct")),
		SMTPHost:        getenv("SMTP_HOST", "smtp.gmail.com"),
		SMTPPort:        atoi(getenv("SMTP_PORT", "587")),
		SMTPUser:        getenv("SMTP_USER", getenv("EMAIL_HOST", "")),
		SMTPPassword:    getenv("SMTP_PASSWORD", getenv("EMAIL_HOST_PASSWORD", "")),
		MailFrom:        getenv("MAIL_FROM", getenv("EMAIL_HOST", "")),
		MailSenderLabel: getenv("MAIL_SENDER_LABEL", "Doux Event"),

		StorageBackend: strings.ToLower(getenv("STORAGE_BACKEND", "disk")),
		UploadDir:      getenv("UPLOAD_DIR", "./public/images"),
		S3Region:       getenv("S3_REGION", "us-east-1"),
		S3Endpoint:     getenv("S3_ENDPOINT", ""),
		S3Bucket:       getenv("S3_BUCKET", "event-images"),
		S3AccessKey:    getenv("S3_ACCESS_KEY", ""),
		S3SecretKey:    getenv("S3_SECRET_KEY", ""),

		LogProd:   getbool("LOG_PROD", false),
		DDEnabled: getbool("DD_ENABLED", false),
		DDService: getenv("DD_SERVICE", "event-service"),
	}
}

func atoi(s string) int {
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return 0
}

func getbool(k string, def bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(k)); err == nil {
		return v
	}
	return def
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
