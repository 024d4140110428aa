package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every setting the server and the operator CLI read from the environment
type Config struct {
	Env    string
	Port   string
	AppURL string

	DatabaseURL string
	RedisURL    string
	CachePrefix string
	CacheTTL    time.Duration

	AuthProvider            string // "jwt" or "firebase"
	JWTSecret               string
	JWTTTL                  time.Duration
	FirebaseCredentialsPath string

	PaymentGateway    string // "paystack" or "midtrans"
	GatewayTimeout    time.Duration
	PaystackSecretKey string
	PaystackBaseURL   string
	MidtransServerKey string
	MidtransClientKey string
	MidtransIsProd    bool

	SMSProvider            string // "africastalking", "waha" or "none"
	AfricasTalkingUsername string
	AfricasTalkingAPIKey   string
	AfricasTalkingSenderID string
	WahaBaseURL            string
	WahaAPIKey             string
	WahaSession            string
	PhoneCountryCode       string

	SMTPHost  string
	SMTPPort  int
	SMTPUser  string
	SMTPPass  string
	EmailFrom string

	SchoolName string
	Currency   string
}

// Load reads .env (if present) and then the process environment
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment")
	}

	return &Config{
		Env:    getEnv("ENV", "development"),
		Port:   getEnv("PORT", "8080"),
		AppURL: strings.TrimRight(getEnv("APP_URL", "http://localhost:8080"), "/"),

		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisURL:    os.Getenv("REDIS_URL"),
		CachePrefix: getEnv("CACHE_PREFIX", "school_fees"),
		CacheTTL:    getDuration("CACHE_TTL", 5*time.Minute),

		AuthProvider:            strings.ToLower(getEnv("AUTH_PROVIDER", "jwt")),
		JWTSecret:               os.Getenv("JWT_SECRET"),
		JWTTTL:                  getDuration("JWT_TTL", 30*time.Minute),
		FirebaseCredentialsPath: getEnv("FIREBASE_CREDENTIALS_PATH", "./firebase-service-account.json"),

		PaymentGateway:    strings.ToLower(getEnv("PAYMENT_GATEWAY", "paystack")),
		GatewayTimeout:    getDuration("GATEWAY_TIMEOUT", 30*time.Second),
		PaystackSecretKey: os.Getenv("PAYSTACK_SECRET_KEY"),
		PaystackBaseURL:   getEnv("PAYSTACK_BASE_URL", "https://api.paystack.co"),
		MidtransServerKey: os.Getenv("MIDTRANS_SERVER_KEY"),
		MidtransClientKey: os.Getenv("MIDTRANS_CLIENT_KEY"),
		MidtransIsProd:    os.Getenv("MIDTRANS_IS_PRODUCTION") == "true",

		SMSProvider:            strings.ToLower(getEnv("SMS_PROVIDER", "africastalking")),
		AfricasTalkingUsername: getEnv("AFRICASTALKING_USERNAME", "sandbox"),
		AfricasTalkingAPIKey:   os.Getenv("AFRICASTALKING_API_KEY"),
		AfricasTalkingSenderID: os.Getenv("AFRICASTALKING_SENDER_ID"),
		WahaBaseURL:            getEnv("WAHA_BASE_URL", "http://waha:3000"),
		WahaAPIKey:             os.Getenv("WAHA_API_KEY"),
		WahaSession:            getEnv("WAHA_SESSION", "default"),
		PhoneCountryCode:       getEnv("PHONE_COUNTRY_CODE", "233"),

		SMTPHost:  os.Getenv("SMTP_HOST"),
		SMTPPort:  getInt("SMTP_PORT", 587),
		SMTPUser:  os.Getenv("SMTP_USER"),
		SMTPPass:  os.Getenv("SMTP_PASS"),
		EmailFrom: getEnv("EMAIL_FROM", "finance@stevaacademy.edu.gh"),

		SchoolName: getEnv("SCHOOL_NAME", "Steva Academy"),
		Currency:   getEnv("CURRENCY", "GHS"),
	}
}

// IsProduction reports whether the service runs with production defaults
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("Invalid integer for %s (%q), using %d", key, v, fallback)
		return fallback
	}
	return n
}

// getDuration accepts Go durations ("45s") or a bare number of seconds ("30")
func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	log.Printf("Invalid duration for %s (%q), using %s", key, v, fallback)
	return fallback
}
