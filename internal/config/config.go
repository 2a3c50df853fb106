package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	AppEnv   string
	LogLevel slog.Level

	// CollectInterval is the fixed delay between sensor collection cycles.
	CollectInterval time.Duration
	StationID       string

	DBHost            string
	DBPort            int
	DBName            string
	DBUser            string
	DBPassword        string
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration

	HTTPAddr string

	// MQTTBroker empty disables publishing.
	MQTTBroker      string
	MQTTPort        int
	MQTTClientID    string
	MQTTTopicPrefix string

	// I2CBus empty opens the first available bus.
	I2CBus      string
	SHT31Addr   uint16
	BH1750Addr  uint16
	ADS1115Addr uint16

	SoilChannel int
	// Raw converter calibration endpoints; capacitive probes read lower
	// when wet, so dry must be above wet.
	SoilDryRaw int
	SoilWetRaw int

	// W1DeviceID empty discovers the first DS18B20 on the bus.
	W1DeviceID string

	CPUTempKey string

	SpoolPath string
}

func LoadFromEnv() (Config, error) {
	appEnv := strings.TrimSpace(os.Getenv("APP_ENV"))
	if appEnv == "" {
		appEnv = "dev"
	}
	switch appEnv {
	case "dev", "prod":
	default:
		return Config{}, fmt.Errorf("invalid APP_ENV %q (allowed: dev, prod)", appEnv)
	}

	logLevelStr := strings.TrimSpace(os.Getenv("LOG_LEVEL"))
	if logLevelStr == "" {
		logLevelStr = "info"
	}
	level, err := parseLogLevel(logLevelStr)
	if err != nil {
		return Config{}, err
	}

	collectIntervalStr := strings.TrimSpace(os.Getenv("COLLECT_INTERVAL"))
	if collectIntervalStr == "" {
		collectIntervalStr = "60s"
	}
	collectInterval, err := time.ParseDuration(collectIntervalStr)
	if err != nil {
		return Config{}, fmt.Errorf("invalid COLLECT_INTERVAL %q: %w", collectIntervalStr, err)
	}
	if collectInterval <= 0 {
		return Config{}, fmt.Errorf("COLLECT_INTERVAL must be positive, got %v", collectInterval)
	}

	stationID := strings.TrimSpace(os.Getenv("STATION_ID"))
	if stationID == "" {
		stationID, err = os.Hostname()
		if err != nil || stationID == "" {
			stationID = "gardenmon"
		}
	}

	dbHost := strings.TrimSpace(os.Getenv("DB_HOST"))
	if dbHost == "" {
		dbHost = "localhost"
	}

	dbPortStr := strings.TrimSpace(os.Getenv("DB_PORT"))
	if dbPortStr == "" {
		dbPortStr = "3306"
	}
	dbPort, err := strconv.Atoi(dbPortStr)
	if err != nil {
		return Config{}, fmt.Errorf("invalid DB_PORT %q: %w", dbPortStr, err)
	}

	dbName := strings.TrimSpace(os.Getenv("DB_NAME"))
	if dbName == "" {
		dbName = "gardenmon"
	}

	dbUser := strings.TrimSpace(os.Getenv("DB_USER"))
	if dbUser == "" {
		dbUser = "gardenmon"
	}

	// The command line credential overrides this after loading.
	dbPassword := strings.TrimSpace(os.Getenv("DB_PASSWORD"))

	dbMaxOpenConnsStr := strings.TrimSpace(os.Getenv("DB_MAX_OPEN_CONNS"))
	if dbMaxOpenConnsStr == "" {
		dbMaxOpenConnsStr = "4"
	}
	dbMaxOpenConns, err := strconv.Atoi(dbMaxOpenConnsStr)
	if err != nil {
		return Config{}, fmt.Errorf("invalid DB_MAX_OPEN_CONNS %q: %w", dbMaxOpenConnsStr, err)
	}

	dbMaxIdleConnsStr := strings.TrimSpace(os.Getenv("DB_MAX_IDLE_CONNS"))
	if dbMaxIdleConnsStr == "" {
		dbMaxIdleConnsStr = "2"
	}
	dbMaxIdleConns, err := strconv.Atoi(dbMaxIdleConnsStr)
	if err != nil {
		return Config{}, fmt.Errorf("invalid DB_MAX_IDLE_CONNS %q: %w", dbMaxIdleConnsStr, err)
	}

	dbConnMaxLifetimeStr := strings.TrimSpace(os.Getenv("DB_CONN_MAX_LIFETIME"))
	if dbConnMaxLifetimeStr == "" {
		dbConnMaxLifetimeStr = "3m"
	}
	dbConnMaxLifetime, err := time.ParseDuration(dbConnMaxLifetimeStr)
	if err != nil {
		return Config{}, fmt.Errorf("invalid DB_CONN_MAX_LIFETIME %q: %w", dbConnMaxLifetimeStr, err)
	}

	httpAddr := strings.TrimSpace(os.Getenv("HTTP_ADDR"))
	if httpAddr == "" {
		httpAddr = ":8080"
	}

	mqttBroker := strings.TrimSpace(os.Getenv("MQTT_BROKER"))

	mqttPortStr := strings.TrimSpace(os.Getenv("MQTT_PORT"))
	if mqttPortStr == "" {
		mqttPortStr = "1883"
	}
	mqttPort, err := strconv.Atoi(mqttPortStr)
	if err != nil {
		return Config{}, fmt.Errorf("invalid MQTT_PORT %q: %w", mqttPortStr, err)
	}

	mqttClientID := strings.TrimSpace(os.Getenv("MQTT_CLIENT_ID"))
	if mqttClientID == "" {
		mqttClientID = "gardenmon"
	}

	mqttTopicPrefix := strings.TrimSpace(os.Getenv("MQTT_TOPIC_PREFIX"))
	if mqttTopicPrefix == "" {
		mqttTopicPrefix = "gardenmon"
	}

	i2cBus := strings.TrimSpace(os.Getenv("I2C_BUS"))

	sht31AddrStr := strings.TrimSpace(os.Getenv("SHT31_ADDRESS"))
	if sht31AddrStr == "" {
		sht31AddrStr = "0x44"
	}
	sht31Addr, err := strconv.ParseUint(sht31AddrStr, 0, 16)
	if err != nil {
		return Config{}, fmt.Errorf("invalid SHT31_ADDRESS %q: %w", sht31AddrStr, err)
	}

	bh1750AddrStr := strings.TrimSpace(os.Getenv("BH1750_ADDRESS"))
	if bh1750AddrStr == "" {
		bh1750AddrStr = "0x23"
	}
	bh1750Addr, err := strconv.ParseUint(bh1750AddrStr, 0, 16)
	if err != nil {
		return Config{}, fmt.Errorf("invalid BH1750_ADDRESS %q: %w", bh1750AddrStr, err)
	}

	ads1115AddrStr := strings.TrimSpace(os.Getenv("ADS1115_ADDRESS"))
	if ads1115AddrStr == "" {
		ads1115AddrStr = "0x48"
	}
	ads1115Addr, err := strconv.ParseUint(ads1115AddrStr, 0, 16)
	if err != nil {
		return Config{}, fmt.Errorf("invalid ADS1115_ADDRESS %q: %w", ads1115AddrStr, err)
	}

	soilChannelStr := strings.TrimSpace(os.Getenv("SOIL_CHANNEL"))
	if soilChannelStr == "" {
		soilChannelStr = "0"
	}
	soilChannel, err := strconv.Atoi(soilChannelStr)
	if err != nil {
		return Config{}, fmt.Errorf("invalid SOIL_CHANNEL %q: %w", soilChannelStr, err)
	}
	if soilChannel < 0 || soilChannel > 3 {
		return Config{}, fmt.Errorf("SOIL_CHANNEL must be 0-3, got %d", soilChannel)
	}

	soilDryRawStr := strings.TrimSpace(os.Getenv("SOIL_DRY_RAW"))
	if soilDryRawStr == "" {
		soilDryRawStr = "26000"
	}
	soilDryRaw, err := strconv.Atoi(soilDryRawStr)
	if err != nil {
		return Config{}, fmt.Errorf("invalid SOIL_DRY_RAW %q: %w", soilDryRawStr, err)
	}

	soilWetRawStr := strings.TrimSpace(os.Getenv("SOIL_WET_RAW"))
	if soilWetRawStr == "" {
		soilWetRawStr = "11000"
	}
	soilWetRaw, err := strconv.Atoi(soilWetRawStr)
	if err != nil {
		return Config{}, fmt.Errorf("invalid SOIL_WET_RAW %q: %w", soilWetRawStr, err)
	}
	if soilDryRaw <= soilWetRaw {
		return Config{}, fmt.Errorf("SOIL_DRY_RAW (%d) must be above SOIL_WET_RAW (%d)", soilDryRaw, soilWetRaw)
	}

	w1DeviceID := strings.TrimSpace(os.Getenv("W1_DEVICE_ID"))

	cpuTempKey := strings.TrimSpace(os.Getenv("CPU_TEMP_KEY"))
	if cpuTempKey == "" {
		cpuTempKey = "cpu"
	}

	spoolPath := strings.TrimSpace(os.Getenv("SPOOL_PATH"))
	if spoolPath == "" {
		spoolPath = "gardenmon.spool.db"
	}

	return Config{
		AppEnv:            appEnv,
		LogLevel:          level,
		CollectInterval:   collectInterval,
		StationID:         stationID,
		DBHost:            dbHost,
		DBPort:            dbPort,
		DBName:            dbName,
		DBUser:            dbUser,
		DBPassword:        dbPassword,
		DBMaxOpenConns:    dbMaxOpenConns,
		DBMaxIdleConns:    dbMaxIdleConns,
		DBConnMaxLifetime: dbConnMaxLifetime,
		HTTPAddr:          httpAddr,
		MQTTBroker:        mqttBroker,
		MQTTPort:          mqttPort,
		MQTTClientID:      mqttClientID,
		MQTTTopicPrefix:   mqttTopicPrefix,
		I2CBus:            i2cBus,
		SHT31Addr:         uint16(sht31Addr),
		BH1750Addr:        uint16(bh1750Addr),
		ADS1115Addr:       uint16(ads1115Addr),
		SoilChannel:       soilChannel,
		SoilDryRaw:        soilDryRaw,
		SoilWetRaw:        soilWetRaw,
		W1DeviceID:        w1DeviceID,
		CPUTempKey:        cpuTempKey,
		SpoolPath:         spoolPath,
	}, nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", s)
	}
}
