package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Config holds everything the bot reads from the environment.
type Config struct {
	// MTProto credentials (my.telegram.org) — needed to read channel history.
	APIID   int
	APIHash string

	// Bot API token (@BotFather).
	BotToken string

	// MongoDB.
	DatabaseURI  string
	DatabaseName string

	OwnerID    int64
	LogChannel int64 // optional, 0 = disabled

	// Force-subscribe channel (username or -100 id). Empty = disabled.
	UpdatesChannel string

	// Source channels to index: space-separated usernames and/or -100 ids.
	IndexChannels []string

	StartMsg               string
	NotFoundMsg            string
	ForceSubMsg            string
	RequestMovieButtonText string
	RequestMovieURL        string

	MaxResults     int
	BroadcastSleep time.Duration
}

func getEnv(key string, log *zap.Logger) string {
	if val, exists := os.LookupEnv(key); exists {
		return val
	}
	log.Error("required environment variable is not set", zap.String("key", key))
	panic("missing required environment variable: " + key)
}

func optEnv(key, def string) string {
	if val, exists := os.LookupEnv(key); exists {
		return val
	}
	return def
}

func Load(log *zap.Logger) *Config {
	cfg := &Config{
		APIID:        parseInt(getEnv("API_ID", log), 0),
		APIHash:      strings.TrimSpace(getEnv("API_HASH", log)),
		BotToken:     strings.TrimSpace(getEnv("BOT_TOKEN", log)),
		DatabaseURI:  strings.TrimSpace(getEnv("DATABASE_URI", log)),
		DatabaseName: strings.TrimSpace(optEnv("DATABASE_NAME", "autofilter")),
		OwnerID:      parseInt64(getEnv("OWNER_ID", log), 0),
		LogChannel:   parseInt64(optEnv("LOG_CHANNEL", "0"), 0),

		UpdatesChannel: strings.TrimSpace(optEnv("UPDATES_CHANNEL", "")),
		IndexChannels:  strings.Fields(optEnv("INDEX_CHANNELS", "")),

		StartMsg: optEnv("START_MSG",
			"Hello {mention},\nI am an auto filter bot. Send me a movie/series name in the group and I will search the connected channels for you!"),
		NotFoundMsg: optEnv("NOT_FOUND_MSG",
			"Sorry, I couldn't find any media matching your query: {query}"),
		ForceSubMsg: optEnv("FORCE_SUB_MSG",
			"Hello {mention},\n\nYou need to join my updates channel to use me!\nPlease join {channel} and then try again."),
		RequestMovieButtonText: optEnv("REQUEST_MOVIE_BUTTON_TEXT", "❓ Request Movie"),
		RequestMovieURL:        strings.TrimSpace(optEnv("REQUEST_MOVIE_URL", "")),

		MaxResults:     parseInt(optEnv("MAX_RESULTS", "5"), 5),
		BroadcastSleep: time.Duration(parseInt(optEnv("SLEEP_TIME_BCAST", "2"), 2)) * time.Second,
	}

	if cfg.APIID == 0 || cfg.OwnerID == 0 {
		log.Error("API_ID and OWNER_ID must be numeric and non-zero")
		panic("invalid API_ID or OWNER_ID")
	}
	if len(cfg.IndexChannels) == 0 {
		log.Warn("INDEX_CHANNELS is not set; /index needs an explicit target")
	}
	if cfg.LogChannel == 0 {
		log.Warn("LOG_CHANNEL is not set; status reports go to the local log only")
	}
	return cfg
}

func parseInt(s string, def int) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func parseInt64(s string, def int64) int64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return def
	}
	return n
}
