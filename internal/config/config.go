package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/vytor/chesscycles/internal/auth"
	"github.com/vytor/chesscycles/internal/logger"
	"github.com/vytor/chesscycles/internal/xp"
)

type Config struct {
	Addr                   string
	DBPath                 string
	LogLevel               string
	IdentityMode           string
	IdentityHeader         string
	JWTSecret              string
	AchievementWorkerCount int
	AchievementQueueSize   int
	AchievementMaxRetries  int

	XPCorrectBase        int
	XPIncorrectBase      int
	XPFastSolveMs        int
	XPFastSolveBonus     int
	XPStreakBonusPerDay  int
	XPStreakBonusCap     int
	XPFirstAttemptBonus  int
	XPImprovementBonus   int
	XPCycleBase          int
	XPCycleAccuracyBonus int
	XPPerfectCycleBonus  int
	XPPerLevelStep       int
}

// Load reads configuration from a .env file (if present) and environment variables,
// applying sensible defaults when values are missing or invalid.
func Load() Config {
	// Ignore error so the app still starts when .env is absent in production.
	_ = godotenv.Load()

	d := xp.DefaultConfig()
	return Config{
		Addr:                   envOr("ADDR", ":8080"),
		DBPath:                 envOr("DB_PATH", "file:chesscycles.db"),
		LogLevel:               envOr("LOG_LEVEL", "INFO"),
		IdentityMode:           envOr("IDENTITY_MODE", auth.ModeJWT),
		IdentityHeader:         envOr("IDENTITY_HEADER", auth.DefaultHeader),
		JWTSecret:              os.Getenv("JWT_SECRET"),
		AchievementWorkerCount: envIntOr("ACHIEVEMENT_WORKER_COUNT", 2),
		AchievementQueueSize:   envIntOr("ACHIEVEMENT_QUEUE_SIZE", 256),
		AchievementMaxRetries:  envIntOr("ACHIEVEMENT_MAX_RETRIES", 3),

		XPCorrectBase:        envIntOr("XP_CORRECT_BASE", d.CorrectBase),
		XPIncorrectBase:      envIntOr("XP_INCORRECT_BASE", d.IncorrectBase),
		XPFastSolveMs:        envIntOr("XP_FAST_SOLVE_MS", d.FastSolveMs),
		XPFastSolveBonus:     envIntOr("XP_FAST_SOLVE_BONUS", d.FastSolveBonus),
		XPStreakBonusPerDay:  envIntOr("XP_STREAK_BONUS_PER_DAY", d.StreakBonusPerDay),
		XPStreakBonusCap:     envIntOr("XP_STREAK_BONUS_CAP", d.StreakBonusCap),
		XPFirstAttemptBonus:  envIntOr("XP_FIRST_ATTEMPT_BONUS", d.FirstAttemptBonus),
		XPImprovementBonus:   envIntOr("XP_IMPROVEMENT_BONUS", d.ImprovementBonus),
		XPCycleBase:          envIntOr("XP_CYCLE_BASE", d.CycleBase),
		XPCycleAccuracyBonus: envIntOr("XP_CYCLE_ACCURACY_BONUS", d.CycleAccuracyBonus),
		XPPerfectCycleBonus:  envIntOr("XP_PERFECT_CYCLE_BONUS", d.PerfectCycleBonus),
		XPPerLevelStep:       envIntOr("XP_PER_LEVEL_STEP", d.PerLevelStep),
	}
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.Addr) == "" {
		problems = append(problems, "ADDR cannot be empty")
	}
	if strings.TrimSpace(c.DBPath) == "" {
		problems = append(problems, "DB_PATH cannot be empty")
	}
	if !logger.ValidLevel(c.LogLevel) {
		problems = append(problems, fmt.Sprintf("LOG_LEVEL %q is not one of DEBUG, INFO, WARN, ERROR", c.LogLevel))
	}
	switch c.IdentityMode {
	case auth.ModeJWT:
		if strings.TrimSpace(c.JWTSecret) == "" {
			problems = append(problems, "JWT_SECRET is required when IDENTITY_MODE is jwt")
		}
	case auth.ModeHeader:
		// Header mode trusts whatever sits in front of the server to authenticate.
		if strings.TrimSpace(c.IdentityHeader) == "" {
			problems = append(problems, "IDENTITY_HEADER cannot be empty")
		}
	default:
		problems = append(problems, fmt.Sprintf("IDENTITY_MODE %q is not one of jwt, header", c.IdentityMode))
	}
	if c.AchievementWorkerCount < 1 {
		problems = append(problems, "ACHIEVEMENT_WORKER_COUNT must be at least 1")
	}
	if c.AchievementQueueSize < 1 {
		problems = append(problems, "ACHIEVEMENT_QUEUE_SIZE must be at least 1")
	}
	if c.AchievementMaxRetries < 0 {
		problems = append(problems, "ACHIEVEMENT_MAX_RETRIES cannot be negative")
	}

	nonNegative := []struct {
		key   string
		value int
	}{
		{"XP_CORRECT_BASE", c.XPCorrectBase},
		{"XP_INCORRECT_BASE", c.XPIncorrectBase},
		{"XP_FAST_SOLVE_MS", c.XPFastSolveMs},
		{"XP_FAST_SOLVE_BONUS", c.XPFastSolveBonus},
		{"XP_STREAK_BONUS_PER_DAY", c.XPStreakBonusPerDay},
		{"XP_STREAK_BONUS_CAP", c.XPStreakBonusCap},
		{"XP_FIRST_ATTEMPT_BONUS", c.XPFirstAttemptBonus},
		{"XP_IMPROVEMENT_BONUS", c.XPImprovementBonus},
		{"XP_CYCLE_BASE", c.XPCycleBase},
		{"XP_CYCLE_ACCURACY_BONUS", c.XPCycleAccuracyBonus},
		{"XP_PERFECT_CYCLE_BONUS", c.XPPerfectCycleBonus},
	}
	for _, v := range nonNegative {
		if v.value < 0 {
			problems = append(problems, fmt.Sprintf("%s cannot be negative", v.key))
		}
	}
	if c.XPPerLevelStep < 1 {
		problems = append(problems, "XP_PER_LEVEL_STEP must be at least 1")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Identity builds the resolver that authenticates API callers.
func (c Config) Identity() (auth.Resolver, error) {
	return auth.New(c.IdentityMode, c.IdentityHeader, c.JWTSecret)
}

// XP returns the experience tuning described by the configuration.
func (c Config) XP() xp.Config {
	return xp.Config{
		CorrectBase:        c.XPCorrectBase,
		IncorrectBase:      c.XPIncorrectBase,
		FastSolveMs:        c.XPFastSolveMs,
		FastSolveBonus:     c.XPFastSolveBonus,
		StreakBonusPerDay:  c.XPStreakBonusPerDay,
		StreakBonusCap:     c.XPStreakBonusCap,
		FirstAttemptBonus:  c.XPFirstAttemptBonus,
		ImprovementBonus:   c.XPImprovementBonus,
		CycleBase:          c.XPCycleBase,
		CycleAccuracyBonus: c.XPCycleAccuracyBonus,
		PerfectCycleBonus:  c.XPPerfectCycleBonus,
		PerLevelStep:       c.XPPerLevelStep,
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envIntOr(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return i
		}
		logger.Warn("invalid value for %s=%q, using default %d", key, v, def)
	}
	return def
}
