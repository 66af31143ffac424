package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestLoadConfigDefaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	LoadConfig()

	assert.Equal(t, "8080", AppConfig.AppPort)
	assert.Equal(t, "mongo", AppConfig.StoreDriver)
	assert.Equal(t, 15*time.Minute, AppConfig.HoldTTL)
	assert.Equal(t, time.Minute, AppConfig.SweepInterval)
	assert.Equal(t, int64(100000), AppConfig.BookingFee)
	assert.Equal(t, "INR", AppConfig.BookingCurrency)
	assert.Equal(t, "sandbox", AppConfig.PaymentProvider)
	assert.False(t, IsProduction())
}

func TestLoadConfigFromEnv(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	t.Setenv("STORE_DRIVER", "sqlite")
	t.Setenv("HOLD_TTL", "5m")
	t.Setenv("ENV", "production")
	t.Setenv("APP_TIMEZONE", "Asia/Kolkata")
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8,127.0.0.1")

	LoadConfig()

	assert.Equal(t, []string{"10.0.0.0/8", "127.0.0.1"}, AppConfig.TrustedProxies)

	assert.Equal(t, "sqlite", AppConfig.StoreDriver)
	assert.Equal(t, 5*time.Minute, AppConfig.HoldTTL)
	assert.True(t, IsProduction())
	assert.Equal(t, "Asia/Kolkata", Location().String())
}

func TestLocationFallsBackToUTC(t *testing.T) {
	prev := AppConfig
	t.Cleanup(func() { AppConfig = prev })

	AppConfig.Timezone = "Not/AZone"
	assert.Equal(t, time.UTC, Location())

	AppConfig.Timezone = ""
	assert.Equal(t, time.UTC, Location())
}

func TestHoldTTLDefault(t *testing.T) {
	prev := AppConfig
	t.Cleanup(func() { AppConfig = prev })

	AppConfig.HoldTTL = 0
	assert.Equal(t, 15*time.Minute, HoldTTL())

	AppConfig.HoldTTL = 2 * time.Minute
	assert.Equal(t, 2*time.Minute, HoldTTL())
}
