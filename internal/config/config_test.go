package config

import (
	"testing"
	"time"
)

func TestLoadServerConfigDefaults(t *testing.T) {
	cfg, err := LoadServerConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q", cfg.HTTPAddr)
	}
	if cfg.DispatchRadiusMeters != 8047 {
		t.Errorf("DispatchRadiusMeters = %v", cfg.DispatchRadiusMeters)
	}
	if cfg.BookingRequestTimeout != 60*time.Second {
		t.Errorf("BookingRequestTimeout = %v", cfg.BookingRequestTimeout)
	}
	if cfg.RedisGeoKey != "fleet_geo" || cfg.KafkaTopic != "mechanic-locations" {
		t.Errorf("unexpected defaults: %q %q", cfg.RedisGeoKey, cfg.KafkaTopic)
	}
}

func TestLoadServerConfigOverrides(t *testing.T) {
	t.Setenv("DISPATCH_RADIUS_METERS", "5000")
	t.Setenv("BOOKING_REQUEST_TIMEOUT", "90s")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092 ,")
	t.Setenv("LOG_LEVEL", "DEBUG")

	cfg, err := LoadServerConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.DispatchRadiusMeters != 5000 {
		t.Errorf("DispatchRadiusMeters = %v", cfg.DispatchRadiusMeters)
	}
	if cfg.BookingRequestTimeout != 90*time.Second {
		t.Errorf("BookingRequestTimeout = %v", cfg.BookingRequestTimeout)
	}
	if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[1] != "kafka-2:9092" {
		t.Errorf("KafkaBrokers = %v", cfg.KafkaBrokers)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q", cfg.LogLevel)
	}
}

func TestLoadServerConfigRejectsBadValues(t *testing.T) {
	t.Setenv("BOOKING_REQUEST_TIMEOUT", "soon")
	t.Setenv("DISPATCH_RADIUS_METERS", "-1")

	if _, err := LoadServerConfig(); err == nil {
		t.Fatal("expected error for invalid values")
	}
}
