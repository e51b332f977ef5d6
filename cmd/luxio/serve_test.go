package main

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/muurk/luxio/internal/logging"
)

func TestSplitListenAddr(t *testing.T) {
	tests := []struct {
		addr     string
		wantHost string
		wantPort int
		wantErr  bool
	}{
		{":80", "", 80, false},
		{"127.0.0.1:8080", "127.0.0.1", 8080, false},
		{"[::1]:9000", "::1", 9000, false},
		{"localhost", "", 0, true},
		{":notaport", "", 0, true},
	}

	for _, tt := range tests {
		host, port, err := splitListenAddr(tt.addr)
		if (err != nil) != tt.wantErr {
			t.Errorf("splitListenAddr(%q) error = %v, wantErr %v", tt.addr, err, tt.wantErr)
			continue
		}
		if tt.wantErr {
			continue
		}
		if host != tt.wantHost || port != tt.wantPort {
			t.Errorf("splitListenAddr(%q) = %q, %d, want %q, %d", tt.addr, host, port, tt.wantHost, tt.wantPort)
		}
	}
}

func TestHardwareIDSimulated(t *testing.T) {
	simulate = true
	defer func() { simulate = false }()
	if got := hardwareID(); got != SimulatedMAC {
		t.Errorf("hardwareID() = %q, want %q", got, SimulatedMAC)
	}
}

func TestLogLevelDefaults(t *testing.T) {
	t.Setenv(logging.LogLevelEnvVar, "")
	t.Cleanup(func() { logging.SetLogger(zap.NewNop()) })

	flag := rootCmd.PersistentFlags().Lookup("log-level")
	if flag.DefValue != "" {
		t.Fatalf("--log-level default = %q, want empty", flag.DefValue)
	}
	logLevel = flag.DefValue

	if err := rootCmd.PersistentPreRunE(versionCmd, nil); err != nil {
		t.Fatal(err)
	}
	if logging.GetLogger().Core().Enabled(zapcore.InfoLevel) {
		t.Error("client commands log at info, want silent")
	}

	if err := serveCmd.PreRunE(serveCmd, nil); err != nil {
		t.Fatal(err)
	}
	if !logging.GetLogger().Core().Enabled(zapcore.InfoLevel) {
		t.Error("serve does not log at info by default")
	}
}
