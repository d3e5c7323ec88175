package cliconfig

import (
	"reflect"
	"testing"
	"time"
)

func TestApplyEnvConfig(t *testing.T) {
	tests := []struct {
		name     string
		envVars  map[string]string
		changed  map[string]bool
		initial  Config
		expected Config
		wantErr  bool
	}{
		{
			name: "applies all valid env vars",
			envVars: map[string]string{
				"MULTIFLOW_DEVICES":          "4",
				"MULTIFLOW_CAPACITY":         "1024",
				"MULTIFLOW_NOTIFY_BUFFER":    "2",
				"MULTIFLOW_MINOR":            "0",
				"MULTIFLOW_DISABLED":         "1, 3",
				"MULTIFLOW_COMMIT_DELAY":     "1s",
				"MULTIFLOW_SHUTDOWN_TIMEOUT": "5s",
				"MULTIFLOW_STATS_INTERVAL":   "10s",
				"MULTIFLOW_ENABLE_FILE":      "/tmp/enabled.toml",
				"MULTIFLOW_LOG_LEVEL":        "warn",
			},
			changed: map[string]bool{},
			initial: Config{Minor: 2},
			expected: Config{
				Devices:         4,
				Capacity:        1024,
				NotifyBuffer:    2,
				Minor:           0,
				Disabled:        []int{1, 3},
				CommitDelay:     time.Second,
				ShutdownTimeout: 5 * time.Second,
				StatsInterval:   10 * time.Second,
				EnableFile:      "/tmp/enabled.toml",
				LogLevel:        "warn",
			},
		},
		{
			name: "respects changed flags",
			envVars: map[string]string{
				"MULTIFLOW_DEVICES":   "4",
				"MULTIFLOW_LOG_LEVEL": "debug",
			},
			changed:  map[string]bool{"devices": true},
			initial:  Config{Devices: 2},
			expected: Config{Devices: 2, LogLevel: "debug"},
		},
		{
			name:     "ignores non-positive counts",
			envVars:  map[string]string{"MULTIFLOW_CAPACITY": "0"},
			changed:  map[string]bool{},
			initial:  Config{Capacity: 64},
			expected: Config{Capacity: 64},
		},
		{
			name:    "invalid duration",
			envVars: map[string]string{"MULTIFLOW_COMMIT_DELAY": "later"},
			changed: map[string]bool{},
			wantErr: true,
		},
		{
			name:    "invalid int",
			envVars: map[string]string{"MULTIFLOW_DEVICES": "many"},
			changed: map[string]bool{},
			wantErr: true,
		},
		{
			name:    "invalid list entry",
			envVars: map[string]string{"MULTIFLOW_DISABLED": "1,x"},
			changed: map[string]bool{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			cfg := tt.initial
			err := ApplyEnvConfig(&cfg, tt.changed)

			if tt.wantErr {
				if err == nil {
					t.Error("ApplyEnvConfig() expected error but got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("ApplyEnvConfig() unexpected error: %v", err)
			}
			if !reflect.DeepEqual(cfg, tt.expected) {
				t.Errorf("config = %+v, want %+v", cfg, tt.expected)
			}
		})
	}
}
