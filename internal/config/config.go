// Package config loads stream core configuration from a flat key=value file,
// with environment variables overriding file values.
package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration for the stream core.
type Config struct {
	Pipe     PipeConfig
	Router   RouterConfig
	HLS      HLSConfig
	WebRTC   WebRTCConfig
	Snapshot SnapshotConfig
	PTZ      PTZConfig
	API      APIConfig
}

// PipeConfig controls C1's named-pipe reader.
type PipeConfig struct {
	BaseDir       string
	VideoSuffix   string
	AudioSuffix   string
	OpenTimeout   time.Duration
	ReadTimeout   time.Duration
	ReconnectBase time.Duration
}

// RouterConfig controls C2's source router.
type RouterConfig struct {
	ChannelCapacity int
	AutoStart       bool
	MaxActiveSources int
}

// HLSConfig controls C4's session manager and on-disk storage layout.
type HLSConfig struct {
	StorageDir       string
	SegmentDuration  time.Duration
	PlaylistSize     int
	LowLatency       bool
	PartDuration     time.Duration
	BaseURL          string
	PlaylistWaitMax  time.Duration
	SweepInterval    time.Duration
	SegmentRetention time.Duration
}

// WebRTCConfig controls C5's engine and ICE behaviour.
type WebRTCConfig struct {
	STUNServers       []string
	TURNServer        string
	TURNUsername      string
	TURNCredential    string
	ICEDisconnectTime time.Duration
	ICEFailedTime     time.Duration
	ICEKeepalive      time.Duration
}

// SnapshotConfig controls C6's keyframe-capture and cache behaviour.
type SnapshotConfig struct {
	CacheTTL        time.Duration
	KeyframeTimeout time.Duration
	JPEGQuality     int
	FFmpegPath      string
	WorkerPoolSize  int
}

// PTZConfig controls C7's protocol registry and command dispatch.
type PTZConfig struct {
	SocketDir        string
	ZMControlPath    string
	AllowExecFallback bool
	CommandRateHz    float64
}

// APIConfig controls the HTTP/WS API server.
type APIConfig struct {
	ListenAddr string
}

// Default returns a Config populated with the stream core's default values.
func Default() *Config {
	return &Config{
		Pipe: PipeConfig{
			BaseDir:       "/dev/shm",
			VideoSuffix:   "-v.fifo",
			AudioSuffix:   "-a.fifo",
			OpenTimeout:   5 * time.Second,
			ReadTimeout:   5 * time.Second,
			ReconnectBase: 1 * time.Second,
		},
		Router: RouterConfig{
			ChannelCapacity:  100,
			AutoStart:        true,
			MaxActiveSources: 50,
		},
		HLS: HLSConfig{
			StorageDir:      "/var/cache/streamcore/hls",
			SegmentDuration: 2 * time.Second,
			PlaylistSize:    6,
			LowLatency:      false,
			PartDuration:    200 * time.Millisecond,
			BaseURL:          "",
			PlaylistWaitMax:  6 * time.Second,
			SweepInterval:    60 * time.Second,
			SegmentRetention: 60 * time.Minute,
		},
		WebRTC: WebRTCConfig{
			STUNServers:       []string{"stun:stun.l.google.com:19302"},
			ICEDisconnectTime: 5 * time.Second,
			ICEFailedTime:     10 * time.Second,
			ICEKeepalive:      200 * time.Millisecond,
		},
		Snapshot: SnapshotConfig{
			CacheTTL:        2 * time.Second,
			KeyframeTimeout: 5 * time.Second,
			JPEGQuality:     2,
			FFmpegPath:      "ffmpeg",
			WorkerPoolSize:  4,
		},
		PTZ: PTZConfig{
			SocketDir:         "/var/run/streamcore/ptz",
			ZMControlPath:     "/usr/bin/zmcontrol.pl",
			AllowExecFallback: true,
			CommandRateHz:     10,
		},
		API: APIConfig{
			ListenAddr: ":8080",
		},
	}
}

// Load reads configuration from a flat key=value file, falling back to
// Default() for any key not present, then applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := loadFile(cfg, path); err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func loadFile(cfg *Config, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config file: %w", err)
	}
	defer file.Close()

	values := make(map[string]string)
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		values[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan config file: %w", err)
	}

	applyValues(cfg, values)
	return nil
}

func applyEnvOverrides(cfg *Config) {
	values := make(map[string]string)
	for _, key := range configKeys {
		if v, ok := os.LookupEnv("STREAMCORE_" + strings.ToUpper(key)); ok {
			values[key] = v
		}
	}
	applyValues(cfg, values)
}

var configKeys = []string{
	"pipe_base_dir", "pipe_video_suffix", "pipe_audio_suffix",
	"pipe_open_timeout", "pipe_read_timeout", "pipe_reconnect_base",
	"router_channel_capacity", "router_auto_start", "router_max_active_sources",
	"hls_storage_dir", "hls_segment_duration", "hls_playlist_size",
	"hls_low_latency", "hls_part_duration", "hls_base_url", "hls_playlist_wait_max",
	"hls_sweep_interval", "hls_segment_retention",
	"webrtc_stun_servers", "webrtc_turn_server", "webrtc_turn_username", "webrtc_turn_credential",
	"webrtc_ice_disconnect_time", "webrtc_ice_failed_time", "webrtc_ice_keepalive",
	"snapshot_cache_ttl", "snapshot_keyframe_timeout", "snapshot_jpeg_quality",
	"snapshot_ffmpeg_path", "snapshot_worker_pool_size",
	"ptz_socket_dir", "ptz_zmcontrol_path", "ptz_allow_exec_fallback", "ptz_command_rate_hz",
	"api_listen_addr",
}

func applyValues(cfg *Config, values map[string]string) {
	if v, ok := values["pipe_base_dir"]; ok {
		cfg.Pipe.BaseDir = v
	}
	if v, ok := values["pipe_video_suffix"]; ok {
		cfg.Pipe.VideoSuffix = v
	}
	if v, ok := values["pipe_audio_suffix"]; ok {
		cfg.Pipe.AudioSuffix = v
	}
	if v, ok := values["pipe_open_timeout"]; ok {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Pipe.OpenTimeout = d
		}
	}
	if v, ok := values["pipe_read_timeout"]; ok {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Pipe.ReadTimeout = d
		}
	}
	if v, ok := values["pipe_reconnect_base"]; ok {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Pipe.ReconnectBase = d
		}
	}
	if v, ok := values["router_channel_capacity"]; ok {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Router.ChannelCapacity = n
		}
	}
	if v, ok := values["router_auto_start"]; ok {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Router.AutoStart = b
		}
	}
	if v, ok := values["router_max_active_sources"]; ok {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Router.MaxActiveSources = n
		}
	}
	if v, ok := values["hls_storage_dir"]; ok {
		cfg.HLS.StorageDir = v
	}
	if v, ok := values["hls_segment_duration"]; ok {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.HLS.SegmentDuration = d
		}
	}
	if v, ok := values["hls_playlist_size"]; ok {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.HLS.PlaylistSize = n
		}
	}
	if v, ok := values["hls_low_latency"]; ok {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.HLS.LowLatency = b
		}
	}
	if v, ok := values["hls_part_duration"]; ok {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.HLS.PartDuration = d
		}
	}
	if v, ok := values["hls_base_url"]; ok {
		cfg.HLS.BaseURL = v
	}
	if v, ok := values["hls_playlist_wait_max"]; ok {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.HLS.PlaylistWaitMax = d
		}
	}
	if v, ok := values["hls_sweep_interval"]; ok {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.HLS.SweepInterval = d
		}
	}
	if v, ok := values["hls_segment_retention"]; ok {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.HLS.SegmentRetention = d
		}
	}
	if v, ok := values["webrtc_stun_servers"]; ok {
		cfg.WebRTC.STUNServers = strings.Split(v, ",")
	}
	if v, ok := values["webrtc_turn_server"]; ok {
		cfg.WebRTC.TURNServer = v
	}
	if v, ok := values["webrtc_turn_username"]; ok {
		cfg.WebRTC.TURNUsername = v
	}
	if v, ok := values["webrtc_turn_credential"]; ok {
		cfg.WebRTC.TURNCredential = v
	}
	if v, ok := values["webrtc_ice_disconnect_time"]; ok {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.WebRTC.ICEDisconnectTime = d
		}
	}
	if v, ok := values["webrtc_ice_failed_time"]; ok {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.WebRTC.ICEFailedTime = d
		}
	}
	if v, ok := values["webrtc_ice_keepalive"]; ok {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.WebRTC.ICEKeepalive = d
		}
	}
	if v, ok := values["snapshot_cache_ttl"]; ok {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Snapshot.CacheTTL = d
		}
	}
	if v, ok := values["snapshot_keyframe_timeout"]; ok {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Snapshot.KeyframeTimeout = d
		}
	}
	if v, ok := values["snapshot_jpeg_quality"]; ok {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Snapshot.JPEGQuality = n
		}
	}
	if v, ok := values["snapshot_ffmpeg_path"]; ok {
		cfg.Snapshot.FFmpegPath = v
	}
	if v, ok := values["snapshot_worker_pool_size"]; ok {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Snapshot.WorkerPoolSize = n
		}
	}
	if v, ok := values["ptz_socket_dir"]; ok {
		cfg.PTZ.SocketDir = v
	}
	if v, ok := values["ptz_zmcontrol_path"]; ok {
		cfg.PTZ.ZMControlPath = v
	}
	if v, ok := values["ptz_allow_exec_fallback"]; ok {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.PTZ.AllowExecFallback = b
		}
	}
	if v, ok := values["ptz_command_rate_hz"]; ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.PTZ.CommandRateHz = f
		}
	}
	if v, ok := values["api_listen_addr"]; ok {
		cfg.API.ListenAddr = v
	}
}

// Validate checks that required configuration fields form a usable setup.
func (c *Config) Validate() error {
	if c.Pipe.BaseDir == "" {
		return fmt.Errorf("pipe_base_dir must not be empty")
	}
	if c.Router.ChannelCapacity <= 0 {
		return fmt.Errorf("router_channel_capacity must be positive")
	}
	if c.Router.MaxActiveSources <= 0 {
		return fmt.Errorf("router_max_active_sources must be positive")
	}
	if c.HLS.StorageDir == "" {
		return fmt.Errorf("hls_storage_dir must not be empty")
	}
	if c.HLS.PlaylistSize <= 0 {
		return fmt.Errorf("hls_playlist_size must be positive")
	}
	if len(c.WebRTC.STUNServers) == 0 {
		return fmt.Errorf("webrtc_stun_servers must have at least one entry")
	}
	if c.Snapshot.JPEGQuality < 0 {
		return fmt.Errorf("snapshot_jpeg_quality must not be negative")
	}
	return nil
}
