package logger

import (
	"flag"
	"fmt"
)

// Flags holds command-line flag values for logger configuration.
type Flags struct {
	LogLevel     string
	LogFormat    string
	LogFile      string
	DebugPipe    bool
	DebugNAL     bool
	DebugSegment bool
	DebugHLS     bool
	DebugWebRTC  bool
	DebugPTZ     bool
	DebugAll     bool
}

// RegisterFlags registers logger-related flags on the given FlagSet.
func RegisterFlags(fs *flag.FlagSet) *Flags {
	f := &Flags{}
	fs.StringVar(&f.LogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	fs.StringVar(&f.LogFormat, "log-format", "text", "Log format (text, json)")
	fs.StringVar(&f.LogFile, "log-file", "", "Log output file (default: stdout)")
	fs.BoolVar(&f.DebugPipe, "debug-pipe", false, "Enable pipe reader debug logging")
	fs.BoolVar(&f.DebugNAL, "debug-nal", false, "Enable NAL unit debug logging")
	fs.BoolVar(&f.DebugSegment, "debug-segment", false, "Enable segmenter debug logging")
	fs.BoolVar(&f.DebugHLS, "debug-hls", false, "Enable HLS session debug logging")
	fs.BoolVar(&f.DebugWebRTC, "debug-webrtc", false, "Enable WebRTC debug logging")
	fs.BoolVar(&f.DebugPTZ, "debug-ptz", false, "Enable PTZ debug logging")
	fs.BoolVar(&f.DebugAll, "debug-all", false, "Enable all debug categories")
	return f
}

// ToConfig converts parsed Flags into a logger Config.
func (f *Flags) ToConfig() (*Config, error) {
	cfg := NewConfig()

	level, err := ParseLevel(f.LogLevel)
	if err != nil {
		return nil, err
	}
	cfg.Level = level

	format, err := ParseFormat(f.LogFormat)
	if err != nil {
		return nil, err
	}
	cfg.Format = format

	cfg.OutputFile = f.LogFile

	anyDebug := false
	if f.DebugAll {
		cfg.EnableCategory(DebugAll)
		anyDebug = true
	}
	if f.DebugPipe {
		cfg.EnableCategory(DebugPipe)
		anyDebug = true
	}
	if f.DebugNAL {
		cfg.EnableCategory(DebugNAL)
		anyDebug = true
	}
	if f.DebugSegment {
		cfg.EnableCategory(DebugSegment)
		anyDebug = true
	}
	if f.DebugHLS {
		cfg.EnableCategory(DebugHLS)
		anyDebug = true
	}
	if f.DebugWebRTC {
		cfg.EnableCategory(DebugWebRTC)
		anyDebug = true
	}
	if f.DebugPTZ {
		cfg.EnableCategory(DebugPTZ)
		anyDebug = true
	}
	if anyDebug {
		cfg.Level = LevelDebug
	}

	return cfg, nil
}

// PrintUsageExamples prints example invocations to stdout.
func (f *Flags) PrintUsageExamples() {
	fmt.Println("Examples:")
	fmt.Println("  streamcore -log-level=debug -debug-hls -debug-webrtc")
	fmt.Println("  streamcore -log-format=json -log-file=/var/log/streamcore.log")
}

// String implements fmt.Stringer for diagnostic output.
func (f *Flags) String() string {
	return fmt.Sprintf("level=%s format=%s file=%s debug(pipe=%t nal=%t segment=%t hls=%t webrtc=%t ptz=%t all=%t)",
		f.LogLevel, f.LogFormat, f.LogFile, f.DebugPipe, f.DebugNAL, f.DebugSegment, f.DebugHLS, f.DebugWebRTC, f.DebugPTZ, f.DebugAll)
}
