// Package fingerprint derives a stable, low-entropy signature of the client
// environment. It is an anomaly signal for detecting credentials replayed
// from a different device, not an authentication credential.
package fingerprint

import (
	"encoding/base64"
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"golang.org/x/crypto/blake2b"
)

// Environment holds the low-entropy attributes the fingerprint is derived
// from. A zero field degrades specificity but never causes an error.
type Environment struct {
	Platform       string
	Hostname       string
	TimezoneOffset int // minutes east of UTC
	Locale         string
	Language       string
	NumCPU         int
	ScreenWidth    int
	ScreenHeight   int
}

// Capture reads the current environment. Attributes that cannot be read are
// left at their zero value.
func Capture() Environment {
	env := Environment{
		Platform: runtime.GOOS + "/" + runtime.GOARCH,
		NumCPU:   runtime.NumCPU(),
	}

	if host, err := os.Hostname(); err == nil {
		env.Hostname = host
	}

	_, offsetSeconds := time.Now().Zone()
	env.TimezoneOffset = offsetSeconds / 60

	env.Locale = locale()
	if idx := strings.IndexAny(env.Locale, "_."); idx > 0 {
		env.Language = env.Locale[:idx]
	} else {
		env.Language = env.Locale
	}

	if w, h, ok := screenGeometry(); ok {
		env.ScreenWidth = w
		env.ScreenHeight = h
	}

	return env
}

func locale() string {
	for _, key := range []string{"LC_ALL", "LC_MESSAGES", "LANG"} {
		if v := os.Getenv(key); v != "" {
			return v
		}
	}
	return ""
}

// screenGeometry reads the display geometry reported by the admin UI shell,
// when one is attached. Headless runs report none.
func screenGeometry() (int, int, bool) {
	geo := os.Getenv("STOCKDESK_SCREEN_GEOMETRY")
	if geo == "" {
		return 0, 0, false
	}
	var w, h int
	if _, err := fmt.Sscanf(geo, "%dx%d", &w, &h); err != nil || w <= 0 || h <= 0 {
		return 0, 0, false
	}
	return w, h, true
}

// Fingerprint computes the deterministic digest of an environment. Equal
// environments always produce equal values; changing any one attribute
// changes the output.
func Fingerprint(env Environment) string {
	canonical := strings.Join([]string{
		"platform=" + env.Platform,
		"hostname=" + env.Hostname,
		fmt.Sprintf("tzoffset=%d", env.TimezoneOffset),
		"locale=" + env.Locale,
		"language=" + env.Language,
		fmt.Sprintf("cpus=%d", env.NumCPU),
		fmt.Sprintf("screen=%dx%d", env.ScreenWidth, env.ScreenHeight),
	}, "|")

	sum := blake2b.Sum256([]byte(canonical))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// Current captures the environment and returns its fingerprint.
func Current() string {
	return Fingerprint(Capture())
}
