package telemetry

import (
	"fmt"

	"github.com/gabriel-vasile/mimetype"
)

// Field and payload limits
const (
	MaxHostnameLength = 255
	MaxPlatformLength = 64
	MaxVersionLength  = 64
	MaxCategoryLength = 64
	MaxMessageLength  = 4096
	MaxScreenshotSize = 8 * 1024 * 1024 // 8MB raw image payload
)

// Severity levels accepted on alerts
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

var validSeverities = map[string]bool{
	SeverityInfo:     true,
	SeverityWarning:  true,
	SeverityCritical: true,
}

var validScreenshotFormats = map[string]bool{
	"png":  true,
	"jpeg": true,
	"webp": true,
}

// ValidateDevice checks registration fields before they are stored.
func ValidateDevice(d *Device) error {
	if d.Hostname == "" {
		return fmt.Errorf("hostname is required")
	}
	if len(d.Hostname) > MaxHostnameLength {
		return fmt.Errorf("hostname length %d exceeds maximum %d", len(d.Hostname), MaxHostnameLength)
	}
	if d.Platform == "" {
		return fmt.Errorf("platform is required")
	}
	if len(d.Platform) > MaxPlatformLength {
		return fmt.Errorf("platform length %d exceeds maximum %d", len(d.Platform), MaxPlatformLength)
	}
	if len(d.AgentVersion) > MaxVersionLength {
		return fmt.Errorf("agent version length %d exceeds maximum %d", len(d.AgentVersion), MaxVersionLength)
	}
	return nil
}

// ValidateMetric checks a resource sample for physically plausible values.
func ValidateMetric(m *Metric) error {
	if m.CPUPercent < 0 || m.CPUPercent > 100 {
		return fmt.Errorf("cpu percent %.2f out of range [0, 100]", m.CPUPercent)
	}
	if m.MemoryUsedMB < 0 {
		return fmt.Errorf("memory used must not be negative, got %.2f", m.MemoryUsedMB)
	}
	if m.MemoryTotalMB < 0 {
		return fmt.Errorf("memory total must not be negative, got %.2f", m.MemoryTotalMB)
	}
	if m.MemoryTotalMB > 0 && m.MemoryUsedMB > m.MemoryTotalMB {
		return fmt.Errorf("memory used %.2f exceeds total %.2f", m.MemoryUsedMB, m.MemoryTotalMB)
	}
	if m.DiskUsedGB < 0 {
		return fmt.Errorf("disk used must not be negative, got %.2f", m.DiskUsedGB)
	}
	return nil
}

// ValidateAlert checks alert fields and the severity enum.
func ValidateAlert(a *Alert) error {
	if !validSeverities[a.Severity] {
		return fmt.Errorf("unknown severity %q", a.Severity)
	}
	if a.Message == "" {
		return fmt.Errorf("message is required")
	}
	if len(a.Message) > MaxMessageLength {
		return fmt.Errorf("message length %d exceeds maximum %d", len(a.Message), MaxMessageLength)
	}
	if len(a.Category) > MaxCategoryLength {
		return fmt.Errorf("category length %d exceeds maximum %d", len(a.Category), MaxCategoryLength)
	}
	return nil
}

// ValidateScreenshot checks the image format whitelist, the size cap, and
// that the payload really is the image type the agent declared.
func ValidateScreenshot(s *Screenshot) error {
	if !validScreenshotFormats[s.Format] {
		return fmt.Errorf("unsupported screenshot format %q", s.Format)
	}
	if len(s.Data) == 0 {
		return fmt.Errorf("screenshot data is empty")
	}
	if len(s.Data) > MaxScreenshotSize {
		return fmt.Errorf("screenshot size %d bytes exceeds maximum %d bytes", len(s.Data), MaxScreenshotSize)
	}
	if detected := mimetype.Detect(s.Data); !detected.Is("image/" + s.Format) {
		return fmt.Errorf("screenshot data is %s, not image/%s", detected.String(), s.Format)
	}
	return nil
}
