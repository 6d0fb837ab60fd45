package infra

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// lastVersionKey is the configure.ini key the launcher reads to decide
// which version to start (and whether to update).
const lastVersionKey = "last_version"

// PinLauncherVersion rewrites the last_version line in configure.ini to
// version, creating the file if needed. The file must be writable; callers
// lock it afterwards.
func PinLauncherVersion(configPath, version string) error {
	var content string
	if data, err := os.ReadFile(configPath); err == nil {
		content = string(data)
	}

	var lines []string
	found := false
	for _, line := range strings.Split(content, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), lastVersionKey) {
			lines = append(lines, lastVersionKey+"="+version)
			found = true
		} else if line != "" {
			lines = append(lines, line)
		}
	}
	if !found {
		if len(lines) == 0 {
			lines = append(lines, "[Configure]")
		}
		lines = append(lines, lastVersionKey+"="+version)
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(configPath, []byte(strings.Join(lines, "\n")+"\n"), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", configPath, err)
	}
	return nil
}

// StripVersionPin removes the last_version line from configure.ini so the
// launcher falls back to its own discovery. A missing file is a no-op.
func StripVersionPin(configPath string) error {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read %s: %w", configPath, err)
	}

	var lines []string
	for _, line := range strings.Split(string(data), "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), lastVersionKey) {
			continue
		}
		if line != "" {
			lines = append(lines, line)
		}
	}

	out := strings.Join(lines, "\n")
	if out != "" {
		out += "\n"
	}
	if err := os.WriteFile(configPath, []byte(out), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", configPath, err)
	}
	return nil
}

// WriteProductInfo points the launcher at the executable of the given
// version directory. The format mirrors what the stock launcher writes;
// it only reads InstallPath and Version.
func WriteProductInfo(productInfoPath, versionDir, versionName string) error {
	exePath := filepath.Join(versionDir, "CapCut.exe")
	content := fmt.Sprintf(`<?xml version="1.0" charset="utf-8"?>
<ProductInfo>
  <InstallPath>%s</InstallPath>
  <Version>%s</Version>
</ProductInfo>
`, exePath, versionName)

	if err := os.MkdirAll(filepath.Dir(productInfoPath), 0755); err != nil {
		return fmt.Errorf("failed to create product info directory: %w", err)
	}
	if err := os.WriteFile(productInfoPath, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", productInfoPath, err)
	}
	return nil
}
