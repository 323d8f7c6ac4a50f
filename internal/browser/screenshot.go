package browser

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/playwright-community/playwright-go"
)

// ScreenshotDebugger saves full-page screenshots for debugging selector drift
type ScreenshotDebugger struct {
	outputDir string
}

func NewScreenshotDebugger(dir string) (*ScreenshotDebugger, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("screenshot dir: %w", err)
	}
	return &ScreenshotDebugger{outputDir: dir}, nil
}

// Capture saves a screenshot named name_<timestamp>.png and returns its path.
func (s *ScreenshotDebugger) Capture(page playwright.Page, name string) (string, error) {
	timestamp := time.Now().Format("2006-01-02_15-04-05")
	path := filepath.Join(s.outputDir, fmt.Sprintf("%s_%s.png", name, timestamp))

	_, err := page.Screenshot(playwright.PageScreenshotOptions{
		Path:     playwright.String(path),
		FullPage: playwright.Bool(true),
	})
	if err != nil {
		return "", fmt.Errorf("capture screenshot: %w", err)
	}
	log.Printf("📸 Screenshot saved: %s", path)
	return path, nil
}
