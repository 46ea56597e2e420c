// Package browser реализует выполнение действий против живой браузерной
// сессии через Playwright. Пакет предоставляет runner.ActionExecutor:
// одно действие — один вызов Perform с снимком страницы в результате.
package browser

import (
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"
)

// ArtifactSaver сохраняет скриншоты. Реализуется пакетом artifacts.
type ArtifactSaver interface {
	Save(kind string, data []byte) (string, error)
}

type PlaywrightBrowser struct {
	pw        *playwright.Playwright
	browser   playwright.Browser
	context   playwright.BrowserContext
	page      playwright.Page
	mu        sync.RWMutex
	cfg       Config
	artifacts ArtifactSaver
}

type Config struct {
	Headless        bool
	UserDataDir     string
	BrowsersPath    string
	Display         string
	Timeout         time.Duration
	NavigateTimeout time.Duration
	ActionTimeout   time.Duration
}
