package main

import (
	"embed"
	"log/slog"

	"github.com/wailsapp/wails/v3/pkg/application"
	"github.com/wailsapp/wails/v3/pkg/events"
	"go.aimuz.me/glint/internal/app"
)

//go:embed all:frontend/dist
var assets embed.FS

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	slog.Info("starting app", "version", version, "commit", commit, "date", date)
	service := app.New(version)

	wailsApp := application.New(application.Options{
		Name:        "Glint",
		Description: "AR glasses conversation copilot",
		Services: []application.Service{
			application.NewService(service),
		},
		Assets: application.AssetOptions{
			Handler: application.BundledAssetFileServer(assets),
		},
		Mac: application.MacOptions{
			// Don't quit when all windows are closed (we have a system tray)
			ApplicationShouldTerminateAfterLastWindowClosed: false,
		},
	})

	// Create main window
	mainWindow := wailsApp.Window.NewWithOptions(application.WebviewWindowOptions{
		Title:  "Glint",
		Width:  1024,
		Height: 768,
		URL:    "/",
		Mac: application.MacWindow{
			TitleBar:                application.MacTitleBarHiddenInsetUnified,
			InvisibleTitleBarHeight: 38,
		},
		DevToolsEnabled: true,
	})

	// Intercept window close: hide instead of destroy so tray can reopen
	mainWindow.RegisterHook(events.Common.WindowClosing, func(e *application.WindowEvent) {
		e.Cancel() // Prevent actual close
		mainWindow.Hide()
	})

	// Initialize service with app and window references
	service.Init(wailsApp, mainWindow)

	// Setup system tray
	systemTray := wailsApp.SystemTray.New()
	systemTray.SetLabel("Glint")

	trayMenu := wailsApp.NewMenu()
	trayMenu.Add("显示窗口").OnClick(func(ctx *application.Context) {
		mainWindow.Show()
		mainWindow.Focus()
	})
	trayMenu.Add("搜索眼镜").OnClick(func(ctx *application.Context) {
		if err := service.StartScan(); err != nil {
			slog.Error("scan from tray", "error", err)
		}
	})
	trayMenu.Add("切换语音").
		SetAccelerator("CmdOrCtrl+Shift+G").
		OnClick(func(ctx *application.Context) {
			go func() {
				if service.GetSessionStatus().Listening {
					if _, err := service.StopVoice(); err != nil {
						slog.Error("stop voice from tray", "error", err)
					}
					return
				}
				if err := service.StartVoice(); err != nil {
					slog.Error("start voice from tray", "error", err)
				}
			}()
		})
	trayMenu.Add("立即分析").
		SetAccelerator("CmdOrCtrl+Shift+A").
		OnClick(func(ctx *application.Context) {
			service.AnalyzeNow()
		})

	// Provider submenu with radio buttons
	providerMenu := trayMenu.AddSubmenu("助手模型")
	for _, p := range service.GetProviders() {
		provider := p // Capture loop variable
		providerMenu.AddRadio(provider.Name, provider.Active).OnClick(func(ctx *application.Context) {
			if err := service.SetProviderActive(provider.ID); err != nil {
				slog.Error("set provider active", "error", err)
			}
		})
	}

	trayMenu.AddSeparator()
	trayMenu.Add("退出").
		SetAccelerator("CmdOrCtrl+Q").
		OnClick(func(ctx *application.Context) {
			service.Shutdown()
			wailsApp.Quit()
		})

	systemTray.SetMenu(trayMenu)

	// Run application
	if err := wailsApp.Run(); err != nil {
		slog.Error("run app", "error", err)
	}
}
